package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/copilot-qa/internal/extract"
)

var chatProfile string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively in a single conversation",
	Long:  "Opens one conversation and keeps it for the whole session, so follow-up questions carry context. Type 'exit' or press Ctrl-D to quit.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		agent, err := buildAgent(ctx, chatProfile)
		if err != nil {
			return err
		}

		conversationID, err := agent.StartConversation(ctx)
		if err != nil {
			return err
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, "> ")
			if !scanner.Scan() {
				break
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}
			if question == "exit" || question == "quit" {
				break
			}

			activities, err := agent.AskQuestion(ctx, conversationID, question)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}

			result := extract.Extract(activities)
			fmt.Println(result.Answer)
			if citations := extract.FormatCitations(result.Citations); citations != "" {
				fmt.Println()
				fmt.Println(citations)
			}
		}

		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatProfile, "profile", "", "named backend profile from the profiles file")
	rootCmd.AddCommand(chatCmd)
}
