package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/copilot-qa/internal/batch"
	"github.com/sells-group/copilot-qa/internal/extract"
	"github.com/sells-group/copilot-qa/internal/model"
)

var (
	servePort    int
	serveProfile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server that answers one question per request",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		agent, err := buildAgent(ctx, serveProfile)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(agent, cfg.Server.AllowedOrigins),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveProfile, "profile", "", "named backend profile from the profiles file")
	rootCmd.AddCommand(serveCmd)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer      string             `json:"answer"`
	Citations   []model.Citation   `json:"citations,omitempty"`
	SearchTerms []model.SearchTerm `json:"searchTerms,omitempty"`
}

// newRouter builds the HTTP API. Each ask request gets its own fresh
// conversation, same as a batch row.
func newRouter(agent batch.Agent, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/ask", func(w http.ResponseWriter, req *http.Request) {
		var body askRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Question == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
			return
		}

		ctx := req.Context()
		conversationID, err := agent.StartConversation(ctx)
		if err != nil {
			zap.L().Error("serve: start conversation", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}

		activities, err := agent.AskQuestion(ctx, conversationID, body.Question)
		if err != nil {
			zap.L().Error("serve: ask question", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}

		result := extract.Extract(activities)
		writeJSON(w, http.StatusOK, askResponse{
			Answer:      result.Answer,
			Citations:   result.Citations,
			SearchTerms: result.SearchTerms,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
