// Package anthropic adapts the Anthropic Messages API to the agent
// conversation interface used by the batch driver. Conversation state lives
// client-side: the Messages API is stateless, so each session keeps its own
// message history and replays it on every turn.
package anthropic

import (
	"context"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/copilot-qa/internal/model"
)

// SessionClient answers questions over independent Anthropic-backed
// conversations. Safe for concurrent use.
type SessionClient struct {
	client    sdk.Client
	reqOpts   []option.RequestOption
	model     string
	maxTokens int64
	system    string

	mu       sync.Mutex
	sessions map[string][]sdk.MessageParam
}

// Option configures the session client.
type Option func(*SessionClient)

// WithSystem sets a system prompt sent on every turn.
func WithSystem(system string) Option {
	return func(c *SessionClient) {
		c.system = system
	}
}

// WithMaxTokens sets the per-turn output token cap.
func WithMaxTokens(n int64) Option {
	return func(c *SessionClient) {
		c.maxTokens = n
	}
}

// WithRequestOptions passes additional options to the underlying SDK client
// (for testing: option.WithBaseURL).
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(c *SessionClient) {
		c.reqOpts = append(c.reqOpts, opts...)
	}
}

// NewSessionClient creates a session client backed by the official SDK.
func NewSessionClient(apiKey, modelID string, opts ...Option) *SessionClient {
	c := &SessionClient{
		reqOpts:   []option.RequestOption{option.WithAPIKey(apiKey)},
		model:     modelID,
		maxTokens: 1024,
		sessions:  make(map[string][]sdk.MessageParam),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = sdk.NewClient(c.reqOpts...)
	return c
}

// StartConversation registers a fresh, empty session and returns its ID.
func (c *SessionClient) StartConversation(_ context.Context) (string, error) {
	id := uuid.NewString()
	c.mu.Lock()
	c.sessions[id] = nil
	c.mu.Unlock()
	return id, nil
}

// AskQuestion submits one turn on an open session and returns the reply as
// activities: one message activity per text content block, then an
// end-of-conversation marker.
func (c *SessionClient) AskQuestion(ctx context.Context, conversationID, text string) ([]model.Activity, error) {
	c.mu.Lock()
	history, ok := c.sessions[conversationID]
	c.mu.Unlock()
	if !ok {
		return nil, eris.Errorf("anthropic: unknown conversation %s", conversationID)
	}

	messages := append(append([]sdk.MessageParam{}, history...),
		sdk.NewUserMessage(sdk.NewTextBlock(text)))

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  messages,
	}
	if c.system != "" {
		params.System = []sdk.TextBlockParam{{Text: c.system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	activities := make([]model.Activity, 0, len(msg.Content)+1)
	for _, block := range msg.Content {
		if block.Type != "text" || block.Text == "" {
			continue
		}
		activities = append(activities, model.Activity{
			Type: model.ActivityMessage,
			Text: block.Text,
		})
	}
	activities = append(activities, model.Activity{Type: model.ActivityEndOfConversation})

	c.mu.Lock()
	c.sessions[conversationID] = append(messages, msg.ToParam())
	c.mu.Unlock()

	zap.L().Debug("anthropic turn complete",
		zap.String("conversation_id", conversationID),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	return activities, nil
}
