// Package copilot provides a client for a Copilot Studio agent's
// conversation API.
package copilot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/copilot-qa/internal/model"
)

// Client defines the agent conversation operations.
type Client interface {
	// StartConversation opens a brand-new conversation and returns its ID.
	// No state carries over from any prior conversation.
	StartConversation(ctx context.Context) (string, error)
	// AskQuestion submits text to an open conversation and returns the
	// ordered reply activities for the turn.
	AskQuestion(ctx context.Context, conversationID, text string) ([]model.Activity, error)
}

// conversationResponse is the wire shape of a conversation-create reply.
type conversationResponse struct {
	ConversationID string `json:"conversationId"`
}

// turnResponse is the wire shape of a message-turn reply.
type turnResponse struct {
	Activities []wireActivity `json:"activities"`
}

// wireActivity mirrors one Bot Framework style activity on the wire.
type wireActivity struct {
	Type        string         `json:"type"`
	Text        string         `json:"text"`
	ChannelData map[string]any `json:"channelData"`
}

// Option configures the copilot client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	token         string
	baseURL       string
	environmentID string
	agentID       string
	http          *http.Client
}

// NewClient creates an agent client. The bearer token is supplied once, at
// construction; callers acquire it from their token provider beforehand.
func NewClient(token, environmentID, agentID string, opts ...Option) Client {
	c := &httpClient{
		token:         token,
		baseURL:       "https://api.powerplatform.com",
		environmentID: environmentID,
		agentID:       agentID,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// doJSON executes a POST with a JSON body and retries transient failures
// (429, 500, 502, 503) with exponential backoff. Returns the response body
// and status code.
func (c *httpClient) doJSON(ctx context.Context, url string, payload any) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, 0, eris.Wrap(err, "copilot: marshal request")
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
		if err != nil {
			return nil, 0, eris.Wrap(err, "copilot: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "copilot: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("copilot: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) conversationsURL() string {
	return fmt.Sprintf("%s/copilotstudio/environments/%s/agents/%s/conversations",
		c.baseURL, c.environmentID, c.agentID)
}

func (c *httpClient) StartConversation(ctx context.Context) (string, error) {
	body, statusCode, err := c.doJSON(ctx, c.conversationsURL(), nil)
	if err != nil {
		return "", eris.Wrap(err, "copilot: start conversation")
	}

	if statusCode != http.StatusOK && statusCode != http.StatusCreated {
		return "", eris.Errorf("copilot: start conversation: unexpected status %d: %s", statusCode, string(body))
	}

	var result conversationResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", eris.Wrap(err, "copilot: unmarshal conversation response")
	}
	if result.ConversationID == "" {
		return "", eris.New("copilot: conversation response missing conversationId")
	}

	return result.ConversationID, nil
}

func (c *httpClient) AskQuestion(ctx context.Context, conversationID, text string) ([]model.Activity, error) {
	url := fmt.Sprintf("%s/%s/messages", c.conversationsURL(), conversationID)

	payload := map[string]string{"text": text}
	body, statusCode, err := c.doJSON(ctx, url, payload)
	if err != nil {
		return nil, eris.Wrap(err, "copilot: ask question")
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("copilot: ask question: unexpected status %d: %s", statusCode, string(body))
	}

	var result turnResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "copilot: unmarshal turn response")
	}

	activities := make([]model.Activity, 0, len(result.Activities))
	for _, a := range result.Activities {
		activities = append(activities, model.Activity{
			Type:        a.Type,
			Text:        a.Text,
			ChannelData: a.ChannelData,
		})
	}

	return activities, nil
}
