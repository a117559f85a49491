package copilot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/copilot-qa/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", "env-1", "agent-1", WithBaseURL(srv.URL))
}

func TestStartConversation(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/copilotstudio/environments/env-1/agents/agent-1/conversations", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"conversationId":"conv-42"}`)
	})

	id, err := client.StartConversation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "conv-42", id)
}

func TestStartConversationMissingID(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	_, err := client.StartConversation(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing conversationId")
}

func TestStartConversationServerError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	})

	_, err := client.StartConversation(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestAskQuestion(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/copilotstudio/environments/env-1/agents/agent-1/conversations/conv-42/messages", r.URL.Path)
		fmt.Fprint(w, `{"activities":[
			{"type":"typing"},
			{"type":"message","text":"It is sunny.","channelData":{"pva:gpt-feedback":{"k":"v"}}},
			{"type":"endOfConversation"}
		]}`)
	})

	activities, err := client.AskQuestion(context.Background(), "conv-42", "What is the weather like today?")
	require.NoError(t, err)
	require.Len(t, activities, 3)

	assert.Equal(t, model.ActivityTyping, activities[0].Type)
	assert.Equal(t, model.ActivityMessage, activities[1].Type)
	assert.Equal(t, "It is sunny.", activities[1].Text)
	require.NotNil(t, activities[1].ChannelData)
	assert.Contains(t, activities[1].ChannelData, "pva:gpt-feedback")
	assert.Equal(t, model.ActivityEndOfConversation, activities[2].Type)
}

func TestAskQuestionRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"activities":[{"type":"message","text":"ok"}]}`)
	})

	activities, err := client.AskQuestion(context.Background(), "c", "q")
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "ok", activities[0].Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFreshConversationsGetDistinctIDs(t *testing.T) {
	t.Parallel()

	var seq atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"conversationId":"conv-%d"}`, seq.Add(1))
	})

	first, err := client.StartConversation(context.Background())
	require.NoError(t, err)
	second, err := client.StartConversation(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
