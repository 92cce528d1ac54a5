package line_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiyuhsu/commutebot/internal/line"
)

type capturedRequest struct {
	path     string
	auth     string
	retryKey string
	payload  map[string]any
}

func newTestClientAndCapture(t *testing.T, status int) (*line.Client, *[]capturedRequest) {
	t.Helper()

	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		captured = append(captured, capturedRequest{
			path:     r.URL.Path,
			auth:     r.Header.Get("Authorization"),
			retryKey: r.Header.Get("X-Line-Retry-Key"),
			payload:  payload,
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	client, err := line.NewClient("channel-token", line.WithClientBaseURL(server.URL))
	require.NoError(t, err)
	return client, &captured
}

func TestClient_Reply(t *testing.T) {
	client, captured := newTestClientAndCapture(t, http.StatusOK)

	err := client.Reply(context.Background(), "rt-1", "hello")
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	got := (*captured)[0]
	assert.Equal(t, "/v2/bot/message/reply", got.path)
	assert.Equal(t, "Bearer channel-token", got.auth)
	assert.Equal(t, "rt-1", got.payload["replyToken"])

	messages, ok := got.payload["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "text", msg["type"])
	assert.Equal(t, "hello", msg["text"])
}

func TestClient_Push(t *testing.T) {
	client, captured := newTestClientAndCapture(t, http.StatusOK)

	err := client.Push(context.Background(), "U123", "leave now")
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	got := (*captured)[0]
	assert.Equal(t, "/v2/bot/message/push", got.path)
	assert.Equal(t, "U123", got.payload["to"])

	// Pushes are deduplicated server-side by a per-attempt retry key.
	_, err = uuid.Parse(got.retryKey)
	assert.NoError(t, err)
}

func TestClient_PushRetryKeysAreUnique(t *testing.T) {
	client, captured := newTestClientAndCapture(t, http.StatusOK)

	require.NoError(t, client.Push(context.Background(), "U123", "one"))
	require.NoError(t, client.Push(context.Background(), "U123", "two"))

	require.Len(t, *captured, 2)
	assert.NotEqual(t, (*captured)[0].retryKey, (*captured)[1].retryKey)
}

func TestClient_NonOKStatusIsError(t *testing.T) {
	client, _ := newTestClientAndCapture(t, http.StatusTooManyRequests)

	err := client.Push(context.Background(), "U123", "leave now")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_EmptyTargets(t *testing.T) {
	client, captured := newTestClientAndCapture(t, http.StatusOK)

	assert.Error(t, client.Reply(context.Background(), "", "text"))
	assert.Error(t, client.Push(context.Background(), "", "text"))
	assert.Empty(t, *captured)
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := line.NewClient("")
	require.Error(t, err)
}
