package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultAPIBase is the production messaging API endpoint.
	DefaultAPIBase = "https://api.line.me"

	// DefaultSendTimeout bounds one delivery attempt.
	DefaultSendTimeout = 10 * time.Second
)

// Client delivers outbound messages over the channel REST API. It
// implements the notify.Pusher seam via Push.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	token      string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithClientHTTP sets a custom HTTP client.
func WithClientHTTP(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClientBaseURL overrides the endpoint, primarily for tests.
func WithClientBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithClientLogger sets a custom logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a delivery client.
func NewClient(channelToken string, opts ...ClientOption) (*Client, error) {
	if channelToken == "" {
		return nil, fmt.Errorf("channel token is required")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultSendTimeout},
		logger:     slog.Default(),
		baseURL:    DefaultAPIBase,
		token:      channelToken,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Reply sends one text message against a reply token. A token is valid for
// exactly one reply, which is what keeps the one-message-per-event contract.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	if replyToken == "" {
		return fmt.Errorf("reply token cannot be empty")
	}

	return c.post(ctx, "/v2/bot/message/reply", "", replyRequest{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: text}},
	})
}

// Push sends one text message directly to a user, outside any reply
// window. Used by the reminder path. Each push carries a fresh retry key so
// the API can deduplicate if the HTTP attempt is retried.
func (c *Client) Push(ctx context.Context, userID, text string) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	return c.post(ctx, "/v2/bot/message/push", uuid.NewString(), pushRequest{
		To:       userID,
		Messages: []textMessage{{Type: "text", Text: text}},
	})
}

func (c *Client) post(ctx context.Context, path, retryKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if retryKey != "" {
		req.Header.Set("X-Line-Retry-Key", retryKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("message delivery failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("messaging API rejected delivery",
			slog.Int("status", resp.StatusCode),
			slog.String("path", path),
			slog.String("detail", string(detail)))
		return fmt.Errorf("messaging API returned status %d", resp.StatusCode)
	}

	return nil
}
