package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// signatureHeader carries the channel signature on webhook deliveries.
const signatureHeader = "X-Line-Signature"

// maxBodyBytes caps a webhook delivery; anything larger is rejected.
const maxBodyBytes = 1 << 20

// Sink receives decoded events. Implementations must not block the webhook
// response on slow work for other users; per-user ordering is the sink's
// responsibility.
type Sink interface {
	Submit(ev Event)
}

// Webhook is the HTTP handler for inbound channel events.
type Webhook struct {
	sink          Sink
	logger        *slog.Logger
	channelSecret []byte
}

// WebhookOption configures the webhook.
type WebhookOption func(*Webhook)

// WithWebhookLogger sets a custom logger.
func WithWebhookLogger(logger *slog.Logger) WebhookOption {
	return func(w *Webhook) {
		w.logger = logger
	}
}

// NewWebhook creates the webhook handler.
func NewWebhook(channelSecret string, sink Sink, opts ...WebhookOption) (*Webhook, error) {
	if channelSecret == "" {
		return nil, fmt.Errorf("channel secret is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}

	w := &Webhook{
		sink:          sink,
		logger:        slog.Default(),
		channelSecret: []byte(channelSecret),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// ServeHTTP verifies the delivery signature, decodes the events, and hands
// them to the sink. The 200 response does not wait for event processing.
func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}

	if !w.validSignature(body, r.Header.Get(signatureHeader)) {
		w.logger.Warn("webhook signature rejected")
		http.Error(rw, "invalid signature", http.StatusBadRequest)
		return
	}

	var payload webhookBody
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}

	for _, raw := range payload.Events {
		ev, ok := decodeEvent(raw)
		if !ok {
			continue
		}
		w.sink.Submit(ev)
	}

	rw.WriteHeader(http.StatusOK)
}

// validSignature checks the base64 HMAC-SHA256 of the body against the
// header value.
func (w *Webhook) validSignature(body []byte, header string) bool {
	if header == "" {
		return false
	}

	mac := hmac.New(sha256.New, w.channelSecret)
	mac.Write(body)
	expected := mac.Sum(nil)

	got, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return false
	}

	return hmac.Equal(expected, got)
}

// decodeEvent maps a wire event onto the internal form. Events this
// service does not consume (stickers, follows, group chatter without a
// user id) are dropped.
func decodeEvent(raw webhookEvent) (Event, bool) {
	if raw.Source.UserID == "" {
		return Event{}, false
	}

	switch raw.Type {
	case string(EventTypeMessage):
		if raw.Message == nil || raw.Message.Type != "text" {
			return Event{}, false
		}
		return Event{
			Type:       EventTypeMessage,
			UserID:     raw.Source.UserID,
			ReplyToken: raw.ReplyToken,
			Text:       raw.Message.Text,
		}, true

	case string(EventTypePostback):
		if raw.Postback == nil {
			return Event{}, false
		}
		ev := Event{
			Type:         EventTypePostback,
			UserID:       raw.Source.UserID,
			ReplyToken:   raw.ReplyToken,
			PostbackData: raw.Postback.Data,
		}
		if raw.Postback.Params != nil {
			ev.DatetimeParam = raw.Postback.Params.Datetime
		}
		return ev, true

	default:
		return Event{}, false
	}
}
