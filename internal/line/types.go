// Package line implements the messaging-channel boundary: webhook intake
// with signature verification, and the reply/push delivery client.
package line

// EventType distinguishes the webhook event kinds this service consumes.
type EventType string

// Webhook event types.
const (
	EventTypeMessage  EventType = "message"
	EventTypePostback EventType = "postback"
)

// Event is one decoded inbound event. Text is set for message events;
// PostbackData and DatetimeParam for postback events.
type Event struct {
	Type          EventType
	UserID        string
	ReplyToken    string
	Text          string
	PostbackData  string
	DatetimeParam string
}

// webhookBody is the wire form of a webhook delivery.
type webhookBody struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string          `json:"type"`
	ReplyToken string          `json:"replyToken"`
	Source     webhookSource   `json:"source"`
	Message    *webhookMessage `json:"message,omitempty"`
	Postback   *postback       `json:"postback,omitempty"`
}

type webhookSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type webhookMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type postback struct {
	Data   string          `json:"data"`
	Params *postbackParams `json:"params,omitempty"`
}

type postbackParams struct {
	Datetime string `json:"datetime"`
}

// textMessage is the wire form of an outbound text message.
type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}
