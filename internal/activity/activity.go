package activity

import "time"

// Status is the outcome of one agent's attempt to answer a message.
type Status string

const (
	StatusDelivered      Status = "delivered"
	StatusModelFailed    Status = "model_failed"
	StatusDeliveryFailed Status = "delivery_failed"
)

// Entry is a single dispatch log record. Reply text is not stored, only its length.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	MessageKey string    `json:"message_key"`
	Platform   string    `json:"platform"`
	ChannelID  string    `json:"channel_id"`
	AgentID    string    `json:"agent_id"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ReplyChars int       `json:"reply_chars"`
}
