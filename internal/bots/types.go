package bots

import (
	"encoding/json"

	"github.com/ziadkadry99/agent-relay/internal/agents"
)

// PlatformUnknown is the classification of a body no supported platform produced.
const PlatformUnknown agents.Platform = "unknown"

// InboundEvent is the normalized view of one chat message. It lives for a
// single request and is never persisted.
type InboundEvent struct {
	Platform   agents.Platform
	ChannelID  string
	SenderID   string
	SenderName string
	// SenderIsBot is set from the platform's own bot markers.
	SenderIsBot bool
	Text        string
	// MessageID is the Slack ts or the Teams activity id.
	MessageID string

	Slack *SlackMessage
	Teams *TeamsActivity
}

// MessageKey identifies the message across webhook redeliveries. It is
// empty when the platform supplied no message id.
func (e InboundEvent) MessageKey() string {
	if e.MessageID == "" {
		return ""
	}
	return string(e.Platform) + ":" + e.ChannelID + ":" + e.MessageID
}

// SlackMessage carries the Slack-specific fields of an event callback.
type SlackMessage struct {
	TeamID   string
	EventID  string
	Type     string
	Subtype  string
	BotID    string
	TS       string
	ThreadTS string
}

// TeamsActivity is an inbound Bot Framework activity. From, Conversation and
// Recipient are kept raw so the reply can echo them back unchanged.
type TeamsActivity struct {
	Type         string          `json:"type"`
	ID           string          `json:"id"`
	Timestamp    string          `json:"timestamp,omitempty"`
	Text         string          `json:"text"`
	ChannelID    string          `json:"channelId,omitempty"`
	ServiceURL   string          `json:"serviceUrl"`
	From         json.RawMessage `json:"from,omitempty"`
	Conversation json.RawMessage `json:"conversation,omitempty"`
	Recipient    json.RawMessage `json:"recipient,omitempty"`
}

// teamsAccount represents a user or bot account in Teams.
type teamsAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// teamsConversation identifies the Teams conversation.
type teamsConversation struct {
	ID string `json:"id"`
}

// DispatchResult describes the single reply produced for an event.
type DispatchResult struct {
	AgentID   string
	AgentName string
	Platform  agents.Platform
	ChannelID string
	Reply     string
}
