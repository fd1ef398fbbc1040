// Package agents defines the configured chat responders and their SQLite-backed store.
// The relay only reads agents; they are written by the management surface.
package agents

import (
	"strings"
	"time"
)

// Platform identifies the messaging platform.
type Platform string

const (
	PlatformSlack Platform = "slack"
	PlatformTeams Platform = "teams"
)

// Platforms lists every supported platform in a stable order.
var Platforms = []Platform{PlatformSlack, PlatformTeams}

// Credential is the secret bundle an agent holds for one platform.
// It is implemented only by SlackCredentials and TeamsCredentials.
type Credential interface {
	Platform() Platform
	credential()
}

// SlackCredentials authenticate an agent against the Slack Web API.
type SlackCredentials struct {
	BotToken      string `json:"bot_token" yaml:"bot_token"`
	SigningSecret string `json:"signing_secret,omitempty" yaml:"signing_secret"`
	// BotUserID is the bot's own user id; messages from it are never answered.
	BotUserID string `json:"bot_user_id,omitempty" yaml:"bot_user_id"`
}

func (SlackCredentials) Platform() Platform { return PlatformSlack }
func (SlackCredentials) credential()        {}

// TeamsCredentials authenticate an agent against the Bot Framework.
type TeamsCredentials struct {
	AppID       string `json:"app_id" yaml:"app_id"`
	AppPassword string `json:"app_password" yaml:"app_password"`
	TenantID    string `json:"tenant_id,omitempty" yaml:"tenant_id"`
	ServiceURL  string `json:"service_url,omitempty" yaml:"service_url"`
}

func (TeamsCredentials) Platform() Platform { return PlatformTeams }
func (TeamsCredentials) credential()        {}

// Agent is a configured chat responder.
type Agent struct {
	ID       string
	Name     string
	IsActive bool

	// Credentials holds one bundle per platform the agent is active on.
	Credentials map[Platform]Credential

	// ChannelFilter restricts Slack replies to channels starting with this value.
	ChannelFilter string

	RespondToAll      bool
	RespondToMentions bool
	Keywords          []string

	ModelAPIKey string
	ModelID     string

	SystemPrompt     string
	ContextData      string
	ResponseTemplate string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Platforms returns the platforms the agent has credentials for.
func (a Agent) Platforms() []Platform {
	var out []Platform
	for _, p := range Platforms {
		if _, ok := a.Credentials[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// On reports whether the agent is configured for the platform.
func (a Agent) On(p Platform) bool {
	_, ok := a.Credentials[p]
	return ok
}

// Slack returns the agent's Slack credentials, if any.
func (a Agent) Slack() (SlackCredentials, bool) {
	c, ok := a.Credentials[PlatformSlack].(SlackCredentials)
	return c, ok
}

// Teams returns the agent's Teams credentials, if any.
func (a Agent) Teams() (TeamsCredentials, bool) {
	c, ok := a.Credentials[PlatformTeams].(TeamsCredentials)
	return c, ok
}

// IsCandidate reports whether the agent may react to an event on the given
// platform and channel. The channel filter only applies to Slack; a leading
// '#' in the filter is ignored and the remainder must prefix the channel.
func (a Agent) IsCandidate(p Platform, channel string) bool {
	if !a.IsActive || !a.On(p) {
		return false
	}
	if p == PlatformSlack && a.ChannelFilter != "" {
		return strings.HasPrefix(channel, strings.TrimPrefix(a.ChannelFilter, "#"))
	}
	return true
}

// ParsePlatform converts s into a Platform, reporting whether it is supported.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Platforms {
		if p == known {
			return p, true
		}
	}
	return "", false
}
