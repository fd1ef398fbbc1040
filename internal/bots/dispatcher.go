package bots

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/agent-relay/internal/agents"
)

// Dispatcher delivers an agent's reply to the conversation an event came from.
type Dispatcher interface {
	Deliver(ctx context.Context, a agents.Agent, ev InboundEvent, text string) error
}

// PlatformDispatcher routes deliveries to the sender for the event's platform.
type PlatformDispatcher struct {
	slack *SlackSender
	teams *TeamsSender
}

// NewPlatformDispatcher creates a dispatcher. Either sender may be nil, in
// which case deliveries for that platform fail.
func NewPlatformDispatcher(slack *SlackSender, teams *TeamsSender) *PlatformDispatcher {
	return &PlatformDispatcher{slack: slack, teams: teams}
}

func (d *PlatformDispatcher) Deliver(ctx context.Context, a agents.Agent, ev InboundEvent, text string) error {
	switch ev.Platform {
	case agents.PlatformSlack:
		creds, ok := a.Slack()
		if !ok {
			return missingCredentials(ev.Platform, a)
		}
		if d.slack == nil {
			return &ChannelDeliveryError{Platform: ev.Platform, Step: "send", Body: "slack sender not configured"}
		}
		threadTS := ""
		if ev.Slack != nil {
			threadTS = ev.Slack.ThreadTS
		}
		return d.slack.Send(ctx, creds, ev.ChannelID, threadTS, text)

	case agents.PlatformTeams:
		creds, ok := a.Teams()
		if !ok {
			return missingCredentials(ev.Platform, a)
		}
		if d.teams == nil {
			return &ChannelDeliveryError{Platform: ev.Platform, Step: "send", Body: "teams sender not configured"}
		}
		act := ev.Teams
		if act == nil {
			act = &TeamsActivity{}
		}
		return d.teams.Send(ctx, a, creds, act, text)

	default:
		return fmt.Errorf("unsupported platform %q", ev.Platform)
	}
}

func missingCredentials(p agents.Platform, a agents.Agent) error {
	return &ChannelDeliveryError{
		Platform: p,
		Step:     "credentials",
		Body:     fmt.Sprintf("agent %s has no %s credentials", a.ID, p),
	}
}
