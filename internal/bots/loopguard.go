package bots

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/agent-relay/internal/agents"
)

// LoopGuard decides whether an inbound event was produced by a bot, including
// the relay's own agents, and must not be answered. The gateway runs
// RejectSender before reading the agent store and RejectOwn after it.
type LoopGuard interface {
	// RejectSender inspects the event alone.
	RejectSender(ev InboundEvent) (bool, string)
	// RejectOwn matches the sender against the active agents configured for
	// the event's platform.
	RejectOwn(ev InboundEvent, own []agents.Agent) (bool, string)
}

// StrictLoopGuard trusts only the platform's bot markers and exact matches
// against the configured agents.
type StrictLoopGuard struct{}

func (StrictLoopGuard) RejectSender(ev InboundEvent) (bool, string) {
	if ev.SenderIsBot {
		return true, "sender is a bot"
	}
	return false, ""
}

func (StrictLoopGuard) RejectOwn(ev InboundEvent, own []agents.Agent) (bool, string) {
	switch ev.Platform {
	case agents.PlatformSlack:
		for _, a := range own {
			if creds, ok := a.Slack(); ok && creds.BotUserID != "" && creds.BotUserID == ev.SenderID {
				return true, "sender is agent " + a.Name
			}
		}
	case agents.PlatformTeams:
		for _, a := range own {
			creds, ok := a.Teams()
			if !ok {
				continue
			}
			if (creds.AppID != "" && ev.SenderID == creds.AppID) || (a.Name != "" && ev.SenderName == a.Name) {
				return true, "sender is agent " + a.Name
			}
		}
	}
	return false, ""
}

// HeuristicLoopGuard extends StrictLoopGuard with a name heuristic for Teams:
// a sender whose id or display name contains "bot" (case-sensitive) is
// treated as a bot. This also drops humans with such names.
type HeuristicLoopGuard struct {
	StrictLoopGuard
}

func (g HeuristicLoopGuard) RejectSender(ev InboundEvent) (bool, string) {
	if ev.Platform == agents.PlatformTeams &&
		(strings.Contains(ev.SenderID, "bot") || strings.Contains(ev.SenderName, "bot")) {
		return true, "sender looks like a bot"
	}
	return g.StrictLoopGuard.RejectSender(ev)
}

// LoopGuardFor returns the guard registered under name ("heuristic" or "strict").
func LoopGuardFor(name string) (LoopGuard, error) {
	switch name {
	case "", "heuristic":
		return HeuristicLoopGuard{}, nil
	case "strict":
		return StrictLoopGuard{}, nil
	default:
		return nil, fmt.Errorf("unknown loop guard policy %q", name)
	}
}
