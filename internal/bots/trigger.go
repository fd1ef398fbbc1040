package bots

import (
	"strings"

	"github.com/ziadkadry99/agent-relay/internal/agents"
)

// mentionMarker opens a Slack user mention such as <@U123>.
const mentionMarker = "<@"

// ShouldRespond reports whether the agent's trigger rules match the message.
// lowerText must already be lower-cased. Keywords match case-insensitively
// as substrings.
func ShouldRespond(a agents.Agent, lowerText string) bool {
	if a.RespondToAll {
		return true
	}
	if a.RespondToMentions && strings.Contains(lowerText, mentionMarker) {
		return true
	}
	for _, kw := range a.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lowerText, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
