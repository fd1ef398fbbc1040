package bots

import (
	"bytes"
	"encoding/json"

	"github.com/ziadkadry99/agent-relay/internal/agents"
)

// Classify determines which platform produced a webhook body.
//
// Slack is recognized by a url_verification type or an event/team_id field;
// Teams by a message type carrying a serviceUrl. Anything else is
// PlatformUnknown. Empty or non-object bodies yield a *MalformedRequestError.
func Classify(body []byte) (agents.Platform, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return PlatformUnknown, &MalformedRequestError{Reason: "Empty request body"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return PlatformUnknown, &MalformedRequestError{Reason: "Invalid JSON", Err: err}
	}

	typ := stringField(fields, "type")
	if typ == "url_verification" || present(fields, "event") || present(fields, "team_id") {
		return agents.PlatformSlack, nil
	}
	if typ == "message" && present(fields, "serviceUrl") {
		return agents.PlatformTeams, nil
	}
	return PlatformUnknown, nil
}

// present reports whether the field exists with a non-null, non-empty value.
func present(fields map[string]json.RawMessage, key string) bool {
	raw, ok := fields[key]
	if !ok {
		return false
	}
	switch string(bytes.TrimSpace(raw)) {
	case "null", `""`, "false", "0":
		return false
	}
	return true
}

func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := fields[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}
