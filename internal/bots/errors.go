package bots

import (
	"errors"
	"fmt"

	"github.com/ziadkadry99/agent-relay/internal/agents"
)

// ErrInvalidSignature is returned when signature verification is enabled and
// a Slack request matches no agent's signing secret.
var ErrInvalidSignature = errors.New("invalid slack request signature")

// errUnusableBody marks valid JSON whose fields have unexpected types. Such
// requests are acknowledged and otherwise ignored.
var errUnusableBody = errors.New("unexpected field types")

// MalformedRequestError marks a request the router cannot interpret: an
// empty or non-JSON body, or one no supported platform produced.
type MalformedRequestError struct {
	Reason string
	Err    error
}

func (e *MalformedRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *MalformedRequestError) Unwrap() error { return e.Err }

// StoreReadError wraps a failure to read agents for an event.
type StoreReadError struct {
	Platform agents.Platform
	Err      error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("reading %s agents: %v", e.Platform, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }

// ChannelDeliveryError reports a failed reply delivery. Step names the
// failing call ("send" for Slack; "token" or "send" for Teams).
type ChannelDeliveryError struct {
	Platform agents.Platform
	Step     string
	Status   int
	Body     string
	Err      error
}

func (e *ChannelDeliveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s failed: status %d: %s", e.Platform, e.Step, e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Platform, e.Step, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Platform, e.Step, e.Body)
}

func (e *ChannelDeliveryError) Unwrap() error { return e.Err }
