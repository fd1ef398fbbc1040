package bots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"

	"github.com/ziadkadry99/agent-relay/internal/agents"
)

// slackSystemUser is the sender id Slack uses for its own Slackbot messages.
const slackSystemUser = "USLACKBOT"

// slackEnvelope is the outer body of a Slack Events API request.
type slackEnvelope struct {
	Type      string           `json:"type"`
	Token     string           `json:"token"`
	Challenge string           `json:"challenge"`
	TeamID    string           `json:"team_id"`
	EventID   string           `json:"event_id"`
	Event     *slackInnerEvent `json:"event"`
}

// slackInnerEvent represents the inner event in a Slack event_callback.
type slackInnerEvent struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype"`
	User     string `json:"user"`
	Text     string `json:"text"`
	Channel  string `json:"channel"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
	BotID    string `json:"bot_id"`
}

func parseSlackEnvelope(body []byte) (*slackEnvelope, error) {
	var env slackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, decodeError(err)
	}
	return &env, nil
}

// decodeError separates type mismatches in otherwise valid JSON from syntax
// errors.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %v", errUnusableBody, err)
	}
	return &MalformedRequestError{Reason: "Invalid JSON", Err: err}
}

// inboundEvent normalizes the callback's inner event. It returns false when
// the envelope carries no event.
func (env *slackEnvelope) inboundEvent() (InboundEvent, bool) {
	if env.Event == nil {
		return InboundEvent{}, false
	}
	e := env.Event
	return InboundEvent{
		Platform:    agents.PlatformSlack,
		ChannelID:   e.Channel,
		SenderID:    e.User,
		SenderIsBot: e.BotID != "" || e.User == slackSystemUser || e.Subtype == "bot_message",
		Text:        e.Text,
		MessageID:   e.TS,
		Slack: &SlackMessage{
			TeamID:   env.TeamID,
			EventID:  env.EventID,
			Type:     e.Type,
			Subtype:  e.Subtype,
			BotID:    e.BotID,
			TS:       e.TS,
			ThreadTS: e.ThreadTS,
		},
	}, true
}

// verifySlackSignature checks the request against the signing secret of each
// agent in turn and succeeds on the first match.
func verifySlackSignature(header http.Header, body []byte, own []agents.Agent) error {
	for _, a := range own {
		creds, ok := a.Slack()
		if !ok || creds.SigningSecret == "" {
			continue
		}
		sv, err := slack.NewSecretsVerifier(header, creds.SigningSecret)
		if err != nil {
			// Missing headers or a stale timestamp fail for every secret.
			return ErrInvalidSignature
		}
		if _, err := sv.Write(body); err != nil {
			return ErrInvalidSignature
		}
		if sv.Ensure() == nil {
			return nil
		}
	}
	return ErrInvalidSignature
}

// SlackSender posts replies with chat.postMessage using each agent's bot token.
type SlackSender struct {
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackSender creates a sender for the Slack Web API at apiURL. An empty
// apiURL selects the public API; a nil httpClient selects http.DefaultClient.
func NewSlackSender(apiURL string, httpClient *http.Client, logger *slog.Logger) *SlackSender {
	if apiURL == "" {
		apiURL = slack.APIURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackSender{apiURL: apiURL, httpClient: httpClient, logger: logger}
}

// Send posts text to channel. A non-empty threadTS posts into that thread.
func (s *SlackSender) Send(ctx context.Context, creds agents.SlackCredentials, channel, threadTS, text string) error {
	api := slack.New(creds.BotToken,
		slack.OptionAPIURL(s.apiURL),
		slack.OptionHTTPClient(s.httpClient),
	)

	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, ts, err := api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return slackDeliveryError(err)
	}
	s.logger.Debug("slack message posted", "channel", channel, "ts", ts)
	return nil
}

// slackDeliveryError maps slack-go errors onto ChannelDeliveryError.
func slackDeliveryError(err error) error {
	de := &ChannelDeliveryError{Platform: agents.PlatformSlack, Step: "send", Err: err}

	var status slack.StatusCodeError
	var apiErr slack.SlackErrorResponse
	var limited *slack.RateLimitedError
	switch {
	case errors.As(err, &status):
		de.Status = status.Code
		de.Body = status.Status
	case errors.As(err, &apiErr):
		de.Body = apiErr.Err
	case errors.As(err, &limited):
		de.Status = http.StatusTooManyRequests
		de.Body = limited.Error()
	}
	return de
}
