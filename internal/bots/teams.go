package bots

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ziadkadry99/agent-relay/internal/agents"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 4096

func parseTeamsActivity(body []byte) (*TeamsActivity, error) {
	var act TeamsActivity
	if err := json.Unmarshal(body, &act); err != nil {
		return nil, decodeError(err)
	}
	return &act, nil
}

// inboundEvent normalizes the activity. Malformed from or conversation
// objects leave the corresponding fields empty.
func (act *TeamsActivity) inboundEvent() InboundEvent {
	var from teamsAccount
	if len(act.From) > 0 {
		_ = json.Unmarshal(act.From, &from)
	}
	var conv teamsConversation
	if len(act.Conversation) > 0 {
		_ = json.Unmarshal(act.Conversation, &conv)
	}
	return InboundEvent{
		Platform:    agents.PlatformTeams,
		ChannelID:   conv.ID,
		SenderID:    from.ID,
		SenderName:  from.Name,
		SenderIsBot: from.Role == "bot",
		Text:        act.Text,
		MessageID:   act.ID,
		Teams:       act,
	}
}

// teamsReply is the activity posted back to a conversation.
type teamsReply struct {
	Type         string          `json:"type"`
	From         teamsAccount    `json:"from"`
	Conversation json.RawMessage `json:"conversation,omitempty"`
	Recipient    json.RawMessage `json:"recipient,omitempty"`
	Text         string          `json:"text"`
	ReplyToID    string          `json:"replyToId,omitempty"`
}

// TeamsSenderConfig holds the Bot Framework endpoints shared by all agents.
type TeamsSenderConfig struct {
	LoginURL          string
	DefaultTenant     string
	DefaultServiceURL string
	Scope             string
	HTTPClient        *http.Client
}

// TeamsSender replies to Teams conversations through the Bot Connector API.
type TeamsSender struct {
	cfg    TeamsSenderConfig
	logger *slog.Logger
}

// NewTeamsSender creates a TeamsSender. A nil HTTPClient selects
// http.DefaultClient.
func NewTeamsSender(cfg TeamsSenderConfig, logger *slog.Logger) *TeamsSender {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TeamsSender{cfg: cfg, logger: logger}
}

// Send acquires a bot token for the agent and posts text as a reply to act.
func (s *TeamsSender) Send(ctx context.Context, a agents.Agent, creds agents.TeamsCredentials, act *TeamsActivity, text string) error {
	token, err := s.token(ctx, creds)
	if err != nil {
		return err
	}

	var conv teamsConversation
	if len(act.Conversation) > 0 {
		_ = json.Unmarshal(act.Conversation, &conv)
	}

	reply := teamsReply{
		Type:         "message",
		From:         teamsAccount{ID: creds.AppID, Name: a.Name},
		Conversation: act.Conversation,
		Recipient:    act.From,
		Text:         text,
		ReplyToID:    act.ID,
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		return &ChannelDeliveryError{Platform: agents.PlatformTeams, Step: "send", Err: fmt.Errorf("marshaling activity: %w", err)}
	}

	url := s.serviceURL(creds, act) + "v3/conversations/" + conv.ID + "/activities"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &ChannelDeliveryError{Platform: agents.PlatformTeams, Step: "send", Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return &ChannelDeliveryError{Platform: agents.PlatformTeams, Step: "send", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ChannelDeliveryError{
			Platform: agents.PlatformTeams,
			Step:     "send",
			Status:   resp.StatusCode,
			Body:     string(body),
		}
	}
	s.logger.Debug("teams activity posted", "conversation", conv.ID, "status", resp.StatusCode)
	return nil
}

// token runs the client-credentials grant for the agent's app registration.
func (s *TeamsSender) token(ctx context.Context, creds agents.TeamsCredentials) (*oauth2.Token, error) {
	tenant := creds.TenantID
	if tenant == "" {
		tenant = s.cfg.DefaultTenant
	}
	cc := clientcredentials.Config{
		ClientID:     creds.AppID,
		ClientSecret: creds.AppPassword,
		TokenURL:     strings.TrimSuffix(s.cfg.LoginURL, "/") + "/" + tenant + "/oauth2/v2.0/token",
		Scopes:       []string{s.cfg.Scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, s.cfg.HTTPClient))
	if err != nil {
		de := &ChannelDeliveryError{Platform: agents.PlatformTeams, Step: "token", Err: err}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			if re.Response != nil {
				de.Status = re.Response.StatusCode
			}
			de.Body = string(re.Body)
		}
		return nil, de
	}
	return tok, nil
}

// serviceURL picks the agent's service URL, then the activity's, then the
// configured default, always with a trailing slash.
func (s *TeamsSender) serviceURL(creds agents.TeamsCredentials, act *TeamsActivity) string {
	u := creds.ServiceURL
	if u == "" {
		u = act.ServiceURL
	}
	if u == "" {
		u = s.cfg.DefaultServiceURL
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}
