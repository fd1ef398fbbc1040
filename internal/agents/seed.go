package agents

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document accepted by "relay agents import".
type SeedFile struct {
	Agents []SeedAgent `yaml:"agents"`
}

// SeedAgent describes one agent in a seed file. Secret fields may reference
// environment variables as $VAR or ${VAR}.
type SeedAgent struct {
	ID                string            `yaml:"id"`
	Name              string            `yaml:"name"`
	Active            *bool             `yaml:"active"`
	Slack             *SlackCredentials `yaml:"slack"`
	Teams             *TeamsCredentials `yaml:"teams"`
	ChannelFilter     string            `yaml:"channel_filter"`
	RespondToAll      bool              `yaml:"respond_to_all"`
	RespondToMentions bool              `yaml:"respond_to_mentions"`
	Keywords          []string          `yaml:"keywords"`
	ModelAPIKey       string            `yaml:"model_api_key"`
	ModelID           string            `yaml:"model_id"`
	SystemPrompt      string            `yaml:"system_prompt"`
	ContextData       string            `yaml:"context_data"`
	ResponseTemplate  string            `yaml:"response_template"`
}

// LoadSeed parses a seed file into agents ready to be saved.
func LoadSeed(r io.Reader) ([]Agent, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	out := make([]Agent, 0, len(f.Agents))
	for i, s := range f.Agents {
		a, err := s.agent()
		if err != nil {
			return nil, fmt.Errorf("agent %d (%s): %w", i+1, s.Name, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s SeedAgent) agent() (Agent, error) {
	if strings.TrimSpace(s.Name) == "" {
		return Agent{}, errors.New("name is required")
	}
	if s.Slack == nil && s.Teams == nil {
		return Agent{}, errors.New("at least one of slack or teams is required")
	}

	a := Agent{
		ID:                s.ID,
		Name:              s.Name,
		IsActive:          s.Active == nil || *s.Active,
		Credentials:       map[Platform]Credential{},
		ChannelFilter:     s.ChannelFilter,
		RespondToAll:      s.RespondToAll,
		RespondToMentions: s.RespondToMentions,
		Keywords:          s.Keywords,
		ModelAPIKey:       os.ExpandEnv(s.ModelAPIKey),
		ModelID:           s.ModelID,
		SystemPrompt:      s.SystemPrompt,
		ContextData:       s.ContextData,
		ResponseTemplate:  s.ResponseTemplate,
	}
	if s.Slack != nil {
		c := *s.Slack
		c.BotToken = os.ExpandEnv(c.BotToken)
		c.SigningSecret = os.ExpandEnv(c.SigningSecret)
		if c.BotToken == "" {
			return Agent{}, errors.New("slack.bot_token is required")
		}
		a.Credentials[PlatformSlack] = c
	}
	if s.Teams != nil {
		c := *s.Teams
		c.AppPassword = os.ExpandEnv(c.AppPassword)
		if c.AppID == "" {
			return Agent{}, errors.New("teams.app_id is required")
		}
		a.Credentials[PlatformTeams] = c
	}
	return a, nil
}
