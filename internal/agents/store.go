package agents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/agent-relay/internal/db"
)

// ErrNotFound is returned when no agent has the requested id.
var ErrNotFound = errors.New("agent not found")

// Store provides CRUD operations for agents.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const agentColumns = `id, name, is_active, slack_credentials, teams_credentials, channel_filter,
	respond_to_all, respond_to_mentions, keywords, model_api_key, model_id,
	system_prompt, context_data, response_template, created_at, updated_at`

// Save inserts the agent or replaces the existing record with the same id.
// If a.ID is empty a UUID is generated. The id is returned.
func (s *Store) Save(ctx context.Context, a Agent) (string, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	slackCreds, err := marshalCredential(a.Credentials[PlatformSlack])
	if err != nil {
		return "", fmt.Errorf("marshalling slack credentials: %w", err)
	}
	teamsCreds, err := marshalCredential(a.Credentials[PlatformTeams])
	if err != nil {
		return "", fmt.Errorf("marshalling teams credentials: %w", err)
	}
	keywords, err := json.Marshal(nonNil(a.Keywords))
	if err != nil {
		return "", fmt.Errorf("marshalling keywords: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agents (
			id, name, is_active, slack_credentials, teams_credentials, channel_filter,
			respond_to_all, respond_to_mentions, keywords, model_api_key, model_id,
			system_prompt, context_data, response_template
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_active = excluded.is_active,
			slack_credentials = excluded.slack_credentials,
			teams_credentials = excluded.teams_credentials,
			channel_filter = excluded.channel_filter,
			respond_to_all = excluded.respond_to_all,
			respond_to_mentions = excluded.respond_to_mentions,
			keywords = excluded.keywords,
			model_api_key = excluded.model_api_key,
			model_id = excluded.model_id,
			system_prompt = excluded.system_prompt,
			context_data = excluded.context_data,
			response_template = excluded.response_template,
			updated_at = datetime('now')`,
		a.ID, a.Name, boolToInt(a.IsActive), slackCreds, teamsCreds, a.ChannelFilter,
		boolToInt(a.RespondToAll), boolToInt(a.RespondToMentions), string(keywords),
		a.ModelAPIKey, a.ModelID, a.SystemPrompt, a.ContextData, a.ResponseTemplate,
	)
	if err != nil {
		return "", fmt.Errorf("saving agent: %w", err)
	}
	return a.ID, nil
}

// Get retrieves a single agent.
func (s *Store) Get(ctx context.Context, id string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+agentColumns+" FROM agents WHERE id = ?", id)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// List returns every agent in creation order.
func (s *Store) List(ctx context.Context) ([]Agent, error) {
	return s.query(ctx, "SELECT "+agentColumns+" FROM agents ORDER BY created_at, rowid")
}

// ListActive returns active agents configured for the platform, in creation
// order. This order decides which agent answers when several match.
func (s *Store) ListActive(ctx context.Context, p Platform) ([]Agent, error) {
	var column string
	switch p {
	case PlatformSlack:
		column = "slack_credentials"
	case PlatformTeams:
		column = "teams_credentials"
	default:
		return nil, fmt.Errorf("unsupported platform %q", p)
	}
	return s.query(ctx, "SELECT "+agentColumns+" FROM agents WHERE is_active = 1 AND "+column+" IS NOT NULL ORDER BY created_at, rowid")
}

// SetContextData replaces the agent's context blob.
func (s *Store) SetContextData(ctx context.Context, id, contextData string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE agents SET context_data = ?, updated_at = datetime('now') WHERE id = ?`, contextData, id)
	if err != nil {
		return fmt.Errorf("updating context data: %w", err)
	}
	return requireOneRow(res)
}

// SetActive toggles whether the agent is considered for events.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE agents SET is_active = ?, updated_at = datetime('now') WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("updating agent status: %w", err)
	}
	return requireOneRow(res)
}

// Delete removes an agent.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting agent: %w", err)
	}
	return requireOneRow(res)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Agent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying agents: %w", err)
	}
	defer rows.Close()

	var result []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner) (*Agent, error) {
	var (
		a                                   Agent
		active, respondAll, respondMentions int
		slackCreds, teamsCreds              sql.NullString
		keywords                            string
		createdAt, updatedAt                string
	)
	err := row.Scan(
		&a.ID, &a.Name, &active, &slackCreds, &teamsCreds, &a.ChannelFilter,
		&respondAll, &respondMentions, &keywords, &a.ModelAPIKey, &a.ModelID,
		&a.SystemPrompt, &a.ContextData, &a.ResponseTemplate, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning agent: %w", err)
	}

	a.IsActive = active != 0
	a.RespondToAll = respondAll != 0
	a.RespondToMentions = respondMentions != 0
	a.CreatedAt = parseTimestamp(createdAt)
	a.UpdatedAt = parseTimestamp(updatedAt)

	if err := json.Unmarshal([]byte(keywords), &a.Keywords); err != nil {
		return nil, fmt.Errorf("unmarshalling keywords for agent %s: %w", a.ID, err)
	}

	a.Credentials = make(map[Platform]Credential, 2)
	if slackCreds.Valid {
		var c SlackCredentials
		if err := json.Unmarshal([]byte(slackCreds.String), &c); err != nil {
			return nil, fmt.Errorf("unmarshalling slack credentials for agent %s: %w", a.ID, err)
		}
		a.Credentials[PlatformSlack] = c
	}
	if teamsCreds.Valid {
		var c TeamsCredentials
		if err := json.Unmarshal([]byte(teamsCreds.String), &c); err != nil {
			return nil, fmt.Errorf("unmarshalling teams credentials for agent %s: %w", a.ID, err)
		}
		a.Credentials[PlatformTeams] = c
	}

	return &a, nil
}

// parseTimestamp accepts both SQLite's datetime('now') text and the RFC 3339
// form the driver produces for DATETIME columns.
func parseTimestamp(ts string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339Nano} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}

func marshalCredential(c Credential) (sql.NullString, error) {
	if c == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
