package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/agent-relay/internal/db"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("activity entry not found")

// Store records dispatch outcomes in the dispatch_log table.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Record inserts a new entry. If entry.ID is empty a UUID is generated.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatch_log (
			id, message_key, platform, channel_id, agent_id, status, error, reply_chars
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.MessageKey,
		entry.Platform,
		entry.ChannelID,
		entry.AgentID,
		string(entry.Status),
		entry.Error,
		entry.ReplyChars,
	)
	if err != nil {
		return fmt.Errorf("inserting dispatch entry: %w", err)
	}
	return nil
}

// Responded reports whether a reply was already delivered for the message key.
// An empty key never matches.
func (s *Store) Responded(ctx context.Context, messageKey string) (bool, error) {
	if messageKey == "" {
		return false, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM dispatch_log WHERE message_key = ? AND status = ?",
		messageKey, string(StatusDelivered),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking dispatch log: %w", err)
	}
	return n > 0, nil
}

// GetByID retrieves a single entry.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, message_key, platform, channel_id, agent_id, status, error, reply_chars
		FROM dispatch_log WHERE id = ?`, id)

	e, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting dispatch entry %s: %w", id, err)
	}
	return e, nil
}

// QueryFilter controls which entries are returned by Query.
type QueryFilter struct {
	AgentID  string
	Platform string
	Status   Status
	Since    *time.Time
	Limit    int
	Offset   int
}

// Query returns entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.AgentID != "" {
		clauses = append(clauses, "agent_id = ?")
		args = append(args, filter.AgentID)
	}
	if filter.Platform != "" {
		clauses = append(clauses, "platform = ?")
		args = append(args, filter.Platform)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}

	query := "SELECT id, timestamp, message_key, platform, channel_id, agent_id, status, error, reply_chars FROM dispatch_log"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying dispatch log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e      Entry
		ts     string
		status string
	)
	err := sc.Scan(
		&e.ID, &ts, &e.MessageKey, &e.Platform, &e.ChannelID,
		&e.AgentID, &status, &e.Error, &e.ReplyChars,
	)
	if err != nil {
		return nil, err
	}
	e.Status = Status(status)

	if t, parseErr := time.Parse(time.DateTime, ts); parseErr == nil {
		e.Timestamp = t
	} else if t, parseErr := time.Parse(time.RFC3339, ts); parseErr == nil {
		e.Timestamp = t
	}
	return &e, nil
}
