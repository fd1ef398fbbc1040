package activity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/agent-relay/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestRecordAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:         "entry-1",
		MessageKey: "slack:C1:1700000000.000100",
		Platform:   "slack",
		ChannelID:  "C1",
		AgentID:    "agent-a",
		Status:     StatusDelivered,
		ReplyChars: 12,
	}
	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.GetByID(ctx, "entry-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.MessageKey != entry.MessageKey {
		t.Errorf("MessageKey = %q, want %q", got.MessageKey, entry.MessageKey)
	}
	if got.Status != StatusDelivered {
		t.Errorf("Status = %q, want %q", got.Status, StatusDelivered)
	}
	if got.ReplyChars != 12 {
		t.Errorf("ReplyChars = %d, want 12", got.ReplyChars)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestRecordGeneratesUUID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, Entry{Platform: "teams", AgentID: "agent-b", Status: StatusModelFailed, Error: "status 401"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := store.Query(ctx, QueryFilter{AgentID: "agent-b"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("expected generated ID, got empty string")
	}
	if entries[0].Error != "status 401" {
		t.Errorf("Error = %q", entries[0].Error)
	}
}

func TestRecordRejectsUnknownStatus(t *testing.T) {
	store := setupStore(t)
	err := store.Record(context.Background(), Entry{Platform: "slack", AgentID: "a", Status: "pending"})
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestResponded(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	key := "teams:conv-1:act-1"

	ok, err := store.Responded(ctx, key)
	if err != nil {
		t.Fatalf("Responded: %v", err)
	}
	if ok {
		t.Fatal("expected no reply before any entry")
	}

	// Failures do not count as a reply.
	if err := store.Record(ctx, Entry{MessageKey: key, Platform: "teams", AgentID: "a", Status: StatusDeliveryFailed}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if ok, _ := store.Responded(ctx, key); ok {
		t.Fatal("failed delivery should not mark the message as answered")
	}

	if err := store.Record(ctx, Entry{MessageKey: key, Platform: "teams", AgentID: "b", Status: StatusDelivered}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if ok, _ := store.Responded(ctx, key); !ok {
		t.Fatal("expected message to be marked as answered")
	}

	if ok, _ := store.Responded(ctx, ""); ok {
		t.Error("empty key should never match")
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	seed := []Entry{
		{Platform: "slack", AgentID: "a", Status: StatusDelivered},
		{Platform: "slack", AgentID: "b", Status: StatusModelFailed},
		{Platform: "teams", AgentID: "a", Status: StatusDeliveryFailed},
		{Platform: "teams", AgentID: "a", Status: StatusDelivered},
	}
	for _, e := range seed {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   int
	}{
		{"all", QueryFilter{}, 4},
		{"agent", QueryFilter{AgentID: "a"}, 3},
		{"platform", QueryFilter{Platform: "slack"}, 2},
		{"status", QueryFilter{Status: StatusDelivered}, 2},
		{"combined", QueryFilter{AgentID: "a", Platform: "teams", Status: StatusDelivered}, 1},
		{"limit", QueryFilter{Limit: 3}, 3},
		{"offset", QueryFilter{Offset: 3}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(entries) != tt.want {
				t.Errorf("got %d entries, want %d", len(entries), tt.want)
			}
		})
	}
}

func TestQueryNewestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, id := range []string{"first", "second", "third"} {
		if err := store.Record(ctx, Entry{ID: id, Platform: "slack", AgentID: "a", Status: StatusDelivered}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	entries, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if entries[0].ID != "third" || entries[2].ID != "first" {
		t.Errorf("unexpected order: %s, %s, %s", entries[0].ID, entries[1].ID, entries[2].ID)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := setupStore(t)
	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// --- HTTP handler tests ---

func setupRouter(t *testing.T) (chi.Router, *Store) {
	t.Helper()
	store := setupStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)
	return r, store
}

func TestHTTPGetByID(t *testing.T) {
	r, store := setupRouter(t)

	if err := store.Record(context.Background(), Entry{ID: "http-1", Platform: "slack", AgentID: "a", Status: StatusDelivered}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/activity/http-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got Entry
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "http-1" || got.AgentID != "a" {
		t.Errorf("got %+v", got)
	}
}

func TestHTTPGetByIDNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/activity/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHTTPQueryWithFilter(t *testing.T) {
	r, store := setupRouter(t)
	ctx := context.Background()

	for _, agent := range []string{"a", "b", "a"} {
		if err := store.Record(ctx, Entry{Platform: "slack", AgentID: agent, Status: StatusDelivered}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/activity?agent=a&limit=10", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var entries []Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries for agent a, got %d", len(entries))
	}
}

func TestHTTPQueryEmpty(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/activity", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", body)
	}
}
