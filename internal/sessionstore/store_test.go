package sessionstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/protocol"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	cfg := config.SessionStoreConfig{RetentionMode: "ephemeral"}
	st, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.RecordStatus(context.Background(), protocol.SessionStatus{SessionID: "x", State: "succeeded"}, true); err != nil {
		t.Fatalf("ephemeral record should be a no-op, got %v", err)
	}
	statuses, err := st.ListSessionStatuses(context.Background(), "x", 10)
	if err != nil || statuses != nil {
		t.Fatalf("ephemeral list should return nothing, got %v, %v", statuses, err)
	}
}

func TestRecordAndList(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.SessionStoreConfig{Path: filepath.Join(tmp, "sessions.db"), RetentionMode: "session"}
	st, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	sessionID := "session-123"
	started := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	if err := st.BeginSession(context.Background(), sessionID, started); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	events := []protocol.SessionStatus{
		{SessionID: sessionID, State: "transcribing", Timestamp: started.Add(time.Second)},
		{SessionID: sessionID, State: "translating", Timestamp: started.Add(2 * time.Second)},
		{SessionID: sessionID, State: "succeeded", Text: "hello", Timestamp: started.Add(3 * time.Second)},
	}
	for i, evt := range events {
		terminal := i == len(events)-1
		if err := st.RecordStatus(context.Background(), evt, terminal); err != nil {
			t.Fatalf("record status %d: %v", i, err)
		}
	}

	statuses, err := st.ListSessionStatuses(context.Background(), sessionID, 10)
	if err != nil {
		t.Fatalf("list statuses: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses[0].State != "transcribing" || statuses[2].State != "succeeded" {
		t.Fatalf("unexpected ordering: %v", statuses)
	}
	if statuses[2].Text != "hello" {
		t.Fatalf("expected dispatched text recorded, got %q", statuses[2].Text)
	}
}

func TestPruneByDaysAndSessions(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.SessionStoreConfig{Path: filepath.Join(tmp, "sessions.db"), RetentionMode: "persistent", RetentionDays: 1, MaxSessions: 1}
	st, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	st.clock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := st.BeginSession(context.Background(), "old-session", st.clock()); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	if err := st.RecordStatus(context.Background(), protocol.SessionStatus{SessionID: "old-session", State: "failed", Timestamp: st.clock()}, true); err != nil {
		t.Fatalf("record status: %v", err)
	}

	st.clock = func() time.Time { return time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := st.BeginSession(context.Background(), "new-session", st.clock()); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	if err := st.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	statuses, err := st.ListSessionStatuses(context.Background(), "old-session", 10)
	if err != nil {
		t.Fatalf("list statuses: %v", err)
	}
	if len(statuses) != 0 {
		t.Fatalf("expected old session pruned, got %d events", len(statuses))
	}
}
