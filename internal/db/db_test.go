package db

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_AppliesMigrations(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion() error = %v", err)
	}
	latest, err := LatestMigrationVersion()
	if err != nil {
		t.Fatalf("LatestMigrationVersion() error = %v", err)
	}
	if version != latest || dirty {
		t.Errorf("version = %d dirty = %v, want %d clean", version, dirty, latest)
	}
	if latest != 2 {
		t.Errorf("LatestMigrationVersion() = %d, want 2", latest)
	}
}

func TestNewDB_ReopenIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	first, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	if err := first.RecordLine("s1", time.Now(), "start", "start"); err != nil {
		t.Fatalf("RecordLine() error = %v", err)
	}
	first.Close()

	second, err := NewDB(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()
	lines, err := second.Lines("", 0)
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}
	if len(lines) != 1 {
		t.Errorf("got %d lines after reopen, want 1", len(lines))
	}
}

func TestNewDB_Memory(t *testing.T) {
	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB(:memory:) error = %v", err)
	}
	defer db.Close()
	if err := db.RecordLine("s", time.Now(), "start", "start"); err != nil {
		t.Fatalf("RecordLine() error = %v", err)
	}
}

func TestRecordLine_Lines(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)

	records := []struct {
		session, line, kind string
	}{
		{"a", "start", "start"},
		{"a", "goal,2500000", "goal"},
		{"b", "boot v1.2", "unrecognized"},
		{"a", "start", "start"},
	}
	for i, r := range records {
		if err := db.RecordLine(r.session, base.Add(time.Duration(i)*time.Second), r.line, r.kind); err != nil {
			t.Fatalf("RecordLine(%d) error = %v", i, err)
		}
	}

	all, err := db.Lines("", 0)
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("got %d lines, want 4", len(all))
	}
	if all[0].Line != "start" || all[3].SessionID != "a" {
		t.Errorf("lines not in insertion order: %+v", all)
	}
	if !all[1].ReceivedAt.Equal(base.Add(time.Second)) {
		t.Errorf("ReceivedAt = %v, want %v", all[1].ReceivedAt, base.Add(time.Second))
	}

	a, err := db.Lines("a", 2)
	if err != nil {
		t.Fatalf("Lines(a) error = %v", err)
	}
	if len(a) != 2 || a[0].Line != "goal,2500000" || a[1].Line != "start" {
		t.Errorf("Lines(a, 2) = %+v, want the two most recent lines of a", a)
	}
}

func TestGoalLinesView(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	if err := db.RecordLine("a", now, "goal,2093417", "goal"); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordLine("a", now, "start", "start"); err != nil {
		t.Fatal(err)
	}

	var ms float64
	var count int
	if err := db.QueryRow("SELECT COUNT(*), MAX(interval_ms) FROM goal_lines").Scan(&count, &ms); err != nil {
		t.Fatalf("query goal_lines: %v", err)
	}
	if count != 1 || ms != 2093.417 {
		t.Errorf("goal_lines = %d rows, max %v; want 1 row, 2093.417", count, ms)
	}
}

func TestSessions(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)

	db.RecordLine("old", base, "start", "start")
	db.RecordLine("old", base.Add(time.Second), "goal,1000", "goal")
	db.RecordLine("new", base.Add(time.Minute), "start", "start")

	sessions, err := db.Sessions()
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].SessionID != "new" {
		t.Errorf("most recent session = %q, want new", sessions[0].SessionID)
	}
	old := sessions[1]
	if old.Lines != 2 || old.Goals != 1 {
		t.Errorf("old session lines=%d goals=%d, want 2 and 1", old.Lines, old.Goals)
	}
	if !old.FirstSeen.Equal(base) || !old.LastSeen.Equal(base.Add(time.Second)) {
		t.Errorf("old session span %v..%v", old.FirstSeen, old.LastSeen)
	}
}

func TestMigrateDownAndUp(t *testing.T) {
	db := newTestDB(t)

	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if v, _, _ := db.MigrateVersion(); v != 1 {
		t.Errorf("version after down = %d, want 1", v)
	}
	if _, err := db.Exec("SELECT * FROM goal_lines"); err == nil {
		t.Error("goal_lines view should be dropped")
	}
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if v, _, _ := db.MigrateVersion(); v != 2 {
		t.Errorf("version after up = %d, want 2", v)
	}
}
