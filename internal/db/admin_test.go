package db

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/lap.timer/internal/testutil"
)

func TestAttachAdminRoutes_Journal(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)
	db.RecordLine("a", base, "start", "start")
	db.RecordLine("b", base, "noise", "unrecognized")

	mux := http.NewServeMux()
	db.AttachAdminRoutes(mux)

	w := testutil.Serve(mux, testutil.LocalRequest(http.MethodGet, "/debug/journal?session=a", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "start") || strings.Contains(body, "noise") {
		t.Errorf("journal body = %q", body)
	}

	w = testutil.Serve(mux, testutil.LocalRequest(http.MethodGet, "/debug/journal?limit=zero", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}

	w = testutil.Serve(mux, testutil.LocalRequest(http.MethodGet, "/debug/sessions", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "goals=0") {
		t.Errorf("sessions status = %d body %q", w.Code, w.Body.String())
	}
}

func TestAttachAdminRoutes_Backup(t *testing.T) {
	db := newTestDB(t)
	db.RecordLine("a", time.Now(), "start", "start")

	mux := http.NewServeMux()
	db.AttachAdminRoutes(mux)

	w := testutil.Serve(mux, testutil.LocalRequest(http.MethodGet, "/debug/backup", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "laptimer-backup-") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("backup is not gzip: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !strings.HasPrefix(string(data), "SQLite format 3") {
		t.Errorf("backup does not look like a sqlite database")
	}
}
