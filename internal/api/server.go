// Package api serves the lap timer over HTTP: the current board, the lap
// ledger, the clear command, lap charts and a live event stream.
package api

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/lap.timer/internal/display"
	"github.com/banshee-data/lap.timer/internal/httputil"
	"github.com/banshee-data/lap.timer/internal/session"
	"github.com/banshee-data/lap.timer/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// CommandSender forwards a command line to the gate.
type CommandSender interface {
	SendCommand(command string) error
}

//go:embed static
var staticFiles embed.FS

type Server struct {
	session *session.Session
	board   *display.Board
	gate    CommandSender

	// eventPing is how often an idle event stream is kept alive
	eventPing time.Duration
}

// NewServer returns a Server for sess whose display output is mirrored on
// board. gate may be nil, in which case /api/command is unavailable.
func NewServer(sess *session.Session, board *display.Board, gate CommandSender) *Server {
	return &Server{
		session:   sess,
		board:     board,
		gate:      gate,
		eventPing: 15 * time.Second,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.showState)
	mux.HandleFunc("/api/laps", s.listLaps)
	mux.HandleFunc("/api/laps/clear", s.clearLaps)
	mux.HandleFunc("/api/laps/chart", s.lapChart)
	mux.HandleFunc("/api/laps/chart.png", s.lapChartPNG)
	mux.HandleFunc("/api/events", s.streamEvents)
	mux.HandleFunc("/api/command", s.sendCommand)
	mux.HandleFunc("/api/version", s.showVersion)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("failed to load static files: %v", err)
	}
	mux.Handle("/", http.FileServer(http.FS(static)))
	return mux
}

// StateResponse is the body of GET /api/state.
type StateResponse struct {
	display.BoardState
	SessionID string `json:"session_id"`
	Running   bool   `json:"running"`
}

func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	snap := s.session.Snapshot()
	httputil.WriteJSON(w, http.StatusOK, StateResponse{
		BoardState: s.board.State(),
		SessionID:  snap.ID,
		Running:    snap.Running,
	})
}

func (s *Server) listLaps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) clearLaps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}
	s.session.Clear()
	httputil.WriteJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) sendCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}
	if s.gate == nil {
		httputil.ServiceUnavailable(w, "no gate connected")
		return
	}
	command := r.FormValue("command")
	if command == "" {
		httputil.WriteJSONError(w, http.StatusBadRequest, "missing 'command' parameter")
		return
	}
	if err := s.gate.SendCommand(command); err != nil {
		httputil.InternalServerError(w, "failed to send command: "+err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent", "command": command})
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
