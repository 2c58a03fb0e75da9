package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/lap.timer/internal/api"
	"github.com/banshee-data/lap.timer/internal/config"
	"github.com/banshee-data/lap.timer/internal/db"
	"github.com/banshee-data/lap.timer/internal/display"
	"github.com/banshee-data/lap.timer/internal/monitoring"
	"github.com/banshee-data/lap.timer/internal/serialmux"
	"github.com/banshee-data/lap.timer/internal/session"
	"github.com/banshee-data/lap.timer/internal/version"
)

var (
	configPath   = flag.String("config", config.DefaultConfigPath, "Path to JSON config file")
	devMode      = flag.Bool("dev", false, "Replay a scripted gate session instead of opening the serial port")
	listen       = flag.String("listen", config.DefaultListen, "Listen address")
	port         = flag.String("port", config.DefaultPort, "Serial port of the timing gate (ignored in dev mode)")
	dbPath       = flag.String("db", "", "Journal database path (empty disables the journal)")
	tickInterval = flag.String("tick", "100ms", "Clock refresh interval while a run is in progress")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	color        = flag.Bool("color", true, "Colorize console output")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

// loadConfig reads the config file and applies any flags given on the
// command line on top of it. A missing file is only an error when --config
// was given explicitly.
func loadConfig() (*config.Config, error) {
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	var cfg *config.Config
	var err error
	if explicit["config"] {
		cfg, err = config.LoadConfig(*configPath)
	} else {
		cfg, err = config.LoadConfigIfExists(*configPath)
	}
	if err != nil {
		return nil, err
	}

	var o config.Override
	if explicit["port"] {
		o.Port = port
	}
	if explicit["listen"] {
		o.Listen = listen
	}
	if explicit["db"] {
		o.DBPath = dbPath
	}
	if explicit["tick"] {
		o.TickInterval = tickInterval
	}
	if explicit["debug"] {
		o.Debug = debug
	}
	if err := cfg.Apply(o); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// openGate opens the serial port, or the replay port in dev mode.
func openGate(cfg *config.Config) (serialmux.SerialMuxInterface, string, error) {
	if *devMode {
		return serialmux.NewMockSerialMux(serialmux.DefaultReplayScript), "scripted replay", nil
	}
	opts, err := cfg.PortOptions().Normalise()
	if err != nil {
		return nil, "", fmt.Errorf("invalid serial options: %w", err)
	}
	gate, err := serialmux.NewRealSerialMux(cfg.GetPort(), opts)
	if err != nil {
		return nil, "", err
	}
	return gate, fmt.Sprintf("%s at %s", cfg.GetPort(), opts), nil
}

// Main
func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	monitoring.SetDebug(cfg.GetDebug())
	log.Printf("starting %s", version.String())

	gate, desc, err := openGate(cfg)
	if err != nil {
		log.Fatalf("failed to open gate port: %v", err)
	}
	defer gate.Close()
	log.Printf("gate: %s", desc)

	board := display.NewBoard()
	sessionOpts := []session.Option{
		session.WithDisplay(display.Multi{display.NewConsole(os.Stdout, *color), board}),
		session.WithTickInterval(cfg.GetTickInterval()),
		session.WithLineObserver(gate.Publish),
	}

	var journal *db.DB
	if path := cfg.GetDBPath(); path != "" {
		journal, err = db.NewDB(path)
		if err != nil {
			log.Fatalf("Failed to open journal: %v", err)
		}
		defer journal.Close()
		sessionOpts = append(sessionOpts, session.WithJournal(journal))
		log.Printf("journaling gate lines to %s", path)
	}

	sess := session.New(sessionOpts...)
	defer sess.Close()
	log.Printf("session %s ready", sess.ID())

	// Create a wait group for the HTTP server and session routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the session over the gate stream until it ends or we are stopped
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sess.Run(ctx, gate); err != nil {
			log.Printf("gate read failed, no longer timing: %v", err)
		} else if ctx.Err() == nil {
			log.Printf("gate stream ended")
		}
		log.Print("session routine terminated")
	}()

	// a pending serial read only returns once the port is closed
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := gate.Close(); err != nil {
			log.Printf("failed to close gate port: %v", err)
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(sess, board, gate).ServeMux()
		gate.AttachAdminRoutes(mux)
		if journal != nil {
			journal.AttachAdminRoutes(mux)
		}

		server := &http.Server{
			Addr:    cfg.GetListen(),
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", cfg.GetListen())
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// end event streams so Shutdown does not wait on them
		board.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
