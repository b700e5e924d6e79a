package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	clientDir := flag.String("client", "", "Path to viewer client directory (default: ../client)")
	dbPath := flag.String("db", "bouncebench.db", "SQLite database path (empty disables run history)")
	adminKey := flag.String("admin-key", "", "Operator key for /api/stats (empty disables)")
	width := flag.Float64("width", DefaultWorldWidth, "Arena width in pixels")
	height := flag.Float64("height", DefaultWorldHeight, "Arena height in pixels")
	seed := flag.Int64("seed", 0, "Simulation random seed")
	flag.Parse()

	if *clientDir == "" {
		exe, _ := os.Executable()
		*clientDir = filepath.Join(filepath.Dir(exe), "..", "client")
		// Fallback for development
		if _, err := os.Stat(*clientDir); os.IsNotExist(err) {
			*clientDir = "../client"
		}
	}

	var db *DB
	if *dbPath != "" {
		var err error
		db, err = OpenDB(*dbPath)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
	}
	rec := NewRecorder(db)

	hub := NewHub(db, rec)
	if err := hub.auth.SetAdminKey(*adminKey); err != nil {
		log.Fatalf("admin key: %v", err)
	}
	go hub.Run()

	// The default session everyone lands in
	cfg := SimConfig{Width: *width, Height: *height, Seed: *seed}
	if hub.sessions.CreateSession("default", cfg, rec, true) == nil {
		log.Fatalf("failed to create default session")
	}

	janitorStop := make(chan struct{})
	go hub.sessions.Janitor(janitorStop)

	mux := SetupRoutes(hub, *clientDir)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s", *addr)
		log.Printf("Serving viewer files from %s", *clientDir)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	close(janitorStop)
	hub.sessions.StopAll()
	if rec != nil {
		rec.Stop()
	}
	server.Close()
}
