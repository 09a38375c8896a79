package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canvassync/internal/config"
	"canvassync/internal/middleware"
	"canvassync/internal/room"
	"canvassync/internal/session"
	"canvassync/internal/transport"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const cleanupInterval = 15 * time.Minute

type server struct {
	cfg       config.Config
	rooms     *room.Manager
	sessions  *session.Manager
	ipLimiter *middleware.IPRateLimit
}

func newServer(cfg config.Config) *server {
	srv := &server{
		cfg:      cfg,
		rooms:    room.NewManager(cfg.ReplayLastSnapshot),
		sessions: session.NewManager(cfg.SendQueueSize, cfg.MessagesPerSecond, cfg.BurstSize),
	}
	if cfg.ConnectsPerMinute > 0 {
		srv.ipLimiter = middleware.NewIPRateLimit(time.Minute/time.Duration(cfg.ConnectsPerMinute), cfg.ConnectBurst)
	}
	return srv
}

func (srv *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	var ws http.Handler = transport.NewHandler(srv.cfg.Domains, srv.rooms, srv.sessions, srv.cfg.RateLimit())
	if srv.ipLimiter != nil {
		ws = srv.ipLimiter.Middleware(ws)
	}
	r.Handle("/ws", ws)
	r.Get("/healthz", srv.health)

	if srv.cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(srv.cfg.StaticDir)))
	}
	return r
}

func (srv *server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"rooms":    srv.rooms.RoomCount(),
		"sessions": srv.sessions.Count(),
	})
}

// cleanup: periodically drops idle rooms and stale IP limiters
func (srv *server) cleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := srv.rooms.Cleanup(); n > 0 {
				log.Printf("Cleaned up %d rooms", n)
			}
			if srv.ipLimiter != nil {
				srv.ipLimiter.Cleanup()
			}
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := newServer(cfg)
	go srv.cleanup(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("WebSocket server started on %s", cfg.Addr())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Error starting server: %v", err)
	}
}
