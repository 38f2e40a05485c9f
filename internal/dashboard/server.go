package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SnapshotProvider is implemented by the control loop: it returns the most
// recently published snapshot so a newly connecting client (or a plain
// HTTP poll) doesn't have to wait for the next tick.
type SnapshotProvider interface {
	LastSnapshot() (Snapshot, bool)
}

// Server runs the dashboard's HTTP + WebSocket surface alongside a
// Prometheus metrics endpoint, supplementing spec.md's scope with ambient
// observability (see SPEC_FULL.md §12.3).
type Server struct {
	cfg          Config
	providerMu   sync.RWMutex
	provider     SnapshotProvider
	hub          *Hub
	http         *http.Server
	log          *zap.SugaredLogger
	upgrader     websocket.Upgrader
}

func NewServer(cfg Config, provider SnapshotProvider, log *zap.SugaredLogger) *Server {
	hub := NewHub(log)
	s := &Server{
		cfg:      cfg,
		provider: provider,
		hub:      hub,
		log:      log,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024, CheckOrigin: func(*http.Request) bool { return true }},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/recent", s.handleRecent)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

// SetProvider attaches the snapshot source. The control loop typically
// isn't constructed until after the server (it needs the server's hub),
// so this is set post-construction rather than passed to NewServer.
func (s *Server) SetProvider(p SnapshotProvider) {
	s.providerMu.Lock()
	defer s.providerMu.Unlock()
	s.provider = p
}

func (s *Server) getProvider() SnapshotProvider {
	s.providerMu.RLock()
	defer s.providerMu.RUnlock()
	return s.provider
}

func (s *Server) Start() error {
	go s.hub.Run()
	s.log.Infow("dashboard server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server error: %w", err)
	}
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	provider := s.getProvider()
	if provider == nil {
		json.NewEncoder(w).Encode(map[string]string{"error": "no snapshot yet"})
		return
	}
	snap, ok := provider.LastSnapshot()
	if !ok {
		json.NewEncoder(w).Encode(map[string]string{"error": "no snapshot yet"})
		return
	}
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.log.Errorw("failed to encode snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleRecent(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.cfg.JournalPath == "" {
		json.NewEncoder(w).Encode([]JournalEntry{})
		return
	}
	entries, err := TailJournal(s.cfg.JournalPath, 100)
	if err != nil {
		s.log.Warnw("failed to tail journal", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(entries)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorw("websocket upgrade failed", "error", err)
		return
	}
	client := NewClient(s.hub, conn)

	if provider := s.getProvider(); provider != nil {
		if snap, ok := provider.LastSnapshot(); ok {
			data, err := json.Marshal(NewSnapshotEvent(snap))
			if err == nil {
				select {
				case client.send <- data:
				default:
				}
			}
		}
	}
}
