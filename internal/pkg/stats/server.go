// Package stats exposes the pipeline's observability surface over a chi
// router with permissive CORS.
package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kestrelodds/arbiter/internal/pkg/models"
	"github.com/kestrelodds/arbiter/internal/pkg/telemetry"
)

// Store is the read surface /stats needs.
type Store interface {
	ActiveArbitrage(ctx context.Context) ([]models.Arbitrage, error)
}

// Publisher exposes per-subscriber drop counters for the /stats payload.
type Publisher interface {
	DroppedCount(name string) int64
}

type Server struct {
	store     Store
	publisher Publisher
	telemetry *telemetry.Recorder
	sinkNames []string
	router    chi.Router
}

// NewServer builds the router. ws, when non-nil, is the publisher's live
// fan-out hub and is mounted on /ws outside the request timeout middleware
// (a websocket connection is long-lived and must not be cut off after 10s).
func NewServer(store Store, pub Publisher, rec *telemetry.Recorder, sinkNames []string, ws http.Handler) *Server {
	s := &Server{store: store, publisher: pub, telemetry: rec, sinkNames: sinkNames}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	if ws != nil {
		r.Method(http.MethodGet, "/ws", ws)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/healthz", s.handleHealthz)
		r.Get("/stats", s.handleStats)
		r.Get("/stats/arbitrage", s.handleArbitrage)
	})
	s.router = r
	return s
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	// no Read/WriteTimeout on the server itself: /ws connections are
	// long-lived; the short-request routes carry their own timeout middleware.
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type statsPayload struct {
	ActiveArbitrageCount int                                 `json:"active_arbitrage_count"`
	DroppedBySink        map[string]int64                    `json:"dropped_by_sink"`
	ByProvider           map[string]telemetry.ProviderStats  `json:"by_provider"`
}

// handleStats serves the counters an operator needs to see drops: active
// arbitrage count, per-subscriber drop counters, and per-provider
// request/error/persisted counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	active, err := s.store.ActiveArbitrage(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dropped := make(map[string]int64, len(s.sinkNames))
	for _, name := range s.sinkNames {
		dropped[name] = s.publisher.DroppedCount(name)
	}

	var byProvider map[string]telemetry.ProviderStats
	if s.telemetry != nil {
		byProvider = s.telemetry.Snapshot()
	}

	writeJSON(w, statsPayload{ActiveArbitrageCount: len(active), DroppedBySink: dropped, ByProvider: byProvider})
}

func (s *Server) handleArbitrage(w http.ResponseWriter, r *http.Request) {
	active, err := s.store.ActiveArbitrage(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, active)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
