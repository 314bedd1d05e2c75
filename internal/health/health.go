// Package health serves the liveness endpoint used by uptime monitors, plus
// a small JSON status view fed by event-bus counters. It shares no state
// with the core loops beyond read-only snapshots.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"pricewatch/internal/eventbus"
	"pricewatch/internal/store"
	"pricewatch/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string // default ":8080"
}

type Service struct {
	cfg   Config
	log   logx.Logger
	bus   eventbus.Bus
	store *store.Store

	started time.Time

	alerts      atomic.Uint64
	lookupFails atomic.Uint64
	notifyFails atomic.Uint64
}

func New(cfg Config, st *store.Store, log logx.Logger, bus eventbus.Bus) *Service {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return &Service{cfg: cfg, log: log, bus: bus, store: st, started: time.Now()}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

// Run serves until ctx is canceled. Intended to live under the supervisor.
func (s *Service) Run(ctx context.Context) error {
	if s.bus != nil {
		events, unsub := s.bus.Subscribe(64)
		defer unsub()
		go s.consume(ctx, events)
	}

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("liveness endpoint up", logx.String("addr", s.cfg.Addr))

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Router is split out so tests can hit the handlers without a listener.
func (s *Service) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleAlive).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return r
}

func (s *Service) handleAlive(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("I am alive!"))
}

func (s *Service) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	resp := struct {
		Status         string `json:"status"`
		Uptime         string `json:"uptime"`
		Tracked        int    `json:"tracked"`
		AlertsSent     uint64 `json:"alerts_sent"`
		LookupFailures uint64 `json:"lookup_failures"`
		NotifyFailures uint64 `json:"notify_failures"`
	}{
		Status:         "ok",
		Uptime:         time.Since(s.started).Round(time.Second).String(),
		AlertsSent:     s.alerts.Load(),
		LookupFailures: s.lookupFails.Load(),
		NotifyFailures: s.notifyFails.Load(),
	}
	if s.store != nil {
		resp.Tracked = s.store.Len()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Service) consume(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			switch e.Type {
			case eventbus.TypePriceDrop:
				s.alerts.Add(1)
			case eventbus.TypeLookupFailed:
				s.lookupFails.Add(1)
			case eventbus.TypeNotifyFailed:
				s.notifyFails.Add(1)
			}
		}
	}
}
