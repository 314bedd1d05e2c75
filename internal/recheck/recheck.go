// Package recheck periodically re-fetches every tracked product and alerts
// recipients on price drops. Comparison is a one-directional ratchet: the
// stored price only moves down, so alerts fire against the lowest price ever
// observed rather than the most recent one.
package recheck

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"pricewatch/internal/eventbus"
	"pricewatch/internal/lookup"
	"pricewatch/internal/notifier"
	"pricewatch/internal/store"
	"pricewatch/pkg/logx"
)

type Config struct {
	Enabled  bool
	Interval time.Duration // default 1h
}

// CycleStats summarizes one re-check pass, published on the event bus.
type CycleStats struct {
	CycleID  string
	Checked  int
	Alerts   int
	Failures int
}

type Service struct {
	mu  sync.Mutex
	cfg Config

	lookup lookup.Client
	store  *store.Store
	notif  *notifier.Service
	log    logx.Logger
	bus    eventbus.Bus

	c      *cron.Cron
	runCtx context.Context
}

func New(cfg Config, lk lookup.Client, st *store.Store, notif *notifier.Service, log logx.Logger, bus eventbus.Bus) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Service{cfg: cfg, lookup: lk, store: st, notif: notif, log: log, bus: bus}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil || !s.cfg.Enabled {
		return
	}
	s.runCtx = ctx
	s.startLocked()
}

func (s *Service) startLocked() {
	s.c = cron.New()
	spec := fmt.Sprintf("@every %s", s.cfg.Interval)
	if _, err := s.c.AddFunc(spec, func() { s.RunCycle(s.runCtx) }); err != nil {
		// Interval was validated at config time; this is a programming error.
		s.log.Error("recheck schedule rejected", logx.String("spec", spec), logx.Err(err))
		s.c = nil
		return
	}
	s.c.Start()
	s.log.Info("recheck scheduler started", logx.Duration("interval", s.cfg.Interval))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("recheck scheduler stopped")
}

// Apply updates the interval at runtime, restarting the cron entry when it
// changed while running.
func (s *Service) Apply(cfg Config) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := cfg.Interval != s.cfg.Interval
	s.cfg = cfg
	if s.c == nil || !changed {
		return
	}
	<-s.c.Stop().Done()
	s.startLocked()
	s.log.Info("recheck interval updated", logx.Duration("interval", cfg.Interval))
}

// RunCycle re-checks every tracked URL once, sequentially. Per-URL failures
// are logged and skipped; they never abort the rest of the cycle.
func (s *Service) RunCycle(ctx context.Context) CycleStats {
	cycleID := uuid.NewString()[:8]
	log := s.log.With(logx.String("cycle", cycleID))

	snapshot := s.store.Snapshot()
	stats := CycleStats{CycleID: cycleID, Checked: len(snapshot)}
	log.Debug("recheck cycle begin", logx.Int("tracked", len(snapshot)))

	for _, e := range snapshot {
		if ctx != nil && ctx.Err() != nil {
			break
		}

		res, err := s.lookup.Fetch(ctx, e.URL)
		if err != nil {
			stats.Failures++
			log.Warn("recheck lookup failed", logx.String("url", e.URL), logx.Err(err))
			if s.bus != nil {
				s.bus.Publish(eventbus.Event{Type: eventbus.TypeLookupFailed, Data: e.URL})
			}
			continue
		}
		if !res.PriceAvailable() {
			log.Debug("recheck price unavailable", logx.String("url", e.URL))
			continue
		}
		if res.Price >= e.Item.LastKnownPrice {
			// No alert on equal or higher prices: the ratchet keeps the
			// historical low as the comparison point.
			continue
		}

		stats.Alerts++
		_ = s.notif.Send(ctx, e.Item.RecipientID, alertReply(e.Item.Title, e.Item.LastKnownPrice, res.Price, e.URL))
		s.store.UpdatePrice(e.URL, res.Price)
		log.Info("price drop",
			logx.String("url", e.URL),
			logx.Int64("old", e.Item.LastKnownPrice),
			logx.Int64("new", res.Price))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: eventbus.TypePriceDrop, Data: e.URL})
		}
	}

	log.Info("recheck cycle done",
		logx.Int("checked", stats.Checked),
		logx.Int("alerts", stats.Alerts),
		logx.Int("failures", stats.Failures))
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeRecheckCycle, Data: stats})
	}
	return stats
}

func alertReply(title string, oldPrice, newPrice int64, url string) string {
	return fmt.Sprintf("📉 Price drop!\n*%s*\nwas %d, now %d\n%s", title, oldPrice, newPrice, url)
}
