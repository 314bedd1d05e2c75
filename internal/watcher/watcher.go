// Package watcher consumes inbound chat updates and turns them into store
// mutations and replies. It owns the update cursor: the offset only advances
// past a message after its handler has returned, giving at-least-once
// consumption across restarts.
package watcher

import (
	"context"
	"time"

	"pricewatch/internal/eventbus"
	"pricewatch/internal/lookup"
	"pricewatch/internal/notifier"
	"pricewatch/internal/store"
	kit "pricewatch/internal/transport"
	"pricewatch/pkg/logx"
)

// loop states, kept explicit so logs show where the loop is stuck.
type state int

const (
	stateIdle state = iota
	stateDispatching
	stateBackingOff
)

func (s state) String() string {
	switch s {
	case stateDispatching:
		return "dispatching"
	case stateBackingOff:
		return "backing_off"
	default:
		return "idle"
	}
}

type Config struct {
	// PollTimeout is the long-poll window handed to the transport.
	// PollBackoff is the wait after a failed poll.
	PollTimeout time.Duration
	PollBackoff time.Duration
}

type Service struct {
	cfg       Config
	transport kit.Transport
	lookup    lookup.Client
	store     *store.Store
	notif     *notifier.Service
	log       logx.Logger
	bus       eventbus.Bus

	offset int64
	state  state

	// sleep is swappable so tests can simulate backoff without real delays.
	sleep func(ctx context.Context, d time.Duration)
}

func New(cfg Config, transport kit.Transport, lk lookup.Client, st *store.Store, notif *notifier.Service, log logx.Logger, bus eventbus.Bus) *Service {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if cfg.PollBackoff <= 0 {
		cfg.PollBackoff = 10 * time.Second
	}
	return &Service{
		cfg:       cfg,
		transport: transport,
		lookup:    lk,
		store:     st,
		notif:     notif,
		log:       log,
		bus:       bus,
		sleep:     sleepCtx,
	}
}

// Offset exposes the current cursor (next update sequence to consume).
func (s *Service) Offset() int64 { return s.offset }

// Run polls for updates until ctx is canceled. Poll failures never advance
// the cursor; the loop backs off and retries indefinitely.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("dispatch loop started", logx.Duration("poll_timeout", s.cfg.PollTimeout))
	for {
		if ctx.Err() != nil {
			return nil
		}

		s.state = stateIdle
		batch, err := s.transport.Poll(ctx, s.offset, s.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.state = stateBackingOff
			s.log.Warn("poll failed; backing off",
				logx.Err(err),
				logx.Duration("backoff", s.cfg.PollBackoff),
				logx.Int64("offset", s.offset))
			s.sleep(ctx, s.cfg.PollBackoff)
			continue
		}

		if len(batch) == 0 {
			continue
		}

		s.state = stateDispatching
		for _, u := range batch {
			s.handle(ctx, u)
			// Advance only after the handler returned: a crash mid-batch
			// re-delivers the unhandled tail on restart.
			s.offset = u.UpdateID + 1
		}
	}
}

func (s *Service) handle(ctx context.Context, u kit.Update) {
	// Non-message updates (edits, joins) carry no text; skip them but still
	// let the caller advance past their sequence numbers.
	if u.Text == "" || u.ChatID == 0 {
		return
	}

	cmd := Classify(u.Text)
	s.log.Debug("update",
		logx.Int64("update_id", u.UpdateID),
		logx.Int64("chat_id", u.ChatID),
		logx.String("from", u.FromUsername),
		logx.Int("cmd", int(cmd.Kind)))

	switch cmd.Kind {
	case CmdStart:
		_ = s.notif.Send(ctx, u.ChatID, msgWelcome)

	case CmdListTracked:
		entries := s.store.ListByRecipient(u.ChatID)
		if len(entries) == 0 {
			_ = s.notif.Send(ctx, u.ChatID, msgNothingTracked)
			return
		}
		_ = s.notif.Send(ctx, u.ChatID, listReply(entries))

	case CmdTrackRequest:
		s.handleTrack(ctx, u.ChatID, cmd.URL)

	default:
		_ = s.notif.Send(ctx, u.ChatID, msgNotALink)
	}
}

func (s *Service) handleTrack(ctx context.Context, chatID int64, url string) {
	_ = s.notif.Send(ctx, chatID, msgFetching)

	res, err := s.lookup.Fetch(ctx, url)
	if err != nil {
		s.log.Warn("lookup failed", logx.String("url", url), logx.Err(err))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: eventbus.TypeLookupFailed, Data: url})
		}
		_ = s.notif.Send(ctx, chatID, msgFetchFailed)
		return
	}
	if !res.PriceAvailable() {
		// Found but unpriced: report it, never store it.
		_ = s.notif.Send(ctx, chatID, msgNoPrice)
		return
	}

	s.store.Upsert(url, store.TrackedItem{
		RecipientID:    chatID,
		Title:          res.Title,
		InitialPrice:   res.Price,
		LastKnownPrice: res.Price,
	})
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeTrackAdded, Data: url})
	}
	s.log.Info("tracking added",
		logx.String("url", url),
		logx.Int64("chat_id", chatID),
		logx.Int64("price", res.Price))
	_ = s.notif.Send(ctx, chatID, confirmReply(res.Title, res.Price))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
