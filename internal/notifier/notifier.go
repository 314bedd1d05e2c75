// Package notifier delivers user-facing messages over the chat transport.
// Delivery is best-effort: a failed send is logged and published on the
// event bus, and the caller's control flow never depends on the outcome.
package notifier

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pricewatch/internal/eventbus"
	kit "pricewatch/internal/transport"
	"pricewatch/pkg/logx"
)

type Config struct {
	// RatePerSec caps outbound sends (Telegram throttles bots that burst).
	RatePerSec int
}

type HistoryItem struct {
	At     time.Time
	ChatID int64
	Text   string
	Err    string
}

type Service struct {
	transport kit.Transport
	log       logx.Logger
	bus       eventbus.Bus

	mu      sync.Mutex
	limiter *rate.Limiter
	history []HistoryItem
}

func New(cfg Config, transport kit.Transport, log logx.Logger, bus eventbus.Bus) *Service {
	s := &Service{transport: transport, log: log, bus: bus}
	s.Apply(cfg)
	return s
}

// Apply updates the send budget at runtime (config hot reload).
func (s *Service) Apply(cfg Config) {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	s.mu.Lock()
	s.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	s.mu.Unlock()
}

// Send delivers text to one chat. The error return exists for observability
// in tests; production callers ignore it.
func (s *Service) Send(ctx context.Context, chatID int64, text string) error {
	if text == "" {
		return nil
	}

	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()
	if err := lim.Wait(ctx); err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opt := &kit.SendOptions{ParseMode: "Markdown", DisablePreview: true}
	err := s.transport.SendText(sctx, kit.ChatTarget{ChatID: chatID}, text, opt)
	if err != nil {
		s.log.Warn("notification send failed", logx.Int64("chat_id", chatID), logx.Err(err))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: eventbus.TypeNotifyFailed, Data: chatID})
		}
	} else {
		s.log.Debug("notification sent", logx.Int64("chat_id", chatID))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: eventbus.TypeNotifySent, Data: chatID})
		}
	}

	s.appendHistory(chatID, text, err)
	return err
}

func (s *Service) appendHistory(chatID int64, text string, err error) {
	item := HistoryItem{At: time.Now(), ChatID: chatID, Text: text}
	if err != nil {
		item.Err = err.Error()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, item)
	if len(s.history) > 300 {
		s.history = s.history[len(s.history)-300:]
	}
}

// History returns a copy of the recent delivery log.
func (s *Service) History() []HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}
