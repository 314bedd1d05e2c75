package transport

import (
	"context"
	"time"
)

// Update is one inbound chat message with its sequence number. Updates
// without message text still carry their UpdateID so the consumer can
// advance its cursor past them.
type Update struct {
	UpdateID     int64
	ChatID       int64
	FromUsername string
	Text         string
}

type ChatTarget struct {
	ChatID int64
}

type SendOptions struct {
	ParseMode      string // e.g. "Markdown"; empty means plain text
	DisablePreview bool
}

// Transport is the chat backend seen by the rest of the daemon.
//
// Poll long-polls for updates with sequence number >= offset; a network or
// decode failure is retryable. SendText is best-effort; callers must not let
// a send failure alter their control flow.
type Transport interface {
	Poll(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) error
}
