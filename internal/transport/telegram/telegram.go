// Package telegram implements the chat transport over the Telegram Bot API.
//
// It speaks getUpdates/sendMessage directly instead of going through a bot
// framework: the dispatch loop owns the update offset and only advances it
// after a message has been handled, which frameworks' built-in pollers do
// not expose.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	kit "pricewatch/internal/transport"
	"pricewatch/pkg/logx"
)

const defaultAPIBase = "https://api.telegram.org"

type Config struct {
	Token string

	// APIBase overrides the Bot API host (tests).
	APIBase string
}

type Client struct {
	token string
	base  string
	http  *http.Client
	log   logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = defaultAPIBase
	}
	return &Client{
		token: strings.TrimSpace(cfg.Token),
		base:  base,
		// Per-request deadlines come from the context so the long poll can
		// outlast a normal API call.
		http: &http.Client{},
		log:  log,
	}, nil
}

// ---- wire types ----

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type wireUpdate struct {
	UpdateID int64        `json:"update_id"`
	Message  *wireMessage `json:"message"`
}

type wireMessage struct {
	MessageID int64     `json:"message_id"`
	From      *wireUser `json:"from"`
	Chat      wireChat  `json:"chat"`
	Text      string    `json:"text"`
}

type wireUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type wireChat struct {
	ID int64 `json:"id"`
}

// Poll issues one getUpdates long poll. The returned batch preserves API
// order; updates without message text come back with empty Text so callers
// can still advance past them.
func (c *Client) Poll(ctx context.Context, offset int64, timeout time.Duration) ([]kit.Update, error) {
	secs := int(timeout / time.Second)
	if secs < 0 {
		secs = 0
	}

	q := url.Values{}
	q.Set("offset", strconv.FormatInt(offset, 10))
	q.Set("timeout", strconv.Itoa(secs))

	// Give the HTTP round trip headroom beyond the server-side hold.
	rctx, cancel := context.WithTimeout(ctx, timeout+15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, c.method("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getUpdates: %w", err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("getUpdates decode: %w", err)
	}
	if resp.StatusCode/100 != 2 || !env.OK {
		return nil, apiError("getUpdates", resp.StatusCode, env)
	}

	var raw []wireUpdate
	if err := json.Unmarshal(env.Result, &raw); err != nil {
		return nil, fmt.Errorf("getUpdates result: %w", err)
	}

	out := make([]kit.Update, 0, len(raw))
	for _, u := range raw {
		up := kit.Update{UpdateID: u.UpdateID}
		if u.Message != nil {
			up.ChatID = u.Message.Chat.ID
			up.Text = u.Message.Text
			if u.Message.From != nil {
				up.FromUsername = u.Message.From.Username
			}
		}
		out = append(out, up)
	}
	return out, nil
}

// SendText delivers one message. When a Markdown send is rejected with 400
// (usually unbalanced markup in product titles), it retries once as plain
// text before giving up.
func (c *Client) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) error {
	if opt == nil {
		opt = &kit.SendOptions{}
	}

	payload := map[string]any{
		"chat_id": to.ChatID,
		"text":    text,
	}
	if opt.ParseMode != "" {
		payload["parse_mode"] = opt.ParseMode
	}
	if opt.DisablePreview {
		payload["disable_web_page_preview"] = true
	}

	status, env, err := c.post(ctx, "sendMessage", payload)
	if err != nil {
		return err
	}
	if status/100 == 2 && env.OK {
		return nil
	}

	if status == http.StatusBadRequest && opt.ParseMode != "" {
		c.log.Debug("markdown send rejected, retrying plain", logx.Int64("chat_id", to.ChatID))
		delete(payload, "parse_mode")
		status, env, err = c.post(ctx, "sendMessage", payload)
		if err != nil {
			return err
		}
		if status/100 == 2 && env.OK {
			return nil
		}
	}

	return apiError("sendMessage", status, env)
}

func (c *Client) post(ctx context.Context, method string, payload map[string]any) (int, apiEnvelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, apiEnvelope{}, err
	}

	rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodPost, c.method(method), bytes.NewReader(b))
	if err != nil {
		return 0, apiEnvelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, apiEnvelope{}, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env, nil
}

func (c *Client) method(name string) string {
	return c.base + "/bot" + c.token + "/" + name
}

func apiError(method string, status int, env apiEnvelope) error {
	if env.Description != "" {
		return fmt.Errorf("telegram %s failed: %s (code=%d http=%d)", method, env.Description, env.ErrorCode, status)
	}
	return fmt.Errorf("telegram %s failed: http=%d", method, status)
}
