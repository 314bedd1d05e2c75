package watcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pricewatch/internal/lookup"
	"pricewatch/internal/notifier"
	"pricewatch/internal/store"
	kit "pricewatch/internal/transport"
	"pricewatch/pkg/logx"
)

// fakeTransport replays scripted poll batches and records everything sent.
type fakeTransport struct {
	mu      sync.Mutex
	batches [][]kit.Update
	errs    []error
	polls   []int64
	sent    []sentMsg
}

type sentMsg struct {
	chatID int64
	text   string
}

func (f *fakeTransport) Poll(ctx context.Context, offset int64, _ time.Duration) ([]kit.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls = append(f.polls, offset)
	i := len(f.polls) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.batches) {
		return f.batches[i], nil
	}
	return nil, context.Canceled
}

func (f *fakeTransport) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{chatID: to.ChatID, text: text})
	return nil
}

func (f *fakeTransport) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.text
	}
	return out
}

type fakeLookup struct {
	res lookup.Result
	err error
}

func (f *fakeLookup) Fetch(context.Context, string) (lookup.Result, error) {
	return f.res, f.err
}

// newService wires a watcher over the fakes. The sleep hook cancels the run
// context so backoff paths terminate the loop instead of waiting.
func newService(t *testing.T, tr *fakeTransport, lk lookup.Client) (*Service, *store.Store, context.Context, context.CancelFunc) {
	t.Helper()
	st := store.New()
	notif := notifier.New(notifier.Config{RatePerSec: 1000}, tr, logx.Nop(), nil)
	svc := New(Config{PollTimeout: time.Second, PollBackoff: time.Second}, tr, lk, st, notif, logx.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	svc.sleep = func(context.Context, time.Duration) { cancel() }
	return svc, st, ctx, cancel
}

func runUntilDone(t *testing.T, svc *Service, ctx context.Context, cancel context.CancelFunc) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Run(ctx)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("watcher did not stop")
	}
}

func TestRunAdvancesOffsetPastBatch(t *testing.T) {
	tr := &fakeTransport{
		batches: [][]kit.Update{{
			{UpdateID: 10, ChatID: 1, Text: "hello"},
			{UpdateID: 11, ChatID: 1, Text: "hello"},
			{UpdateID: 12, ChatID: 1, Text: "hello"},
		}},
	}
	svc, _, ctx, cancel := newService(t, tr, &fakeLookup{})
	defer cancel()
	// Second poll fails, which routes through the canceling sleep hook.
	tr.errs = []error{nil, errors.New("stop")}

	runUntilDone(t, svc, ctx, cancel)

	if svc.Offset() != 13 {
		t.Fatalf("Offset = %d, want 13", svc.Offset())
	}
	if len(tr.polls) < 2 || tr.polls[1] != 13 {
		t.Fatalf("second poll offset = %v, want 13", tr.polls)
	}
}

func TestRunPollErrorDoesNotAdvance(t *testing.T) {
	tr := &fakeTransport{errs: []error{errors.New("telegram down")}}
	svc, _, ctx, cancel := newService(t, tr, &fakeLookup{})
	defer cancel()

	runUntilDone(t, svc, ctx, cancel)

	if svc.Offset() != 0 {
		t.Fatalf("Offset = %d, want 0 after failed poll", svc.Offset())
	}
}

func TestRunSkipsEmptyUpdates(t *testing.T) {
	tr := &fakeTransport{
		batches: [][]kit.Update{{
			{UpdateID: 5}, // edit or join, no text
			{UpdateID: 6, ChatID: 9, Text: "/start"},
		}},
		errs: []error{nil, errors.New("stop")},
	}
	svc, _, ctx, cancel := newService(t, tr, &fakeLookup{})
	defer cancel()

	runUntilDone(t, svc, ctx, cancel)

	if svc.Offset() != 7 {
		t.Fatalf("Offset = %d, want 7", svc.Offset())
	}
	got := tr.sentTexts()
	if len(got) != 1 || got[0] != msgWelcome {
		t.Fatalf("sent = %v, want only welcome", got)
	}
}

func TestTrackSuccessStoresAndConfirms(t *testing.T) {
	url := "https://amazon.com/dp/B0AAA"
	tr := &fakeTransport{
		batches: [][]kit.Update{{{UpdateID: 1, ChatID: 42, Text: url}}},
		errs:    []error{nil, errors.New("stop")},
	}
	lk := &fakeLookup{res: lookup.Result{Title: "Widget", Price: 500}}
	svc, st, ctx, cancel := newService(t, tr, lk)
	defer cancel()

	runUntilDone(t, svc, ctx, cancel)

	it, ok := st.Get(url)
	if !ok {
		t.Fatal("item not stored")
	}
	if it.Title != "Widget" || it.InitialPrice != 500 || it.LastKnownPrice != 500 || it.RecipientID != 42 {
		t.Fatalf("stored item = %+v", it)
	}

	got := tr.sentTexts()
	if len(got) != 2 {
		t.Fatalf("sent %d messages, want 2: %v", len(got), got)
	}
	if got[0] != msgFetching {
		t.Fatalf("first reply = %q, want fetching ack", got[0])
	}
	if !strings.Contains(got[1], "Widget") || !strings.Contains(got[1], "500") {
		t.Fatalf("confirm reply = %q", got[1])
	}
}

func TestTrackUnpricedIsNotStored(t *testing.T) {
	url := "https://amazon.com/dp/B0BBB"
	tr := &fakeTransport{
		batches: [][]kit.Update{{{UpdateID: 1, ChatID: 42, Text: url}}},
		errs:    []error{nil, errors.New("stop")},
	}
	lk := &fakeLookup{res: lookup.Result{Title: "Widget", Price: 0}}
	svc, st, ctx, cancel := newService(t, tr, lk)
	defer cancel()

	runUntilDone(t, svc, ctx, cancel)

	if st.Len() != 0 {
		t.Fatal("unpriced product must not be stored")
	}
	got := tr.sentTexts()
	if len(got) != 2 || got[1] != msgNoPrice {
		t.Fatalf("sent = %v, want [fetching, no-price]", got)
	}
}

func TestTrackFetchFailure(t *testing.T) {
	url := "https://amazon.com/dp/B0CCC"
	tr := &fakeTransport{
		batches: [][]kit.Update{{{UpdateID: 1, ChatID: 42, Text: url}}},
		errs:    []error{nil, errors.New("stop")},
	}
	lk := &fakeLookup{err: errors.New("blocked")}
	svc, st, ctx, cancel := newService(t, tr, lk)
	defer cancel()

	runUntilDone(t, svc, ctx, cancel)

	if st.Len() != 0 {
		t.Fatal("failed fetch must not be stored")
	}
	got := tr.sentTexts()
	if len(got) != 2 || got[1] != msgFetchFailed {
		t.Fatalf("sent = %v, want [fetching, fetch-failed]", got)
	}
}

func TestListReplies(t *testing.T) {
	tr := &fakeTransport{
		batches: [][]kit.Update{{
			{UpdateID: 1, ChatID: 42, Text: "/list"},
		}},
		errs: []error{nil, errors.New("stop")},
	}
	svc, st, ctx, cancel := newService(t, tr, &fakeLookup{})
	defer cancel()
	st.Upsert("u1", store.TrackedItem{RecipientID: 42, Title: "Widget A", InitialPrice: 500, LastKnownPrice: 450})
	st.Upsert("u2", store.TrackedItem{RecipientID: 7, Title: "Other", InitialPrice: 100, LastKnownPrice: 100})

	runUntilDone(t, svc, ctx, cancel)

	got := tr.sentTexts()
	if len(got) != 1 {
		t.Fatalf("sent = %v", got)
	}
	if !strings.Contains(got[0], "1. Widget A - 450") {
		t.Fatalf("list reply = %q", got[0])
	}
	if strings.Contains(got[0], "Other") {
		t.Fatalf("list leaked another recipient's item: %q", got[0])
	}
}

func TestListEmpty(t *testing.T) {
	tr := &fakeTransport{
		batches: [][]kit.Update{{{UpdateID: 1, ChatID: 42, Text: "/list"}}},
		errs:    []error{nil, errors.New("stop")},
	}
	svc, _, ctx, cancel := newService(t, tr, &fakeLookup{})
	defer cancel()

	runUntilDone(t, svc, ctx, cancel)

	got := tr.sentTexts()
	if len(got) != 1 || got[0] != msgNothingTracked {
		t.Fatalf("sent = %v, want nothing-tracked reply", got)
	}
}
