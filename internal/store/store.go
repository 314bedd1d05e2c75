// Package store holds the set of tracked products. In-memory only: state is
// lost on restart, a documented limitation of the daemon rather than
// something the store papers over.
package store

import (
	"sync"
	"time"
)

// TrackedItem is one product being watched for one recipient.
//
// Title and InitialPrice are fixed at tracking time. LastKnownPrice only
// ever moves down (the historical low), so a later smaller drop is still
// detected against the best price ever seen.
type TrackedItem struct {
	SourceURL      string
	RecipientID    int64
	Title          string
	InitialPrice   int64
	LastKnownPrice int64
	AddedAt        time.Time
}

// Entry pairs a URL with its item for ordered listings.
type Entry struct {
	URL  string
	Item TrackedItem
}

// Store is a mutex-serialized map keyed by URL, with insertion order
// preserved for listings. Re-tracking a URL overwrites the prior record,
// whoever created it.
type Store struct {
	mu    sync.RWMutex
	items map[string]TrackedItem
	order []string
}

func New() *Store {
	return &Store{items: make(map[string]TrackedItem)}
}

func (s *Store) Upsert(url string, item TrackedItem) {
	if url == "" {
		return
	}
	item.SourceURL = url
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[url]; !exists {
		s.order = append(s.order, url)
	}
	s.items[url] = item
}

func (s *Store) Get(url string) (TrackedItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[url]
	return it, ok
}

// ListByRecipient returns the recipient's items in insertion order.
func (s *Store) ListByRecipient(recipientID int64) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, url := range s.order {
		it := s.items[url]
		if it.RecipientID == recipientID {
			out = append(out, Entry{URL: url, Item: it})
		}
	}
	return out
}

// UpdatePrice records a newly observed lower price. Prices that are not
// strictly lower than the stored one are ignored, so the ratchet invariant
// holds even if two observers race.
func (s *Store) UpdatePrice(url string, newPrice int64) bool {
	if newPrice <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[url]
	if !ok || newPrice >= it.LastKnownPrice {
		return false
	}
	it.LastKnownPrice = newPrice
	s.items[url] = it
	return true
}

// Snapshot returns an ordered copy of all entries, safe to iterate while the
// store keeps mutating.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, url := range s.order {
		out = append(out, Entry{URL: url, Item: s.items[url]})
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
