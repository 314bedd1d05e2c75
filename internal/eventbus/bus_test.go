package eventbus

import "testing"

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: TypeTrackAdded, Data: "u1"})
	b.Publish(Event{Type: TypePriceDrop, Data: "u1"})

	e := <-ch
	if e.Type != TypeTrackAdded || e.Data != "u1" {
		t.Fatalf("got %+v", e)
	}
	if e.Time.IsZero() {
		t.Fatal("publish should stamp Time")
	}
	if e := <-ch; e.Type != TypePriceDrop {
		t.Fatalf("got %+v", e)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	// Fill the buffer and keep publishing; extra events drop silently.
	for i := 0; i < 10; i++ {
		b.Publish(Event{Type: TypeNotifySent})
	}
}

func TestPublishAfterUnsubscribe(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe(1)
	unsub()
	unsub() // idempotent

	b.Publish(Event{Type: TypeNotifySent})
}

func TestFanout(t *testing.T) {
	b := New()
	a, unsubA := b.Subscribe(1)
	defer unsubA()
	c, unsubC := b.Subscribe(1)
	defer unsubC()

	b.Publish(Event{Type: TypeRecheckCycle})
	if e := <-a; e.Type != TypeRecheckCycle {
		t.Fatalf("a got %+v", e)
	}
	if e := <-c; e.Type != TypeRecheckCycle {
		t.Fatalf("c got %+v", e)
	}
}
