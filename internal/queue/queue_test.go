package queue

import (
	"errors"
	"testing"
	"time"
)

func msg(dest int, frameLen int, ackRequired bool, at time.Time) QueuedMessage {
	return QueuedMessage{Frame: make([]byte, frameLen), Dest: dest, QueuedAt: at, AckRequired: ackRequired}
}

func TestPushDropNewestWhenFull(t *testing.T) {
	q := New(Key{Kind: KindDCCL, ID: 1}, Config{MaxQueueSize: 2})
	if err := q.Push(msg(1, 4, false, time.Now())); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := q.Push(msg(1, 4, false, time.Now())); err != nil {
		t.Fatalf("second push: %v", err)
	}
	if err := q.Push(msg(1, 4, false, time.Now())); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if q.Size() != 2 {
		t.Fatalf("expected size 2, got %d", q.Size())
	}
}

func TestPushNewestFirstDropsOldest(t *testing.T) {
	q := New(Key{Kind: KindDCCL, ID: 1}, Config{MaxQueueSize: 2, NewestFirst: true})
	for i := 0; i < 3; i++ {
		if err := q.Push(msg(1, 4, false, time.Now())); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if q.Size() != 2 {
		t.Fatalf("expected size capped at 2, got %d", q.Size())
	}
}

func TestGiveDataNoAckPopsImmediately(t *testing.T) {
	q := New(Key{Kind: KindDCCL, ID: 1}, Config{})
	if err := q.Push(msg(1, 4, false, time.Now())); err != nil {
		t.Fatalf("push: %v", err)
	}
	m, ok := q.GiveData(7, 100)
	if !ok || m == nil {
		t.Fatalf("expected a message")
	}
	if q.Size() != 0 {
		t.Fatalf("expected queue drained after non-ack give_data, got size %d", q.Size())
	}
}

func TestGiveDataAckRequiredHoldsUntilAck(t *testing.T) {
	q := New(Key{Kind: KindDCCL, ID: 1}, Config{})
	if err := q.Push(msg(1, 4, true, time.Now())); err != nil {
		t.Fatalf("push: %v", err)
	}
	m, ok := q.GiveData(7, 100)
	if !ok || m == nil {
		t.Fatalf("expected a message")
	}
	if q.Size() != 1 {
		t.Fatalf("expected message retained pending ack, got size %d", q.Size())
	}
	popped := q.PopOnAck(7)
	if len(popped) != 1 {
		t.Fatalf("expected 1 popped record, got %d", len(popped))
	}
	if q.Size() != 0 {
		t.Fatalf("expected queue drained after ack, got size %d", q.Size())
	}
}

func TestGiveDataTooLargeSkipped(t *testing.T) {
	q := New(Key{Kind: KindDCCL, ID: 1}, Config{})
	if err := q.Push(msg(1, 200, false, time.Now())); err != nil {
		t.Fatalf("push: %v", err)
	}
	_, ok := q.GiveData(1, 10)
	if ok {
		t.Fatalf("expected no message to fit")
	}
}

func TestExpire(t *testing.T) {
	q := New(Key{Kind: KindDCCL, ID: 1}, Config{TTL: time.Second})
	old := time.Now().Add(-time.Hour)
	if err := q.Push(msg(1, 4, false, old)); err != nil {
		t.Fatalf("push: %v", err)
	}
	expired := q.Expire(time.Now())
	if len(expired) != 1 {
		t.Fatalf("expected 1 expired message, got %d", len(expired))
	}
	if q.Size() != 0 {
		t.Fatalf("expected queue empty after expire, got %d", q.Size())
	}
}

func TestPriorityValuesEmptyIsNotOK(t *testing.T) {
	q := New(Key{Kind: KindDCCL, ID: 1}, Config{PriorityBase: 1})
	if _, _, ok := q.PriorityValues(time.Now()); ok {
		t.Fatalf("expected empty queue to have no priority")
	}
}

func TestPriorityValuesBlackout(t *testing.T) {
	q := New(Key{Kind: KindDCCL, ID: 1}, Config{PriorityBase: 1, BlackoutTime: time.Minute})
	if err := q.Push(msg(1, 4, false, time.Now())); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, ok := q.GiveData(1, 100); !ok {
		t.Fatalf("expected give_data to succeed")
	}
	if err := q.Push(msg(1, 4, false, time.Now())); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, _, ok := q.PriorityValues(time.Now()); ok {
		t.Fatalf("expected blackout to suppress priority right after send")
	}
}

func TestFlushClearsEverything(t *testing.T) {
	q := New(Key{Kind: KindDCCL, ID: 1}, Config{})
	if err := q.Push(msg(1, 4, true, time.Now())); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, ok := q.GiveData(3, 100); !ok {
		t.Fatalf("expected give_data to succeed")
	}
	q.Flush()
	if q.Size() != 0 {
		t.Fatalf("expected size 0 after flush, got %d", q.Size())
	}
	if popped := q.PopOnAck(3); len(popped) != 0 {
		t.Fatalf("expected no ack obligations after flush")
	}
}
