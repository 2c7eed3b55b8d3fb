package queuemgr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tsaubergine/acomms/internal/codecreg"
	"github.com/tsaubergine/acomms/internal/dccl"
	"github.com/tsaubergine/acomms/internal/queue"
)

func testSchema(t *testing.T, dcclID int) *dccl.CompiledSchema {
	t.Helper()
	reg := codecreg.New()
	dccl.RegisterDefaults(reg)
	schema := dccl.Schema{
		DCCLID: dcclID,
		Name:   "status",
		Fields: []dccl.Field{
			{Name: "value", Wire: codecreg.WireInt, Min: 0, Max: 100, Precision: 0},
		},
		MaxBytes: 32,
	}
	cs, err := dccl.Compile(schema, reg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return cs
}

func TestAddQueueDuplicateAndTooLarge(t *testing.T) {
	m := New(1, Callbacks{}, nil)
	key := queue.Key{Kind: queue.KindDCCL, ID: 5}
	if err := m.AddQueue(key, queue.Config{Name: "a"}, testSchema(t, 5)); err != nil {
		t.Fatalf("AddQueue: %v", err)
	}
	if err := m.AddQueue(key, queue.Config{}, testSchema(t, 5)); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	bigKey := queue.Key{Kind: queue.KindCCL, ID: 99}
	if err := m.AddQueue(bigKey, queue.Config{}, nil); !errors.Is(err, ErrIDTooLarge) {
		t.Fatalf("expected ErrIDTooLarge, got %v", err)
	}
}

func TestAddQueueDCCLRequiresSchema(t *testing.T) {
	m := New(1, Callbacks{}, nil)
	key := queue.Key{Kind: queue.KindDCCL, ID: 5}
	if err := m.AddQueue(key, queue.Config{}, nil); !errors.Is(err, ErrSchemaRequired) {
		t.Fatalf("expected ErrSchemaRequired, got %v", err)
	}
}

func TestPushLoopbackDeliversToReceiveCallback(t *testing.T) {
	var received dccl.Record
	var receivedKey queue.Key
	m := New(1, Callbacks{
		OnReceive: func(key queue.Key, rec dccl.Record, frame []byte) {
			receivedKey = key
			received = rec
		},
	}, nil)

	key := queue.Key{Kind: queue.KindDCCL, ID: 5}
	if err := m.AddQueue(key, queue.Config{Name: "status", AckRequired: false}, testSchema(t, 5)); err != nil {
		t.Fatalf("AddQueue: %v", err)
	}

	err := m.Push(context.Background(), key, Outgoing{Record: dccl.Record{"value": dccl.FloatValue(42)}, Dest: 1})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if receivedKey != key {
		t.Fatalf("expected receive callback for %s, got %s", key, receivedKey)
	}
	v, _ := received.Get("value")
	if v.Float != 42 {
		t.Fatalf("expected value 42, got %v", v.Float)
	}
}

func TestProvideOutgoingThenReceiveIncomingRoundTrip(t *testing.T) {
	var received dccl.Record
	m := New(1, Callbacks{
		OnReceive: func(key queue.Key, rec dccl.Record, frame []byte) {
			received = rec
		},
	}, nil)

	key := queue.Key{Kind: queue.KindDCCL, ID: 5}
	if err := m.AddQueue(key, queue.Config{Name: "status", PriorityBase: 1, AckRequired: false}, testSchema(t, 5)); err != nil {
		t.Fatalf("AddQueue: %v", err)
	}

	err := m.Push(context.Background(), key, Outgoing{Record: dccl.Record{"value": dccl.FloatValue(7)}, Dest: 2})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	result, err := m.ProvideOutgoing(context.Background(), OutgoingRequest{Src: 1, Dest: 2, FrameIndex: 0, MaxBytes: 64})
	if err != nil {
		t.Fatalf("ProvideOutgoing: %v", err)
	}
	if len(result.Frame) == 0 {
		t.Fatalf("expected a non-empty outgoing frame")
	}

	if err := m.ReceiveIncoming(context.Background(), result.Frame, 1); err != nil {
		t.Fatalf("ReceiveIncoming: %v", err)
	}
	v, ok := received.Get("value")
	if !ok || v.Float != 7 {
		t.Fatalf("expected round-tripped value 7, got %+v ok=%v", v, ok)
	}
}

func TestHandleAckPopsPendingMessage(t *testing.T) {
	var acked queue.QueuedMessage
	var ackedKey queue.Key
	m := New(1, Callbacks{
		OnAck: func(key queue.Key, msg queue.QueuedMessage) {
			ackedKey = key
			acked = msg
		},
	}, nil)

	key := queue.Key{Kind: queue.KindDCCL, ID: 5}
	if err := m.AddQueue(key, queue.Config{Name: "status", PriorityBase: 1, AckRequired: true, BlackoutTime: time.Minute}, testSchema(t, 5)); err != nil {
		t.Fatalf("AddQueue: %v", err)
	}
	if err := m.Push(context.Background(), key, Outgoing{Record: dccl.Record{"value": dccl.FloatValue(1)}, Dest: 2}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	result, err := m.ProvideOutgoing(context.Background(), OutgoingRequest{Src: 1, Dest: 2, FrameIndex: 0, MaxBytes: 64})
	if err != nil {
		t.Fatalf("ProvideOutgoing: %v", err)
	}
	if !result.AckRequired {
		t.Fatalf("expected AckRequired result")
	}

	if err := m.HandleAck(0, 1); err != nil {
		t.Fatalf("HandleAck: %v", err)
	}
	if ackedKey != key {
		t.Fatalf("expected ack callback for %s, got %s", key, ackedKey)
	}
	v, _ := acked.Record.Get("value")
	if v.Float != 1 {
		t.Fatalf("expected acked value 1, got %v", v.Float)
	}
}

func TestHandleAckWrongDestIsIgnored(t *testing.T) {
	m := New(1, Callbacks{}, nil)
	if err := m.HandleAck(0, 99); err != nil {
		t.Fatalf("HandleAck for foreign dest should be a silent no-op, got %v", err)
	}
}

func TestSnapshotReportsQueueSizes(t *testing.T) {
	m := New(1, Callbacks{}, nil)
	key := queue.Key{Kind: queue.KindDCCL, ID: 5}
	if err := m.AddQueue(key, queue.Config{Name: "status", PriorityBase: 1}, testSchema(t, 5)); err != nil {
		t.Fatalf("AddQueue: %v", err)
	}
	if err := m.Push(context.Background(), key, Outgoing{Record: dccl.Record{"value": dccl.FloatValue(1)}, Dest: 2}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	snaps := m.Snapshot()
	if len(snaps) != 1 || snaps[0].Size != 1 {
		t.Fatalf("expected one queue with size 1, got %+v", snaps)
	}
}

func TestDoWorkExpiresStaleMessages(t *testing.T) {
	var expiredKey queue.Key
	m := New(1, Callbacks{
		OnExpire: func(key queue.Key, msg queue.QueuedMessage) {
			expiredKey = key
		},
	}, nil)
	key := queue.Key{Kind: queue.KindDCCL, ID: 5}
	if err := m.AddQueue(key, queue.Config{Name: "status", TTL: time.Millisecond}, testSchema(t, 5)); err != nil {
		t.Fatalf("AddQueue: %v", err)
	}
	if err := m.Push(context.Background(), key, Outgoing{Record: dccl.Record{"value": dccl.FloatValue(1)}, Dest: 2}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	m.DoWork(time.Now().Add(time.Hour))
	if expiredKey != key {
		t.Fatalf("expected expire callback for %s", key)
	}
}
