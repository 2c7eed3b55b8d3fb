// Package queue implements a single message queue: an insertion-ordered
// list of QueuedMessage plus a frame-number-keyed multimap of pending ACK
// obligations. See queue_manager.cpp's Queue collaborator in the original
// goby-acomms libqueue for the reference semantics this generalizes.
package queue

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/tsaubergine/acomms/internal/dccl"
)

// Kind distinguishes the two queue namespaces sharing one QueueManager
// registry: CCL queues (id in [0,31], one-shot fixed-format messages) and
// DCCL queues (id in [0, dccl.MaxDCCLID], schema-driven messages).
type Kind int

const (
	KindDCCL Kind = iota
	KindCCL
)

func (k Kind) String() string {
	if k == KindCCL {
		return "ccl"
	}
	return "dccl"
}

// Key identifies a queue within a QueueManager.
type Key struct {
	Kind Kind
	ID   int
}

func (k Key) String() string { return fmt.Sprintf("%s:%d", k.Kind, k.ID) }

// Config holds the per-queue tunables from spec.md §3/§6.
type Config struct {
	Name                 string
	PriorityBase         float64
	PriorityTimeConstant time.Duration
	MaxQueueSize         int
	NewestFirst          bool
	BlackoutTime         time.Duration
	TTL                  time.Duration
	AckRequired          bool
	OnDemand             bool
}

// QueuedMessage pairs the decoded record with its encoded frame and the
// envelope metadata (source, destination, queued time, ACK obligation)
// needed to re-offer or expire it later.
type QueuedMessage struct {
	Record      dccl.Record
	Frame       []byte
	Src         int
	Dest        int
	QueuedAt    time.Time
	AckRequired bool
}

// Queue holds one (kind, id) message stream: an insertion-ordered list of
// QueuedMessage plus a frame-number multimap of ACK-pending entries.
// Invariant: size() == messages.Len(); every waitingForAck entry
// references a live list.Element; at most one entry per (frame, message).
type Queue struct {
	mu  sync.Mutex
	key Key
	cfg Config

	messages      *list.List // of *QueuedMessage
	waitingForAck map[uint32][]*list.Element

	lastSendTime time.Time
}

// New constructs an empty queue bound to key under cfg.
func New(key Key, cfg Config) *Queue {
	return &Queue{
		key:           key,
		cfg:           cfg,
		messages:      list.New(),
		waitingForAck: make(map[uint32][]*list.Element),
	}
}

func (q *Queue) Key() Key       { return q.key }
func (q *Queue) Config() Config { return q.cfg }

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.messages.Len()
}

// Push inserts msg according to the newest-first/drop-newest policy.
// NewestFirst queues append then drop the oldest entry once over
// MaxQueueSize; drop-newest queues reject the new message with
// ErrQueueFull once at capacity.
func (q *Queue) Push(msg QueuedMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cfg.MaxQueueSize > 0 && q.messages.Len() >= q.cfg.MaxQueueSize {
		if !q.cfg.NewestFirst {
			return fmt.Errorf("%w: queue %s at capacity %d", ErrQueueFull, q.key, q.cfg.MaxQueueSize)
		}
	}

	if msg.QueuedAt.IsZero() {
		msg.QueuedAt = time.Now()
	}
	m := msg
	q.messages.PushBack(&m)

	if q.cfg.NewestFirst {
		for q.cfg.MaxQueueSize > 0 && q.messages.Len() > q.cfg.MaxQueueSize {
			front := q.messages.Front()
			q.removeAckRefs(front)
			q.messages.Remove(front)
		}
	}
	return nil
}

// candidateElement returns the element GiveData/priority logic considers
// "next": the front of the list normally, the back when NewestFirst.
func (q *Queue) candidateElement() *list.Element {
	if q.cfg.NewestFirst {
		return q.messages.Back()
	}
	return q.messages.Front()
}

// GiveData returns the next candidate message whose encoded size fits
// maxBytes. If the message's AckRequired flag is set, it records a
// (frame -> element) ACK obligation and leaves the message in the list;
// otherwise it pops the message immediately.
func (q *Queue) GiveData(frame uint32, maxBytes int) (*QueuedMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	el := q.candidateElement()
	if el == nil {
		return nil, false
	}
	msg := el.Value.(*QueuedMessage)
	if len(msg.Frame) > maxBytes {
		return nil, false
	}

	q.lastSendTime = time.Now()
	out := *msg

	if msg.AckRequired {
		q.waitingForAck[frame] = append(q.waitingForAck[frame], el)
	} else {
		q.messages.Remove(el)
	}
	return &out, true
}

// PopOnAck removes every entry queued under frame, erases the
// corresponding messages, and returns their records for upstream ACK
// notification.
func (q *Queue) PopOnAck(frame uint32) []QueuedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	els, ok := q.waitingForAck[frame]
	if !ok {
		return nil
	}
	delete(q.waitingForAck, frame)

	out := make([]QueuedMessage, 0, len(els))
	for _, el := range els {
		msg := el.Value.(*QueuedMessage)
		out = append(out, *msg)
		q.messages.Remove(el)
	}
	return out
}

// ClearAckQueue drops all pending ACK obligations without touching the
// underlying messages (they remain queued for re-offer).
func (q *Queue) ClearAckQueue() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.waitingForAck = make(map[uint32][]*list.Element)
}

// removeAckRefs drops any ACK-multimap entries pointing at el; callers
// hold q.mu.
func (q *Queue) removeAckRefs(el *list.Element) {
	for frame, els := range q.waitingForAck {
		kept := els[:0]
		for _, e := range els {
			if e != el {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(q.waitingForAck, frame)
		} else {
			q.waitingForAck[frame] = kept
		}
	}
}

// Expire removes every message older than TTL (relative to now) and
// returns their records. A zero TTL disables expiry.
func (q *Queue) Expire(now time.Time) []QueuedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cfg.TTL <= 0 {
		return nil
	}
	var expired []QueuedMessage
	var next *list.Element
	for el := q.messages.Front(); el != nil; el = next {
		next = el.Next()
		msg := el.Value.(*QueuedMessage)
		if now.Sub(msg.QueuedAt) > q.cfg.TTL {
			expired = append(expired, *msg)
			q.removeAckRefs(el)
			q.messages.Remove(el)
		}
	}
	return expired
}

// PriorityValues reports this queue's standing in the priority contest.
// ok is false when the queue is empty or currently in blackout.
// priority = base * (1 + (now - newestMsgTime) / priorityTimeConstant).
func (q *Queue) PriorityValues(now time.Time) (priority float64, lastSendTime time.Time, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.messages.Len() == 0 {
		return 0, time.Time{}, false
	}
	if q.cfg.BlackoutTime > 0 && !q.lastSendTime.IsZero() && now.Sub(q.lastSendTime) < q.cfg.BlackoutTime {
		return 0, time.Time{}, false
	}

	back := q.messages.Back().Value.(*QueuedMessage)
	newestMsgTime := back.QueuedAt

	p := q.cfg.PriorityBase
	if q.cfg.PriorityTimeConstant > 0 {
		age := now.Sub(newestMsgTime).Seconds()
		p = q.cfg.PriorityBase * (1 + age/q.cfg.PriorityTimeConstant.Seconds())
	}
	return p, q.lastSendTime, true
}

// NewestMsgTime returns the queued time of the most recently pushed
// message, used by on-demand staleness checks.
func (q *Queue) NewestMsgTime() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.messages.Len() == 0 {
		return time.Time{}, false
	}
	return q.messages.Back().Value.(*QueuedMessage).QueuedAt, true
}

// Flush drops every pending message and ACK obligation without notifying
// callers, for administrative use (acommsctl flush).
func (q *Queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages.Init()
	q.waitingForAck = make(map[uint32][]*list.Element)
}

// Summary is a one-line human-readable state dump, in the spirit of
// queue.h's summary() stream operator.
func (q *Queue) Summary() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return fmt.Sprintf("queue %s (%s): %d message(s), %d ack-pending frame(s)",
		q.key, q.cfg.Name, q.messages.Len(), len(q.waitingForAck))
}
