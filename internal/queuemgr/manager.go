// Package queuemgr arbitrates between many message queues for one modem
// id: priority contest, packet stitching/unstitching, and ACK routing.
// Grounded on goby-acomms's queue_manager.cpp, generalized from its
// recursive stitch/unstitch into loop-based cursors and from its
// callback member functions into an explicit Callbacks struct-of-funcs
// (the same shape internal/driver uses for its Signals).
package queuemgr

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tsaubergine/acomms/internal/dccl"
	"github.com/tsaubergine/acomms/internal/queue"
)

// MaxCCLID is the largest valid CCL queue id.
const MaxCCLID = 31

// OnDemandSkew is how stale a cached on-demand record must be before it
// is considered stale and re-requested (spec.md §4.4).
const OnDemandSkew = 1 * time.Second

// Outgoing is a record ready to enter a DCCL queue: the decoded record
// plus the destination it should carry.
type Outgoing struct {
	Record dccl.Record
	Dest   int
}

// OnDemandCallback produces a fresh record for an on-demand queue whose
// head is empty or stale.
type OnDemandCallback interface {
	ProduceRecord(ctx context.Context, key queue.Key) (Outgoing, error)
}

// Callbacks are the manager's upcalls to its host, mirroring
// queue_manager.cpp's callback_receive/callback_ack/callback_expire
// member function pointers.
type Callbacks struct {
	OnReceive    func(key queue.Key, rec dccl.Record, frame []byte)
	OnReceiveCCL func(key queue.Key, frame []byte)
	OnAck        func(key queue.Key, msg queue.QueuedMessage)
	OnExpire     func(key queue.Key, msg queue.QueuedMessage)
}

type boundQueue struct {
	q      *queue.Queue
	schema *dccl.CompiledSchema // nil for CCL queues
}

// QueueManager owns every queue for one modem id and arbitrates which
// one fills the next outgoing frame.
type QueueManager struct {
	mu      sync.RWMutex
	modemID int

	queues map[queue.Key]*boundQueue

	onDemand  OnDemandCallback
	callbacks Callbacks

	packetAck  bool
	ackWaiting map[uint32][]queue.Key
}

// New constructs an empty manager for modemID.
func New(modemID int, callbacks Callbacks, onDemand OnDemandCallback) *QueueManager {
	return &QueueManager{
		modemID:    modemID,
		queues:     make(map[queue.Key]*boundQueue),
		callbacks:  callbacks,
		onDemand:   onDemand,
		ackWaiting: make(map[uint32][]queue.Key),
	}
}

// AddQueue registers a new queue keyed by (kind, id). schema is required
// for KindDCCL queues (used to encode outgoing records and decode
// incoming sub-frames) and ignored for KindCCL queues.
func (m *QueueManager) AddQueue(key queue.Key, cfg queue.Config, schema *dccl.CompiledSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.queues[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	if key.Kind == queue.KindCCL && key.ID > MaxCCLID {
		return fmt.Errorf("%w: ccl id %d exceeds %d", ErrIDTooLarge, key.ID, MaxCCLID)
	}
	if key.Kind == queue.KindDCCL && key.ID > dccl.MaxDCCLID {
		return fmt.Errorf("%w: dccl id %d exceeds %d", ErrIDTooLarge, key.ID, dccl.MaxDCCLID)
	}
	if key.Kind == queue.KindDCCL && schema == nil {
		return fmt.Errorf("%w: queue %s", ErrSchemaRequired, key)
	}

	m.queues[key] = &boundQueue{q: queue.New(key, cfg), schema: schema}
	return nil
}

func (m *QueueManager) lookup(key queue.Key) (*boundQueue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bq, ok := m.queues[key]
	return bq, ok
}

func (m *QueueManager) sortedKeys() []queue.Key {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]queue.Key, 0, len(m.queues))
	for k := range m.queues {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

// Push encodes out.Record against its queue's schema and enqueues it, or
// short-circuits to ReceiveIncoming when out.Dest is our own modem id
// (loopback, per spec.md §4.4).
func (m *QueueManager) Push(ctx context.Context, key queue.Key, out Outgoing) error {
	bq, ok := m.lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchQueue, key)
	}
	if bq.schema == nil {
		return fmt.Errorf("%w: %s is a CCL queue, use PushRaw", ErrSchemaRequired, key)
	}

	now := time.Now()
	if out.Dest == m.modemID {
		head := dccl.Head{Src: m.modemID, Dest: out.Dest, TimeOfDay: now}
		frame, err := bq.schema.Encode(head, out.Record)
		if err != nil {
			return err
		}
		packet, err := dccl.Stitch([][]byte{frame}, out.Dest)
		if err != nil {
			return err
		}
		return m.ReceiveIncoming(ctx, packet, m.modemID)
	}

	head := dccl.Head{Src: m.modemID, Dest: out.Dest, TimeOfDay: now}
	frame, err := bq.schema.Encode(head, out.Record)
	if err != nil {
		return err
	}
	msg := queue.QueuedMessage{
		Record:      out.Record,
		Frame:       frame,
		Src:         m.modemID,
		Dest:        out.Dest,
		QueuedAt:    now,
		AckRequired: bq.q.Config().AckRequired,
	}
	return bq.q.Push(msg)
}

// PushRaw enqueues an already wire-formatted frame, for CCL queues that
// carry raw fixed-format messages rather than DCCL-schema records.
func (m *QueueManager) PushRaw(key queue.Key, frame []byte, dest int) error {
	bq, ok := m.lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchQueue, key)
	}
	msg := queue.QueuedMessage{
		Frame:       frame,
		Src:         m.modemID,
		Dest:        dest,
		QueuedAt:    time.Now(),
		AckRequired: bq.q.Config().AckRequired,
	}
	return bq.q.Push(msg)
}

// FindNextSender runs the priority contest across every registered
// queue. A CCL queue is eligible only when userFrameNum == 0. An
// on_demand queue whose head is empty or stale first gets a synchronous
// upcall to produce a fresh record. Ties break on the oldest
// last-send-time. Returns ok == false when no eligible queue has data.
func (m *QueueManager) FindNextSender(ctx context.Context, now time.Time, userFrameNum int) (queue.Key, *queue.Queue, bool) {
	var winnerKey queue.Key
	var winner *queue.Queue
	var winnerPriority float64
	var winnerLastSend time.Time
	found := false

	for _, key := range m.sortedKeys() {
		bq, ok := m.lookup(key)
		if !ok {
			continue
		}

		if bq.q.Config().OnDemand && m.onDemand != nil {
			newest, hasMsg := bq.q.NewestMsgTime()
			if !hasMsg || now.Sub(newest) > OnDemandSkew {
				if out, err := m.onDemand.ProduceRecord(ctx, key); err == nil {
					_ = m.Push(ctx, key, out)
				}
			}
		}

		if key.Kind == queue.KindCCL && userFrameNum > 0 {
			continue
		}

		priority, lastSend, ok := bq.q.PriorityValues(now)
		if !ok {
			continue
		}
		if !found || priority > winnerPriority || (priority == winnerPriority && lastSend.Before(winnerLastSend)) {
			winnerKey, winner, winnerPriority, winnerLastSend, found = key, bq.q, priority, lastSend, true
		}
	}
	return winnerKey, winner, found
}

// OutgoingRequest describes the driver's request for the next outgoing
// packet.
type OutgoingRequest struct {
	Src        int
	Dest       int
	FrameIndex int
	MaxBytes   int
}

// OutgoingResult is the assembled packet plus whether it carries any
// ACK-required frame.
type OutgoingResult struct {
	Frame       []byte
	AckRequired bool
}

// clearPacket resets packet-level ACK bookkeeping: every queue with an
// outstanding ACK entry from the previous packet has that bookkeeping
// dropped (the messages themselves remain queued for re-offer).
func (m *QueueManager) clearPacket() {
	m.mu.Lock()
	keys := m.ackWaiting
	m.ackWaiting = make(map[uint32][]queue.Key)
	m.packetAck = false
	m.mu.Unlock()

	seen := make(map[queue.Key]bool)
	for _, ks := range keys {
		for _, k := range ks {
			if seen[k] {
				continue
			}
			seen[k] = true
			if bq, ok := m.lookup(k); ok {
				bq.q.ClearAckQueue()
			}
		}
	}
}

// ProvideOutgoing fills one outgoing packet: it repeatedly picks the
// priority-contest winner, calls GiveData, and stitches the results
// together, stopping when nothing more fits, the winner is a CCL queue
// (which occupies the entire packet), or the remaining budget can no
// longer hold a DCCL head.
func (m *QueueManager) ProvideOutgoing(ctx context.Context, req OutgoingRequest) (OutgoingResult, error) {
	now := time.Now()
	if req.FrameIndex == 0 || req.FrameIndex == 1 {
		m.clearPacket()
	}

	remaining := req.MaxBytes
	winnerKey, winner, ok := m.FindNextSender(ctx, now, 0)
	if !ok {
		return OutgoingResult{}, nil
	}

	var frames [][]byte
	var frameKeys []queue.Key
	userFrameIdx := 0
	for winner != nil {
		msg, gotOne := winner.GiveData(uint32(req.FrameIndex), remaining)
		if !gotOne {
			break
		}
		frames = append(frames, msg.Frame)
		frameKeys = append(frameKeys, winnerKey)

		if msg.AckRequired {
			m.mu.Lock()
			m.packetAck = true
			m.ackWaiting[uint32(req.FrameIndex)] = append(m.ackWaiting[uint32(req.FrameIndex)], winnerKey)
			m.mu.Unlock()
		}

		remaining -= len(msg.Frame)
		userFrameIdx++

		if winnerKey.Kind == queue.KindCCL || remaining <= headBudgetFloor {
			break
		}
		winnerKey, winner, ok = m.FindNextSender(ctx, now, userFrameIdx)
		if !ok {
			break
		}
	}

	if len(frames) == 0 {
		return OutgoingResult{}, nil
	}
	if len(frames) == 1 && frameKeys[0].Kind == queue.KindCCL {
		return OutgoingResult{Frame: frames[0], AckRequired: m.packetAck}, nil
	}

	packet, err := dccl.Stitch(frames, req.Dest)
	if err != nil {
		return OutgoingResult{}, err
	}
	return OutgoingResult{Frame: packet, AckRequired: m.packetAck}, nil
}

// headBudgetFloor is the point below which no further DCCL frame can
// possibly fit (the fixed head alone is 7 bytes).
const headBudgetFloor = 7

// ReceiveIncoming reads the CCL-id byte of an inbound packet. A DCCL
// marker recursively (here, iteratively) unstitches into its user-frames
// and dispatches each by DCCL id; anything else dispatches to the CCL
// queue matching the first byte. dest is the outer transmission's
// destination, used unless a sub-frame's broadcast bit overrides it.
func (m *QueueManager) ReceiveIncoming(ctx context.Context, frame []byte, dest int) error {
	isDCCL, cclID, subframes, err := dccl.Unstitch(frame)
	if err != nil {
		return err
	}
	if !isDCCL {
		key := queue.Key{Kind: queue.KindCCL, ID: int(cclID)}
		if _, ok := m.lookup(key); !ok {
			return fmt.Errorf("%w: ccl id %d", ErrNoSuchQueue, cclID)
		}
		if m.callbacks.OnReceiveCCL != nil {
			m.callbacks.OnReceiveCCL(key, frame)
		}
		return nil
	}

	now := time.Now()
	for _, sub := range subframes {
		effectiveDest := dest
		if sub.Broadcast {
			effectiveDest = dccl.BroadcastID
		}
		if effectiveDest != m.modemID && effectiveDest != dccl.BroadcastID {
			continue
		}

		key := queue.Key{Kind: queue.KindDCCL, ID: sub.DCCLID}
		bq, ok := m.lookup(key)
		if !ok {
			continue
		}

		var rec dccl.Record
		if bq.schema != nil {
			if _, decoded, derr := bq.schema.Decode(sub.Frame, now); derr == nil {
				rec = decoded
			}
		}
		if m.callbacks.OnReceive != nil {
			m.callbacks.OnReceive(key, rec, sub.Frame)
		}
	}
	return nil
}

// HandleAck routes an ACK for frame to every queue that has a pending
// entry under it, per spec.md §4.4. ACKs not addressed to us, or for a
// frame nobody is waiting on, are silently discarded.
func (m *QueueManager) HandleAck(frame uint32, dest int) error {
	if dest != m.modemID {
		return nil
	}

	m.mu.Lock()
	keys, ok := m.ackWaiting[frame]
	delete(m.ackWaiting, frame)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	for _, key := range keys {
		bq, ok := m.lookup(key)
		if !ok {
			continue
		}
		for _, msg := range bq.q.PopOnAck(frame) {
			if m.callbacks.OnAck != nil {
				m.callbacks.OnAck(key, msg)
			}
		}
	}
	return nil
}

// DoWork expires stale messages across every queue, called at ≥10Hz by
// the host alongside the driver's own DoWork (spec.md §5).
func (m *QueueManager) DoWork(now time.Time) {
	for _, key := range m.sortedKeys() {
		bq, ok := m.lookup(key)
		if !ok {
			continue
		}
		for _, msg := range bq.q.Expire(now) {
			if m.callbacks.OnExpire != nil {
				m.callbacks.OnExpire(key, msg)
			}
		}
	}
}

// QueueSnapshot is one queue's introspection state for /queues and
// acommsctl snapshot (supplementing queue.h's summary()).
type QueueSnapshot struct {
	Key     queue.Key
	Name    string
	Size    int
	Summary string
}

// Snapshot returns structured state for every registered queue.
func (m *QueueManager) Snapshot() []QueueSnapshot {
	keys := m.sortedKeys()
	out := make([]QueueSnapshot, 0, len(keys))
	for _, key := range keys {
		bq, ok := m.lookup(key)
		if !ok {
			continue
		}
		out = append(out, QueueSnapshot{
			Key:     key,
			Name:    bq.q.Config().Name,
			Size:    bq.q.Size(),
			Summary: bq.q.Summary(),
		})
	}
	return out
}

// FlushQueue drops all pending messages and ACK obligations for key,
// for administrative use (acommsctl flush).
func (m *QueueManager) FlushQueue(key queue.Key) error {
	bq, ok := m.lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchQueue, key)
	}
	bq.q.Flush()
	return nil
}
