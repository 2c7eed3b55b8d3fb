package driver

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Config carries the subset of the driver's structured configuration
// (spec.md §6) needed by the transport-neutral state machine. A concrete
// driver's own config (RUDICS/SBD ports, IMEI table) layers on top of
// this in internal/config and internal/driver/iridium.
type Config struct {
	ModemID                 int
	MaxFrameSize            int
	TargetBitRateBPS        int
	HandshakeHangupSeconds  int
	HangupSecondsAfterEmpty int
}

// Core is the transport-neutral driver state machine: per-remote OnCall
// bookkeeping, the Idle/OnCall/Hangup table, pacing, and the
// initiate-transmission/do-work entry points spec.md §5 describes.
// Single-threaded cooperative by design (§5): DoWork must be called from
// one goroutine at a time, though InitiateTransmission may be called from
// any goroutine since it only enqueues.
type Core struct {
	cfg       Config
	signals   Signals
	transport Transport
	Bimap     *Bimap

	mu       sync.Mutex
	remotes  map[int]*RemoteNode
	nextFrame int
	pending  []Transmission
}

func New(cfg Config, signals Signals, transport Transport) *Core {
	return &Core{
		cfg:       cfg,
		signals:   signals,
		transport: transport,
		Bimap:     NewBimap(),
		remotes:   make(map[int]*RemoteNode),
	}
}

// remote returns modemID's node, creating it in Idle if unseen. Caller
// must hold c.mu.
func (c *Core) remote(modemID int) *RemoteNode {
	r, ok := c.remotes[modemID]
	if !ok {
		r = &RemoteNode{ModemID: modemID}
		c.remotes[modemID] = r
	}
	return r
}

// EnsureOnCall transitions modemID Idle->OnCall if it isn't already,
// covering both enter conditions in spec.md §4.5's state table (a RUDICS
// "goby" line or the first SBD-MO message for the peer).
func (c *Core) EnsureOnCall(modemID int, now time.Time) *OnCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.remote(modemID)
	if r.OnCall == nil {
		r.OnCall = &OnCall{LastTxTime: now, LastRxTime: now}
	}
	return r.OnCall
}

// OnGobyReceived handles a RUDICS "goby\r" line: opens the call and, if a
// connection is supplied, binds it in the Bimap.
func (c *Core) OnGobyReceived(modemID int, conn Conn, now time.Time) error {
	c.EnsureOnCall(modemID, now)
	if conn == nil {
		return nil
	}
	if err := c.Bimap.Bind(modemID, conn); err != nil {
		if err == ErrAlreadyBound {
			return nil
		}
		return err
	}
	return nil
}

// OnByeReceived handles a RUDICS "bye\r" line from modemID.
func (c *Core) OnByeReceived(modemID int, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.remotes[modemID]
	if !ok || r.OnCall == nil {
		return fmt.Errorf("%w: modem %d", ErrNotOnCall, modemID)
	}
	r.OnCall.ByeReceived = true
	r.OnCall.LastRxTime = now
	return nil
}

// Receive processes one decoded inbound transmission: it opens the call
// if needed, auto-acks a DATA transmission addressed to us that requested
// one (spec.md §4.5), and finally fires Signals.OnReceive.
func (c *Core) Receive(t Transmission, now time.Time) error {
	c.EnsureOnCall(t.Src, now)

	c.mu.Lock()
	if r, ok := c.remotes[t.Src]; ok && r.OnCall != nil {
		r.OnCall.LastRxTime = now
	}
	c.mu.Unlock()

	if t.Type == TransmissionData && t.AckRequested && t.Dest == c.cfg.ModemID {
		ack := Transmission{
			Type: TransmissionAck,
			Src:  t.Dest,
			Dest: t.Src,
			Rate: t.Rate,
		}
		for i := t.FrameStart; i < t.FrameStart+len(t.Frames); i++ {
			ack.AckedFrames = append(ack.AckedFrames, i)
		}
		if _, err := c.send(ack, now); err != nil {
			return fmt.Errorf("auto-ack to modem %d: %w", t.Src, err)
		}
	}

	c.signals.receive(t)
	return nil
}

// send encodes and transmits t immediately, updating pacing bookkeeping
// from the byte count the transport actually wrote. Used both for
// auto-acks (bypassing frame assignment) and by processTransmission.
func (c *Core) send(t Transmission, now time.Time) ([]byte, error) {
	raw, err := c.transport.EncodeAndSend(t.Dest, t)
	if err != nil {
		return nil, err
	}
	c.signals.rawOutgoing(raw)

	c.mu.Lock()
	r := c.remote(t.Dest)
	if r.OnCall != nil {
		r.OnCall.LastTxTime = now
		r.OnCall.LastBytesSent = len(raw)
		r.OnCall.TotalBytesSent += len(raw)
	}
	c.mu.Unlock()
	return raw, nil
}

// InitiateTransmission enqueues t for the next DoWork tick rather than
// sending inline. Per spec.md §5's re-entrancy rule, signal handlers must
// not drive the driver recursively; deferring to the next tick is how the
// driver enforces that.
func (c *Core) InitiateTransmission(t Transmission) {
	c.mu.Lock()
	c.pending = append(c.pending, t)
	c.mu.Unlock()
}

// processTransmission assigns frame_start/max_frame_bytes, asks
// Signals.OnDataRequest to fill in payload, and sends if any payload
// resulted; when keepalive is set and no payload resulted, it sends the
// transmission with no frames instead. Mirrors
// IridiumShoreDriver::process_transmission.
func (c *Core) processTransmission(t Transmission, now time.Time, keepalive bool) error {
	c.signals.modifyTransmission(&t)

	if !t.FrameStartSet {
		c.mu.Lock()
		t.FrameStart = c.nextFrame
		c.mu.Unlock()
	}
	if t.MaxFrameBytes == 0 || t.MaxFrameBytes > c.cfg.MaxFrameSize {
		t.MaxFrameBytes = c.cfg.MaxFrameSize
	}

	c.signals.dataRequest(&t)

	c.mu.Lock()
	c.nextFrame = t.FrameStart + len(t.Frames)
	c.mu.Unlock()

	if len(t.Frames) == 0 || len(t.Frames[0]) == 0 {
		if !keepalive {
			return nil
		}
		t.Frames = nil
	}
	_, err := c.send(t, now)
	return err
}

// DoWork drives one cooperative scheduling tick: it drains any pending
// InitiateTransmission calls, then for every on-call remote enforces
// pacing (emitting a zero-body keepalive when the slot is due and nothing
// else was sent), the bye handshake, and the hangup condition. Errors
// from individual sends are collected rather than aborting the tick,
// matching spec.md §4.5's "log, do not throw further" for transport
// failures.
func (c *Core) DoWork(now time.Time) []error {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	var errs []error
	for _, t := range pending {
		if err := c.processTransmission(t, now, false); err != nil {
			errs = append(errs, err)
		}
	}

	for _, id := range c.sortedRemoteIDs() {
		if err := c.serviceRemote(id, now); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (c *Core) sortedRemoteIDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int, 0, len(c.remotes))
	for id := range c.remotes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (c *Core) serviceRemote(modemID int, now time.Time) error {
	c.mu.Lock()
	r, ok := c.remotes[modemID]
	if !ok || r.OnCall == nil {
		c.mu.Unlock()
		return nil
	}
	oc := r.OnCall
	c.mu.Unlock()

	sendAllowedAt := NextSendAllowedAt(oc.LastTxTime, oc.LastBytesSent, c.cfg.TargetBitRateBPS)
	if !oc.ByeSent && now.After(sendAllowedAt) {
		keepalive := Transmission{Type: TransmissionData, Src: c.cfg.ModemID, Dest: modemID}
		if err := c.processTransmission(keepalive, now, true); err != nil {
			return fmt.Errorf("keepalive to modem %d: %w", modemID, err)
		}
	}

	if byeDue(oc, now, c.cfg.HandshakeHangupSeconds) {
		if _, ok := c.Bimap.ConnFor(modemID); ok {
			if _, err := c.transport.WriteControl(modemID, "bye\r"); err != nil {
				return fmt.Errorf("bye to modem %d: %w", modemID, err)
			}
		}
		oc.ByeSent = true
	}

	if hangupDue(oc, now, c.cfg.HangupSecondsAfterEmpty) {
		if conn, ok := c.Bimap.Unbind(modemID); ok {
			_ = conn.Close()
		}
		c.mu.Lock()
		r.OnCall = nil
		c.mu.Unlock()
	}
	return nil
}

// RawIncoming forwards raw inbound bytes to Signals.OnRawIncoming before
// any decoding is attempted, so observability captures malformed packets
// too.
func (c *Core) RawIncoming(raw []byte) {
	c.signals.rawIncoming(raw)
}

// Shutdown drops every RUDICS connection and clears all OnCall records,
// per spec.md §5's cancellation model: no in-flight operation is durable.
func (c *Core) Shutdown() {
	c.Bimap.CloseAll()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.remotes {
		r.OnCall = nil
	}
	c.pending = nil
}

// Snapshot returns a defensive copy of every known remote's state, for
// admin/status reporting.
func (c *Core) Snapshot() []RemoteNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RemoteNode, 0, len(c.remotes))
	for _, id := range c.sortedRemoteIDsLocked() {
		r := c.remotes[id]
		cp := RemoteNode{ModemID: r.ModemID}
		if r.OnCall != nil {
			oc := *r.OnCall
			cp.OnCall = &oc
		}
		out = append(out, cp)
	}
	return out
}

func (c *Core) sortedRemoteIDsLocked() []int {
	ids := make([]int, 0, len(c.remotes))
	for id := range c.remotes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
