package driver

// Signals is the set of upcalls the driver core makes into its
// collaborators (queue manager, logging, metrics). A struct of function
// fields rather than an interface: spec.md §9 asks for this explicit
// trait-object style in place of the source's bind()-built
// boost::signals2 slots, and it lets a caller wire only the hooks it
// needs. Grounded on mirage.Server's constructor-injected GhostSpawner
// interface field for the same "collaborator supplied at construction"
// shape, generalized here to five narrow function fields instead of one
// interface method. Every field is optional; the core nil-checks before
// calling.
type Signals struct {
	// OnReceive fires for every decoded inbound transmission, after any
	// automatic ack has been queued.
	OnReceive func(t Transmission)
	// OnDataRequest fires when the core needs frame payloads for an
	// outbound transmission; the callee mutates t.Frames in place.
	OnDataRequest func(t *Transmission)
	// OnRawIncoming/OnRawOutgoing observe the wire bytes of every
	// inbound/outbound transmission, independent of decoding success.
	OnRawIncoming func(raw []byte)
	OnRawOutgoing func(raw []byte)
	// OnModifyTransmission fires before frame assignment, letting a
	// collaborator adjust rate/ack_requested/etc. on the way out.
	OnModifyTransmission func(t *Transmission)
}

func (s Signals) receive(t Transmission) {
	if s.OnReceive != nil {
		s.OnReceive(t)
	}
}

func (s Signals) dataRequest(t *Transmission) {
	if s.OnDataRequest != nil {
		s.OnDataRequest(t)
	}
}

func (s Signals) rawIncoming(raw []byte) {
	if s.OnRawIncoming != nil {
		s.OnRawIncoming(raw)
	}
}

func (s Signals) rawOutgoing(raw []byte) {
	if s.OnRawOutgoing != nil {
		s.OnRawOutgoing(raw)
	}
}

func (s Signals) modifyTransmission(t *Transmission) {
	if s.OnModifyTransmission != nil {
		s.OnModifyTransmission(t)
	}
}
