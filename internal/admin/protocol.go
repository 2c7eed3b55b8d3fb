// Package admin implements the JSON-lines request/response control
// protocol between acommsctl and acommsd, grounded on
// mirage/admin_control.go's adminControlRequest/adminControlResponse
// shape: one JSON object per line in each direction, an Action string
// selecting the handler, an opaque Data payload, and an OK/Error result.
package admin

import "github.com/google/uuid"

// Request is one control-connection request line.
type Request struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Data   any    `json:"data,omitempty"`
}

// NewRequest stamps a fresh correlation id onto a request, matching how
// skycoin-skywire-testnet uses google/uuid to correlate request/response
// pairs across an asynchronous transport.
func NewRequest(action string, data any) Request {
	return Request{ID: uuid.NewString(), Action: action, Data: data}
}

// Response is one control-connection response line.
type Response struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Action names this protocol supports.
const (
	ActionPush      = "push"
	ActionSnapshot  = "snapshot"
	ActionFlush     = "flush"
	ActionInjectAck = "inject_ack"
)

// PushRequest is the Data payload for ActionPush: enqueue raw CCL frame
// bytes for dest through the named CCL queue. The server rejects pushes
// to kind "dccl".
type PushRequest struct {
	Kind  string `json:"kind"`
	ID    int    `json:"id"`
	Dest  int    `json:"dest"`
	Frame []byte `json:"frame"`
}

// FlushRequest is the Data payload for ActionFlush.
type FlushRequest struct {
	Kind string `json:"kind"`
	ID   int    `json:"id"`
}

// InjectAckRequest is the Data payload for ActionInjectAck: simulate an
// ACK for frame addressed to modem dest (ignored unless dest is the
// daemon's own modem id), for testing without a live modem.
type InjectAckRequest struct {
	Frame uint32 `json:"frame"`
	Dest  int    `json:"dest"`
}
