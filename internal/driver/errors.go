package driver

import "errors"

var (
	// ErrUnknownRemote indicates an operation referenced a modem id with
	// no RemoteNode entry.
	ErrUnknownRemote = errors.New("driver: unknown remote")
	// ErrAlreadyBound indicates Bind was called for a modem id or
	// connection already present in the bimap.
	ErrAlreadyBound = errors.New("driver: connection already bound")
	// ErrNotOnCall indicates an on-call-only operation (bye, ack) was
	// attempted against a remote with no active call.
	ErrNotOnCall = errors.New("driver: remote is not on call")
)
