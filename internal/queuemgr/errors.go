package queuemgr

import "errors"

var (
	// ErrDuplicateKey indicates AddQueue was called twice for the same key.
	ErrDuplicateKey = errors.New("queuemgr: duplicate queue key")
	// ErrIDTooLarge indicates a queue id outside its namespace's range
	// (CCL: [0,31], DCCL: [0, dccl.MaxDCCLID]).
	ErrIDTooLarge = errors.New("queuemgr: queue id too large")
	// ErrNoSuchQueue indicates a dispatch key has no bound queue.
	ErrNoSuchQueue = errors.New("queuemgr: no such queue")
	// ErrSchemaRequired indicates a DCCL queue was registered without a
	// compiled schema to encode/decode its records.
	ErrSchemaRequired = errors.New("queuemgr: dccl queue requires a compiled schema")
)
