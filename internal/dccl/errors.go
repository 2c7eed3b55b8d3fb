package dccl

import "errors"

var (
	// ErrSchemaError indicates schema compilation failed: a required
	// codec option (min/max for arithmetic codecs, a static value for the
	// constant codec, enum values for the enum codec) was missing.
	ErrSchemaError = errors.New("dccl: schema error")
	// ErrCodecNotFound indicates a field's codec selector did not resolve
	// against the registry.
	ErrCodecNotFound = errors.New("dccl: codec not found")
	// ErrBadFieldValue indicates an encode-side value that cannot be
	// represented, even as absent (e.g. a string longer than 255 bytes,
	// or a required field with no value present).
	ErrBadFieldValue = errors.New("dccl: bad field value")
	// ErrFrameTooLarge indicates an encoded record exceeded the schema's
	// configured maximum frame size.
	ErrFrameTooLarge = errors.New("dccl: frame too large")
)
