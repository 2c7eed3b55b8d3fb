package codecreg

import "errors"

// ErrCodecNotFound is returned when a (wire type, codec name) selector has
// no bound factory.
var ErrCodecNotFound = errors.New("codecreg: codec not found")
