package iridium

import "errors"

var (
	// ErrBadPacket indicates a rudics_packet or SBD DirectIP message
	// failed CRC or field decoding.
	ErrBadPacket = errors.New("iridium: bad packet")
	// ErrNoImeiMapped indicates an SBD-MT send was requested for a modem
	// id with no configured IMEI.
	ErrNoImeiMapped = errors.New("iridium: no imei mapped for modem id")
	// ErrControlLineTooLarge guards the RUDICS line reader against an
	// unbounded read.
	ErrControlLineTooLarge = errors.New("iridium: control line too large")
)
