package iridium

import (
	"encoding/binary"
	"fmt"

	"github.com/tsaubergine/acomms/internal/driver"
)

const (
	msgTypeData byte = 0
	msgTypeAck  byte = 1

	flagAckRequested byte = 0x01
)

// EncodeIridiumMessage serializes a driver.Transmission into the fixed
// header + payload byte string serialize_iridium_modem_message produces,
// which then gets wrapped by WriteRudicsPacket (RUDICS) or the SBD
// pre-header/header/payload framing (sbd_wire.go). Layout: type(1) src(1)
// dest(1) rate(1) flags(1) frame_start(2 BE) then, for DATA, the raw
// payload (frame[0]); for ACK, ack_count(1) followed by that many 2-byte
// BE frame numbers.
func EncodeIridiumMessage(t driver.Transmission) ([]byte, error) {
	if t.Src < 0 || t.Src > 255 || t.Dest < 0 || t.Dest > 255 {
		return nil, fmt.Errorf("%w: modem id out of byte range", ErrBadPacket)
	}
	if t.FrameStart < 0 || t.FrameStart > 0xFFFF {
		return nil, fmt.Errorf("%w: frame_start out of range", ErrBadPacket)
	}

	var msgType byte = msgTypeData
	if t.Type == driver.TransmissionAck {
		msgType = msgTypeAck
	}
	var flags byte
	if t.AckRequested {
		flags |= flagAckRequested
	}

	out := make([]byte, 7)
	out[0] = msgType
	out[1] = byte(t.Src)
	out[2] = byte(t.Dest)
	out[3] = byte(t.Rate)
	out[4] = flags
	binary.BigEndian.PutUint16(out[5:7], uint16(t.FrameStart))

	switch msgType {
	case msgTypeAck:
		if len(t.AckedFrames) > 255 {
			return nil, fmt.Errorf("%w: too many acked frames", ErrBadPacket)
		}
		out = append(out, byte(len(t.AckedFrames)))
		for _, f := range t.AckedFrames {
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], uint16(f))
			out = append(out, b[:]...)
		}
	default:
		if len(t.Frames) > 0 {
			out = append(out, t.Frames[0]...)
		}
	}
	return out, nil
}

// DecodeIridiumMessage reverses EncodeIridiumMessage.
func DecodeIridiumMessage(raw []byte) (driver.Transmission, error) {
	if len(raw) < 7 {
		return driver.Transmission{}, fmt.Errorf("%w: message shorter than header", ErrBadPacket)
	}
	t := driver.Transmission{
		Src:           int(raw[1]),
		Dest:          int(raw[2]),
		Rate:          int(raw[3]),
		AckRequested:  raw[4]&flagAckRequested != 0,
		FrameStart:    int(binary.BigEndian.Uint16(raw[5:7])),
		FrameStartSet: true,
	}
	rest := raw[7:]

	switch raw[0] {
	case msgTypeAck:
		t.Type = driver.TransmissionAck
		if len(rest) < 1 {
			return driver.Transmission{}, fmt.Errorf("%w: ack message missing count", ErrBadPacket)
		}
		count := int(rest[0])
		rest = rest[1:]
		if len(rest) < count*2 {
			return driver.Transmission{}, fmt.Errorf("%w: ack message truncated", ErrBadPacket)
		}
		for i := 0; i < count; i++ {
			t.AckedFrames = append(t.AckedFrames, int(binary.BigEndian.Uint16(rest[i*2:i*2+2])))
		}
	case msgTypeData:
		t.Type = driver.TransmissionData
		if len(rest) > 0 {
			t.Frames = [][]byte{append([]byte(nil), rest...)}
		}
	default:
		return driver.Transmission{}, fmt.Errorf("%w: unknown message type %#x", ErrBadPacket, raw[0])
	}
	return t, nil
}
