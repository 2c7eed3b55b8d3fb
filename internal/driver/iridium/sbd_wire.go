package iridium

import (
	"encoding/binary"
	"fmt"
	"io"
)

// SBD DirectIP framing, grounded on create_sbd_mt_data_message /
// receive_sbd_mo in the source shore driver. Three nested TLV-ish blocks:
// a 3-byte pre-header, a 24-byte MT header (IEI 0x41), and a payload block
// (IEI 0x42) carrying the caller's bytes (already rudics_packet-framed by
// the caller before it reaches here).
const (
	sbdProtocolRevision byte = 1

	sbdIEIHeader  byte = 0x41
	sbdIEIPayload byte = 0x42

	sbdHeaderContentSize = 21 // client_id(4) + imei(15) + disposition_flags(2)
	sbdImeiSize          = 15

	sbdDispFlagFlushMTQueue byte = 0x01
)

// EncodeSBDMT builds the pre-header/header/payload byte string an MT
// gateway (DirectIP) client sends to queue a mobile-terminated message for
// imei. clientID is an opaque per-message counter, mirrored back in the
// gateway's confirmation.
func EncodeSBDMT(clientID uint32, imei string, payload []byte) ([]byte, error) {
	if len(imei) != sbdImeiSize {
		return nil, fmt.Errorf("%w: imei must be %d digits, got %q", ErrBadPacket, sbdImeiSize, imei)
	}

	header := make([]byte, 0, 3+sbdHeaderContentSize)
	header = append(header, sbdIEIHeader)
	header = binary.BigEndian.AppendUint16(header, uint16(sbdHeaderContentSize))
	header = binary.BigEndian.AppendUint32(header, clientID)
	header = append(header, []byte(imei)...)
	header = binary.BigEndian.AppendUint16(header, uint16(sbdDispFlagFlushMTQueue))

	if len(payload) > 0xFFFF {
		return nil, fmt.Errorf("%w: sbd payload of %d bytes exceeds 65535", ErrBadPacket, len(payload))
	}
	body := make([]byte, 0, 3+len(payload))
	body = append(body, sbdIEIPayload)
	body = binary.BigEndian.AppendUint16(body, uint16(len(payload)))
	body = append(body, payload...)

	overall := len(header) + len(body)
	out := make([]byte, 0, 3+overall)
	out = append(out, sbdProtocolRevision)
	out = binary.BigEndian.AppendUint16(out, uint16(overall))
	out = append(out, header...)
	out = append(out, body...)
	return out, nil
}

// SBDMOMessage is a decoded mobile-originated DirectIP message: the header
// fields plus the raw payload bytes (a rudics_packet in this driver's
// usage, per receive_sbd_mo).
type SBDMOMessage struct {
	IMEI              string
	SessionStatus     byte
	MOMSN             uint16
	MTMSN             uint16
	TimeOfSession     uint32
	Payload           []byte
	DispositionFlags  uint16
}

// sbdMOHeaderContentSize covers imei(15) + session_status(1) + momsn(2) +
// mtmsn(2) + time_of_session(4) as laid out by the Iridium DirectIP MO
// header (IEI 0x01), distinct from the MT header this driver only sends.
const sbdMOHeaderContentSize = 24

// DecodeSBDMO reads one pre-header/header/payload message from r, as
// produced by the Iridium DirectIP gateway against the MO-SBD listener.
// Callers are expected to apply a read deadline to r themselves (spec.md
// requires a 5-second per-connection timeout on this listener).
func DecodeSBDMO(r io.Reader) (SBDMOMessage, error) {
	var pre [3]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return SBDMOMessage{}, fmt.Errorf("%w: read pre-header: %v", ErrBadPacket, err)
	}
	if pre[0] != sbdProtocolRevision {
		return SBDMOMessage{}, fmt.Errorf("%w: unsupported protocol revision %d", ErrBadPacket, pre[0])
	}
	overall := int(binary.BigEndian.Uint16(pre[1:3]))

	rest := make([]byte, overall)
	if _, err := io.ReadFull(r, rest); err != nil {
		return SBDMOMessage{}, fmt.Errorf("%w: read body: %v", ErrBadPacket, err)
	}

	var msg SBDMOMessage
	for len(rest) > 0 {
		if len(rest) < 3 {
			return SBDMOMessage{}, fmt.Errorf("%w: truncated ie header", ErrBadPacket)
		}
		iei := rest[0]
		length := int(binary.BigEndian.Uint16(rest[1:3]))
		rest = rest[3:]
		if len(rest) < length {
			return SBDMOMessage{}, fmt.Errorf("%w: truncated ie body", ErrBadPacket)
		}
		content := rest[:length]
		rest = rest[length:]

		switch iei {
		case 0x01: // MO header
			if length != sbdMOHeaderContentSize {
				return SBDMOMessage{}, fmt.Errorf("%w: mo header length %d != %d", ErrBadPacket, length, sbdMOHeaderContentSize)
			}
			msg.IMEI = string(content[0:15])
			msg.SessionStatus = content[15]
			msg.MOMSN = binary.BigEndian.Uint16(content[16:18])
			msg.MTMSN = binary.BigEndian.Uint16(content[18:20])
			msg.TimeOfSession = binary.BigEndian.Uint32(content[20:24])
		case sbdIEIPayload:
			msg.Payload = append([]byte(nil), content...)
		default:
			// unrecognized IE (e.g. location info, 0x03); skip.
		}
	}

	if msg.IMEI == "" {
		return SBDMOMessage{}, fmt.Errorf("%w: message missing mo header", ErrBadPacket)
	}
	return msg, nil
}

// SBDMTConfirmation is the gateway's reply to an EncodeSBDMT send,
// confirming (or rejecting) enqueue of the message for delivery.
type SBDMTConfirmation struct {
	ClientID   uint32
	IMEI       string
	AutoID     uint32
	MessageID  uint32
	Status     int32
}

const sbdMTConfirmationContentSize = 25

// DecodeSBDMTConfirmation reads the pre-header/header confirmation message
// an MT gateway sends back after accepting (or rejecting) an EncodeSBDMT
// payload.
func DecodeSBDMTConfirmation(r io.Reader) (SBDMTConfirmation, error) {
	var pre [3]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return SBDMTConfirmation{}, fmt.Errorf("%w: read pre-header: %v", ErrBadPacket, err)
	}
	overall := int(binary.BigEndian.Uint16(pre[1:3]))
	rest := make([]byte, overall)
	if _, err := io.ReadFull(r, rest); err != nil {
		return SBDMTConfirmation{}, fmt.Errorf("%w: read body: %v", ErrBadPacket, err)
	}
	if len(rest) < 3 {
		return SBDMTConfirmation{}, fmt.Errorf("%w: truncated confirmation ie", ErrBadPacket)
	}
	length := int(binary.BigEndian.Uint16(rest[1:3]))
	content := rest[3:]
	if len(content) < length || length != sbdMTConfirmationContentSize {
		return SBDMTConfirmation{}, fmt.Errorf("%w: bad confirmation length %d", ErrBadPacket, length)
	}

	return SBDMTConfirmation{
		ClientID:  binary.BigEndian.Uint32(content[0:4]),
		IMEI:      string(content[4:19]),
		AutoID:    binary.BigEndian.Uint32(content[19:23]),
		MessageID: 0,
		Status:    int32(int16(binary.BigEndian.Uint16(content[23:25]))),
	}, nil
}
