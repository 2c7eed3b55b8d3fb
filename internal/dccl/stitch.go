package dccl

import (
	"fmt"
	"time"
)

// Stitch packs a sequence of already-encoded DCCL user-frames into one
// wire packet: head_0 | size_0 | body_0 | head_1 | size_1 | body_1 | … |
// head_n | body_n (no size byte on the last), with a single leading
// DCCLMarkerCCLID byte replacing every per-frame CCL-id byte. Every
// frame but the last has its multi-message bit set; when dest is
// BroadcastID every frame gets its broadcast bit set. See spec.md §4.4
// "Stitching".
func Stitch(frames [][]byte, dest int) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: stitch called with no frames", ErrBadFieldValue)
	}
	out := []byte{DCCLMarkerCCLID}
	for i, frame := range frames {
		isLast := i == len(frames)-1
		rewritten, err := RewriteHeadFlags(frame, !isLast, dest == BroadcastID)
		if err != nil {
			return nil, fmt.Errorf("stitch frame %d: %w", i, err)
		}
		if len(rewritten) < headSizeBytes {
			return nil, fmt.Errorf("%w: stitch frame %d shorter than head", ErrBadFieldValue, i)
		}
		stripped := rewritten[1:] // drop the per-frame CCL-id byte
		out = append(out, stripped[:headSizeBytes-1]...)
		body := stripped[headSizeBytes-1:]

		if !isLast {
			bodyLen := len(body)
			if bodyLen > 255 {
				return nil, fmt.Errorf("%w: stitch frame %d body of %d bytes exceeds 255-byte size prefix", ErrFrameTooLarge, i, bodyLen)
			}
			out = append(out, byte(bodyLen))
		}
		out = append(out, body...)
	}
	return out, nil
}

// UnstitchedFrame is one user-frame recovered from a stitched packet.
type UnstitchedFrame struct {
	DCCLID    int
	Broadcast bool
	Frame     []byte // full head+body, ready for CompiledSchema.Decode
}

// Unstitch reverses Stitch. If packet's first byte is not
// DCCLMarkerCCLID, the packet is a single raw CCL message and the
// returned isDCCL is false; cclID is that first byte and frames is nil.
func Unstitch(packet []byte) (isDCCL bool, cclID uint8, frames []UnstitchedFrame, err error) {
	if len(packet) == 0 {
		return false, 0, nil, fmt.Errorf("%w: empty packet", ErrBadFieldValue)
	}
	cclID = packet[0]
	if cclID != DCCLMarkerCCLID {
		return false, cclID, nil, nil
	}

	cursor := packet[1:]
	for {
		if len(cursor) < headSizeBytes-1 {
			return false, 0, nil, fmt.Errorf("%w: truncated stitched sub-frame head", ErrBadFieldValue)
		}
		headProbe := make([]byte, 0, headSizeBytes)
		headProbe = append(headProbe, DCCLMarkerCCLID)
		headProbe = append(headProbe, cursor[:headSizeBytes-1]...)

		h, perr := PeekHead(headProbe, time.Now())
		if perr != nil {
			return false, 0, nil, perr
		}
		rest := cursor[headSizeBytes-1:]

		var bodyLen int
		if h.MultiMessage {
			if len(rest) < 1 {
				return false, 0, nil, fmt.Errorf("%w: missing sub-frame size byte", ErrBadFieldValue)
			}
			bodyLen = int(rest[0])
			rest = rest[1:]
		} else {
			bodyLen = len(rest)
		}
		if len(rest) < bodyLen {
			return false, 0, nil, fmt.Errorf("%w: sub-frame body shorter than declared size", ErrBadFieldValue)
		}
		body := rest[:bodyLen]
		wasMultiMessage := h.MultiMessage
		wasBroadcast := h.Broadcast

		clearedHead := h
		clearedHead.MultiMessage = false
		clearedHead.Broadcast = false
		headBits, herr := encodeHead(clearedHead)
		if herr != nil {
			return false, 0, nil, herr
		}
		frameOut := append(headBits.Bytes(), body...)
		frames = append(frames, UnstitchedFrame{DCCLID: h.DCCLID, Broadcast: wasBroadcast, Frame: frameOut})

		if !wasMultiMessage {
			return true, cclID, frames, nil
		}
		cursor = rest[bodyLen:]
	}
}
