package dccl

import (
	"fmt"
	"time"

	"github.com/tsaubergine/acomms/internal/bitset"
)

// headSizeBytes is the fixed size of every DCCL frame head (spec.md §6).
const headSizeBytes = 7
const headSizeBits = headSizeBytes * 8

const (
	cclIDWidth      = 8
	dcclIDWidth     = 12
	timeOfDayWidth  = 17
	modemIDWidth    = 8
	multiMsgWidth   = 1
	broadcastWidth  = 1
	headReservedBit = headSizeBits - (cclIDWidth + dcclIDWidth + timeOfDayWidth + modemIDWidth*2 + multiMsgWidth + broadcastWidth)
)

// MaxDCCLID is the largest DCCL message id representable in the head.
const MaxDCCLID = (1 << dcclIDWidth) - 1

// DCCLMarkerCCLID is the CCL-id byte value reserved to mean "this is a
// DCCL packet, not a raw CCL message" (spec.md §6). The first byte of
// every stitched packet is either this marker or a CCL queue id.
const DCCLMarkerCCLID uint8 = 32

// BroadcastID is the destination modem id meaning "all remotes".
const BroadcastID = 255

// Head is the fixed-layout descriptor prepended to every DCCL frame:
// CCL-id byte, DCCL message id, time of day, source and destination
// modem id, multi-message flag, broadcast flag.
type Head struct {
	CCLID        uint8
	DCCLID       int
	TimeOfDay    time.Time
	Src          int
	Dest         int
	MultiMessage bool
	Broadcast    bool
}

func encodeHead(h Head) (bitset.Bitset, error) {
	if h.DCCLID < 0 || h.DCCLID > MaxDCCLID {
		return bitset.Bitset{}, fmt.Errorf("%w: dccl id %d out of range [0,%d]", ErrBadFieldValue, h.DCCLID, MaxDCCLID)
	}
	if h.Src < 0 || h.Src > 255 || h.Dest < 0 || h.Dest > 255 {
		return bitset.Bitset{}, fmt.Errorf("%w: modem id out of byte range", ErrBadFieldValue)
	}
	t := h.TimeOfDay.UTC()
	secs := t.Hour()*3600 + t.Minute()*60 + t.Second()

	var b bitset.Bitset
	b.AppendBits(uint64(h.CCLID), cclIDWidth)
	b.AppendBits(uint64(h.DCCLID), dcclIDWidth)
	b.AppendBits(uint64(secs), timeOfDayWidth)
	b.AppendBits(uint64(h.Src), modemIDWidth)
	b.AppendBits(uint64(h.Dest), modemIDWidth)
	b.AppendBits(boolBit(h.MultiMessage), multiMsgWidth)
	b.AppendBits(boolBit(h.Broadcast), broadcastWidth)
	if headReservedBit > 0 {
		b.AppendBits(0, headReservedBit)
	}
	return b, nil
}

// decodeHead consumes headSizeBits from buf. anchor supplies the UTC
// calendar day used to resolve the head's seconds-of-day time field
// (see anchorTimeOfDay).
func decodeHead(buf *bitset.Bitset, anchor time.Time) (Head, error) {
	prefix, err := buf.TakePrefix(headSizeBits)
	if err != nil {
		return Head{}, fmt.Errorf("%w: short frame head: %v", ErrBadFieldValue, err)
	}

	cclBits, _ := prefix.TakePrefix(cclIDWidth)
	dcclBits, _ := prefix.TakePrefix(dcclIDWidth)
	todBits, _ := prefix.TakePrefix(timeOfDayWidth)
	srcBits, _ := prefix.TakePrefix(modemIDWidth)
	dstBits, _ := prefix.TakePrefix(modemIDWidth)
	multiBits, _ := prefix.TakePrefix(multiMsgWidth)
	bcastBits, _ := prefix.TakePrefix(broadcastWidth)

	if anchor.IsZero() {
		anchor = time.Now()
	}
	return Head{
		CCLID:        uint8(cclBits.ToUnsigned()),
		DCCLID:       int(dcclBits.ToUnsigned()),
		TimeOfDay:    anchorTimeOfDay(anchor.UTC(), int(todBits.ToUnsigned())),
		Src:          int(srcBits.ToUnsigned()),
		Dest:         int(dstBits.ToUnsigned()),
		MultiMessage: multiBits.ToUnsigned() != 0,
		Broadcast:    bcastBits.ToUnsigned() != 0,
	}, nil
}

// PeekHead decodes just the fixed head from the front of frame, leaving
// the caller to decode the body against whatever schema DCCLID selects.
// Used by packet stitching/unstitching, which operates below the schema
// layer.
func PeekHead(frame []byte, anchor time.Time) (Head, error) {
	if len(frame) < headSizeBytes {
		return Head{}, fmt.Errorf("%w: frame shorter than head (%d bytes)", ErrBadFieldValue, len(frame))
	}
	buf, err := bitset.FromBytes(frame[:headSizeBytes], headSizeBits)
	if err != nil {
		return Head{}, err
	}
	return decodeHead(&buf, anchor)
}

// RewriteHeadFlags returns a copy of frame with its head's multi-message
// and broadcast bits overwritten, leaving the CCL-id, DCCL-id, time and
// modem-id fields and the entire body untouched. Used by the queue
// manager's packet stitcher (spec.md §4.4), which must flip these two
// bits on each sub-frame without re-running schema encode.
func RewriteHeadFlags(frame []byte, multiMessage, broadcast bool) ([]byte, error) {
	head, err := PeekHead(frame, time.Now())
	if err != nil {
		return nil, err
	}
	head.MultiMessage = multiMessage
	head.Broadcast = broadcast
	headBits, err := encodeHead(head)
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), frame...)
	copy(out[:headSizeBytes], headBits.Bytes())
	return out, nil
}

// RewriteCCLID returns a copy of frame with its head's CCL-id byte
// overwritten, leaving everything else untouched. Used to stamp the
// packet-level marker byte onto the first sub-frame of a stitched packet.
func RewriteCCLID(frame []byte, cclID uint8) ([]byte, error) {
	head, err := PeekHead(frame, time.Now())
	if err != nil {
		return nil, err
	}
	head.CCLID = cclID
	headBits, err := encodeHead(head)
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), frame...)
	copy(out[:headSizeBytes], headBits.Bytes())
	return out, nil
}
