package dccl

import (
	"fmt"
	"time"

	"github.com/tsaubergine/acomms/internal/bitset"
)

// Encode packs head followed by every field's bits (present fields via
// Encode, absent fields via EncodeEmpty), in declared field order, and
// pads to a byte boundary. Fails with ErrFrameTooLarge if the packed
// frame exceeds the schema's configured MaxBytes.
func (cs *CompiledSchema) Encode(head Head, rec Record) ([]byte, error) {
	head.DCCLID = cs.schema.DCCLID
	headBits, err := encodeHead(head)
	if err != nil {
		return nil, err
	}
	body := headBits
	for i, f := range cs.schema.Fields {
		v, ok := rec.Get(f.Name)
		var bits bitset.Bitset
		if !ok || v.IsAbsent() {
			bits, err = cs.codecs[i].EncodeEmpty()
		} else {
			bits, err = cs.codecs[i].Encode(v)
		}
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		body.Append(bits)
	}

	out := body.Bytes()
	if cs.schema.MaxBytes > 0 && len(out) > cs.schema.MaxBytes {
		return nil, fmt.Errorf("%w: schema %s encoded to %d bytes, budget %d", ErrFrameTooLarge, cs.schema.Name, len(out), cs.schema.MaxBytes)
	}
	return out, nil
}

// Decode consumes the fixed head then every field in declared order from
// frame. anchor is the frame's outer receipt timestamp, used to resolve
// any time-of-day fields (including the head's own) to a full date.
func (cs *CompiledSchema) Decode(frame []byte, anchor time.Time) (Head, Record, error) {
	buf, err := bitset.FromBytes(frame, len(frame)*8)
	if err != nil {
		return Head{}, nil, fmt.Errorf("%w: %v", ErrBadFieldValue, err)
	}
	head, err := decodeHead(&buf, anchor)
	if err != nil {
		return Head{}, nil, err
	}

	rec := make(Record, len(cs.schema.Fields))
	for i, f := range cs.schema.Fields {
		if todCodec, ok := cs.codecs[i].(*timeOfDayFieldCodec); ok {
			todCodec.anchor = anchor
		}
		v, err := cs.codecs[i].DecodeFrom(&buf)
		if err != nil {
			return Head{}, nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		rec[f.Name] = v
	}
	return head, rec, nil
}
