package dccl

import (
	"fmt"
	"time"

	"github.com/tsaubergine/acomms/internal/bitset"
)

const secondsPerDay = 86400

// timeOfDayFieldCodec is arithmetic over [0,86400). Pre-encode it maps a
// human timestamp to seconds-since-midnight UTC; post-decode it anchors
// the decoded seconds-of-day to the UTC calendar day of anchor (the
// frame's outer receipt timestamp per spec.md §9), choosing whichever of
// {anchor day - 1, anchor day, anchor day + 1} lands within ±12h of
// anchor — a deterministic tie-break for date rollover.
type timeOfDayFieldCodec struct {
	core   arithmeticCore
	anchor time.Time // set by CompiledSchema.Decode before DecodeFrom
}

func newTimeOfDayFieldCodec(f Field) (FieldCodec, error) {
	core, err := newArithmeticCore(f.Name, 0, secondsPerDay-1, 0)
	if err != nil {
		return nil, err
	}
	return &timeOfDayFieldCodec{core: core}, nil
}

func (c *timeOfDayFieldCodec) Encode(v Value) (bitset.Bitset, error) {
	if v.IsAbsent() {
		return c.EncodeEmpty()
	}
	if v.Kind != KindTime {
		return bitset.Bitset{}, fmt.Errorf("%w: expected time value", ErrBadFieldValue)
	}
	t := v.Time.UTC()
	secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return c.core.encodeFloat(float64(secs)), nil
}

func (c *timeOfDayFieldCodec) EncodeEmpty() (bitset.Bitset, error) {
	return c.core.emptyBits(), nil
}

func (c *timeOfDayFieldCodec) DecodeFrom(buf *bitset.Bitset) (Value, error) {
	val, present, err := c.core.decodeToFloat(buf)
	if err != nil {
		return Value{}, err
	}
	if !present {
		return Absent(), nil
	}
	anchor := c.anchor
	if anchor.IsZero() {
		anchor = time.Now()
	}
	return TimeValue(anchorTimeOfDay(anchor.UTC(), int(val))), nil
}

func (c *timeOfDayFieldCodec) Size(v *Value) (int, bool) {
	return c.core.width, true
}

// anchorTimeOfDay finds the candidate day (anchor's day, or the one
// before/after) whose seconds-of-day equals secs and lies within 12h of
// anchor. Ties (exactly 12h) prefer anchor's own UTC day.
func anchorTimeOfDay(anchor time.Time, secs int) time.Time {
	midnight := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
	best := midnight.Add(time.Duration(secs) * time.Second)
	bestDelta := absDuration(best.Sub(anchor))
	for _, dayOffset := range []int{-1, 1} {
		candidate := midnight.AddDate(0, 0, dayOffset).Add(time.Duration(secs) * time.Second)
		delta := absDuration(candidate.Sub(anchor))
		if delta < bestDelta {
			best, bestDelta = candidate, delta
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
