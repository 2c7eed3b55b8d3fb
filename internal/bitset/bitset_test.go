package bitset

import "testing"

func TestAppendBitsAndToUnsigned(t *testing.T) {
	var b Bitset
	b.AppendBits(0b101, 3)
	b.AppendBits(0b11, 2)
	if got, want := b.Len(), 5; got != want {
		t.Fatalf("len = %d, want %d", got, want)
	}
	if got, want := b.ToUnsigned(), uint64(0b10111); got != want {
		t.Fatalf("ToUnsigned() = %b, want %b", got, want)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	var b Bitset
	b.AppendBits(0x1a, 8)
	b.AppendBits(0x3, 3)
	packed := b.Bytes()
	restored, err := FromBytes(packed, b.Len())
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if restored.ToUnsigned() != b.ToUnsigned() {
		t.Fatalf("round trip mismatch: got %b want %b", restored.ToUnsigned(), b.ToUnsigned())
	}
}

func TestTakePrefixSuffix(t *testing.T) {
	var b Bitset
	b.AppendBits(0b1100_1010, 8)
	prefix, err := b.TakePrefix(4)
	if err != nil {
		t.Fatalf("TakePrefix: %v", err)
	}
	if prefix.ToUnsigned() != 0b1100 {
		t.Fatalf("prefix = %b, want 1100", prefix.ToUnsigned())
	}
	if b.ToUnsigned() != 0b1010 {
		t.Fatalf("remainder = %b, want 1010", b.ToUnsigned())
	}

	var c Bitset
	c.AppendBits(0b1100_1010, 8)
	suffix, err := c.TakeSuffix(4)
	if err != nil {
		t.Fatalf("TakeSuffix: %v", err)
	}
	if suffix.ToUnsigned() != 0b1010 {
		t.Fatalf("suffix = %b, want 1010", suffix.ToUnsigned())
	}
	if c.ToUnsigned() != 0b1100 {
		t.Fatalf("remainder = %b, want 1100", c.ToUnsigned())
	}
}

func TestTakeOutOfRange(t *testing.T) {
	var b Bitset
	b.AppendBits(0b1, 1)
	if _, err := b.TakePrefix(5); err == nil {
		t.Fatalf("expected error taking more bits than available")
	}
}
