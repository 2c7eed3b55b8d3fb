// Package bitset implements an append-ordered sequence of bits with
// MSB-first byte serialization.
package bitset

import "fmt"

// Bitset is an append-ordered run of bits. The zero value is an empty
// bitset ready to use.
type Bitset struct {
	bits []bool
}

// Len returns the number of bits currently held.
func (b *Bitset) Len() int {
	return len(b.bits)
}

// AppendBits appends the low n bits of v, most-significant bit first.
func (b *Bitset) AppendBits(v uint64, n int) {
	if n < 0 || n > 64 {
		panic(fmt.Sprintf("bitset: invalid bit width %d", n))
	}
	for i := n - 1; i >= 0; i-- {
		b.bits = append(b.bits, (v>>uint(i))&1 == 1)
	}
}

// Append appends the contents of other in order.
func (b *Bitset) Append(other Bitset) {
	b.bits = append(b.bits, other.bits...)
}

// TakePrefix removes and returns the first n bits, leaving the remainder
// in the receiver.
func (b *Bitset) TakePrefix(n int) (Bitset, error) {
	if n < 0 || n > len(b.bits) {
		return Bitset{}, fmt.Errorf("bitset: cannot take %d bits from %d", n, len(b.bits))
	}
	prefix := Bitset{bits: append([]bool(nil), b.bits[:n]...)}
	b.bits = b.bits[n:]
	return prefix, nil
}

// TakeSuffix removes and returns the last n bits, leaving the remainder
// in the receiver.
func (b *Bitset) TakeSuffix(n int) (Bitset, error) {
	if n < 0 || n > len(b.bits) {
		return Bitset{}, fmt.Errorf("bitset: cannot take %d bits from %d", n, len(b.bits))
	}
	split := len(b.bits) - n
	suffix := Bitset{bits: append([]bool(nil), b.bits[split:]...)}
	b.bits = b.bits[:split]
	return suffix, nil
}

// ToUnsigned interprets the entire bitset as a big-endian unsigned
// integer. Panics if the bitset holds more than 64 bits.
func (b Bitset) ToUnsigned() uint64 {
	if len(b.bits) > 64 {
		panic("bitset: too wide for ToUnsigned")
	}
	var v uint64
	for _, bit := range b.bits {
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v
}

// FromUnsigned builds a Bitset holding the low n bits of v, MSB first.
func FromUnsigned(v uint64, n int) Bitset {
	var b Bitset
	b.AppendBits(v, n)
	return b
}

// Bytes packs the bitset MSB-first into the first byte, zero-padding the
// final byte if the length is not a multiple of 8.
func (b Bitset) Bytes() []byte {
	n := len(b.bits)
	out := make([]byte, (n+7)/8)
	for i, bit := range b.bits {
		if bit {
			out[i/8] |= 1 << uint(7-(i%8))
		}
	}
	return out
}

// FromBytes rebuilds a Bitset of exactly nbits bits from MSB-first packed
// bytes. nbits must not exceed len(b)*8.
func FromBytes(b []byte, nbits int) (Bitset, error) {
	if nbits < 0 || nbits > len(b)*8 {
		return Bitset{}, fmt.Errorf("bitset: %d bits not available in %d bytes", nbits, len(b))
	}
	bits := make([]bool, nbits)
	for i := 0; i < nbits; i++ {
		bits[i] = b[i/8]&(1<<uint(7-(i%8))) != 0
	}
	return Bitset{bits: bits}, nil
}
