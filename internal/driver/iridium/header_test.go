package iridium

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tsaubergine/acomms/internal/driver"
)

func TestEncodeDecodeIridiumMessageData(t *testing.T) {
	in := driver.Transmission{
		Type:         driver.TransmissionData,
		Src:          7,
		Dest:         3,
		Rate:         1,
		AckRequested: true,
		FrameStart:   42,
		Frames:       [][]byte{[]byte("compiled dccl frame bytes")},
	}

	raw, err := EncodeIridiumMessage(in)
	if err != nil {
		t.Fatalf("EncodeIridiumMessage: %v", err)
	}

	out, err := DecodeIridiumMessage(raw)
	if err != nil {
		t.Fatalf("DecodeIridiumMessage: %v", err)
	}

	if out.Type != driver.TransmissionData {
		t.Fatalf("Type = %v, want TransmissionData", out.Type)
	}
	if out.Src != in.Src || out.Dest != in.Dest || out.Rate != in.Rate {
		t.Fatalf("Src/Dest/Rate mismatch: got %+v", out)
	}
	if !out.AckRequested {
		t.Fatalf("expected AckRequested to round trip true")
	}
	if out.FrameStart != in.FrameStart || !out.FrameStartSet {
		t.Fatalf("FrameStart mismatch: got %d set=%v", out.FrameStart, out.FrameStartSet)
	}
	if len(out.Frames) != 1 || !bytes.Equal(out.Frames[0], in.Frames[0]) {
		t.Fatalf("Frames mismatch: got %v", out.Frames)
	}
}

func TestEncodeDecodeIridiumMessageDataEmptyFrame(t *testing.T) {
	in := driver.Transmission{Type: driver.TransmissionData, Src: 1, Dest: 2, FrameStart: 0}
	raw, err := EncodeIridiumMessage(in)
	if err != nil {
		t.Fatalf("EncodeIridiumMessage: %v", err)
	}
	out, err := DecodeIridiumMessage(raw)
	if err != nil {
		t.Fatalf("DecodeIridiumMessage: %v", err)
	}
	if len(out.Frames) != 0 {
		t.Fatalf("expected no frames, got %v", out.Frames)
	}
}

func TestEncodeDecodeIridiumMessageAck(t *testing.T) {
	in := driver.Transmission{
		Type:        driver.TransmissionAck,
		Src:         3,
		Dest:        7,
		FrameStart:  0,
		AckedFrames: []int{1, 2, 300},
	}

	raw, err := EncodeIridiumMessage(in)
	if err != nil {
		t.Fatalf("EncodeIridiumMessage: %v", err)
	}
	out, err := DecodeIridiumMessage(raw)
	if err != nil {
		t.Fatalf("DecodeIridiumMessage: %v", err)
	}
	if out.Type != driver.TransmissionAck {
		t.Fatalf("Type = %v, want TransmissionAck", out.Type)
	}
	if len(out.AckedFrames) != len(in.AckedFrames) {
		t.Fatalf("AckedFrames length mismatch: got %v want %v", out.AckedFrames, in.AckedFrames)
	}
	for i, f := range in.AckedFrames {
		if out.AckedFrames[i] != f {
			t.Fatalf("AckedFrames[%d] = %d, want %d", i, out.AckedFrames[i], f)
		}
	}
}

func TestEncodeIridiumMessageRejectsOutOfRangeModemID(t *testing.T) {
	in := driver.Transmission{Src: 256, Dest: 1}
	if _, err := EncodeIridiumMessage(in); !errors.Is(err, ErrBadPacket) {
		t.Fatalf("expected ErrBadPacket, got %v", err)
	}
}

func TestDecodeIridiumMessageRejectsShortInput(t *testing.T) {
	if _, err := DecodeIridiumMessage([]byte{0, 1, 2}); !errors.Is(err, ErrBadPacket) {
		t.Fatalf("expected ErrBadPacket, got %v", err)
	}
}

func TestDecodeIridiumMessageRejectsUnknownType(t *testing.T) {
	raw := []byte{0xFF, 1, 2, 0, 0, 0, 0}
	if _, err := DecodeIridiumMessage(raw); !errors.Is(err, ErrBadPacket) {
		t.Fatalf("expected ErrBadPacket, got %v", err)
	}
}
