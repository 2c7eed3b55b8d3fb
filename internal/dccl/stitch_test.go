package dccl

import (
	"testing"
	"time"
)

func TestStitchUnstitchInverse(t *testing.T) {
	reg := newTestRegistry(t)
	cs, err := Compile(sampleSchema(), reg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	now := time.Date(2026, 8, 6, 9, 30, 0, 0, time.UTC)
	head := Head{Src: 1, Dest: 2, TimeOfDay: now}

	frame0, err := cs.Encode(head, Record{"is_diving": BoolValue(true), "note": StringValue("a")})
	if err != nil {
		t.Fatalf("encode frame0: %v", err)
	}
	frame1, err := cs.Encode(head, Record{"is_diving": BoolValue(false), "note": StringValue("bb")})
	if err != nil {
		t.Fatalf("encode frame1: %v", err)
	}

	packet, err := Stitch([][]byte{frame0, frame1}, 2)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if packet[0] != DCCLMarkerCCLID {
		t.Fatalf("expected packet to start with DCCL marker, got %d", packet[0])
	}

	isDCCL, cclID, unstitched, err := Unstitch(packet)
	if err != nil {
		t.Fatalf("Unstitch: %v", err)
	}
	if !isDCCL || cclID != DCCLMarkerCCLID {
		t.Fatalf("expected DCCL packet, got isDCCL=%v cclID=%d", isDCCL, cclID)
	}
	if len(unstitched) != 2 {
		t.Fatalf("expected 2 sub-frames, got %d", len(unstitched))
	}

	_, rec0, err := cs.Decode(unstitched[0].Frame, now)
	if err != nil {
		t.Fatalf("decode sub-frame 0: %v", err)
	}
	note0, _ := rec0.Get("note")
	if note0.Str != "a" {
		t.Fatalf("sub-frame 0 note: got %q", note0.Str)
	}

	_, rec1, err := cs.Decode(unstitched[1].Frame, now)
	if err != nil {
		t.Fatalf("decode sub-frame 1: %v", err)
	}
	note1, _ := rec1.Get("note")
	if note1.Str != "bb" {
		t.Fatalf("sub-frame 1 note: got %q", note1.Str)
	}
}

func TestUnstitchNonDCCLPacket(t *testing.T) {
	packet := []byte{7, 1, 2, 3}
	isDCCL, cclID, frames, err := Unstitch(packet)
	if err != nil {
		t.Fatalf("Unstitch: %v", err)
	}
	if isDCCL {
		t.Fatalf("expected non-DCCL packet")
	}
	if cclID != 7 {
		t.Fatalf("expected cclID 7, got %d", cclID)
	}
	if frames != nil {
		t.Fatalf("expected no sub-frames for a raw CCL packet")
	}
}
