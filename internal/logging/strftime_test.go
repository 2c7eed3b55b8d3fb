package logging

import (
	"testing"
	"time"
)

func TestExpandStrftime(t *testing.T) {
	when := time.Date(2026, 8, 6, 9, 5, 3, 0, time.UTC)
	got := ExpandStrftime("acomms_%Y%m%d_%H%M%S.log", when)
	want := "acomms_20260806_090503.log"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExpandStrftimeLiteralPercent(t *testing.T) {
	got := ExpandStrftime("100%% raw", time.Now())
	if got != "100% raw" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandStrftimeUnknownVerbPassesThrough(t *testing.T) {
	got := ExpandStrftime("%q", time.Now())
	if got != "%q" {
		t.Fatalf("got %q", got)
	}
}
