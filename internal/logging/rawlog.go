package logging

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// RawLog appends one ASCII line per I/O event, prefixed "[rx] " or
// "[tx] ", to a file whose name was a strftime pattern expanded once at
// open time. Grounded on ModemDriverBase::write_raw's raw_fs_ ofstream,
// connected there to signal_raw_incoming/signal_raw_outgoing. Nothing in
// this repository opens a RawLog or connects it to driver.Signals; a
// caller wires Incoming/Outgoing to OnRawIncoming/OnRawOutgoing itself.
type RawLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenRawLog expands pattern against the current time and opens the
// resulting path for appending. An empty pattern disables logging: the
// returned *RawLog is valid and its methods become no-ops.
func OpenRawLog(pattern string) (*RawLog, error) {
	if pattern == "" {
		return &RawLog{}, nil
	}
	name := ExpandStrftime(pattern, time.Now())
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open raw log %q: %w", name, err)
	}
	return &RawLog{file: f}, nil
}

func (l *RawLog) Incoming(raw []byte) { l.write("[rx] ", raw) }
func (l *RawLog) Outgoing(raw []byte) { l.write("[tx] ", raw) }

func (l *RawLog) write(prefix string, raw []byte) {
	if l == nil || l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.file, "%s%q\n", prefix, raw)
}

func (l *RawLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
