package iridium

import (
	"bytes"
	"errors"
	"net"
	"testing"

	"github.com/tsaubergine/acomms/internal/driver"
)

// fakeConn satisfies driver.Conn plus the Write method EncodeAndSend
// requires of a bound RUDICS connection, without opening a real socket.
type fakeConn struct {
	written bytes.Buffer
	closed  bool
}

func (c *fakeConn) Write(p []byte) (int, error) { return c.written.Write(p) }
func (c *fakeConn) Close() error                { c.closed = true; return nil }

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	cfg := DriverConfig{
		Core: driver.Config{
			ModemID:                 1,
			MaxFrameSize:            128,
			HandshakeHangupSeconds:  3,
			HangupSecondsAfterEmpty: 10,
		},
		ModemIDToIMEI: map[int]string{7: testIMEI},
	}
	return NewDriver(cfg, driver.Signals{})
}

func TestEncodeAndSendPrefersBoundRUDICSConn(t *testing.T) {
	d := newTestDriver(t)
	conn := &fakeConn{}
	if err := d.core.Bimap.Bind(7, conn); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	t_ := driver.Transmission{Type: driver.TransmissionData, Src: 1, Dest: 7, Frames: [][]byte{[]byte("payload")}}
	if _, err := d.EncodeAndSend(7, t_); err != nil {
		t.Fatalf("EncodeAndSend: %v", err)
	}

	if conn.written.Len() == 0 {
		t.Fatalf("expected bytes written to bound connection")
	}
	frame, err := ReadRudicsPacket(bytes.NewReader(conn.written.Bytes()))
	if err != nil {
		t.Fatalf("ReadRudicsPacket: %v", err)
	}
	decoded, err := DecodeIridiumMessage(frame)
	if err != nil {
		t.Fatalf("DecodeIridiumMessage: %v", err)
	}
	if decoded.Dest != 7 || len(decoded.Frames) != 1 {
		t.Fatalf("unexpected decoded transmission: %+v", decoded)
	}
}

func TestEncodeAndSendFallsBackToSBDMTWithoutBoundConn(t *testing.T) {
	d := newTestDriver(t)

	// Bind an SBD-MT gateway address that refuses connections, so the
	// fallback path fails fast on dial rather than hanging on a real
	// gateway. The point is that no-bound-conn takes the SBD-MT branch at
	// all, which a dial error still proves (a RUDICS attempt would never
	// touch the network).
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close()
	d.cfg.MTSBDServerAddress = addr.IP.String()
	d.cfg.MTSBDServerPort = addr.Port
	d.mtClient = NewMTClient(d.cfg.MTSBDServerAddress, d.cfg.MTSBDServerPort)

	t_ := driver.Transmission{Type: driver.TransmissionData, Src: 1, Dest: 7, Frames: [][]byte{[]byte("payload")}}
	_, err = d.EncodeAndSend(7, t_)
	if err == nil {
		t.Fatalf("expected error dialing a closed SBD-MT listener")
	}
}

func TestEncodeAndSendUnmappedModemFails(t *testing.T) {
	d := newTestDriver(t)
	t_ := driver.Transmission{Type: driver.TransmissionData, Src: 1, Dest: 99}
	_, err := d.EncodeAndSend(99, t_)
	if !errors.Is(err, ErrNoImeiMapped) {
		t.Fatalf("expected ErrNoImeiMapped, got %v", err)
	}
}

func TestWriteControlRequiresBoundConn(t *testing.T) {
	d := newTestDriver(t)
	if _, err := d.WriteControl(7, "bye\r"); !errors.Is(err, driver.ErrNotOnCall) {
		t.Fatalf("expected ErrNotOnCall, got %v", err)
	}

	conn := &fakeConn{}
	if err := d.core.Bimap.Bind(7, conn); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := d.WriteControl(7, "bye\r"); err != nil {
		t.Fatalf("WriteControl: %v", err)
	}
	if conn.written.String() != "bye\r" {
		t.Fatalf("written = %q, want %q", conn.written.String(), "bye\r")
	}
}
