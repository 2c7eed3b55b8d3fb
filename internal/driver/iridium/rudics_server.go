package iridium

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tsaubergine/acomms/internal/driver"
)

const maxControlLine = 256

// RUDICSServer accepts one TCP connection per modem calling in over
// RUDICS, dispatches "goby <id>\r"/"bye\r" control lines to
// core.OnGobyReceived / core.OnByeReceived, and hands each binary
// rudics_packet payload to core.RawIncoming and, once decoded, to
// core.Receive. A bare "goby\r" line carries no modem id and is rejected
// as malformed. Grounded on mirage.Service's accept loop
// (Serve/handleConn/trackConn/untrackConn/closeAllConns): one goroutine per
// connection, a shared conn-tracking set for shutdown, no per-message
// framing beyond what the packet layer already provides.
type RUDICSServer struct {
	core *driver.Core

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
}

// NewRUDICSServer constructs a listener bound to core. A connection
// identifies its modem id with its first "goby <id>\r" line; data packets
// and bye lines that arrive before it are dropped.
func NewRUDICSServer(core *driver.Core) *RUDICSServer {
	return &RUDICSServer{
		core:  core,
		conns: make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections on ln until ctx is done or Accept fails.
func (s *RUDICSServer) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		s.closeAllConns()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.trackConn(conn)
		go s.handleConn(conn)
	}
}

func (s *RUDICSServer) handleConn(conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)
	remote := conn.RemoteAddr().String()
	log.Debug().Str("remote", remote).Msg("rudics connection accepted")

	reader := bufio.NewReader(conn)
	modemID := -1

	for {
		peeked, err := reader.Peek(1)
		if err != nil {
			return
		}

		if peeked[0] == rudicsStartOfFrame {
			s.handlePacketLine(conn, reader, &modemID)
			continue
		}

		line, err := reader.ReadString('\r')
		if err != nil {
			return
		}
		if len(line) > maxControlLine {
			log.Warn().Str("remote", remote).Msg("rudics control line too large, dropping connection")
			return
		}
		s.handleControlLine(conn, strings.TrimSpace(line), &modemID)
	}
}

func (s *RUDICSServer) handlePacketLine(conn net.Conn, reader *bufio.Reader, modemID *int) {
	payload, err := ReadRudicsPacket(reader)
	if err != nil {
		log.Warn().Err(err).Msg("rudics: dropping bad packet")
		return
	}
	s.core.RawIncoming(payload)
	if *modemID < 0 {
		log.Warn().Msg("rudics: data packet before goby handshake, dropping")
		return
	}
	if err := s.core.Bimap.Bind(*modemID, connAdapter{conn}); err != nil && !errors.Is(err, driver.ErrAlreadyBound) {
		log.Warn().Err(err).Int("modem_id", *modemID).Msg("rudics: bind failed")
	}
	msg, err := DecodeIridiumMessage(payload)
	if err != nil {
		log.Warn().Err(err).Msg("rudics: bad iridium message")
		return
	}
	if err := s.core.Receive(msg, time.Now()); err != nil {
		log.Warn().Err(err).Msg("rudics: core.Receive failed")
	}
}

func (s *RUDICSServer) handleControlLine(conn net.Conn, line string, modemID *int) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "goby":
		id, ok := parseModemID(fields)
		if !ok {
			log.Warn().Str("line", line).Msg("rudics: malformed goby line")
			return
		}
		*modemID = id
		if err := s.core.OnGobyReceived(id, connAdapter{conn}, time.Now()); err != nil {
			log.Warn().Err(err).Int("modem_id", id).Msg("rudics: goby handling failed")
			return
		}
	case "bye":
		if *modemID < 0 {
			log.Warn().Msg("rudics: bye before goby handshake, ignoring")
			return
		}
		if err := s.core.OnByeReceived(*modemID, time.Now()); err != nil {
			log.Warn().Err(err).Int("modem_id", *modemID).Msg("rudics: bye rejected")
		}
	default:
		log.Warn().Str("line", line).Msg("rudics: unrecognized control line")
	}
}

func parseModemID(fields []string) (int, bool) {
	if len(fields) < 2 {
		return 0, false
	}
	var id int
	if _, err := fmt.Sscanf(fields[1], "%d", &id); err != nil {
		return 0, false
	}
	return id, true
}

func (s *RUDICSServer) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *RUDICSServer) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

func (s *RUDICSServer) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, conn)
	}
}

// connAdapter satisfies driver.Conn (Close() error) for a net.Conn without
// exposing the rest of net.Conn to the driver package.
type connAdapter struct {
	net.Conn
}
