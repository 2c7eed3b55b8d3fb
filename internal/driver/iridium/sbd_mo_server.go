package iridium

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tsaubergine/acomms/internal/driver"
	"github.com/tsaubergine/acomms/internal/observability"
)

// sbdMOConnTimeout bounds how long a single MO-SBD connection is allowed
// to sit idle before the driver gives up on it, per receive_sbd_mo's
// 5-second connect_time() timeout in the source.
const sbdMOConnTimeout = 5 * time.Second

// SBDMOServer accepts one short-lived TCP connection per mobile-originated
// SBD delivery from the Iridium gateway, decodes its pre-header/header/
// payload framing, feeds the recovered rudics_packet payload into
// core.RawIncoming, and passes the decoded message to core.Receive from
// the connection's goroutine as soon as it arrives (DoWork does not
// process SBD-MO messages). Grounded on the same accept-loop shape as
// RUDICSServer/mirage.Service, minus any connection tracking: each
// connection here is a single message and is closed immediately after.
type SBDMOServer struct {
	core *driver.Core

	imeiToModemID map[string]int
}

// NewSBDMOServer constructs a listener bound to core, using imeiToModemID
// to resolve the modem id an inbound message's IMEI belongs to (the
// inverse of DriverConfig's modem_id_to_imei table).
func NewSBDMOServer(core *driver.Core, imeiToModemID map[string]int) *SBDMOServer {
	return &SBDMOServer{core: core, imeiToModemID: imeiToModemID}
}

// Serve accepts connections on ln until ctx is done or Accept fails.
func (s *SBDMOServer) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
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
		go s.handleConn(conn)
	}
}

func (s *SBDMOServer) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(sbdMOConnTimeout))

	msg, err := DecodeSBDMO(conn)
	if err != nil {
		log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("sbd-mo: could not decode message")
		observability.RecordSBDBadPacket(conn.RemoteAddr().String())
		return
	}
	s.core.RawIncoming(msg.Payload)

	modemID, ok := s.imeiToModemID[msg.IMEI]
	if !ok {
		log.Warn().Str("imei", msg.IMEI).Msg("sbd-mo: no modem id mapped for imei")
		return
	}

	payload, err := ReadRudicsPacket(&byteReader{msg.Payload})
	if err != nil {
		log.Warn().Err(err).Int("modem_id", modemID).Msg("sbd-mo: bad rudics packet in payload")
		return
	}
	iridiumMsg, err := DecodeIridiumMessage(payload)
	if err != nil {
		log.Warn().Err(err).Int("modem_id", modemID).Msg("sbd-mo: bad iridium message")
		return
	}
	if err := s.core.Receive(iridiumMsg, time.Now()); err != nil {
		log.Warn().Err(err).Int("modem_id", modemID).Msg("sbd-mo: core.Receive failed")
	}
}

// byteReader adapts a []byte to io.Reader for ReadRudicsPacket, since
// msg.Payload has already been fully read off the wire by DecodeSBDMO.
type byteReader struct {
	b []byte
}

func (r *byteReader) Read(p []byte) (int, error) {
	if len(r.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.b)
	r.b = r.b[n:]
	return n, nil
}
