package iridium

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/tsaubergine/acomms/internal/driver"
)

// DriverConfig is the Iridium-specific slice of the acommsd driver stanza
// (spec.md §6): listen ports for the two inbound paths, the outbound MT
// gateway address, and the modem-id<->IMEI table concrete transports need
// but the transport-neutral driver.Core never sees.
type DriverConfig struct {
	Core driver.Config

	RUDICSListenPort   int
	MOSBDListenPort    int
	MTSBDServerAddress string
	MTSBDServerPort    int

	ModemIDToIMEI map[int]string
}

// Driver wires a transport-neutral driver.Core to concrete Iridium
// transports: an inbound RUDICS listener, an inbound SBD-MO listener, and
// an outbound SBD-MT client, mirroring how IridiumShoreDriver in the
// source composes rudics_server_, mo_sbd_server_, and send_sbd_mt into one
// driver on top of the shared iridium_driver_common state machine.
type Driver struct {
	cfg  DriverConfig
	core *driver.Core

	rudics  *RUDICSServer
	moSBD   *SBDMOServer
	mtClient *MTClient

	imeiToModemID map[string]int
}

// NewDriver constructs a Driver whose Core is wired to a transport that
// prefers a live RUDICS binding and falls back to SBD-MT when the remote's
// call has none.
func NewDriver(cfg DriverConfig, signals driver.Signals) *Driver {
	d := &Driver{cfg: cfg}

	imeiToModemID := make(map[string]int, len(cfg.ModemIDToIMEI))
	for id, imei := range cfg.ModemIDToIMEI {
		imeiToModemID[imei] = id
	}
	d.imeiToModemID = imeiToModemID

	d.mtClient = NewMTClient(cfg.MTSBDServerAddress, cfg.MTSBDServerPort)
	d.core = driver.New(cfg.Core, signals, d)
	d.rudics = NewRUDICSServer(d.core)
	d.moSBD = NewSBDMOServer(d.core, imeiToModemID)
	return d
}

// Core exposes the underlying transport-neutral state machine for
// InitiateTransmission/DoWork/Snapshot callers (admin surface, cmd/acommsd).
func (d *Driver) Core() *driver.Core {
	return d.core
}

// Serve starts the RUDICS and SBD-MO accept loops and blocks until ctx is
// canceled or either listener fails.
func (d *Driver) Serve(ctx context.Context) error {
	rudicsLn, err := listenReusable(fmt.Sprintf(":%d", d.cfg.RUDICSListenPort))
	if err != nil {
		return fmt.Errorf("iridium: rudics listen: %w", err)
	}
	moLn, err := listenReusable(fmt.Sprintf(":%d", d.cfg.MOSBDListenPort))
	if err != nil {
		return fmt.Errorf("iridium: sbd-mo listen: %w", err)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- d.rudics.Serve(ctx, rudicsLn) }()
	go func() { errCh <- d.moSBD.Serve(ctx, moLn) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		<-errCh
		<-errCh
		return nil
	}
}

// listenReusable opens a TCP listener with SO_REUSEADDR set, matching how
// production Iridium gateways expect a driver restart to be able to rebind
// its listening port immediately rather than waiting out TIME_WAIT.
func listenReusable(addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	return lc.Listen(context.Background(), "tcp", addr)
}

// EncodeAndSend implements driver.Transport. It encodes t and writes it
// over whichever medium modemID's call currently has: a bound RUDICS
// connection if one exists, otherwise a fresh SBD-MT gateway dial.
func (d *Driver) EncodeAndSend(modemID int, t driver.Transmission) ([]byte, error) {
	msg, err := EncodeIridiumMessage(t)
	if err != nil {
		return nil, err
	}

	if conn, ok := d.core.Bimap.ConnFor(modemID); ok {
		writer, ok := conn.(interface {
			Write([]byte) (int, error)
		})
		if !ok {
			return nil, fmt.Errorf("iridium: bound connection for modem %d cannot write", modemID)
		}
		buf := newCountingBuffer()
		if _, err := WriteRudicsPacket(buf, msg); err != nil {
			return nil, err
		}
		n, err := writer.Write(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("iridium: rudics write to modem %d: %w", modemID, err)
		}
		return buf.Bytes()[:n], nil
	}

	imei, ok := d.cfg.ModemIDToIMEI[modemID]
	if !ok {
		return nil, fmt.Errorf("%w: modem %d", ErrNoImeiMapped, modemID)
	}
	buf := newCountingBuffer()
	if _, err := WriteRudicsPacket(buf, msg); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	confirm, err := d.mtClient.Send(ctx, imei, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("iridium: sbd-mt send to modem %d: %w", modemID, err)
	}
	log.Debug().Int("modem_id", modemID).Uint32("auto_id", confirm.AutoID).Msg("sbd-mt message queued")
	return buf.Bytes(), nil
}

// WriteControl implements driver.Transport. Only RUDICS connections have a
// notion of a literal control line; SBD-only remotes have no persistent
// session to write "bye\r" into.
func (d *Driver) WriteControl(modemID int, line string) ([]byte, error) {
	conn, ok := d.core.Bimap.ConnFor(modemID)
	if !ok {
		return nil, driver.ErrNotOnCall
	}
	writer, ok := conn.(interface {
		Write([]byte) (int, error)
	})
	if !ok {
		return nil, fmt.Errorf("iridium: bound connection for modem %d cannot write", modemID)
	}
	n, err := writer.Write([]byte(line))
	if err != nil {
		return nil, err
	}
	return []byte(line)[:n], nil
}

// countingBuffer is a tiny io.Writer sink used to build the framed message
// bytes before handing them to the real transport, avoiding a second
// allocation-heavy framing pass per send.
type countingBuffer struct {
	b []byte
}

func newCountingBuffer() *countingBuffer { return &countingBuffer{} }

func (c *countingBuffer) Write(p []byte) (int, error) {
	c.b = append(c.b, p...)
	return len(p), nil
}

func (c *countingBuffer) Bytes() []byte { return c.b }
