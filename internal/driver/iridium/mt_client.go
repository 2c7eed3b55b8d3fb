package iridium

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// MTClient sends mobile-terminated messages to an Iridium DirectIP MT
// gateway and waits for its confirmation. Grounded on
// mirage.GhostAdminSpawner: a bare net.Dialer with a fixed timeout, one
// write, one deadline-bounded read, no persistent connection — the source
// send_sbd_mt opens a fresh socket per message too.
type MTClient struct {
	addr    string
	timeout time.Duration

	nextClientID uint32
}

// NewMTClient constructs a client bound to one MT gateway host:port.
func NewMTClient(host string, port int) *MTClient {
	return &MTClient{
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		timeout: 5 * time.Second,
	}
}

// Send queues payload for delivery to imei via the DirectIP gateway,
// returning the gateway's confirmation. payload is expected to already be
// framed (rudics_packet over an encoded driver.Transmission) by the
// caller.
func (c *MTClient) Send(ctx context.Context, imei string, payload []byte) (SBDMTConfirmation, error) {
	if c.addr == "" {
		return SBDMTConfirmation{}, fmt.Errorf("iridium: mt gateway address required")
	}

	c.nextClientID++
	clientID := c.nextClientID

	msg, err := EncodeSBDMT(clientID, imei, payload)
	if err != nil {
		return SBDMTConfirmation{}, err
	}

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return SBDMTConfirmation{}, fmt.Errorf("iridium: dial mt gateway: %w", err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return SBDMTConfirmation{}, err
	}
	if _, err := conn.Write(msg); err != nil {
		return SBDMTConfirmation{}, fmt.Errorf("iridium: write mt message: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return SBDMTConfirmation{}, err
	}
	confirm, err := DecodeSBDMTConfirmation(conn)
	if err != nil {
		return SBDMTConfirmation{}, fmt.Errorf("iridium: read mt confirmation: %w", err)
	}
	return confirm, nil
}
