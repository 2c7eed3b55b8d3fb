package driver

// Transport is what a concrete driver (internal/driver/iridium) gives the
// transport-neutral core so it can turn its scheduling decisions into
// bytes on a wire. EncodeAndSend must have already written to whatever
// medium it uses (RUDICS socket, SBD-MT gateway dial) by the time it
// returns; the returned raw bytes are used for pacing bookkeeping
// (last_bytes_sent) and the OnRawOutgoing signal, mirroring the source's
// on_call_base->set_last_bytes_sent(rudics_packet.size()) taken right
// after rudics_send.
type Transport interface {
	EncodeAndSend(modemID int, t Transmission) (raw []byte, err error)
	// WriteControl sends a literal control line (e.g. "bye\r") to
	// modemID's bound connection. Transports with no notion of a
	// persistent session (SBD) may return ErrNotOnCall.
	WriteControl(modemID int, line string) (raw []byte, err error)
}
