package driver

import "time"

const bitsPerByte = 8

// NextSendAllowedAt is the earliest time the driver may transmit again to
// a remote that last sent lastBytesSent bytes at lastTx, given the
// configured target bit rate. Ported directly from the source's
// send_wait = last_bytes_sent / (target_bit_rate/8) (spec.md §4.5).
// targetBitRateBPS <= 0 disables pacing (always due).
func NextSendAllowedAt(lastTx time.Time, lastBytesSent, targetBitRateBPS int) time.Time {
	if targetBitRateBPS <= 0 {
		return lastTx
	}
	targetBytesPerSecond := float64(targetBitRateBPS) / bitsPerByte
	sendWaitSeconds := float64(lastBytesSent) / targetBytesPerSecond
	return lastTx.Add(time.Duration(sendWaitSeconds * float64(time.Second)))
}

// byeDue reports whether the bye handshake should be initiated: no bye
// sent yet and the handshake has run past handshakeHangupSeconds since
// the last transmission.
func byeDue(oc *OnCall, now time.Time, handshakeHangupSeconds int) bool {
	if oc.ByeSent {
		return false
	}
	deadline := oc.LastTxTime.Add(time.Duration(handshakeHangupSeconds) * time.Second)
	return now.After(deadline)
}

// hangupDue implements spec.md §4.5's hangup condition:
// (bye_sent ∧ bye_received) ∨ (now > last_rx_tx + hangup_seconds_after_empty).
func hangupDue(oc *OnCall, now time.Time, hangupSecondsAfterEmpty int) bool {
	if oc.ByeSent && oc.ByeReceived {
		return true
	}
	deadline := oc.LastRxTxTime().Add(time.Duration(hangupSecondsAfterEmpty) * time.Second)
	return now.After(deadline)
}
