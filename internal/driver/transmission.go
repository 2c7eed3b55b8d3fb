package driver

// TransmissionType distinguishes a data transmission from the ack it may
// trigger.
type TransmissionType int

const (
	TransmissionData TransmissionType = iota
	TransmissionAck
)

func (t TransmissionType) String() string {
	if t == TransmissionAck {
		return "ack"
	}
	return "data"
}

// Transmission is the neutral record populated from an inbound
// rudics_packet/iridium_header or SBD message, and the record collaborators
// fill in on OnDataRequest before an outbound send. FrameStartSet
// distinguishes "caller already assigned frame_start" from zero being a
// legitimate frame index, matching the source's has_frame_start().
type Transmission struct {
	Type          TransmissionType
	Src           int
	Dest          int
	Rate          int
	AckRequested  bool
	FrameStart    int
	FrameStartSet bool
	MaxFrameBytes int
	Frames        [][]byte
	AckedFrames   []int
}
