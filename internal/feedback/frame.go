package feedback

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/motionforge/motioncore/internal/execution"
	"github.com/motionforge/motioncore/internal/types"
)

// Feedback frame: Header (8 Bytes) + Payload + CRC32
//
//	Sequence uint32  - monotonic per connection, detects dropped frames
//	Status   uint8   - logical trajectory status
//	Flags    uint8   - bit 0: standstill, bit 1: pose payload present
//	Length   uint16  - payload length in bytes
type Frame struct {
	Sequence uint32
	Status   uint8
	Flags    uint8
	Payload  []byte
}

const (
	StatusRunning      = 0x01
	StatusEnded        = 0x02
	StatusPausedByUser = 0x03
)

const (
	FlagStandstill = 1 << 0
	FlagHasPose    = 1 << 1
)

const (
	headerSize = 8
	crcSize    = 4
	poseSize   = 7 * 8 // x y z + w x y z as float64
	maxPayload = 1024
)

// Encode serializes the frame including the trailing CRC32 over header and
// payload.
func (f *Frame) Encode() []byte {
	frame := make([]byte, headerSize+len(f.Payload)+crcSize)

	binary.BigEndian.PutUint32(frame[0:4], f.Sequence)
	frame[4] = f.Status
	frame[5] = f.Flags
	binary.BigEndian.PutUint16(frame[6:8], uint16(len(f.Payload)))
	copy(frame[headerSize:], f.Payload)

	crc := crc32.ChecksumIEEE(frame[:headerSize+len(f.Payload)])
	binary.BigEndian.PutUint32(frame[headerSize+len(f.Payload):], crc)

	return frame
}

// DecodeHeader parses the fixed header and returns the payload length still
// to be read from the wire.
func DecodeHeader(data []byte) (*Frame, int, error) {
	if len(data) < headerSize {
		return nil, 0, fmt.Errorf("header too short: %d bytes", len(data))
	}

	frame := &Frame{
		Sequence: binary.BigEndian.Uint32(data[0:4]),
		Status:   data[4],
		Flags:    data[5],
	}

	length := int(binary.BigEndian.Uint16(data[6:8]))
	if length > maxPayload {
		return nil, 0, fmt.Errorf("payload too large: %d bytes", length)
	}

	switch frame.Status {
	case StatusRunning, StatusEnded, StatusPausedByUser:
	default:
		return nil, 0, fmt.Errorf("unknown status byte: 0x%02X", frame.Status)
	}

	return frame, length, nil
}

// VerifyCRC checks the trailing checksum against header and payload.
func (f *Frame) VerifyCRC(crc uint32) error {
	buf := make([]byte, headerSize+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], f.Sequence)
	buf[4] = f.Status
	buf[5] = f.Flags
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(f.Payload)))
	copy(buf[headerSize:], f.Payload)

	if expected := crc32.ChecksumIEEE(buf); expected != crc {
		return fmt.Errorf("crc mismatch: expected 0x%08X, got 0x%08X", expected, crc)
	}
	return nil
}

// Standstill reports the physical standstill flag.
func (f *Frame) Standstill() bool {
	return f.Flags&FlagStandstill != 0
}

// Pose decodes the pose payload, or returns nil when the frame carries none.
func (f *Frame) Pose() (*types.Pose, error) {
	if f.Flags&FlagHasPose == 0 {
		return nil, nil
	}
	if len(f.Payload) < poseSize {
		return nil, fmt.Errorf("pose payload too short: %d bytes", len(f.Payload))
	}

	vals := make([]float64, 7)
	for i := range vals {
		bits := binary.BigEndian.Uint64(f.Payload[i*8 : i*8+8])
		vals[i] = math.Float64frombits(bits)
	}

	return &types.Pose{
		Position:    types.Vector3{X: vals[0], Y: vals[1], Z: vals[2]},
		Orientation: types.Quaternion{W: vals[3], X: vals[4], Y: vals[5], Z: vals[6]},
	}, nil
}

// Event converts the frame into the motion event the execution machine
// consumes.
func (f *Frame) Event() (execution.MotionEvent, error) {
	pose, err := f.Pose()
	if err != nil {
		return nil, err
	}

	switch f.Status {
	case StatusRunning:
		return execution.RunningEvent{Location: pose}, nil
	case StatusEnded:
		return execution.EndedEvent{Standstill: f.Standstill(), Location: pose}, nil
	case StatusPausedByUser:
		return execution.PausedByUserEvent{Standstill: f.Standstill(), Location: pose}, nil
	default:
		return nil, fmt.Errorf("unknown status byte: 0x%02X", f.Status)
	}
}

// EncodePose builds a pose payload for outgoing frames. Used by the loopback
// controller in tests and by simulators.
func EncodePose(pose *types.Pose) []byte {
	vals := [7]float64{
		pose.Position.X, pose.Position.Y, pose.Position.Z,
		pose.Orientation.W, pose.Orientation.X, pose.Orientation.Y, pose.Orientation.Z,
	}
	payload := make([]byte, poseSize)
	for i, v := range vals {
		binary.BigEndian.PutUint64(payload[i*8:i*8+8], math.Float64bits(v))
	}
	return payload
}
