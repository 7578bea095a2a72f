package tmcl

import (
	"encoding/binary"

	"github.com/golang/glog"
)

// FrameSize is the fixed length of request and reply frames.
const FrameSize = 9

// DefaultAddress is the module address of a single-controller bus.
const DefaultAddress = 1

// Frame is one encoded wire frame.
type Frame [FrameSize]byte

// Checksum computes the frame checksum: the arithmetic sum of the
// first 8 bytes modulo 256. Input shorter than 8 bytes sums the bytes
// present.
func Checksum(b []byte) byte {
	if len(b) > FrameSize-1 {
		b = b[:FrameSize-1]
	}
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

// Request is one instruction to be sent to the controller.
type Request struct {
	Address byte
	Command Command
	Type    byte
	Motor   byte
	Value   int32
}

// Encode builds the wire frame for the request.
func (r Request) Encode() Frame {
	var f Frame
	f[0], f[1], f[2], f[3] = r.Address, byte(r.Command), r.Type, r.Motor
	binary.BigEndian.PutUint32(f[4:8], uint32(r.Value))
	f[8] = Checksum(f[:])
	return f
}

// RotateRight instructs the motor to rotate with the given velocity,
// increasing the position counter.
func RotateRight(velocity int32) Request {
	return Request{Address: DefaultAddress, Command: CmdRotateRight, Value: velocity}
}

// RotateLeft instructs the motor to rotate with the given velocity,
// decreasing the position counter.
func RotateLeft(velocity int32) Request {
	return Request{Address: DefaultAddress, Command: CmdRotateLeft, Value: velocity}
}

// Stop instructs the motor to stop with its deceleration ramp.
func Stop() Request {
	return Request{Address: DefaultAddress, Command: CmdStop}
}

// MoveToPosition instructs the motor to move to the given microstep
// position. The reply is sent as soon as the motion controller starts
// the ramp; completion must be observed via ParamTargetReached.
func MoveToPosition(mode MoveMode, position int32) Request {
	return Request{Address: DefaultAddress, Command: CmdMoveTo, Type: byte(mode), Value: position}
}

// SetParam writes an axis parameter. The value is held in SRAM and
// lost on power-off unless persisted with StoreParam.
func SetParam(p Param, value int32) Request {
	return Request{Address: DefaultAddress, Command: CmdSetParam, Type: byte(p), Value: value}
}

// GetParam reads an axis parameter.
func GetParam(p Param) Request {
	return Request{Address: DefaultAddress, Command: CmdGetParam, Type: byte(p)}
}

// StoreParam persists an axis parameter to non-volatile memory.
func StoreParam(p Param) Request {
	return Request{Address: DefaultAddress, Command: CmdStoreParam, Type: byte(p)}
}

// RestoreParam restores an axis parameter from non-volatile memory.
func RestoreParam(p Param) Request {
	return Request{Address: DefaultAddress, Command: CmdRestoreParam, Type: byte(p)}
}

// Decode parses a reply frame and returns the value payload and the
// firmware status. Error statuses (1-6) are logged but still decoded:
// callers needing strict semantics must check status.IsError()
// themselves. The reply checksum is not verified, matching the
// controller deployments this codec talks to.
func Decode(reply []byte) (value int32, status Status, err error) {
	if len(reply) < FrameSize {
		return 0, 0, ErrShortReply
	}
	status = Status(reply[2])
	if !status.IsKnown() {
		return 0, 0, &UnknownStatusError{Code: reply[2]}
	}
	value = int32(binary.BigEndian.Uint32(reply[4:8]))
	if status.IsError() {
		glog.Warningf("error status received: %v", status)
	}
	return value, status, nil
}

// ParseRequest decodes a request frame back into a Request. Used by
// controller simulators; the checksum byte is ignored.
func ParseRequest(f Frame) Request {
	return Request{
		Address: f[0],
		Command: Command(f[1]),
		Type:    f[2],
		Motor:   f[3],
		Value:   int32(binary.BigEndian.Uint32(f[4:8])),
	}
}

// Reply builds a reply frame, used by controller simulators.
func Reply(echo Command, status Status, value int32) Frame {
	var f Frame
	f[0], f[1], f[2], f[3] = 2, DefaultAddress, byte(status), byte(echo)
	binary.BigEndian.PutUint32(f[4:8], uint32(value))
	f[8] = Checksum(f[:])
	return f
}
