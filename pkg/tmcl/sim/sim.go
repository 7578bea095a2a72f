// Package sim provides an in-memory TMCL motion controller. It backs
// the axis and gantry tests and cmd/mockmcu, behaving like the real
// firmware at frame level: a register file addressed by tmcl.Param,
// move ramps observable through TargetReached/ActualPosition polls,
// and scriptable ActualSpeed reads for stall driven reference
// searches.
package sim

import (
	"bytes"
	"errors"
	"sync"

	"github.com/scanworks/gantry.go/pkg/tmcl"
)

// Controller simulates one motion controller on a byte stream. It
// implements the axis Transport contract: frames written to it are
// executed and the reply becomes readable immediately.
type Controller struct {
	mu      sync.Mutex
	regs    map[tmcl.Param]int32
	target  int32
	lag     int
	pending int
	frozen  bool
	speeds  []int32
	reqs    []tmcl.Request
	inbuf   bytes.Buffer
	outbuf  bytes.Buffer
	closed  bool
}

// New creates a Controller with all registers zero.
func New() *Controller {
	return &Controller{regs: make(map[tmcl.Param]int32)}
}

// SetLag makes subsequent moves take n TargetReached polls to
// complete, with the position advancing between polls. Zero completes
// moves instantly.
func (c *Controller) SetLag(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lag = n
}

// Freeze pins the position in place with the target unreached,
// simulating a mechanically blocked axis.
func (c *Controller) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
}

// ScriptSpeeds queues the values returned by successive ActualSpeed
// reads. A zero value stops the simulated rotation.
func (c *Controller) ScriptSpeeds(speeds ...int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speeds = append(c.speeds[:0], speeds...)
}

// SetRegister presets a register value.
func (c *Controller) SetRegister(p tmcl.Param, v int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[p] = v
}

// Register reads back a register value.
func (c *Controller) Register(p tmcl.Param) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[p]
}

// Requests returns every request executed so far, in order.
func (c *Controller) Requests() []tmcl.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tmcl.Request(nil), c.reqs...)
}

// Write implements the Transport write side: complete frames are
// executed and their replies queued for Read.
func (c *Controller) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, errors.New("controller closed")
	}
	c.inbuf.Write(b)
	for c.inbuf.Len() >= tmcl.FrameSize {
		var frame tmcl.Frame
		c.inbuf.Read(frame[:])
		reply := c.execute(tmcl.ParseRequest(frame))
		c.outbuf.Write(reply[:])
	}
	return len(b), nil
}

// Read implements the Transport read side.
func (c *Controller) Read(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, errors.New("controller closed")
	}
	return c.outbuf.Read(b[:min(len(b), c.outbuf.Len())])
}

// Close implements the Transport close side.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) execute(req tmcl.Request) tmcl.Frame {
	c.reqs = append(c.reqs, req)
	value := req.Value
	switch req.Command {
	case tmcl.CmdStop:
		c.regs[tmcl.ParamActualSpeed] = 0
		c.speeds = nil
	case tmcl.CmdRotateRight, tmcl.CmdRotateLeft:
		c.regs[tmcl.ParamActualSpeed] = req.Value
	case tmcl.CmdMoveTo:
		c.target = req.Value
		if c.lag == 0 && !c.frozen {
			c.regs[tmcl.ParamActualPosition] = c.target
		} else {
			c.pending = c.lag
		}
	case tmcl.CmdSetParam:
		c.regs[tmcl.Param(req.Type)] = req.Value
		if tmcl.Param(req.Type) == tmcl.ParamActualPosition {
			c.target = req.Value
		}
	case tmcl.CmdGetParam:
		value = c.readParam(tmcl.Param(req.Type))
	case tmcl.CmdStoreParam, tmcl.CmdRestoreParam:
		// EEPROM persistence is not modeled.
	default:
		return tmcl.Reply(req.Command, tmcl.StatusInvalidCommand, 0)
	}
	return tmcl.Reply(req.Command, tmcl.StatusSuccess, value)
}

func (c *Controller) readParam(p tmcl.Param) int32 {
	switch p {
	case tmcl.ParamActualSpeed:
		if len(c.speeds) > 0 {
			v := c.speeds[0]
			c.speeds = c.speeds[1:]
			c.regs[tmcl.ParamActualSpeed] = v
			return v
		}
	case tmcl.ParamTargetReached:
		if c.frozen {
			return 0
		}
		if c.pending > 0 {
			c.pending--
			return 0
		}
		if c.regs[tmcl.ParamActualPosition] != c.target {
			c.regs[tmcl.ParamActualPosition] = c.target
			return 0
		}
		return 1
	case tmcl.ParamActualPosition:
		if !c.frozen && c.pending > 0 {
			// motion in progress, advance halfway toward the target
			pos := c.regs[tmcl.ParamActualPosition]
			c.regs[tmcl.ParamActualPosition] = pos + (c.target-pos)/2
		}
	}
	return c.regs[p]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
