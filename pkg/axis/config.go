package axis

import (
	"math"
	"time"
)

// Defaults for Config fields left zero.
const (
	DefaultBaud           = 9600
	DefaultStallThreshold = 7
	DefaultDecayThreshold = -1
	DefaultMicrostepExp   = 6
	DefaultFreezeTimeout  = 10 * time.Second
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultReadTimeout    = 250 * time.Millisecond
)

// Config is the static calibration of one axis. It is fixed for the
// lifetime of the Axis.
type Config struct {
	// Port is the serial endpoint of the motion controller.
	Port string
	// Motor is the physical axis index, used for logs and errors.
	Motor int
	// Baud is the serial baud rate.
	Baud int
	// DistPerRot is the travel distance per motor rotation in mm.
	DistPerRot float64
	// MaxStep is the maximum allowed microstep position.
	MaxStep int64
	// StallThreshold is the stall detection level written when stall
	// guard is activated.
	StallThreshold int32
	// DecayThreshold is the mixed decay level restored when stall
	// guard is deactivated.
	DecayThreshold int32
	// MicrostepExp is the microstep resolution exponent; microsteps
	// per full step = 2^MicrostepExp.
	MicrostepExp int32
	// FreezeTimeout is the longest a commanded motion may hold its
	// position before it is declared stalled.
	FreezeTimeout time.Duration
	// PollInterval is the period of the motion completion polls.
	PollInterval time.Duration
	// ReadTimeout bounds the wait for one full reply frame.
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.StallThreshold == 0 {
		c.StallThreshold = DefaultStallThreshold
	}
	if c.DecayThreshold == 0 {
		c.DecayThreshold = DefaultDecayThreshold
	}
	if c.MicrostepExp == 0 {
		c.MicrostepExp = DefaultMicrostepExp
	}
	if c.FreezeTimeout == 0 {
		c.FreezeTimeout = DefaultFreezeTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// maxStep caps the configured travel limit at the widest position the
// 32-bit wire value can carry.
func (c Config) maxStep() int64 {
	if c.MaxStep > math.MaxInt32 {
		return math.MaxInt32
	}
	return c.MaxStep
}

// MicrostepsPerRotation derives the microstep count of one full motor
// rotation: 200 full steps times 2^MicrostepExp.
func (c Config) MicrostepsPerRotation() int64 {
	return 200 * (int64(1) << uint(c.MicrostepExp))
}
