package axis

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/scanworks/gantry.go/pkg/tmcl"
)

// Stall guard register values. The activated mixed decay level and
// the velocity used for reference searches are fixed by the motor
// calibration; the stall detection level comes from Config.
const (
	stallGuardSpeed = 1000
	stallGuardDecay = 2048
	referenceSpeed  = 900
)

// homeBackoffMM is the nudge off the hard stop after a reference
// search, in mm.
const homeBackoffMM = 0.5

// Axis drives one stepper motor axis. All operations on a single Axis
// are strictly sequential; the transport is exclusively owned and
// never carries two commands in flight.
type Axis struct {
	cfg       Config
	dialer    Dialer
	transport Transport
}

// New creates an Axis from its calibration. The transport is not
// opened until Connect.
func New(cfg Config, dialer Dialer) *Axis {
	return &Axis{cfg: cfg.withDefaults(), dialer: dialer}
}

// Config returns the axis calibration.
func (a *Axis) Config() Config {
	return a.cfg
}

// Motor returns the physical axis index.
func (a *Axis) Motor() int {
	return a.cfg.Motor
}

// Connected reports whether the transport is open.
func (a *Axis) Connected() bool {
	return a.transport != nil
}

// Connect opens the transport and probes the controller with a stop
// command, expecting a full reply frame. Reconnecting while already
// open is a no-op. A probe failure closes the transport again and is
// fatal for this axis.
func (a *Axis) Connect(ctx context.Context) error {
	if a.transport != nil {
		glog.Infof("motor %d is already connected to %s", a.cfg.Motor, a.cfg.Port)
		return nil
	}
	glog.Infof("connecting motor %d to %s", a.cfg.Motor, a.cfg.Port)
	t, err := a.dialer.Open(a.cfg.Port, a.cfg.Baud)
	if err != nil {
		return &ConnectError{Motor: a.cfg.Motor, Port: a.cfg.Port, Err: err}
	}
	a.transport = t
	if _, _, err := a.exchange(ctx, tmcl.Stop()); err != nil {
		a.transport.Close()
		a.transport = nil
		return &ConnectError{Motor: a.cfg.Motor, Port: a.cfg.Port, Err: err}
	}
	glog.Infof("successfully connected to motor %d on port %s", a.cfg.Motor, a.cfg.Port)
	return nil
}

// Disconnect closes the transport. It is an idempotent no-op when the
// axis is not connected.
func (a *Axis) Disconnect() error {
	if a.transport == nil {
		return nil
	}
	glog.Infof("closing connection to motor %d on port %s", a.cfg.Motor, a.cfg.Port)
	err := a.transport.Close()
	a.transport = nil
	return err
}

// exchange performs one command round-trip: write the request frame,
// then collect exactly one reply frame within the read timeout.
func (a *Axis) exchange(ctx context.Context, req tmcl.Request) (int32, tmcl.Status, error) {
	if a.transport == nil {
		return 0, 0, ErrNotConnected
	}
	frame := req.Encode()
	if _, err := a.transport.Write(frame[:]); err != nil {
		return 0, 0, fmt.Errorf("motor %d: write %v: %v", a.cfg.Motor, req.Command, err)
	}
	reply := make([]byte, tmcl.FrameSize)
	got := 0
	deadline := time.Now().Add(a.cfg.ReadTimeout)
	for got < tmcl.FrameSize {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		n, err := a.transport.Read(reply[got:])
		if err != nil {
			return 0, 0, fmt.Errorf("motor %d: read reply for %v: %v", a.cfg.Motor, req.Command, err)
		}
		got += n
		if n == 0 {
			if time.Now().After(deadline) {
				return 0, 0, fmt.Errorf("motor %d: %v: %v", a.cfg.Motor, req.Command, ErrReadTimeout)
			}
			time.Sleep(time.Millisecond)
		}
	}
	value, status, err := tmcl.Decode(reply)
	if err != nil {
		return 0, 0, fmt.Errorf("motor %d: %v reply: %v", a.cfg.Motor, req.Command, err)
	}
	glog.V(2).Infof("motor %d: %v -> value %d, status %v", a.cfg.Motor, req.Command, value, status)
	return value, status, nil
}

func (a *Axis) getParam(ctx context.Context, p tmcl.Param) (int32, error) {
	value, _, err := a.exchange(ctx, tmcl.GetParam(p))
	return value, err
}

// setAndStore writes a register and immediately persists it to the
// controller's non-volatile memory.
func (a *Axis) setAndStore(ctx context.Context, p tmcl.Param, value int32) error {
	if _, _, err := a.exchange(ctx, tmcl.SetParam(p, value)); err != nil {
		return err
	}
	_, _, err := a.exchange(ctx, tmcl.StoreParam(p))
	return err
}

// SetSpeedAndAcceleration configures and persists the speed envelope
// of the axis: minimum speed 1, the given maximum speed and
// acceleration, and the calibrated microstep resolution.
func (a *Axis) SetSpeedAndAcceleration(ctx context.Context, maxSpeed, maxAccel int32) error {
	glog.V(1).Infof("motor %d: setting max speed to %d and max acceleration to %d",
		a.cfg.Motor, maxSpeed, maxAccel)
	if err := a.setAndStore(ctx, tmcl.ParamMinSpeed, 1); err != nil {
		return err
	}
	if err := a.setAndStore(ctx, tmcl.ParamMaxSpeed, maxSpeed); err != nil {
		return err
	}
	if err := a.setAndStore(ctx, tmcl.ParamMaxAcceleration, maxAccel); err != nil {
		return err
	}
	return a.setAndStore(ctx, tmcl.ParamMicrostepResolution, a.cfg.MicrostepExp)
}

// ActivateStallGuard switches the controller into the stall detecting
// mode used for reference searches.
func (a *Axis) ActivateStallGuard(ctx context.Context) error {
	if err := a.setAndStore(ctx, tmcl.ParamMaxSpeed, stallGuardSpeed); err != nil {
		return err
	}
	if err := a.setAndStore(ctx, tmcl.ParamMixedDecayThreshold, stallGuardDecay); err != nil {
		return err
	}
	return a.setAndStore(ctx, tmcl.ParamStallThreshold, a.cfg.StallThreshold)
}

// DeactivateStallGuard restores the normal operating mode: stall
// detection off and the calibrated mixed decay level.
func (a *Axis) DeactivateStallGuard(ctx context.Context) error {
	if err := a.setAndStore(ctx, tmcl.ParamMaxSpeed, stallGuardSpeed); err != nil {
		return err
	}
	if err := a.setAndStore(ctx, tmcl.ParamMixedDecayThreshold, a.cfg.DecayThreshold); err != nil {
		return err
	}
	return a.setAndStore(ctx, tmcl.ParamStallThreshold, 0)
}

// StallGuardActive reads back the stall guard registers and compares
// them against the activated values. This is best-effort: any outside
// write to those registers desynchronizes the comparison, and there is
// deliberately no cached flag that could drift from hardware state.
func (a *Axis) StallGuardActive(ctx context.Context) (bool, error) {
	decay, err := a.getParam(ctx, tmcl.ParamMixedDecayThreshold)
	if err != nil {
		return false, err
	}
	stall, err := a.getParam(ctx, tmcl.ParamStallThreshold)
	if err != nil {
		return false, err
	}
	return decay == stallGuardDecay && stall == a.cfg.StallThreshold, nil
}

// StepsToMM converts a microstep position to mm of travel.
func (a *Axis) StepsToMM(steps int64) float64 {
	return float64(steps) * a.cfg.DistPerRot / float64(a.cfg.MicrostepsPerRotation())
}

// MMToSteps converts a travel distance in mm to microsteps,
// truncating to whole microsteps.
func (a *Axis) MMToSteps(mm float64) int64 {
	return int64(mm / a.cfg.DistPerRot * float64(a.cfg.MicrostepsPerRotation()))
}

// CheckStepAllowed validates a target microstep position against the
// travel limits. With relative set, steps is an offset from the
// current position. The resulting absolute position must lie within
// [0, MaxStep]; a MaxStep beyond the 32-bit wire range is capped so
// an accepted target never truncates on the wire.
func (a *Axis) CheckStepAllowed(ctx context.Context, steps int64, relative bool) error {
	if relative {
		_, current, err := a.Position(ctx)
		if err != nil {
			return err
		}
		steps += current
	}
	if max := a.cfg.maxStep(); steps < 0 || steps > max {
		return &RangeError{Motor: a.cfg.Motor, Steps: steps, Max: max}
	}
	return nil
}

// CheckMMAllowed validates a target position in mm against the travel
// limits.
func (a *Axis) CheckMMAllowed(ctx context.Context, mm float64, relative bool) error {
	return a.CheckStepAllowed(ctx, a.MMToSteps(mm), relative)
}

// MoveSteps moves the axis to a microstep position and blocks until
// the motion completes. Relative targets are resolved against the
// current position here, and the move is always transmitted as an
// absolute target, so the travel limits can be enforced before any
// hardware write.
func (a *Axis) MoveSteps(ctx context.Context, steps int64, mode tmcl.MoveMode) error {
	if mode == tmcl.MoveRelative {
		_, current, err := a.Position(ctx)
		if err != nil {
			return err
		}
		steps += current
	}
	if err := a.CheckStepAllowed(ctx, steps, false); err != nil {
		glog.Error(err)
		return err
	}
	if _, _, err := a.exchange(ctx, tmcl.MoveToPosition(tmcl.MoveAbsolute, int32(steps))); err != nil {
		return err
	}
	return a.waitMotion(ctx)
}

// MoveRelativeMM moves the axis by a distance in mm relative to the
// current position.
func (a *Axis) MoveRelativeMM(ctx context.Context, mm float64) error {
	return a.MoveSteps(ctx, a.MMToSteps(mm), tmcl.MoveRelative)
}

// MoveAbsoluteMM moves the axis to an absolute position in mm.
func (a *Axis) MoveAbsoluteMM(ctx context.Context, mm float64) error {
	return a.MoveSteps(ctx, a.MMToSteps(mm), tmcl.MoveAbsolute)
}

// Position reads the current position in both mm and microsteps.
// Register values are signed; a negative raw read is returned as-is.
func (a *Axis) Position(ctx context.Context) (float64, int64, error) {
	value, err := a.getParam(ctx, tmcl.ParamActualPosition)
	if err != nil {
		return 0, 0, err
	}
	steps := int64(value)
	return a.StepsToMM(steps), steps, nil
}

// waitMotion polls the target-reached flag until the controller
// reports completion. Position progress is tracked on every poll; if
// the position holds still for longer than the freeze timeout while
// the target is unreached, the motion is declared stalled.
func (a *Axis) waitMotion(ctx context.Context) error {
	position, err := a.getParam(ctx, tmcl.ParamActualPosition)
	if err != nil {
		return err
	}
	lastProgress := time.Now()
	for {
		reached, err := a.getParam(ctx, tmcl.ParamTargetReached)
		if err != nil {
			return err
		}
		if reached != 0 {
			return nil
		}
		if err := sleep(ctx, a.cfg.PollInterval); err != nil {
			return err
		}
		current, err := a.getParam(ctx, tmcl.ParamActualPosition)
		if err != nil {
			return err
		}
		if current != position {
			position, lastProgress = current, time.Now()
		} else if time.Since(lastProgress) > a.cfg.FreezeTimeout {
			stallErr := &StallError{
				Motor:    a.cfg.Motor,
				Position: int64(position),
				Timeout:  a.cfg.FreezeTimeout,
			}
			glog.Error(stallErr)
			return stallErr
		}
	}
}

// waitStandstill polls the actual speed until the motor stops. Used
// during reference searches, where the stop is the firmware stall
// detection hitting a hard stop.
func (a *Axis) waitStandstill(ctx context.Context) error {
	for {
		speed, err := a.getParam(ctx, tmcl.ParamActualSpeed)
		if err != nil {
			return err
		}
		if speed == 0 {
			return nil
		}
		if err := sleep(ctx, a.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// SearchReference runs the homing sequence: with stall guard active,
// rotate toward the lower hard stop until the firmware detects the
// stall, declare that position zero, back off the stop by a fixed
// nudge, and deactivate stall guard. The sequence is strictly
// sequential; no other move may be issued on this axis while it runs.
func (a *Axis) SearchReference(ctx context.Context) error {
	glog.Infof("motor %d: searching reference position", a.cfg.Motor)
	if err := a.ActivateStallGuard(ctx); err != nil {
		return err
	}
	if _, _, err := a.exchange(ctx, tmcl.RotateLeft(referenceSpeed)); err != nil {
		return err
	}
	if err := a.waitStandstill(ctx); err != nil {
		return err
	}
	if _, _, err := a.exchange(ctx, tmcl.SetParam(tmcl.ParamActualPosition, 0)); err != nil {
		return err
	}
	if err := a.MoveRelativeMM(ctx, homeBackoffMM); err != nil {
		return err
	}
	return a.DeactivateStallGuard(ctx)
}

// FindMaximumStep is a calibration utility: it rotates toward the
// upper hard stop until the firmware detects the stall and reports
// where the physical limit sits. Nothing is persisted; the measured
// value is meant to be recorded as MaxStep in the axis calibration.
func (a *Axis) FindMaximumStep(ctx context.Context) (float64, int64, error) {
	if err := a.ActivateStallGuard(ctx); err != nil {
		return 0, 0, err
	}
	if _, _, err := a.exchange(ctx, tmcl.RotateRight(referenceSpeed)); err != nil {
		return 0, 0, err
	}
	if err := a.waitStandstill(ctx); err != nil {
		return 0, 0, err
	}
	mm, steps, err := a.Position(ctx)
	if err != nil {
		return 0, 0, err
	}
	glog.Infof("motor %d: physical travel limit at step %d (%.2f mm)", a.cfg.Motor, steps, mm)
	if err := a.MoveRelativeMM(ctx, -homeBackoffMM); err != nil {
		return 0, 0, err
	}
	if err := a.DeactivateStallGuard(ctx); err != nil {
		return 0, 0, err
	}
	return mm, steps, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
