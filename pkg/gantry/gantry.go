// Package gantry coordinates the axes of the scanner gantry as one
// logical machine. Group operations fan out to every axis in
// parallel, one worker per axis, and barrier-wait until all axes have
// completed or failed. Axes fail independently: an error on one axis
// never aborts the moves already dispatched to its siblings.
package gantry

import (
	"context"

	"github.com/golang/glog"

	"github.com/scanworks/gantry.go/pkg/axis"
	fx "github.com/scanworks/gantry.go/pkg/framework"
)

// Config assembles the per-axis calibration from parallel lists. The
// element at index i belongs to the physical axis i.
type Config struct {
	// Ports are the serial endpoints, one per axis.
	Ports []string
	// Baud is the serial baud rate shared by all axes.
	Baud int
	// DistPerRot is the travel per motor rotation in mm, one per axis.
	DistPerRot []float64
	// MaxStep is the maximum allowed microstep position, one per axis.
	MaxStep []int64
	// Axis is the template for the remaining per-axis settings
	// (thresholds, timeouts); Port, Motor, DistPerRot and MaxStep are
	// filled in per axis.
	Axis axis.Config
}

// Gantry owns the ordered set of axis controllers. The axis order is
// the physical axis order.
type Gantry struct {
	axes []*axis.Axis
}

// New builds the axis controllers from the configuration. All three
// per-axis lists must have equal, non-zero length.
func New(cfg Config, dialer axis.Dialer) (*Gantry, error) {
	if len(cfg.Ports) == 0 {
		return nil, configErrorf("no axes configured")
	}
	if len(cfg.DistPerRot) != len(cfg.Ports) || len(cfg.MaxStep) != len(cfg.Ports) {
		return nil, configErrorf("%d ports, %d distances per rotation, %d step limits: lengths must match",
			len(cfg.Ports), len(cfg.DistPerRot), len(cfg.MaxStep))
	}
	g := &Gantry{axes: make([]*axis.Axis, len(cfg.Ports))}
	for i, port := range cfg.Ports {
		axisCfg := cfg.Axis
		axisCfg.Port = port
		axisCfg.Motor = i
		axisCfg.Baud = cfg.Baud
		axisCfg.DistPerRot = cfg.DistPerRot[i]
		axisCfg.MaxStep = cfg.MaxStep[i]
		g.axes[i] = axis.New(axisCfg, dialer)
	}
	return g, nil
}

// Len returns the axis count.
func (g *Gantry) Len() int {
	return len(g.axes)
}

// Axes exposes the individual axis controllers, in physical order.
func (g *Gantry) Axes() []*axis.Axis {
	return g.axes
}

// fanOut runs op on every axis concurrently and waits for all of them
// before returning the aggregated errors.
func (g *Gantry) fanOut(op func(*axis.Axis) error) error {
	errCh := make(chan error, len(g.axes))
	for _, a := range g.axes {
		go func(a *axis.Axis) {
			errCh <- op(a)
		}(a)
	}
	var errs fx.AggregatedError
	for range g.axes {
		errs.Add(<-errCh)
	}
	return errs.Aggregate()
}

// Connect opens and probes all axes in parallel.
func (g *Gantry) Connect(ctx context.Context) error {
	return g.fanOut(func(a *axis.Axis) error {
		return a.Connect(ctx)
	})
}

// Disconnect closes all axes.
func (g *Gantry) Disconnect() error {
	return g.fanOut(func(a *axis.Axis) error {
		return a.Disconnect()
	})
}

// Configure writes the speed envelope to all axes and, as a defined
// post-condition, deactivates stall guard everywhere.
func (g *Gantry) Configure(ctx context.Context, maxSpeed, maxAccel int32) error {
	if err := g.fanOut(func(a *axis.Axis) error {
		return a.SetSpeedAndAcceleration(ctx, maxSpeed, maxAccel)
	}); err != nil {
		return err
	}
	return g.DeactivateStallGuard(ctx)
}

// ActivateStallGuard switches all axes into stall detecting mode.
func (g *Gantry) ActivateStallGuard(ctx context.Context) error {
	return g.fanOut(func(a *axis.Axis) error {
		return a.ActivateStallGuard(ctx)
	})
}

// DeactivateStallGuard restores normal operating mode on all axes.
func (g *Gantry) DeactivateStallGuard(ctx context.Context) error {
	return g.fanOut(func(a *axis.Axis) error {
		return a.DeactivateStallGuard(ctx)
	})
}

// FindReference homes all axes in parallel.
func (g *Gantry) FindReference(ctx context.Context) error {
	glog.Info("searching reference positions on all axes")
	return g.fanOut(func(a *axis.Axis) error {
		return a.SearchReference(ctx)
	})
}

// MoveToAbsoluteMM moves every axis to its position in mm; element i
// is routed to axis i. The move of each axis blocks until completion;
// the call returns once every axis finished or failed.
func (g *Gantry) MoveToAbsoluteMM(ctx context.Context, positions []float64) error {
	if len(positions) != len(g.axes) {
		return configErrorf("%d positions for %d axes", len(positions), len(g.axes))
	}
	return g.fanOut(func(a *axis.Axis) error {
		return a.MoveAbsoluteMM(ctx, positions[a.Motor()])
	})
}

// MoveRelativeMM moves every axis by its distance in mm relative to
// the current position; element i is routed to axis i.
func (g *Gantry) MoveRelativeMM(ctx context.Context, distances []float64) error {
	if len(distances) != len(g.axes) {
		return configErrorf("%d distances for %d axes", len(distances), len(g.axes))
	}
	return g.fanOut(func(a *axis.Axis) error {
		return a.MoveRelativeMM(ctx, distances[a.Motor()])
	})
}

// Positions reads the current position of every axis, in mm and in
// microsteps, indexed by axis.
func (g *Gantry) Positions(ctx context.Context) ([]float64, []int64, error) {
	mm := make([]float64, len(g.axes))
	steps := make([]int64, len(g.axes))
	err := g.fanOut(func(a *axis.Axis) error {
		m, s, err := a.Position(ctx)
		if err != nil {
			return err
		}
		mm[a.Motor()], steps[a.Motor()] = m, s
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return mm, steps, nil
}

// CheckAllowedMM validates one absolute target position in mm per
// axis against the travel limits, without moving anything.
func (g *Gantry) CheckAllowedMM(ctx context.Context, positions []float64) ([]bool, error) {
	if len(positions) != len(g.axes) {
		return nil, configErrorf("%d positions for %d axes", len(positions), len(g.axes))
	}
	allowed := make([]bool, len(g.axes))
	err := g.fanOut(func(a *axis.Axis) error {
		checkErr := a.CheckMMAllowed(ctx, positions[a.Motor()], false)
		if checkErr != nil {
			if _, ok := checkErr.(*axis.RangeError); ok {
				return nil
			}
			return checkErr
		}
		allowed[a.Motor()] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return allowed, nil
}
