package axis

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scanworks/gantry.go/pkg/tmcl"
	"github.com/scanworks/gantry.go/pkg/tmcl/sim"
)

func testConfig() Config {
	return Config{
		Port:          "/dev/ttyS0",
		Motor:         0,
		DistPerRot:    1.9983,
		MaxStep:       1303641,
		FreezeTimeout: 50 * time.Millisecond,
		PollInterval:  time.Millisecond,
	}
}

func dialerFor(ctrl *sim.Controller) Dialer {
	return DialerFunc(func(port string, baud int) (Transport, error) {
		return ctrl, nil
	})
}

func connectedAxis(t *testing.T, cfg Config) (*Axis, *sim.Controller) {
	ctrl := sim.New()
	a := New(cfg, dialerFor(ctrl))
	require.NoError(t, a.Connect(context.Background()))
	return a, ctrl
}

func TestConnect(t *testing.T) {
	a, ctrl := connectedAxis(t, testConfig())
	require.True(t, a.Connected())

	reqs := ctrl.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, tmcl.CmdStop, reqs[0].Command)

	// reconnect is a no-op
	require.NoError(t, a.Connect(context.Background()))
	require.Len(t, ctrl.Requests(), 1)

	require.NoError(t, a.Disconnect())
	require.False(t, a.Connected())
	require.True(t, ctrl.Closed())
	require.NoError(t, a.Disconnect())
}

func TestConnectDialFailure(t *testing.T) {
	dialErr := errors.New("no such port")
	a := New(testConfig(), DialerFunc(func(port string, baud int) (Transport, error) {
		return nil, dialErr
	}))
	err := a.Connect(context.Background())
	require.Error(t, err)
	connErr, ok := err.(*ConnectError)
	require.True(t, ok)
	require.Equal(t, dialErr, connErr.Unwrap())
	require.False(t, a.Connected())
}

type silentTransport struct{ closed bool }

func (s *silentTransport) Write(b []byte) (int, error) { return len(b), nil }
func (s *silentTransport) Read(b []byte) (int, error)  { return 0, nil }
func (s *silentTransport) Close() error                { s.closed = true; return nil }

func TestConnectProbeTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ReadTimeout = 5 * time.Millisecond
	transport := &silentTransport{}
	a := New(cfg, DialerFunc(func(port string, baud int) (Transport, error) {
		return transport, nil
	}))
	err := a.Connect(context.Background())
	require.Error(t, err)
	_, ok := err.(*ConnectError)
	require.True(t, ok)
	require.True(t, transport.closed)
	require.False(t, a.Connected())
}

func TestNotConnected(t *testing.T) {
	a := New(testConfig(), dialerFor(sim.New()))
	_, _, err := a.Position(context.Background())
	require.Error(t, err)
}

func TestUnitConversion(t *testing.T) {
	a := New(testConfig(), nil)
	require.Equal(t, int64(12800), a.Config().MicrostepsPerRotation())

	for _, mm := range []float64{0, 0.5, 1, 17.3, 203.5129, 222.4} {
		steps := a.MMToSteps(mm)
		back := a.StepsToMM(steps)
		require.InDelta(t, mm, back, a.StepsToMM(1), "mm=%v", mm)
	}
}

func TestCheckStepAllowed(t *testing.T) {
	a, ctrl := connectedAxis(t, testConfig())
	ctx := context.Background()

	testCases := []struct {
		name     string
		steps    int64
		relative bool
		position int32
		wantErr  bool
	}{
		{name: "zero", steps: 0},
		{name: "max", steps: 1303641},
		{name: "negative", steps: -1, wantErr: true},
		{name: "beyond max", steps: 1303642, wantErr: true},
		{name: "relative within", steps: 100, relative: true, position: 500},
		{name: "relative negative", steps: -600, relative: true, position: 500, wantErr: true},
		{name: "relative beyond max", steps: 200, relative: true, position: 1303500, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl.SetRegister(tmcl.ParamActualPosition, tc.position)
			err := a.CheckStepAllowed(ctx, tc.steps, tc.relative)
			if tc.wantErr {
				require.Error(t, err)
				_, ok := err.(*RangeError)
				require.True(t, ok)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMoveOutOfRangeWritesNothing(t *testing.T) {
	a, ctrl := connectedAxis(t, testConfig())
	before := len(ctrl.Requests())

	err := a.MoveSteps(context.Background(), 2000000, tmcl.MoveAbsolute)
	require.Error(t, err)
	rangeErr, ok := err.(*RangeError)
	require.True(t, ok)
	require.Equal(t, int64(2000000), rangeErr.Steps)
	require.Len(t, ctrl.Requests(), before)
}

func TestTravelLimitCappedToWireRange(t *testing.T) {
	cfg := testConfig()
	cfg.MaxStep = int64(1) << 40
	a, ctrl := connectedAxis(t, cfg)
	ctx := context.Background()

	require.NoError(t, a.CheckStepAllowed(ctx, math.MaxInt32, false))

	err := a.CheckStepAllowed(ctx, math.MaxInt32+1, false)
	require.Error(t, err)
	rangeErr, ok := err.(*RangeError)
	require.True(t, ok)
	require.Equal(t, int64(math.MaxInt32), rangeErr.Max)

	before := len(ctrl.Requests())
	err = a.MoveSteps(ctx, math.MaxInt32+1, tmcl.MoveAbsolute)
	require.Error(t, err)
	require.Len(t, ctrl.Requests(), before)
}

func TestMoveSteps(t *testing.T) {
	a, ctrl := connectedAxis(t, testConfig())
	ctrl.SetLag(3)

	require.NoError(t, a.MoveSteps(context.Background(), 1000, tmcl.MoveAbsolute))
	require.Equal(t, int32(1000), ctrl.Register(tmcl.ParamActualPosition))

	var moves []tmcl.Request
	for _, req := range ctrl.Requests() {
		if req.Command == tmcl.CmdMoveTo {
			moves = append(moves, req)
		}
	}
	require.Len(t, moves, 1)
	// relative semantics are client-side, the wire mode is always absolute
	require.Equal(t, byte(tmcl.MoveAbsolute), moves[0].Type)
	require.Equal(t, int32(1000), moves[0].Value)
}

func TestMoveRelativeResolvesClientSide(t *testing.T) {
	a, ctrl := connectedAxis(t, testConfig())
	ctrl.SetRegister(tmcl.ParamActualPosition, 500)

	require.NoError(t, a.MoveSteps(context.Background(), 100, tmcl.MoveRelative))
	require.Equal(t, int32(600), ctrl.Register(tmcl.ParamActualPosition))

	reqs := ctrl.Requests()
	last := reqs[len(reqs)-1]
	require.Equal(t, tmcl.CmdMoveTo, last.Command)
	require.Equal(t, byte(tmcl.MoveAbsolute), last.Type)
	require.Equal(t, int32(600), last.Value)
}

func TestMoveMM(t *testing.T) {
	a, ctrl := connectedAxis(t, testConfig())

	require.NoError(t, a.MoveAbsoluteMM(context.Background(), 10))
	wantSteps := a.MMToSteps(10)
	require.Equal(t, int32(wantSteps), ctrl.Register(tmcl.ParamActualPosition))

	require.NoError(t, a.MoveRelativeMM(context.Background(), 2.5))
	wantSteps += a.MMToSteps(2.5)
	require.Equal(t, int32(wantSteps), ctrl.Register(tmcl.ParamActualPosition))

	mm, steps, err := a.Position(context.Background())
	require.NoError(t, err)
	require.Equal(t, wantSteps, steps)
	require.True(t, math.Abs(mm-12.5) < a.StepsToMM(2))
}

func TestMoveStalled(t *testing.T) {
	a, ctrl := connectedAxis(t, testConfig())
	ctrl.Freeze()

	err := a.MoveAbsoluteMM(context.Background(), 5)
	require.Error(t, err)
	stallErr, ok := err.(*StallError)
	require.True(t, ok)
	require.Equal(t, 0, stallErr.Motor)
	require.Equal(t, a.Config().FreezeTimeout, stallErr.Timeout)
}

func TestMoveCanceled(t *testing.T) {
	cfg := testConfig()
	cfg.FreezeTimeout = time.Minute
	a, ctrl := connectedAxis(t, cfg)
	ctrl.Freeze()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := a.MoveAbsoluteMM(ctx, 5)
	require.Equal(t, context.DeadlineExceeded, err)
}

func TestSetSpeedAndAcceleration(t *testing.T) {
	a, ctrl := connectedAxis(t, testConfig())
	before := len(ctrl.Requests())

	require.NoError(t, a.SetSpeedAndAcceleration(context.Background(), 5000, 1500))
	require.Equal(t, int32(1), ctrl.Register(tmcl.ParamMinSpeed))
	require.Equal(t, int32(5000), ctrl.Register(tmcl.ParamMaxSpeed))
	require.Equal(t, int32(1500), ctrl.Register(tmcl.ParamMaxAcceleration))
	require.Equal(t, int32(6), ctrl.Register(tmcl.ParamMicrostepResolution))

	// every SET is immediately persisted
	reqs := ctrl.Requests()[before:]
	require.Len(t, reqs, 8)
	for i := 0; i < len(reqs); i += 2 {
		require.Equal(t, tmcl.CmdSetParam, reqs[i].Command)
		require.Equal(t, tmcl.CmdStoreParam, reqs[i+1].Command)
		require.Equal(t, reqs[i].Type, reqs[i+1].Type)
	}
}

func TestStallGuard(t *testing.T) {
	a, ctrl := connectedAxis(t, testConfig())
	ctx := context.Background()

	require.NoError(t, a.ActivateStallGuard(ctx))
	require.Equal(t, int32(1000), ctrl.Register(tmcl.ParamMaxSpeed))
	require.Equal(t, int32(2048), ctrl.Register(tmcl.ParamMixedDecayThreshold))
	require.Equal(t, int32(7), ctrl.Register(tmcl.ParamStallThreshold))
	active, err := a.StallGuardActive(ctx)
	require.NoError(t, err)
	require.True(t, active)

	require.NoError(t, a.DeactivateStallGuard(ctx))
	require.Equal(t, int32(-1), ctrl.Register(tmcl.ParamMixedDecayThreshold))
	require.Equal(t, int32(0), ctrl.Register(tmcl.ParamStallThreshold))
	active, err = a.StallGuardActive(ctx)
	require.NoError(t, err)
	require.False(t, active)
}

func TestSearchReference(t *testing.T) {
	a, ctrl := connectedAxis(t, testConfig())
	ctrl.SetRegister(tmcl.ParamActualPosition, 48213)
	ctrl.ScriptSpeeds(900, 900, 0)

	require.NoError(t, a.SearchReference(context.Background()))

	// the axis sits one homing nudge off the hard stop
	backoff := int32(a.MMToSteps(0.5))
	require.Equal(t, backoff, ctrl.Register(tmcl.ParamActualPosition))
	// stall guard is deactivated again
	require.Equal(t, int32(0), ctrl.Register(tmcl.ParamStallThreshold))
	require.Equal(t, int32(-1), ctrl.Register(tmcl.ParamMixedDecayThreshold))

	var rotations, zeroes []tmcl.Request
	for _, req := range ctrl.Requests() {
		switch {
		case req.Command == tmcl.CmdRotateLeft:
			rotations = append(rotations, req)
		case req.Command == tmcl.CmdSetParam && tmcl.Param(req.Type) == tmcl.ParamActualPosition:
			zeroes = append(zeroes, req)
		}
	}
	require.Len(t, rotations, 1)
	require.Equal(t, int32(900), rotations[0].Value)
	require.Len(t, zeroes, 1)
	require.Equal(t, int32(0), zeroes[0].Value)
}

func TestFindMaximumStep(t *testing.T) {
	a, ctrl := connectedAxis(t, testConfig())
	ctrl.SetRegister(tmcl.ParamActualPosition, 1294820)
	ctrl.ScriptSpeeds(900, 0)

	mm, steps, err := a.FindMaximumStep(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1294820), steps)
	require.InDelta(t, a.StepsToMM(1294820), mm, 1e-9)

	// the measurement is observational, nothing is persisted beyond
	// the stall guard teardown
	require.Equal(t, int32(0), ctrl.Register(tmcl.ParamStallThreshold))
	backoff := int32(a.MMToSteps(0.5))
	require.Equal(t, int32(1294820)-backoff, ctrl.Register(tmcl.ParamActualPosition))
}
