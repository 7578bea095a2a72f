package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingCloser struct {
	closed int
}

func (c *countingCloser) Close() error {
	c.closed++
	return nil
}

// signalCloser unblocks waiters on Close and panics on a second Close.
type signalCloser struct {
	closed chan struct{}
}

func (c *signalCloser) Close() error {
	close(c.closed)
	return nil
}

func TestNamedRun(t *testing.T) {
	errDone := errors.New("done")
	r := NamedRun("probe", RunFunc(func(context.Context) error {
		return errDone
	}))
	named, ok := r.(Named)
	require.True(t, ok)
	require.Equal(t, "probe", named.Name())
	require.Equal(t, errDone, r.Run(context.Background()))
}

func TestRunWithContextCancelPassthrough(t *testing.T) {
	errFail := errors.New("fail")
	err := RunWithContextCancel(context.Background(), nil, func() error {
		return errFail
	})
	require.Equal(t, errFail, err)
}

func TestRunWithContextCancelStopsBlockedFn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopCh := make(chan struct{})
	canceled := false
	cancel()
	err := RunWithContextCancel(ctx, func() {
		canceled = true
		close(stopCh)
	}, func() error {
		<-stopCh
		return nil
	})
	require.Equal(t, context.Canceled, err)
	require.True(t, canceled)
}

func TestRunWithContextCloser(t *testing.T) {
	t.Run("closed on exit", func(t *testing.T) {
		var closer countingCloser
		err := RunWithContextCloser(context.Background(), &closer, func() error {
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, closer.closed)
	})
	t.Run("closed once on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		closer := &signalCloser{closed: make(chan struct{})}
		err := RunWithContextCloser(ctx, closer, func() error {
			<-closer.closed
			return nil
		})
		require.Equal(t, context.Canceled, err)
	})
}

func TestRunnerWait(t *testing.T) {
	errFail := errors.New("fail")
	runner := NewRunner()
	runner.Go(
		RunFunc(func(context.Context) error { return nil }),
		RunFunc(func(context.Context) error { return context.Canceled }),
		NamedRun("failing", RunFunc(func(context.Context) error { return errFail })),
	)
	err := runner.Wait()
	require.Error(t, err)
	require.Equal(t, errFail.Error(), err.Error())
}
