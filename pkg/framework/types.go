// Package framework provides the small runtime glue shared by the
// gantry binaries: named background runners with signal handling,
// context-aware wrappers for blocking calls, and error aggregation
// for fan-out/fan-in operations.
package framework

import "context"

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}
