// Command gantryctl is an interactive control shell for the scanner
// gantry: connect to the axes, configure, home, and move them from a
// prompt.
package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/scanworks/gantry.go/pkg/cli"
	fx "github.com/scanworks/gantry.go/pkg/framework"
	"github.com/scanworks/gantry.go/pkg/gantry"
)

func init() {
	cli.SetupFlags()
}

func parseTargets(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(args))
	}
	targets := make([]float64, n)
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %v", arg, err)
		}
		targets[i] = v
	}
	return targets, nil
}

func addCommands(ctx context.Context, shell *ishell.Shell, g *gantry.Gantry) {
	shell.AddCmd(&ishell.Cmd{
		Name: "connect",
		Help: "open and probe all axes",
		Func: func(c *ishell.Context) {
			if err := g.Connect(ctx); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "disconnect",
		Help: "close all axes",
		Func: func(c *ishell.Context) {
			if err := g.Disconnect(); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "configure",
		Help: "configure <max-speed> <max-accel>: write the speed envelope",
		Func: func(c *ishell.Context) {
			values, err := parseTargets(c.Args, 2)
			if err != nil {
				c.Err(err)
				return
			}
			if err := g.Configure(ctx, int32(values[0]), int32(values[1])); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "home",
		Help: "search the reference position on all axes",
		Func: func(c *ishell.Context) {
			if err := g.FindReference(ctx); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "pos",
		Help: "print the current axis positions",
		Func: func(c *ishell.Context) {
			mm, steps, err := g.Positions(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			for i := range mm {
				c.Printf("axis %d: %10.4f mm (%d microsteps)\n", i, mm[i], steps[i])
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "moveabs",
		Help: "moveabs <mm per axis...>: move to absolute positions",
		Func: func(c *ishell.Context) {
			targets, err := parseTargets(c.Args, g.Len())
			if err != nil {
				c.Err(err)
				return
			}
			if err := g.MoveToAbsoluteMM(ctx, targets); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "moverel",
		Help: "moverel <mm per axis...>: move by relative distances",
		Func: func(c *ishell.Context) {
			targets, err := parseTargets(c.Args, g.Len())
			if err != nil {
				c.Err(err)
				return
			}
			if err := g.MoveRelativeMM(ctx, targets); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "check",
		Help: "check <mm per axis...>: validate targets against travel limits",
		Func: func(c *ishell.Context) {
			targets, err := parseTargets(c.Args, g.Len())
			if err != nil {
				c.Err(err)
				return
			}
			allowed, err := g.CheckAllowedMM(ctx, targets)
			if err != nil {
				c.Err(err)
				return
			}
			for i, ok := range allowed {
				c.Printf("axis %d: %v -> %v\n", i, targets[i], ok)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "sg",
		Help: "sg on|off|status: control stall guard on all axes",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("expected on, off or status"))
				return
			}
			switch c.Args[0] {
			case "on":
				if err := g.ActivateStallGuard(ctx); err != nil {
					c.Err(err)
				}
			case "off":
				if err := g.DeactivateStallGuard(ctx); err != nil {
					c.Err(err)
				}
			case "status":
				for _, a := range g.Axes() {
					active, err := a.StallGuardActive(ctx)
					if err != nil {
						c.Err(err)
						return
					}
					c.Printf("axis %d: stall guard active = %v\n", a.Motor(), active)
				}
			default:
				c.Err(fmt.Errorf("expected on, off or status"))
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "maxstep",
		Help: "maxstep <axis>: measure the physical travel limit of one axis",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("expected an axis index"))
				return
			}
			i, err := strconv.Atoi(c.Args[0])
			if err != nil || i < 0 || i >= g.Len() {
				c.Err(fmt.Errorf("invalid axis index %q", c.Args[0]))
				return
			}
			mm, steps, err := g.Axes()[i].FindMaximumStep(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("axis %d: travel limit at %d microsteps (%.2f mm)\n", i, steps, mm)
		},
	})
}

func main() {
	flag.Parse()
	g, err := cli.Default().NewGantry()
	if err != nil {
		glog.Exit(err)
	}
	defer g.Disconnect()

	runner := fx.NewRunner().HandleSignals()

	shell := ishell.New()
	shell.Println("scanner gantry control - type 'help' for commands")
	shell.SetPrompt(fmt.Sprintf("[%d axes] > ", g.Len()))
	addCommands(runner.Context, shell, g)

	// ishell blocks without a context; the first CtrlC/SIGTERM cancels
	// in-flight moves and stops the prompt loop.
	runner.Go(fx.NamedRun("shell", fx.RunFunc(func(ctx context.Context) error {
		return fx.RunWithContextCancel(ctx, shell.Stop, func() error {
			shell.Run()
			return nil
		})
	})))
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
