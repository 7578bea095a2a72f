// Command gantrymon runs the scanner gantry as a monitored service:
// it connects all axes, publishes their positions over MQTT at a
// fixed interval, and executes remote absolute move commands until
// stopped.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/golang/glog"

	"github.com/scanworks/gantry.go/pkg/cli"
	fx "github.com/scanworks/gantry.go/pkg/framework"
	"github.com/scanworks/gantry.go/pkg/telemetry"
)

var (
	brokerURL = "mqtt://localhost:1883/gantry/"
	interval  = time.Second
	home      = false
)

func init() {
	cli.SetupFlags()
	flag.StringVar(&brokerURL, "broker", brokerURL, "MQTT broker URL, mqtt://host:port/topic-prefix.")
	flag.DurationVar(&interval, "interval", interval, "Position publishing interval.")
	flag.BoolVar(&home, "home", home, "Search the reference positions before serving.")
}

func main() {
	flag.Parse()

	g, err := cli.Default().NewGantry()
	if err != nil {
		glog.Exit(err)
	}

	runner := fx.NewRunner().HandleSignals()
	ctx := runner.Context

	if err := g.Connect(ctx); err != nil {
		glog.Exit(err)
	}
	defer g.Disconnect()
	if home {
		if err := g.FindReference(ctx); err != nil {
			glog.Exit(err)
		}
	}

	queue, err := telemetry.NewQueue(brokerURL)
	if err != nil {
		glog.Exit(err)
	}
	if err := queue.Connect(); err != nil {
		glog.Exit(err)
	}

	publisher := telemetry.NewPublisher(g, queue)
	publisher.Interval = interval
	// Closing the queue on cancel unblocks any broker call the
	// publisher is stuck in.
	runner.Go(fx.NamedRun(publisher.Name(), fx.RunFunc(func(ctx context.Context) error {
		return fx.RunWithContextCloser(ctx, queue, func() error {
			return publisher.Run(ctx)
		})
	})))
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
