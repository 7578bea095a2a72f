package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	"github.com/scanworks/gantry.go/pkg/gantry"
)

// Topics, relative to the queue topic prefix.
const (
	TopicPosition = "position"
	TopicMove     = "move"
)

// DefaultInterval is the default position publishing period.
const DefaultInterval = time.Second

// PositionMsg is the published axis state.
type PositionMsg struct {
	MM    []float64 `json:"mm"`
	Steps []int64   `json:"steps"`
}

// MoveMsg is a remote absolute move command, one target per axis.
type MoveMsg struct {
	MM []float64 `json:"mm"`
}

// Publisher periodically publishes the gantry position and executes
// remote absolute moves. All gantry access happens on the Run
// goroutine, keeping the one-command-in-flight-per-axis guarantee:
// move commands arriving over MQTT are funneled into the loop, and a
// command arriving while a move is still executing is dropped with a
// warning.
type Publisher struct {
	Gantry   *gantry.Gantry
	Queue    *Queue
	Interval time.Duration

	moveCh chan []float64
}

// NewPublisher creates a Publisher with the default interval.
func NewPublisher(g *gantry.Gantry, q *Queue) *Publisher {
	return &Publisher{
		Gantry:   g,
		Queue:    q,
		Interval: DefaultInterval,
		moveCh:   make(chan []float64, 1),
	}
}

// Name implements fx.Named.
func (p *Publisher) Name() string {
	return "telemetry"
}

// Run implements fx.Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	if err := p.Queue.Sub(TopicMove, p.handleMove); err != nil {
		return err
	}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case targets := <-p.moveCh:
			if err := p.Gantry.MoveToAbsoluteMM(ctx, targets); err != nil {
				glog.Errorf("remote move failed: %v", err)
			}
			p.publishPosition(ctx)
		case <-ticker.C:
			p.publishPosition(ctx)
		}
	}
}

func (p *Publisher) publishPosition(ctx context.Context) {
	mm, steps, err := p.Gantry.Positions(ctx)
	if err != nil {
		glog.Warningf("position read failed: %v", err)
		return
	}
	payload, err := json.Marshal(&PositionMsg{MM: mm, Steps: steps})
	if err != nil {
		glog.Error(err)
		return
	}
	if err := p.Queue.Pub(TopicPosition, payload); err != nil {
		glog.Warningf("position publish failed: %v", err)
	}
}

func (p *Publisher) handleMove(topic string, payload []byte) {
	var msg MoveMsg
	if err := json.Unmarshal(payload, &msg); err != nil {
		glog.Warningf("invalid move command: %v", err)
		return
	}
	select {
	case p.moveCh <- msg.MM:
	default:
		glog.Warning("move command dropped, a move is already in progress")
	}
}
