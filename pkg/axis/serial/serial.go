// Package serial provides the serial port Transport for pkg/axis.
package serial

import (
	"time"

	tarm "github.com/tarm/serial"

	"github.com/scanworks/gantry.go/pkg/axis"
)

// DefaultReadTimeout is the port-level read timeout. Reads return
// early with whatever arrived; pkg/axis reassembles full frames.
const DefaultReadTimeout = 250 * time.Millisecond

// Dialer opens serial port Transports.
type Dialer struct {
	// ReadTimeout overrides DefaultReadTimeout when non-zero.
	ReadTimeout time.Duration
}

// Open implements axis.Dialer.
func (d Dialer) Open(port string, baud int) (axis.Transport, error) {
	timeout := d.ReadTimeout
	if timeout == 0 {
		timeout = DefaultReadTimeout
	}
	p, err := tarm.OpenPort(&tarm.Config{
		Name:        port,
		Baud:        baud,
		ReadTimeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
