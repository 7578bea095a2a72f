// Command mockmcu serves a simulated TMCL motion controller on
// stdin/stdout, for bench-testing the gantry tools without hardware.
// Bridge it to a pty to point gantryctl at it:
//
//	socat pty,raw,link=/tmp/axis0 exec:mockmcu
package main

import (
	"flag"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/scanworks/gantry.go/pkg/tmcl"
	"github.com/scanworks/gantry.go/pkg/tmcl/sim"
)

var moveLag = 4

func init() {
	flag.IntVar(&moveLag, "move-lag", moveLag, "Completion polls a simulated move takes.")
}

func main() {
	flag.Parse()

	ctrl := sim.New()
	ctrl.SetLag(moveLag)

	frame := make([]byte, tmcl.FrameSize)
	reply := make([]byte, tmcl.FrameSize)
	for {
		if _, err := io.ReadFull(os.Stdin, frame); err != nil {
			if err != io.EOF {
				glog.Error(err)
			}
			return
		}
		if _, err := ctrl.Write(frame); err != nil {
			glog.Exit(err)
		}
		if _, err := ctrl.Read(reply); err != nil {
			glog.Exit(err)
		}
		if _, err := os.Stdout.Write(reply); err != nil {
			glog.Exit(err)
		}
	}
}
