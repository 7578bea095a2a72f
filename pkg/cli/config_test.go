package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGantryConfig(t *testing.T) {
	c := &Config{
		Ports:      "/dev/ttyUSB0, /dev/ttyUSB1,/dev/ttyUSB2",
		Baud:       9600,
		DistPerRot: "1.9983,1.9983,1.9959",
		MaxStep:    "1303641,1425174,1342922",
	}
	cfg, err := c.GantryConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB2"}, cfg.Ports)
	require.Equal(t, 9600, cfg.Baud)
	require.Equal(t, []float64{1.9983, 1.9983, 1.9959}, cfg.DistPerRot)
	require.Equal(t, []int64{1303641, 1425174, 1342922}, cfg.MaxStep)
}

func TestGantryConfigInvalid(t *testing.T) {
	c := &Config{Ports: "/dev/ttyUSB0", DistPerRot: "fast", MaxStep: "1"}
	_, err := c.GantryConfig()
	require.Error(t, err)

	c = &Config{Ports: "/dev/ttyUSB0", DistPerRot: "1.0", MaxStep: "many"}
	_, err = c.GantryConfig()
	require.Error(t, err)
}
