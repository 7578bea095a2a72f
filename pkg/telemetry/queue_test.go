package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientOptionsFromURL(t *testing.T) {
	testCases := []struct {
		name   string
		url    string
		server string
		prefix string
	}{
		{"mqtt scheme", "mqtt://broker:1883/gantry", "tcp://broker:1883", "gantry/"},
		{"trailing slash kept", "mqtt://broker:1883/lab/scanner/", "tcp://broker:1883", "lab/scanner/"},
		{"no prefix", "mqtt://broker:1883", "tcp://broker:1883", ""},
		{"explicit scheme", "tcps://broker:8883/gantry", "tcps://broker:8883", "gantry/"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts, prefix, err := ClientOptionsFromURL(tc.url)
			require.NoError(t, err)
			require.Equal(t, tc.prefix, prefix)
			require.Len(t, opts.Servers, 1)
			require.Equal(t, tc.server, opts.Servers[0].Scheme+"://"+opts.Servers[0].Host)
		})
	}
}

func TestClientOptionsFromURLInvalid(t *testing.T) {
	_, _, err := ClientOptionsFromURL("://not-a-url")
	require.Error(t, err)
}
