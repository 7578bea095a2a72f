package gantry

import "fmt"

// ConfigError reports an invalid gantry configuration: mismatched
// per-axis lists or a list-valued operation whose argument count does
// not match the axis count. It is raised before any hardware I/O.
type ConfigError struct {
	Reason string
}

// Error implements error.
func (e *ConfigError) Error() string {
	return "gantry config: " + e.Reason
}

func configErrorf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}
