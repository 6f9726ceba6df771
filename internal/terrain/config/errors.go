package config

import "fmt"

// ConfigurationError is a fatal pre-flight failure: an invalid setting or
// an elevation model that does not fit the vertical range of the world.
// No world state is touched once one is returned.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Errorf builds a ConfigurationError not tied to a single field.
func Errorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
