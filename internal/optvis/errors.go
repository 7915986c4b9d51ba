package optvis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCanceled reports that a render was interrupted and the user
// confirmed stopping. Callers running several renders in sequence
// should abandon the queue when errors.Is(err, ErrCanceled).
var ErrCanceled = errors.New("render canceled")

// ConfigurationError reports a mistake in how a render was set up: an
// unknown layer path, a malformed objective, or invalid options. It is
// always fatal for the run.
type ConfigurationError struct {
	Reason string

	// Alternatives lists the registered layer paths when the mistake
	// was a bad path, so the message can point at valid choices.
	Alternatives []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Alternatives) == 0 {
		return e.Reason
	}
	var sb strings.Builder
	sb.WriteString(e.Reason)
	sb.WriteString("\navailable layers:")
	for _, path := range e.Alternatives {
		sb.WriteString("\n  ")
		sb.WriteString(path)
	}
	return sb.String()
}

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// ForwardPassError reports that the model panicked during a hooked
// forward pass. The panic is recovered rather than propagated: the
// render loop logs a warning once and keeps optimizing against the
// activations captured by the last successful pass.
type ForwardPassError struct {
	Panic any
}

func (e *ForwardPassError) Error() string {
	return fmt.Sprintf("forward pass failed: %v", e.Panic)
}
