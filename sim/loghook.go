package sim

import (
	"io"
	"log"
)

// LogHookBase is embedded by hooks that print what they observe.
type LogHookBase struct {
	*log.Logger
}

// NewLogHookBase creates a LogHookBase that writes to the given writer. A nil
// writer discards the output.
func NewLogHookBase(w io.Writer, prefix string) LogHookBase {
	if w == nil {
		w = io.Discard
	}

	return LogHookBase{Logger: log.New(w, prefix, 0)}
}
