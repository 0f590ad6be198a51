package notify

import (
	"fmt"
	"strings"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/format"
	"github.com/Third-Cult/agile-automation-playground-sub000/pkg/models"
)

// Warning is a side effect that failed without aborting its handler.
type Warning struct {
	Step string
	Err  error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Step, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// Outcome summarizes one handled event.
type Outcome struct {
	Kind     models.EventKind
	Previous format.Status
	Status   format.Status
	// Skipped explains why a handler issued no side effects. Empty when it acted.
	Skipped  string
	Warnings []Warning
}

// Acted reports whether the handler went past its preconditions.
func (o *Outcome) Acted() bool {
	return o.Skipped == ""
}

// Summary joins all warnings for a single log line.
func (o *Outcome) Summary() string {
	if len(o.Warnings) == 0 {
		return ""
	}
	parts := make([]string, 0, len(o.Warnings))
	for _, w := range o.Warnings {
		parts = append(parts, w.Error())
	}
	return strings.Join(parts, "; ")
}
