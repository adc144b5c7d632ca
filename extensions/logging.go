// Package extensions holds optional observers over a control's event
// stream. Nothing here is required by the core runtime.
package extensions

import (
	"log/slog"

	"github.com/formtree/formtree"
)

// Logger logs control state transitions.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a Logger writing through the given slog handler.
func NewLogger(h slog.Handler) *Logger {
	return &Logger{logger: slog.New(h)}
}

// Observe subscribes to the control's event stream and logs each
// transition at Debug level. The returned cancel detaches the observer.
func (l *Logger) Observe(c *formtree.Control) (cancel func()) {
	return c.Events().Subscribe(func(e formtree.Event) {
		switch ev := e.(type) {
		case formtree.ValueChangeEvent:
			l.logger.Debug("value changed",
				"control", c.ID(), "source", ev.Source.ID(), "value", ev.Value)
		case formtree.StatusChangeEvent:
			l.logger.Debug("status changed",
				"control", c.ID(), "source", ev.Source.ID(), "status", string(ev.Status))
		case formtree.PristineChangeEvent:
			l.logger.Debug("pristine changed",
				"control", c.ID(), "source", ev.Source.ID(), "pristine", ev.Pristine)
		case formtree.TouchedChangeEvent:
			l.logger.Debug("touched changed",
				"control", c.ID(), "source", ev.Source.ID(), "touched", ev.Touched)
		}
	})
}
