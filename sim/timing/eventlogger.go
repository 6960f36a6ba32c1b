package timing

import (
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/usbsniff/sim/hooking"
)

// EventLogger is a hook that logs every event handled by an engine at trace
// level.
type EventLogger struct {
	logger logrus.FieldLogger
}

// NewEventLogger returns a new EventLogger which writes into the logger.
func NewEventLogger(logger logrus.FieldLogger) *EventLogger {
	return &EventLogger{logger: logger}
}

type named interface {
	Name() string
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	handler := reflect.TypeOf(evt.Handler()).String()
	if n, ok := evt.Handler().(named); ok {
		handler = n.Name()
	}

	h.logger.WithFields(logrus.Fields{
		"time":    evt.Time(),
		"event":   reflect.TypeOf(evt).String(),
		"handler": handler,
	}).Trace("event")
}
