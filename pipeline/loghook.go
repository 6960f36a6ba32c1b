package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/usbsniff/capture/capturering"
	"github.com/sarchlab/usbsniff/capture/ingress"
	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/ring/bulkring"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/naming"
)

// LogHook logs the notable events of a pipeline: bookends, overflows and
// ring wraps at debug level, every other record at trace level.
type LogHook struct {
	logger logrus.FieldLogger
}

// NewLogHook creates a LogHook that writes into the logger.
func NewLogHook(logger logrus.FieldLogger) *LogHook {
	return &LogHook{logger: logger}
}

// Func logs the event.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	entry := h.logger.WithField("where", sourceName(ctx))

	switch ctx.Pos {
	case capturering.HookPosRecordDone:
		h.logRecord(entry, ctx.Item.(record.Header))
	case capturering.HookPosRecordRejected:
		entry.WithField("ts", ctx.Item.(record.Header).Timestamp).
			Trace("record rejected")
	case ingress.HookPosOverflow:
		entry.WithField("symbol", ctx.Item).Debug("ingress overflow")
	case bulkring.HookPosWrap:
		entry.WithField("wraps", ctx.Item).Debug("ring wrap")
	}
}

func (h *LogHook) logRecord(entry *logrus.Entry, hdr record.Header) {
	entry = entry.WithFields(logrus.Fields{
		"ts":    hdr.Timestamp,
		"size":  hdr.Size,
		"flags": record.FlagString(hdr.Flags),
	})

	switch {
	case hdr.Has(record.FlagFirst):
		entry.Debug("capture enabled")
	case hdr.Has(record.FlagLast):
		entry.Debug("capture disabled")
	case hdr.Flags&(record.FlagOvf|record.FlagErr) != 0:
		entry.Debug("record with errors")
	default:
		entry.Trace("record")
	}
}

func sourceName(ctx hooking.HookCtx) string {
	if n, ok := ctx.Domain.(naming.Named); ok {
		return n.Name()
	}

	return ""
}
