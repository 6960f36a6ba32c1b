package config

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/usbsniff/capture/ingress"
	"github.com/sarchlab/usbsniff/pipeline"
)

// PipelineBuilder returns a pipeline builder set up from a validated
// configuration.
func (c Config) PipelineBuilder(
	src ingress.Source,
	logger logrus.FieldLogger,
) (pipeline.Builder, error) {
	w, err := c.Window()
	if err != nil {
		return pipeline.Builder{}, err
	}

	return pipeline.MakeBuilder().
		WithLogger(logger).
		WithFreq(c.Clock.Freq).
		WithSource(src).
		WithIngressDepth(c.Capture.IngressDepth).
		WithCaptureDepth(c.Capture.Depth).
		WithMaxPayload(c.Capture.MaxPayload).
		WithFilters(c.Filters()...).
		WithSDRAMParams(c.Params()).
		WithWindow(w).
		WithMaxBurst(c.Ring.MaxBurst).
		WithWriterFIFO(c.Ring.WriterFIFO).
		WithReaderBurst(c.Ring.ReaderBurst).
		WithPadByte(c.Ring.PadByte).
		WithSinkPacing(c.Host.Burst, c.Host.Stall).
		WithSelfTestWindow(c.MemTest.Base, c.MemTest.Size).
		WithMaxCycles(c.Session.MaxCycles).
		WithDrainCycles(c.Session.DrainCycles), nil
}
