package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/structs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/hostlink"
	"github.com/sarchlab/usbsniff/monitoring"
	"github.com/sarchlab/usbsniff/pipeline"
	"github.com/sarchlab/usbsniff/recording"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/timing"
	"github.com/sarchlab/usbsniff/traffic"
)

const progressInterval = 10000

func newRunCmd(a *app) *cobra.Command {
	var (
		pcapPath, dbPath string
		monitor          bool
		packets          int
		seed             int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture generated traffic and write what the host receives.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()

			if flags.Changed("pcap") {
				a.cfg.Output.Pcap = pcapPath
			}

			if flags.Changed("db") {
				a.cfg.Output.Database = dbPath
			}

			if flags.Changed("monitor") {
				a.cfg.Monitor.Enabled = monitor
			}

			if flags.Changed("packets") {
				a.cfg.Traffic.Packets = packets
			}

			if flags.Changed("seed") {
				a.cfg.Traffic.Seed = seed
			}

			if err := a.cfg.Validate(); err != nil {
				return err
			}

			return a.run()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&pcapPath, "pcap", "", "write the packets to a pcap file")
	flags.StringVar(&dbPath, "db", "",
		"record packets and counters into a SQLite database")
	flags.BoolVar(&monitor, "monitor", false, "serve the web monitor")
	flags.IntVarP(&packets, "packets", "n", 0, "number of packets to send")
	flags.Int64Var(&seed, "seed", 0, "seed of the traffic generator")

	return cmd
}

type session struct {
	comp     *pipeline.Comp
	gen      *traffic.Generator
	tracer   *hooking.StateCycleTracer
	pcap     *hostlink.PcapWriter
	pcapFile *os.File
	db       recording.DataRecorder
	rec      *recording.SessionRecorder
	received []hostlink.Packet
	err      error
}

func (a *app) run() error {
	s, err := a.newSession()
	if err != nil {
		return err
	}
	defer s.close()

	if a.cfg.Monitor.Enabled {
		err = a.runMonitored(s)
	} else {
		err = s.comp.Run()
	}

	if err != nil {
		return err
	}

	if s.rec != nil {
		if err := s.rec.Finish(s.comp); err != nil {
			return err
		}
	}

	if s.err != nil {
		return s.err
	}

	return a.report(s)
}

func (a *app) newSession() (*session, error) {
	gen, err := traffic.NewGenerator(a.cfg.Traffic)
	if err != nil {
		return nil, err
	}

	b, err := a.cfg.PipelineBuilder(gen, a.logger)
	if err != nil {
		return nil, err
	}

	s := &session{gen: gen}

	if a.cfg.Session.Engine && !a.cfg.Monitor.Enabled {
		engine := timing.NewSerialEngine()
		if a.logger.IsLevelEnabled(logrus.TraceLevel) {
			engine.AcceptHook(timing.NewEventLogger(a.logger))
		}

		b = b.WithEngine(engine)
	}

	if a.cfg.Monitor.Enabled {
		s.tracer = hooking.NewStateCycleTracer()
		b = b.WithAdditionalHooks(s.tracer)
	}

	s.comp = b.Build("Board")
	s.comp.OnPacket(s.receive)

	if a.cfg.Output.Pcap != "" {
		if err := s.openPcap(a.cfg.Output.Pcap); err != nil {
			s.close()
			return nil, err
		}
	}

	if a.cfg.Output.Database != "" {
		if err := s.openDatabase(a.cfg.Output.Database,
			a.cfg.Output.SnapshotEvery); err != nil {
			s.close()
			return nil, err
		}

		a.logger.WithField("file", recording.Filename(a.cfg.Output.Database)).
			Info("recording session")
	}

	return s, nil
}

func (s *session) openPcap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	s.pcapFile = f

	s.pcap, err = hostlink.NewPcapWriter(f, time.Now(), s.comp.Freq())

	return err
}

func (s *session) openDatabase(name string, every uint64) error {
	db, err := recording.New(name)
	if err != nil {
		return err
	}

	s.db = db

	s.rec, err = recording.NewSessionRecorder(db, time.Now(), s.comp.Freq(),
		"generated traffic")
	if err != nil {
		return err
	}

	s.rec.Attach(s.comp, every)

	return nil
}

func (s *session) receive(p hostlink.Packet) {
	if !p.Has(record.FlagFirst) && !p.Has(record.FlagLast) {
		s.received = append(s.received, p)
	}

	if s.pcap != nil && s.err == nil {
		s.err = s.pcap.Write(p)
	}
}

func (s *session) close() {
	if s.db != nil {
		_ = s.db.Close()
	}

	if s.pcapFile != nil {
		_ = s.pcapFile.Close()
	}
}

func (a *app) runMonitored(s *session) error {
	m := monitoring.NewMonitor(a.logger).WithPortNumber(a.cfg.Monitor.Port)
	m.RegisterPipeline(s.comp)
	m.RegisterStateTracer(s.tracer)

	url, err := m.StartServer()
	if err != nil {
		return err
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = m.Shutdown(ctx)
	}()

	if a.cfg.Monitor.OpenBrowser {
		m.OpenBrowser(url)
	}

	if limit := a.cfg.Session.MaxCycles; limit > 0 {
		bar := m.CreateProgressBar("cycles", limit)
		defer m.CompleteProgressBar(bar)

		s.comp.Domain.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos != modeling.HookPosCycleEnd {
				return
			}

			if cycle := ctx.Item.(uint64); cycle%progressInterval == 0 {
				bar.SetFinished(cycle)
			}
		}))
	}

	m.Run()

	return nil
}

// mismatches counts the received packets whose payload differs from the
// one sent. Packets are only comparable one to one when every packet sent
// is expected back unchanged.
func (a *app) mismatches(s *session) int {
	if a.cfg.Traffic.Packets == 0 || len(a.cfg.Filters()) > 0 {
		return 0
	}

	sent := s.gen.Sent()
	n := 0

	for i, p := range s.received {
		switch {
		case p.Has(record.FlagTrunc) || p.Has(record.FlagOvf):
			continue
		case i >= len(sent) || string(p.Payload) != string(sent[i].Payload):
			n++
		}
	}

	return n
}

func (a *app) report(s *session) error {
	counters := s.comp.Counters()
	a.logger.WithFields(logrus.Fields(structs.Map(counters))).
		Info("capture finished")

	fmt.Fprintf(a.out,
		"sent %d packets, received %d, overflows %d, cycles %d\n",
		s.gen.Count(), len(s.received), counters.Overflows, counters.Cycles)

	if s.pcap != nil {
		fmt.Fprintf(a.out, "wrote %d packets to %s\n",
			s.pcap.Count(), a.cfg.Output.Pcap)
	}

	if lost := s.gen.Count() - len(s.received); lost > 0 {
		a.logger.WithField("lost", lost).Warn("packets were not received")
	}

	if n := a.mismatches(s); n > 0 {
		return fmt.Errorf("%d packets arrived corrupted", n)
	}

	return nil
}
