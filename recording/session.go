package recording

import (
	"encoding/hex"
	"time"

	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/hostlink"
	"github.com/sarchlab/usbsniff/pipeline"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/id"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/timing"
)

// Table names.
const (
	SessionTable  = "session"
	PacketTable   = "packets"
	SnapshotTable = "counters"
)

// SessionEntry is the row that describes a session.
type SessionEntry struct {
	ID     string
	Start  string
	FreqHz float64
	Note   string
}

// PacketEntry is the row of one decoded packet.
type PacketEntry struct {
	Session   string
	Index     uint64
	Ticks     uint64
	Time      float64
	Timestamp uint32
	Flags     uint16
	FlagNames string
	Size      uint16
	Length    int
	Payload   string
}

// SnapshotEntry is the row of one counter snapshot.
type SnapshotEntry struct {
	Session       string
	Cycle         uint64
	Symbols       uint64
	Overflows     uint64
	Records       uint64
	Bookends      uint64
	Rejected      uint64
	Truncated     uint64
	Dropped       uint64
	Stalls        uint64
	FrameBytes    uint64
	WriterWords   uint64
	WriterBursts  uint64
	Wraps         uint64
	ReaderWords   uint64
	HostBursts    uint64
	Occupancy     uint32
	Refreshes     uint64
	LateRefreshes uint64
	HostBytes     uint64
	Packets       uint64
	DecodeErrors  uint64
}

// MapTables makes a reader able to query the tables of a session recording.
func MapTables(r DataReader) {
	r.MapTable(SessionTable, SessionEntry{})
	r.MapTable(PacketTable, PacketEntry{})
	r.MapTable(SnapshotTable, SnapshotEntry{})
}

// SessionRecorder writes the packets and counter snapshots of one capture
// session.
type SessionRecorder struct {
	recorder DataRecorder
	id       string
	freq     timing.Freq
	packets  uint64
	err      error
}

// NewSessionRecorder creates the session tables and the session row.
func NewSessionRecorder(
	r DataRecorder,
	start time.Time,
	freq timing.Freq,
	note string,
) (*SessionRecorder, error) {
	s := &SessionRecorder{
		recorder: r,
		id:       id.NewSessionID(),
		freq:     freq,
	}

	for name, sample := range map[string]any{
		SessionTable:  SessionEntry{},
		PacketTable:   PacketEntry{},
		SnapshotTable: SnapshotEntry{},
	} {
		if err := r.CreateTable(name, sample); err != nil {
			return nil, err
		}
	}

	err := r.InsertData(SessionTable, SessionEntry{
		ID:     s.id,
		Start:  start.UTC().Format(time.RFC3339Nano),
		FreqHz: float64(freq),
		Note:   note,
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// ID returns the unique id of the session.
func (s *SessionRecorder) ID() string {
	return s.id
}

// Packets returns the number of packets recorded.
func (s *SessionRecorder) Packets() uint64 {
	return s.packets
}

// Err returns the first error met while recording from hooks and handlers.
func (s *SessionRecorder) Err() error {
	return s.err
}

// RecordPacket adds a decoded packet.
func (s *SessionRecorder) RecordPacket(p hostlink.Packet) error {
	err := s.recorder.InsertData(PacketTable, PacketEntry{
		Session:   s.id,
		Index:     s.packets,
		Ticks:     p.Ticks,
		Time:      float64(p.Time(s.freq)),
		Timestamp: p.Timestamp,
		Flags:     p.Flags,
		FlagNames: record.FlagString(p.Flags),
		Size:      p.Size,
		Length:    len(p.Payload),
		Payload:   hex.EncodeToString(p.Payload),
	})
	if err != nil {
		return err
	}

	s.packets++

	return nil
}

// Snapshot adds a row of counters.
func (s *SessionRecorder) Snapshot(c pipeline.Counters) error {
	return s.recorder.InsertData(SnapshotTable, SnapshotEntry{
		Session:       s.id,
		Cycle:         c.Cycles,
		Symbols:       c.Symbols,
		Overflows:     c.Overflows,
		Records:       c.Framer.Records,
		Bookends:      c.Framer.Bookends,
		Rejected:      c.Framer.Rejected,
		Truncated:     c.Framer.Truncated,
		Dropped:       c.Framer.Dropped,
		Stalls:        c.Framer.Stalls,
		FrameBytes:    c.FrameBytes,
		WriterWords:   c.Writer.Words,
		WriterBursts:  c.Writer.Bursts,
		Wraps:         c.Writer.Wraps,
		ReaderWords:   c.Reader.Words,
		HostBursts:    c.Reader.HostBursts,
		Occupancy:     c.Occupancy,
		Refreshes:     c.SDRAM.Refreshes,
		LateRefreshes: c.SDRAM.LateRefreshes,
		HostBytes:     c.HostBytes,
		Packets:       c.Packets,
		DecodeErrors:  c.DecodeErrors,
	})
}

// Attach records every packet the pipeline decodes and a snapshot of its
// counters every n cycles. Zero n disables periodic snapshots.
func (s *SessionRecorder) Attach(c *pipeline.Comp, n uint64) {
	c.OnPacket(func(p hostlink.Packet) {
		s.keep(s.RecordPacket(p))
	})

	if n == 0 {
		return
	}

	c.Domain.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
		if ctx.Pos != modeling.HookPosCycleEnd {
			return
		}

		if ctx.Item.(uint64)%n == 0 {
			s.keep(s.Snapshot(c.Counters()))
		}
	}))
}

func (s *SessionRecorder) keep(err error) {
	if err != nil && s.err == nil {
		s.err = err
	}
}

// Finish writes a final snapshot and flushes the recorder.
func (s *SessionRecorder) Finish(c *pipeline.Comp) error {
	if c != nil {
		s.keep(s.Snapshot(c.Counters()))
	}

	s.keep(s.recorder.Flush())

	return s.err
}
