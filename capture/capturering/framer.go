// Package capturering frames captured symbols into packet records in a small
// on-chip ring and streams finished records out.
package capturering

import (
	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

// Hook positions of the framer. The Item is the record.Header.
var (
	HookPosRecordDone     = &hooking.HookPos{Name: "Record Done"}
	HookPosRecordRejected = &hooking.HookPos{Name: "Record Rejected"}
)

// Watermark exposes the position of the first byte not yet consumed.
type Watermark interface {
	Position() uint32
}

type framerState int

const (
	framerIdle framerState = iota
	framerData
	framerWaitFilter
	framerHeader
	framerSend
)

var framerStateNames = [...]string{
	"Idle", "Data", "WaitFilter", "Header", "Send",
}

func (s framerState) String() string {
	return framerStateNames[s]
}

const (
	sizeBits = 16
	tsMask   = 1<<record.TimestampBits - 1

	// minFree is the free space required to start a record or to store a
	// payload byte.
	minFree = record.HeaderSize
)

// FramerCounters are the statistics of a framer.
type FramerCounters struct {
	Records   uint64
	Bookends  uint64
	Rejected  uint64
	Truncated uint64
	Dropped   uint64
	Stalls    uint64
}

// Framer turns the symbol stream into records. Payload bytes are stored as
// they arrive, after a gap reserved for the header. Once the payload ends
// and the filters accept the record, the header is written into the gap and
// a descriptor of the record is published.
type Framer struct {
	modeling.ComponentBase

	mem        *Memory
	maxPayload uint16
	filters    filterSet
	watermark  Watermark

	in  signal.Stream[record.Symbol]
	out signal.Stream[record.Descriptor]

	enabled bool
	enEdge  *signal.Edge
	clock   uint64

	state     framerState
	headerIdx int
	header    [record.HeaderSize]byte
	ph, pw    uint32
	size      *signal.SatCounter
	flags     uint16
	ts        uint32

	toStart      bool
	pendingTs    uint32
	firstPending bool
	firstTs      uint32
	lastPending  bool
	lastTs       uint32
	ovfPending   bool

	records, bookends, rejected, truncated, dropped, stalls *signal.SatCounter
}

// Input returns the symbol stream the framer consumes.
func (f *Framer) Input() *signal.Stream[record.Symbol] {
	return &f.in
}

// Descriptors returns the stream finished records are published on.
func (f *Framer) Descriptors() *signal.Stream[record.Descriptor] {
	return &f.out
}

// SetWatermark sets the consumer whose position limits the framer.
func (f *Framer) SetWatermark(w Watermark) {
	f.watermark = w
}

// SetEnabled enables or disables capture. Enabling emits a record flagged
// FlagFirst and disabling emits one flagged FlagLast. While disabled, the
// framer discards the symbols it receives between records.
func (f *Framer) SetEnabled(on bool) {
	f.enabled = on
}

// Enabled tells if capture is enabled.
func (f *Framer) Enabled() bool {
	return f.enabled
}

// Idle tells if the framer is between records and has nothing pending.
func (f *Framer) Idle() bool {
	return f.state == framerIdle && !f.toStart && !f.bookendDue() &&
		!f.edgePending()
}

// Counters returns the statistics of the framer.
func (f *Framer) Counters() FramerCounters {
	return FramerCounters{
		Records:   f.records.Value(),
		Bookends:  f.bookends.Value(),
		Rejected:  f.rejected.Value(),
		Truncated: f.truncated.Value(),
		Dropped:   f.dropped.Value(),
		Stalls:    f.stalls.Value(),
	}
}

// edgePending tells if enable has changed in this cycle. The edge is
// latched first so that its bookend precedes any record after it.
func (f *Framer) edgePending() bool {
	return f.enabled != f.enEdge.Level()
}

func (f *Framer) bookendDue() bool {
	return f.firstPending || f.lastPending
}

func (f *Framer) hasSpace(p uint32) bool {
	wm := p - 1
	if f.watermark != nil {
		wm = f.watermark.Position()
	}

	return f.mem.free(wm, p) > minFree
}

func (f *Framer) storedSize() uint16 {
	size := uint16(f.size.Value())
	if size > f.maxPayload {
		return f.maxPayload
	}

	return size
}

// Drive publishes the descriptor of a finished record.
func (f *Framer) Drive() {
	if f.state != framerSend {
		f.out.Idle()
		return
	}

	f.out.Offer(record.Descriptor{
		Start: f.ph,
		Count: uint32(f.storedSize()) + record.HeaderSize,
	})
}

// Respond decides whether the offered symbol can be taken this cycle.
func (f *Framer) Respond() {
	f.in.Ready = false

	switch f.state {
	case framerIdle:
		switch {
		case f.bookendDue(), f.toStart, f.edgePending():
		case !f.enabled:
			f.in.Ready = true
		default:
			f.in.Ready = f.hasSpace(f.ph)
		}
	case framerData:
		f.in.Ready = f.in.Data.IsMarker() ||
			f.size.Value() >= uint64(f.maxPayload) ||
			f.hasSpace(f.pw)
	}
}

// Update advances the framer by one cycle.
func (f *Framer) Update() {
	rose, fell := f.enEdge.Sample(f.enabled)

	f.TraceState(f, f.state.String())
	f.stalls.IncIf(f.in.Valid && !f.in.Ready)

	switch f.state {
	case framerIdle:
		f.idle()
	case framerData:
		f.data()
	case framerWaitFilter:
		f.waitFilter()
	case framerHeader:
		f.mem.Write(f.ph+uint32(f.headerIdx), f.header[f.headerIdx])
		f.headerIdx++

		if f.headerIdx == record.HeaderSize {
			f.state = framerSend
		}
	case framerSend:
		if f.out.Fire() {
			f.ph = f.pw
			f.records.Inc()
			f.state = framerIdle
		}
	}

	if rose {
		f.firstPending = true
		f.firstTs = f.timestamp()
	}

	if fell {
		f.lastPending = true
		f.lastTs = f.timestamp()
	}

	f.clock++
}

func (f *Framer) timestamp() uint32 {
	return uint32(f.clock) & tsMask
}

func (f *Framer) begin(flags uint16, ts uint32) {
	f.pw = f.mem.wrap(f.ph + record.HeaderSize)
	f.size.Reset()
	f.flags = flags
	f.ts = ts
	f.filters.reset()
}

func (f *Framer) idle() {
	space := f.hasSpace(f.ph)

	switch {
	case f.firstPending && space:
		f.begin(record.FlagFirst, f.firstTs)
		f.firstPending = false
		f.bookends.Inc()
		f.finish()
	case f.lastPending && space:
		f.begin(record.FlagLast, f.lastTs)
		f.lastPending = false
		f.bookends.Inc()
		f.finish()
	case f.bookendDue():
	case f.toStart && !f.enabled:
		f.toStart = false
	case f.toStart && space:
		f.toStart = false
		f.start(f.pendingTs)
	case f.in.Fire():
		f.idleSymbol(f.in.Data)
	}
}

func (f *Framer) idleSymbol(sym record.Symbol) {
	switch {
	case !f.enabled:
		f.dropped.Inc()
	case sym.Kind == record.KindStart:
		f.start(f.timestamp())
	case sym.Kind == record.KindOvf:
		f.ovfPending = true
	default:
		f.dropped.Inc()
	}
}

func (f *Framer) start(ts uint32) {
	var flags uint16
	if f.ovfPending {
		flags = record.FlagOvf
		f.ovfPending = false
	}

	f.begin(flags, ts)
	f.state = framerData
}

func (f *Framer) data() {
	if !f.in.Fire() {
		return
	}

	sym := f.in.Data

	switch sym.Kind {
	case record.KindData:
		f.store(sym)
		return
	case record.KindStart:
		f.flags |= record.FlagOvf
		f.toStart = true
		f.pendingTs = f.timestamp()
	case record.KindErr:
		f.flags |= record.FlagErr
	case record.KindOvf:
		f.flags |= record.FlagOvf
	}

	f.filters.feed(sym)
	f.state = framerWaitFilter
}

func (f *Framer) store(sym record.Symbol) {
	if f.size.Value() >= uint64(f.maxPayload) {
		f.flags |= record.FlagTrunc
	} else {
		f.mem.Write(f.pw, sym.Data)
		f.pw = f.mem.wrap(f.pw + 1)
		f.filters.feed(sym)
	}

	f.size.Inc()
}

func (f *Framer) waitFilter() {
	if !f.filters.done() {
		return
	}

	if f.filters.reject() {
		f.rejected.Inc()
		f.report(HookPosRecordRejected)
		f.pw = f.ph
		f.state = framerIdle

		return
	}

	if f.filters.clip() {
		f.flags |= record.FlagClip
	}

	f.finish()
}

// finish prepares the header and moves on to writing it.
func (f *Framer) finish() {
	if f.flags&record.FlagTrunc != 0 {
		f.truncated.Inc()
	}

	f.header = f.headerFields().Encode()
	f.headerIdx = 0
	f.state = framerHeader

	f.report(HookPosRecordDone)
}

func (f *Framer) headerFields() record.Header {
	return record.Header{
		Flags:     f.flags,
		Size:      f.storedSize(),
		Timestamp: f.ts,
	}
}

func (f *Framer) report(pos *hooking.HookPos) {
	if f.NumHooks() == 0 {
		return
	}

	f.InvokeHook(hooking.HookCtx{
		Domain: f,
		Pos:    pos,
		Item:   f.headerFields(),
	})
}
