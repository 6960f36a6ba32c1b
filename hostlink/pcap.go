package hostlink

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/sarchlab/usbsniff/sim/timing"
)

// LinkTypeUSBCapture is the link type of the pcap files written by
// PcapWriter. Every packet is the two flag bytes of its record, low byte
// first, followed by the captured bytes.
const LinkTypeUSBCapture layers.LinkType = 255

const (
	flagPrefixSize = 2
	snapLen        = 1 << 20
)

// PcapWriter writes packets to a pcap file.
type PcapWriter struct {
	w     *pcapgo.Writer
	start time.Time
	freq  timing.Freq
	count uint64
}

// NewPcapWriter writes the file header to w and returns a writer. Packet
// times are start plus their tick count at the capture clock frequency.
func NewPcapWriter(
	w io.Writer,
	start time.Time,
	freq timing.Freq,
) (*PcapWriter, error) {
	pw := &PcapWriter{
		w:     pcapgo.NewWriterNanos(w),
		start: start,
		freq:  freq,
	}

	if err := pw.w.WriteFileHeader(snapLen, LinkTypeUSBCapture); err != nil {
		return nil, err
	}

	return pw, nil
}

// Count returns the number of packets written.
func (w *PcapWriter) Count() uint64 {
	return w.count
}

// Write appends a packet.
func (w *PcapWriter) Write(p Packet) error {
	data := make([]byte, flagPrefixSize, flagPrefixSize+len(p.Payload))
	binary.LittleEndian.PutUint16(data, p.Flags)
	data = append(data, p.Payload...)

	offset := time.Duration(p.Time(w.freq) * float64(time.Second))

	err := w.w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     w.start.Add(offset),
		CaptureLength: len(data),
		Length:        len(data),
	}, data)
	if err != nil {
		return err
	}

	w.count++

	return nil
}

// DecodePcapPacket splits a packet read from a file written by PcapWriter
// into its flags and captured bytes.
func DecodePcapPacket(data []byte) (flags uint16, payload []byte, ok bool) {
	if len(data) < flagPrefixSize {
		return 0, nil, false
	}

	return binary.LittleEndian.Uint16(data), data[flagPrefixSize:], true
}
