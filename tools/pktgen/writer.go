// Copyright 2026 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pktgen

import (
	"bufio"
	"io"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"

	"github.com/grouper/grouper/pkg/private/serrors"
)

// Output formats.
const (
	FormatRaw  = "raw"
	FormatPcap = "pcap"
)

// snapLen is the snapshot length written to capture headers.
const snapLen = 65535

// PacketWriter writes generated packets.
type PacketWriter interface {
	WritePacket(pkt []byte) error
	Flush() error
}

// RawWriter writes packets back to back.
type RawWriter struct {
	w *bufio.Writer
}

// NewRawWriter creates a writer for the raw format.
func NewRawWriter(w io.Writer) *RawWriter {
	return &RawWriter{w: bufio.NewWriter(w)}
}

// WritePacket writes pkt.
func (rw *RawWriter) WritePacket(pkt []byte) error {
	_, err := rw.w.Write(pkt)
	return err
}

// Flush flushes buffered packets.
func (rw *RawWriter) Flush() error {
	return rw.w.Flush()
}

// PcapWriter writes packets as frames of a pcap capture. Without an
// encapsulation every packet is written as is; with one every packet is the
// UDP payload of an Ethernet frame.
type PcapWriter struct {
	bw    *bufio.Writer
	w     *pcapgo.Writer
	encap *Encapsulation
	ts    time.Time
}

// NewPcapWriter writes the capture header to w and returns the writer. encap
// may be nil.
func NewPcapWriter(w io.Writer, encap *Encapsulation) (*PcapWriter, error) {
	bw := bufio.NewWriter(w)
	pw := pcapgo.NewWriter(bw)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, serrors.Wrap("writing header", err)
	}
	return &PcapWriter{bw: bw, w: pw, encap: encap, ts: time.Unix(0, 0)}, nil
}

// WritePacket writes pkt as one frame. Frames are timestamped one microsecond
// apart.
func (pw *PcapWriter) WritePacket(pkt []byte) error {
	frame := pkt
	if pw.encap != nil {
		var err error
		if frame, err = pw.encap.Encode(pkt); err != nil {
			return err
		}
	}
	c := gopacket.CaptureInfo{
		Timestamp:     pw.ts,
		Length:        len(frame),
		CaptureLength: len(frame),
	}
	pw.ts = pw.ts.Add(time.Microsecond)
	if err := pw.w.WritePacket(c, frame); err != nil {
		return serrors.Wrap("writing packet", err)
	}
	return nil
}

// Flush flushes buffered frames.
func (pw *PcapWriter) Flush() error {
	return pw.bw.Flush()
}

// NewWriter returns the writer for the format. encap is only used by the pcap
// format.
func NewWriter(format string, w io.Writer, encap *Encapsulation) (PacketWriter, error) {
	switch format {
	case FormatRaw, "":
		if encap != nil {
			return nil, serrors.New("encapsulation requires the pcap format")
		}
		return NewRawWriter(w), nil
	case FormatPcap:
		return NewPcapWriter(w, encap)
	default:
		return nil, serrors.New("unknown output format", "format", format)
	}
}
