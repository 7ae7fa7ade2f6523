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

package classify

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"

	"github.com/grouper/grouper/pkg/private/serrors"
)

// Input formats.
const (
	// FormatRaw is a stream of back to back fixed length packets.
	FormatRaw = "raw"
	// FormatPcap is a pcap or pcapng capture.
	FormatPcap = "pcap"
)

// Capture layers a PcapSource takes its packets from.
const (
	// LayerFrame uses the captured link layer frame.
	LayerFrame = "frame"
	// LayerPayload uses the application payload of the frame. Frames without
	// one are skipped.
	LayerPayload = "payload"
)

var (
	// ErrUnknownFormat indicates an unsupported input format.
	ErrUnknownFormat = errors.New("unknown input format")
	// ErrUnknownLayer indicates an unsupported capture layer.
	ErrUnknownLayer = errors.New("unknown capture layer")
)

// NewSource creates a packet source for the given input format. The options
// only apply to captures.
func NewSource(format string, r io.Reader, packetLength uint64,
	opts ...PcapOption) (PacketSource, error) {

	switch format {
	case FormatRaw, "":
		return NewRawSource(r, packetLength), nil
	case FormatPcap:
		return NewPcapSource(r, packetLength, opts...)
	default:
		return nil, serrors.JoinNoStack(ErrUnknownFormat, nil, "format", format)
	}
}

// RawSource reads fixed length packets from a byte stream.
type RawSource struct {
	r   *bufio.Reader
	buf []byte
}

// NewRawSource creates a source that splits r into packets of packetLength
// bytes.
func NewRawSource(r io.Reader, packetLength uint64) *RawSource {
	return &RawSource{
		r:   bufio.NewReaderSize(r, 64*1024),
		buf: make([]byte, packetLength),
	}
}

// Next returns the next packet. A partial trailing packet is dropped and
// reported as io.EOF.
func (s *RawSource) Next() ([]byte, error) {
	_, err := io.ReadFull(s.r, s.buf)
	switch {
	case err == nil:
		return s.buf, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return nil, io.EOF
	default:
		return nil, err
	}
}

// pcapngMagic is the block type of a pcapng section header.
const pcapngMagic = 0x0a0d0d0a

// PcapOption configures a PcapSource.
type PcapOption func(o *pcapOptions)

type pcapOptions struct {
	layer string
}

// WithLayer selects the capture layer packets are taken from. The default is
// LayerFrame.
func WithLayer(layer string) PcapOption {
	return func(o *pcapOptions) {
		o.layer = layer
	}
}

// PcapSource reads packets from a pcap or pcapng capture. The first
// packetLength bytes of every frame, or of its payload, form a packet. Shorter
// data is padded with zeros.
type PcapSource struct {
	src      gopacket.PacketDataSource
	linkType layers.LinkType
	payload  bool
	skipped  uint64
	buf      []byte
}

// NewPcapSource reads the capture header from r and returns a source for the
// frames of the capture.
func NewPcapSource(r io.Reader, packetLength uint64, opts ...PcapOption) (*PcapSource, error) {
	o := pcapOptions{layer: LayerFrame}
	for _, opt := range opts {
		opt(&o)
	}
	s := &PcapSource{buf: make([]byte, packetLength)}
	switch o.layer {
	case LayerFrame, "":
	case LayerPayload:
		s.payload = true
	default:
		return nil, serrors.JoinNoStack(ErrUnknownLayer, nil, "layer", o.layer)
	}

	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, serrors.Wrap("reading capture header", err)
	}
	if binary.BigEndian.Uint32(magic) == pcapngMagic {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, serrors.Wrap("reading pcapng header", err)
		}
		s.src, s.linkType = ng, ng.LinkType()
		return s, nil
	}
	pr, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, serrors.Wrap("reading pcap header", err)
	}
	s.src, s.linkType = pr, pr.LinkType()
	return s, nil
}

// LinkType returns the link type of the capture.
func (s *PcapSource) LinkType() string {
	return s.linkType.String()
}

// Skipped returns the number of frames that carried no payload.
func (s *PcapSource) Skipped() uint64 {
	return s.skipped
}

// Next returns the next frame, or the next payload, as a packet.
func (s *PcapSource) Next() ([]byte, error) {
	for {
		data, _, err := s.src.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		if s.payload {
			pkt := gopacket.NewPacket(data, s.linkType,
				gopacket.DecodeOptions{Lazy: true, NoCopy: true})
			app := pkt.ApplicationLayer()
			if app == nil {
				s.skipped++
				continue
			}
			data = app.Payload()
		}
		n := copy(s.buf, data)
		clear(s.buf[n:])
		return s.buf, nil
	}
}
