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

package classify_test

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grouper/grouper/pkg/classify"
)

var frames = [][]byte{
	{0xde, 0xad, 0xbe, 0xef, 0x01},
	{0xca, 0xfe},
	{0x00, 0x11, 0x22, 0x33},
}

func capture(data []byte) gopacket.CaptureInfo {
	return gopacket.CaptureInfo{
		Timestamp:     time.Unix(1700000000, 0),
		CaptureLength: len(data),
		Length:        len(data),
	}
}

func pcapCapture(t *testing.T) []byte {
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	for _, f := range frames {
		require.NoError(t, w.WritePacket(capture(f), f))
	}
	return buf.Bytes()
}

func pcapngCapture(t *testing.T) []byte {
	var buf bytes.Buffer
	w, err := pcapgo.NewNgWriter(&buf, layers.LinkTypeEthernet)
	require.NoError(t, err)
	for _, f := range frames {
		require.NoError(t, w.WritePacket(capture(f), f))
	}
	require.NoError(t, w.Flush())
	return buf.Bytes()
}

func drain(t *testing.T, src classify.PacketSource) [][]byte {
	var packets [][]byte
	for {
		p, err := src.Next()
		if errors.Is(err, io.EOF) {
			return packets
		}
		require.NoError(t, err)
		packets = append(packets, append([]byte(nil), p...))
	}
}

func TestPcapSource(t *testing.T) {
	want := [][]byte{
		{0xde, 0xad, 0xbe, 0xef},
		{0xca, 0xfe, 0x00, 0x00},
		{0x00, 0x11, 0x22, 0x33},
	}
	tests := map[string][]byte{
		"pcap":   pcapCapture(t),
		"pcapng": pcapngCapture(t),
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			src, err := classify.NewPcapSource(bytes.NewReader(input), 4)
			require.NoError(t, err)
			assert.Equal(t, layers.LinkTypeEthernet.String(), src.LinkType())
			assert.Equal(t, want, drain(t, src))
		})
	}
}

func udpFrame(t *testing.T, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x00, 0x5e, 0x00, 0x53, 0x01},
		DstMAC:       net.HardwareAddr{0x00, 0x00, 0x5e, 0x00, 0x53, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{192, 0, 2, 1},
		DstIP:    net.IP{192, 0, 2, 2},
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 40001}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp,
		gopacket.Payload(payload)))
	return buf.Bytes()
}

func TestPcapSourcePayload(t *testing.T) {
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	for _, payload := range [][]byte{{0xab, 0xcd, 0xef}, nil, {0x01}} {
		f := udpFrame(t, payload)
		require.NoError(t, w.WritePacket(capture(f), f))
	}

	src, err := classify.NewPcapSource(bytes.NewReader(buf.Bytes()), 2,
		classify.WithLayer(classify.LayerPayload))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0xab, 0xcd}, {0x01, 0x00}}, drain(t, src))
	assert.Equal(t, uint64(1), src.Skipped())

	frameSrc, err := classify.NewSource(classify.FormatPcap, bytes.NewReader(buf.Bytes()), 2,
		classify.WithLayer(classify.LayerFrame))
	require.NoError(t, err)
	packets := drain(t, frameSrc)
	require.Len(t, packets, 3)
	assert.Equal(t, []byte{0x00, 0x00}, packets[0])

	_, err = classify.NewPcapSource(bytes.NewReader(buf.Bytes()), 2,
		classify.WithLayer("session"))
	assert.ErrorIs(t, err, classify.ErrUnknownLayer)
}

func TestPcapSourceInvalid(t *testing.T) {
	_, err := classify.NewPcapSource(strings.NewReader(""), 4)
	assert.Error(t, err)
	_, err = classify.NewPcapSource(strings.NewReader("this is not a capture"), 4)
	assert.Error(t, err)
}

func TestPcapSourceTruncated(t *testing.T) {
	input := pcapCapture(t)
	src, err := classify.NewPcapSource(bytes.NewReader(input[:len(input)-2]), 4)
	require.NoError(t, err)
	assert.Len(t, drain(t, src), 2)
}

func TestRawSource(t *testing.T) {
	src := classify.NewRawSource(strings.NewReader("abcdefg"), 2)
	assert.Equal(t, [][]byte{[]byte("ab"), []byte("cd"), []byte("ef")}, drain(t, src))
}

func TestNewSource(t *testing.T) {
	src, err := classify.NewSource(classify.FormatRaw, strings.NewReader("ab"), 1)
	require.NoError(t, err)
	assert.IsType(t, &classify.RawSource{}, src)

	src, err = classify.NewSource(classify.FormatPcap, bytes.NewReader(pcapCapture(t)), 1)
	require.NoError(t, err)
	assert.IsType(t, &classify.PcapSource{}, src)

	_, err = classify.NewSource("csv", strings.NewReader(""), 1)
	assert.ErrorIs(t, err, classify.ErrUnknownFormat)
}

func TestLineWriter(t *testing.T) {
	var out bytes.Buffer
	w := classify.NewLineWriter(&out, 16)
	for _, id := range []uint64{0, 7, 18446744073709551615, 12} {
		require.NoError(t, w.Write(id))
	}
	require.NoError(t, w.Flush())
	assert.Equal(t, "0\n7\n18446744073709551615\n12\n", out.String())
}
