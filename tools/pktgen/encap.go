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
	"encoding/json"
	"net"
	"os"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"github.com/grouper/grouper/pkg/private/serrors"
)

// EncapsulationConfig describes the Ethernet, IPv4 and UDP headers that wrap
// generated packets in a capture. It is read from JSON. Empty addresses are
// zero addresses.
type EncapsulationConfig struct {
	Ethernet struct {
		SrcMAC, DstMAC string
	} `json:"ethernet"`
	IPv4 struct {
		SrcIP, DstIP string
		TOS          uint8
		TTL          *uint8
	} `json:"ipv4"`
	UDP struct {
		SrcPort, DstPort uint16
	} `json:"udp"`
}

// Encapsulation wraps packets into Ethernet/IPv4/UDP frames. Classifying such
// a capture with the payload layer yields the original packets.
type Encapsulation struct {
	eth *layers.Ethernet
	ip  *layers.IPv4
	udp *layers.UDP
}

// LoadEncapsulation reads the JSON encapsulation config at path.
func LoadEncapsulation(path string) (*Encapsulation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, serrors.Wrap("reading encapsulation config", err, "file", path)
	}
	var cfg EncapsulationConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, serrors.Wrap("parsing encapsulation config", err, "file", path)
	}
	return NewEncapsulation(&cfg)
}

// NewEncapsulation creates the header templates from cfg.
func NewEncapsulation(cfg *EncapsulationConfig) (*Encapsulation, error) {
	eth, err := parseEthernet(cfg)
	if err != nil {
		return nil, err
	}
	ip, err := parseIPv4(cfg)
	if err != nil {
		return nil, err
	}
	return &Encapsulation{eth: eth, ip: ip, udp: parseUDP(cfg)}, nil
}

// Encode returns the frame that carries payload.
func (e *Encapsulation) Encode(payload []byte) ([]byte, error) {
	eth, ip, udp := *e.eth, *e.ip, *e.udp
	if err := udp.SetNetworkLayerForChecksum(&ip); err != nil {
		return nil, serrors.Wrap("setting checksum layer", err)
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, &ip, &udp,
		gopacket.Payload(payload)); err != nil {

		return nil, serrors.Wrap("serializing frame", err)
	}
	return buf.Bytes(), nil
}

func parseMAC(s string) (net.HardwareAddr, error) {
	if s == "" {
		return make(net.HardwareAddr, 6), nil
	}
	return net.ParseMAC(s)
}

func parseEthernet(cfg *EncapsulationConfig) (*layers.Ethernet, error) {
	src, err := parseMAC(cfg.Ethernet.SrcMAC)
	if err != nil {
		return nil, serrors.Wrap("parsing SrcMAC", err)
	}
	dst, err := parseMAC(cfg.Ethernet.DstMAC)
	if err != nil {
		return nil, serrors.Wrap("parsing DstMAC", err)
	}
	return &layers.Ethernet{
		SrcMAC:       src,
		DstMAC:       dst,
		EthernetType: layers.EthernetTypeIPv4,
	}, nil
}

func parseIP(s string) (net.IP, error) {
	if s == "" {
		return net.IPv4zero.To4(), nil
	}
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return nil, serrors.New("not an IPv4 address", "ip", s)
	}
	return ip, nil
}

func parseIPv4(cfg *EncapsulationConfig) (*layers.IPv4, error) {
	src, err := parseIP(cfg.IPv4.SrcIP)
	if err != nil {
		return nil, serrors.Wrap("parsing SrcIP", err)
	}
	dst, err := parseIP(cfg.IPv4.DstIP)
	if err != nil {
		return nil, serrors.Wrap("parsing DstIP", err)
	}
	var ttl uint8 = 64
	if cfgTTL := cfg.IPv4.TTL; cfgTTL != nil {
		ttl = *cfgTTL
	}
	return &layers.IPv4{
		Version:  4,
		IHL:      5,
		TOS:      cfg.IPv4.TOS,
		Flags:    layers.IPv4DontFragment,
		Protocol: layers.IPProtocolUDP,
		TTL:      ttl,
		SrcIP:    src,
		DstIP:    dst,
	}, nil
}

func parseUDP(cfg *EncapsulationConfig) *layers.UDP {
	return &layers.UDP{
		SrcPort: layers.UDPPort(cfg.UDP.SrcPort),
		DstPort: layers.UDPPort(cfg.UDP.DstPort),
	}
}
