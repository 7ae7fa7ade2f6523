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

const packetsSample = `
# Number of generated packets. (default 1000)
count = 1000

# Share of packets that are built to match a randomly chosen rule. The other
# packets are uniformly random.
match_ratio = 0.5

# Seed of the random source. 0 picks a random seed.
seed = 0

# Output format (raw|pcap). (default raw)
format = "raw"

# JSON file with the Ethernet, IPv4 and UDP headers that wrap every packet of
# pcap output. Without it packets are written as frames as is.
encapsulation = ""
`
