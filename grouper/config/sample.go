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

package config

const buildSample = `
# Number of cores the table fill tasks are spread over.
# (default: number of CPUs)
workers = 4

# Maximum number of fill tasks run concurrently per core. (default 100)
threads_per_core_cap = 100
`

const classifySample = `
# Format of the packet input (raw|pcap). raw reads fixed size records, pcap
# reads pcap or pcapng captures. (default raw)
input_format = "raw"

# Part of a captured frame that is classified (frame|payload). payload uses
# the application payload and skips frames without one. (default frame)
pcap_layer = "frame"

# Size of the result write buffer in bytes. (default 65536)
output_buffer_size = 65536
`
