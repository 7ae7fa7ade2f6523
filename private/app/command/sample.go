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

package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grouper/grouper/private/config"
)

// NewSample creates the sample command. It prints the samples of the
// configuration blocks to stdout. The id is inserted wherever a sampler
// refers to config.ID.
func NewSample(pather Pather, id string, samplers ...config.Sampler) *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Display sample configuration file",
		Example: fmt.Sprintf("  %[1]s sample > grouper.toml\n"+
			"  %[1]s --config grouper.toml <max_memory_bytes> <policy_file>",
			pather.CommandPath()),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := config.CtxMap{config.ID: id}
			for _, sampler := range samplers {
				sampler.Sample(cmd.OutOrStdout(), nil, ctx)
			}
			return nil
		},
	}
}
