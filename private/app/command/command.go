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

// Package command contains the subcommands shared by grouper applications.
package command

import "github.com/spf13/cobra"

// Pather returns the command path of a command. The subcommands use it to
// print usage examples that match the binary they are mounted in.
type Pather interface {
	CommandPath() string
}

// StringPather is a Pather that returns a fixed path.
type StringPather string

func (s StringPather) CommandPath() string {
	return string(s)
}

// AddAll creates the subcommands with the pather and adds them to parent.
func AddAll(parent *cobra.Command, pather Pather, cmds ...func(Pather) *cobra.Command) {
	for _, newCmd := range cmds {
		parent.AddCommand(newCmd(pather))
	}
}
