// Copyright 2023 Anapaya Systems
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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/grouper/grouper/pkg/private/serrors"
)

// headers shifts the markdown headings generated by cobra up by one level
// so that every command page has a single top level title.
var headers = []struct {
	Search  *regexp.Regexp
	Replace string
}{
	{Search: regexp.MustCompile("\\)\\=\n\n## "), Replace: ")=\n\n# "},
	{Search: regexp.MustCompile("\n### "), Replace: "\n## "},
	{Search: regexp.MustCompile("\n#### "), Replace: "\n### "},
	{Search: regexp.MustCompile("\n##### "), Replace: "\n#### "},
}

// NewGendocs creates the hidden command that writes one markdown page per
// command of the tree into a directory.
func NewGendocs(pather Pather) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "gendocs <directory>",
		Short:   "Generate the command line reference",
		Example: fmt.Sprintf("  %s gendocs docs/cli", pather.CommandPath()),
		Args:    cobra.ExactArgs(1),
		Hidden:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Root().DisableAutoGenTag = true

			directory := args[0]
			if err := os.MkdirAll(directory, 0755); err != nil {
				return serrors.Wrap("creating directory", err, "dir", directory)
			}

			if err := genMarkdownTree(cmd.Root(), directory); err != nil {
				return serrors.Wrap("generating documentation", err, "dir", directory)
			}
			return nil
		},
	}
	return cmd
}

func genMarkdownTree(cmd *cobra.Command, dir string) error {
	var children []string
	for _, c := range cmd.Commands() {
		if !c.IsAvailableCommand() || c.IsAdditionalHelpTopicCommand() {
			continue
		}
		if err := genMarkdownTree(c, dir); err != nil {
			return err
		}
		children = append(children, strings.ReplaceAll(c.CommandPath(), " ", "_"))
	}

	var buf bytes.Buffer
	if _, err := buf.WriteString("---\norphan: true\n---\n\n"); err != nil {
		return err
	}
	fmt.Fprintf(&buf, "(cli-%s)=\n\n", strings.ReplaceAll(cmd.CommandPath(), " ", "-"))
	if err := doc.GenMarkdown(cmd, &buf); err != nil {
		return err
	}

	// Create index.
	if len(children) != 0 {
		if _, err := buf.WriteString("```{toctree}\n---\nhidden: true\n---\n"); err != nil {
			return err
		}
		if _, err := buf.WriteString(strings.Join(children, "\n")); err != nil {
			return err
		}
		if _, err := buf.WriteString("\n```\n"); err != nil {
			return err
		}
	}

	// Replace titles
	raw := buf.Bytes()
	for _, h := range headers {
		raw = h.Search.ReplaceAll(raw, []byte(h.Replace))
	}

	basename := strings.ReplaceAll(cmd.CommandPath(), " ", "_") + ".md"
	return os.WriteFile(filepath.Join(dir, basename), raw, 0666)
}
