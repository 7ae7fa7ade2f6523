// Copyright 2020 Anapaya Systems
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

// Package feature parses feature flags given by name.
//
// A feature set is a struct of booleans. Each boolean field is a feature named
// by its `feature` tag, or by the field name if there is no tag. Other fields
// are ignored.
package feature

import (
	"reflect"
	"sort"
	"strings"

	"github.com/grouper/grouper/pkg/private/serrors"
)

// Default is the feature set of the grouper binary.
type Default struct {
	// ForceMultiTable builds the sliced tables even if a single lookup table
	// fits into the memory budget.
	ForceMultiTable bool `feature:"force_multi_table"`
	// Verify checks every classification result against a linear scan of the
	// rules. The rule masks are kept in memory for the whole run.
	Verify bool `feature:"verify"`
}

// ParseDefault parses the names into the default feature set.
func ParseDefault(names []string) (Default, error) {
	var d Default
	if err := Parse(names, &d); err != nil {
		return Default{}, err
	}
	return d, nil
}

// Parse enables the named features in set, which must be a non-nil pointer
// to a struct. Names are trimmed and empty names are skipped.
func Parse(names []string, set any) error {
	val := reflect.ValueOf(set)
	switch {
	case !val.IsValid() || val.IsZero():
		return serrors.New("feature set must not be nil")
	case val.Kind() != reflect.Ptr:
		return serrors.New("feature set must be pointer")
	}
	fields := fieldIndex(set)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		i, ok := fields[name]
		if !ok {
			return serrors.New("feature not supported", "feature", name,
				"supported", String(set, ","))
		}
		val.Elem().Field(i).SetBool(true)
	}
	return nil
}

// Names returns the sorted feature names of the set.
func Names(set any) []string {
	fields := fieldIndex(set)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns the feature names joined by sep.
func String(set any, sep string) string {
	return strings.Join(Names(set), sep)
}

func fieldIndex(set any) map[string]int {
	val := reflect.ValueOf(set)
	if !val.IsValid() {
		return nil
	}
	typ := val.Type()
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	m := make(map[string]int, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.Type.Kind() != reflect.Bool {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("feature"); ok {
			name = strings.Split(tag, ",")[0]
		}
		m[name] = i
	}
	return m
}
