// Copyright 2019 Anapaya Systems
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

// Package envtest checks that the env samples decode into the values they
// document.
package envtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grouper/grouper/private/env"
)

func InitTestGeneral(cfg *env.General) {
	cfg.ID = "overwritten"
}

func CheckTestGeneral(t *testing.T, cfg *env.General, id string) {
	t.Helper()
	assert.Equal(t, id, cfg.ID)
}

func InitTestMetrics(cfg *env.Metrics) {
	cfg.Prometheus = "127.0.0.1:9999"
}

func CheckTestMetrics(t *testing.T, cfg *env.Metrics) {
	t.Helper()
	assert.Empty(t, cfg.Prometheus)
}

func InitTestFeatures(cfg *env.Features) {
	cfg.Enabled = []string{"verify"}
}

func CheckTestFeatures(t *testing.T, cfg *env.Features) {
	t.Helper()
	assert.Empty(t, cfg.Enabled)
}
