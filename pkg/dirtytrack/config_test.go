// Copyright 2024 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dirtytrack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	config := NewConfig()
	assert.Equal(t, 0, config.Pid)
	assert.Equal(t, 100, config.IntervalMs)
	assert.Equal(t, 10, config.DurationS)
	assert.Equal(t, "unknown", config.Workload)
	assert.Equal(t, 4096, config.MaxRegions)
	assert.Equal(t, 10000, config.MaxSamples)
}

func TestSetConfigJson(t *testing.T) {
	config := NewConfig()
	require.NoError(t, config.SetConfigJson(`{"pid":42,"interval_ms":250}`))
	// Overridden fields change, the rest keep their defaults.
	assert.Equal(t, 42, config.Pid)
	assert.Equal(t, 250, config.IntervalMs)
	assert.Equal(t, 10, config.DurationS)
	assert.Equal(t, "unknown", config.Workload)

	require.Error(t, config.SetConfigJson(`{"pid":`))
}

func TestSetFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirtytrack.yaml")
	content := `
pid: 42
interval_ms: 50
duration_s: 0
workload_label: redis-bench
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config := NewConfig()
	require.NoError(t, config.SetFromFile(path))
	assert.Equal(t, 42, config.Pid)
	assert.Equal(t, 50, config.IntervalMs)
	assert.Equal(t, 0, config.DurationS)
	assert.Equal(t, "redis-bench", config.Workload)
	assert.Equal(t, 4096, config.MaxRegions)

	require.Error(t, config.SetFromFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestConfigValidate(t *testing.T) {
	tcases := []struct {
		name          string
		modify        func(*Config)
		expectedError string
	}{
		{
			name:   "defaults with a pid",
			modify: func(c *Config) { c.Pid = 42 },
		}, {
			name:          "missing pid",
			modify:        func(c *Config) {},
			expectedError: "pid",
		}, {
			name:          "negative pid",
			modify:        func(c *Config) { c.Pid = -1 },
			expectedError: "pid",
		}, {
			name:          "zero interval",
			modify:        func(c *Config) { c.Pid = 42; c.IntervalMs = 0 },
			expectedError: "interval_ms",
		}, {
			name:          "negative duration",
			modify:        func(c *Config) { c.Pid = 42; c.DurationS = -5 },
			expectedError: "duration_s",
		}, {
			name:   "zero duration runs until stopped",
			modify: func(c *Config) { c.Pid = 42; c.DurationS = 0 },
		}, {
			name:          "zero region ceiling",
			modify:        func(c *Config) { c.Pid = 42; c.MaxRegions = 0 },
			expectedError: "max_regions",
		}, {
			name:          "zero sample ceiling",
			modify:        func(c *Config) { c.Pid = 42; c.MaxSamples = 0 },
			expectedError: "max_samples",
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			config := NewConfig()
			tc.modify(config)
			err := config.Validate()
			if tc.expectedError == "" {
				assert.NoError(t, err)
			} else if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tc.expectedError)
			}
		})
	}
}
