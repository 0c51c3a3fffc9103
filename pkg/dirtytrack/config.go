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
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Config selects the target process and the sampling parameters of one
// tracking run.
type Config struct {
	// Pid is the target process. Required, there is no default.
	Pid int `json:"pid"`
	// IntervalMs is the sampling period in milliseconds.
	IntervalMs int `json:"interval_ms"`
	// DurationS is the run length in seconds. 0 disables the
	// wall-clock stop condition: the run then ends on a stop
	// request or when MaxSamples is reached.
	DurationS int `json:"duration_s"`
	// Workload is a free-text tag echoed in the report.
	Workload string `json:"workload_label"`
	// MaxRegions bounds the number of memory map regions read per
	// sample. Mappings beyond the ceiling are not tracked.
	MaxRegions int `json:"max_regions"`
	// MaxSamples bounds the number of samples kept in memory; the
	// run stops when the ceiling is reached.
	MaxSamples int `json:"max_samples"`
}

const configDefaults string = `{"interval_ms":100,"duration_s":10,"workload_label":"unknown","max_regions":4096,"max_samples":10000}`

// NewConfig returns the built-in default configuration.
func NewConfig() *Config {
	config := &Config{}
	if err := json.Unmarshal([]byte(configDefaults), config); err != nil {
		panic("invalid built-in configuration defaults")
	}
	return config
}

// SetConfigJson overrides configuration fields present in the JSON
// string.
func (c *Config) SetConfigJson(configJson string) error {
	return json.Unmarshal([]byte(configJson), c)
}

// SetFromFile overrides configuration fields present in a YAML (or
// JSON) file.
func (c *Config) SetFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read configuration file %q", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "invalid configuration file %q", path)
	}
	return nil
}

// Validate checks that a run can be started with this configuration.
func (c *Config) Validate() error {
	if c.Pid <= 0 {
		return errors.New("missing or invalid pid")
	}
	if c.IntervalMs <= 0 {
		return errors.Errorf("invalid interval_ms %d, must be positive", c.IntervalMs)
	}
	if c.DurationS < 0 {
		return errors.Errorf("invalid duration_s %d, must not be negative", c.DurationS)
	}
	if c.MaxRegions <= 0 {
		return errors.Errorf("invalid max_regions %d, must be positive", c.MaxRegions)
	}
	if c.MaxSamples <= 0 {
		return errors.Errorf("invalid max_samples %d, must be positive", c.MaxSamples)
	}
	return nil
}
