// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package harness

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a named, ordered sequence of steps run against BaseURL.
type Scenario struct {
	Name    string
	BaseURL string
	Steps   []Step
	// Bridge, when set, is installed before the first navigation.
	Bridge *BridgeConfig
}

// Validate reports whether the scenario can be run.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return errors.New("scenario has no name")
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	u, err := url.Parse(sc.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("scenario %q: invalid base url %q", sc.Name, sc.BaseURL)
	}
	for i, s := range sc.Steps {
		if _, err := NewStep(s.Kind(), s.Arg()); err != nil {
			return fmt.Errorf("scenario %q step %d: %w", sc.Name, i, err)
		}
	}
	if sc.Bridge != nil {
		if err := sc.Bridge.Validate(); err != nil {
			return fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
	}
	return nil
}

// WithOutputDir returns a copy whose relative screenshot paths are placed
// under dir.
func (sc Scenario) WithOutputDir(dir string) Scenario {
	steps := make([]Step, len(sc.Steps))
	for i, s := range sc.Steps {
		if s.kind == StepScreenshot && !filepath.IsAbs(s.arg) && dir != "" {
			s = Screenshot(filepath.Join(dir, s.arg))
		}
		steps[i] = s
	}
	sc.Steps = steps
	return sc
}

// scenarioFile is the on-disk form. Each step is a single-key mapping, e.g.
// "- click: Mods".
type scenarioFile struct {
	Name    string              `yaml:"name"`
	BaseURL string              `yaml:"baseURL"`
	Bridge  *BridgeConfig       `yaml:"bridge,omitempty"`
	Steps   []map[string]string `yaml:"steps"`
}

// ParseScenario decodes a YAML (or JSON) scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
	}
	sc := &Scenario{Name: f.Name, BaseURL: f.BaseURL, Bridge: f.Bridge}
	for i, m := range f.Steps {
		if len(m) != 1 {
			return nil, fmt.Errorf("step %d: want exactly one action, got %d", i, len(m))
		}
		for k, v := range m {
			s, err := NewStep(StepKind(k), v)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			sc.Steps = append(sc.Steps, s)
		}
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// LoadBridgeConfig reads a standalone bridge config (YAML or JSON).
func LoadBridgeConfig(path string) (*BridgeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg BridgeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: yaml.Unmarshal: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}
