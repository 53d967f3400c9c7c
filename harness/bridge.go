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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultBridgeGlobal is the global the application under test reads its host bridge from.
const DefaultBridgeGlobal = "electronAPI"

// callLogName is the page global holding recorded bridge invocations.
const callLogName = "__uismokeBridgeCalls"

var identRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// MockMethod is the fixed behavior of one bridge method. Exactly one of
// Returns, Source and Noop must be set.
type MockMethod struct {
	// Returns is resolved, as a fresh copy, on every call.
	Returns any `json:"returns,omitempty" yaml:"returns,omitempty"`
	// Source is a deterministic JavaScript function expression, e.g.
	// "async (opts) => opts.page > 1 ? [] : [1]".
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	// Noop methods return undefined synchronously. Useful for event hooks.
	Noop bool `json:"noop,omitempty" yaml:"noop,omitempty"`
}

// JSONNull makes a mocked method resolve to null. A nil Returns means the
// method has no return value configured.
var JSONNull = json.RawMessage("null")

// UnmarshalYAML maps an explicit "returns: null" to JSONNull.
func (m *MockMethod) UnmarshalYAML(n *yaml.Node) error {
	type plain MockMethod
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*m = MockMethod(p)
	if n.Kind != yaml.MappingNode || m.Returns != nil {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "returns" {
			m.Returns = JSONNull
		}
	}
	return nil
}

// BridgeConfig describes the mocked host bridge installed into the page.
type BridgeConfig struct {
	Global  string                `json:"global,omitempty" yaml:"global,omitempty"`
	Version string                `json:"version,omitempty" yaml:"version,omitempty"`
	Methods map[string]MockMethod `json:"methods" yaml:"methods"`
}

func (c *BridgeConfig) global() string {
	if c.Global == "" {
		return DefaultBridgeGlobal
	}
	return c.Global
}

// Validate checks the shape of the config without touching a browser.
func (c *BridgeConfig) Validate() error {
	if c == nil {
		return errors.New("nil bridge config")
	}
	if !identRE.MatchString(c.global()) {
		return fmt.Errorf("invalid bridge global %q", c.global())
	}
	if len(c.Methods) == 0 {
		return errors.New("bridge config has no methods")
	}
	for name, m := range c.Methods {
		if !identRE.MatchString(name) {
			return fmt.Errorf("invalid bridge method name %q", name)
		}
		n := 0
		if m.Returns != nil {
			n++
		}
		if strings.TrimSpace(m.Source) != "" {
			n++
		}
		if m.Noop {
			n++
		}
		if n != 1 {
			return fmt.Errorf("bridge method %q must set exactly one of returns, source, noop", name)
		}
	}
	return nil
}

// Script renders the JavaScript that defines the frozen bridge global.
func (c *BridgeConfig) Script() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	names := make([]string, 0, len(c.Methods))
	for name := range c.Methods {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString("(() => {\n")
	fmt.Fprintf(&b, "  if (Object.prototype.hasOwnProperty.call(window, %q)) return;\n", c.global())
	b.WriteString("  const calls = [];\n")
	fmt.Fprintf(&b, "  Object.defineProperty(window, %q, { value: calls, writable: false, configurable: false });\n", callLogName)
	b.WriteString("  const record = (method, args) => {\n")
	b.WriteString("    let copy;\n")
	b.WriteString("    try { copy = JSON.parse(JSON.stringify(Array.prototype.slice.call(args))); } catch (e) { copy = []; }\n")
	b.WriteString("    calls.push({ method: method, args: copy });\n")
	b.WriteString("  };\n")
	b.WriteString("  const api = {};\n")
	for i, name := range names {
		m := c.Methods[name]
		key, _ := json.Marshal(name)
		switch {
		case m.Noop:
			fmt.Fprintf(&b, "  api[%s] = function() { record(%s, arguments); return undefined; };\n", key, key)
		case m.Returns != nil:
			raw, err := json.Marshal(m.Returns)
			if err != nil {
				return "", fmt.Errorf("encoding return value of %q: %w", name, err)
			}
			lit, _ := json.Marshal(string(raw))
			fmt.Fprintf(&b, "  api[%s] = function() { record(%s, arguments); return Promise.resolve(JSON.parse(%s)); };\n", key, key, lit)
		default:
			fmt.Fprintf(&b, "  const impl%d = (%s);\n", i, strings.TrimSpace(m.Source))
			fmt.Fprintf(&b, "  api[%s] = function() { record(%s, arguments); return impl%d.apply(undefined, arguments); };\n", key, key, i)
		}
	}
	if c.Version != "" {
		v, _ := json.Marshal(c.Version)
		fmt.Fprintf(&b, "  Object.defineProperty(api, \"__mockVersion\", { value: %s, enumerable: false });\n", v)
	}
	b.WriteString("  Object.freeze(api);\n")
	fmt.Fprintf(&b, "  Object.defineProperty(window, %q, { value: api, writable: false, configurable: false, enumerable: true });\n", c.global())
	b.WriteString("})();\n")
	return b.String(), nil
}

// InstallBridge registers cfg's bridge so that it exists before any script of
// any document the session loads. It must be called before the first
// navigation, at most once per session.
func InstallBridge(ctx context.Context, s *Session, cfg *BridgeConfig) error {
	const step = "install-bridge"
	script, err := cfg.Script()
	if err != nil {
		return newStepError(KindInjection, step, err)
	}
	if err := s.markBridge(); err != nil {
		return newStepError(KindInjection, step, err)
	}
	if err := s.do(ctx, func(ctx context.Context, p Page) error {
		return p.AddInitScript(ctx, script)
	}); err != nil {
		return newStepError(KindInjection, step, err)
	}
	return nil
}
