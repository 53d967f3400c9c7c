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

// Package scenarios contains the built-in smoke scenarios for the mod loader
// desktop UI.
package scenarios

import (
	"fmt"
	"slices"

	"github.com/ttbt-io/uismoke/harness"
)

const (
	// DefaultBaseURL is where the dev server serves the UI.
	DefaultBaseURL = "http://localhost:3000"
	// ViteBaseURL is the renderer-only dev server used with the mocked bridge.
	ViteBaseURL = "http://localhost:5173"
)

// BridgeVersion identifies the shape of MockModBridge.
const BridgeVersion = "mods/v1"

// HomeTour visits the dashboard, the mods page and the settings page and
// screenshots each.
func HomeTour(baseURL string) *harness.Scenario {
	return &harness.Scenario{
		Name:    "home-tour",
		BaseURL: baseURL,
		Steps: []harness.Step{
			harness.Goto("/"),
			harness.WaitForText("Welcome to Kamisama Loader"),
			harness.Screenshot("home_page.png"),
			harness.ClickText("Mods"),
			harness.WaitForText("Installed Mods"),
			harness.Screenshot("mods_page.png"),
			harness.ClickText("Settings"),
			harness.WaitForText("Game Directory"),
			harness.Screenshot("settings_page.png"),
		},
	}
}

// BrowseMods opens the online browser with the bridge mocked so the listing
// is fixed.
func BrowseMods(baseURL string) *harness.Scenario {
	return &harness.Scenario{
		Name:    "browse-mods",
		BaseURL: baseURL,
		Bridge:  MockModBridge(),
		Steps: []harness.Step{
			harness.Goto("/"),
			harness.ClickText("My Mods"),
			harness.ClickText("Browse Online"),
			harness.WaitForText("Goku Super Saiyan 5"),
			harness.WaitForText("Vegeta Ultra Ego"),
			harness.Screenshot("verification_mods.png"),
		},
	}
}

// fixedDateAdded keeps the mocked listing deterministic.
const fixedDateAdded = 1735689600000

func mockMod(id, name, author, version, description string, gbID, views, likes, downloads int) map[string]any {
	return map[string]any{
		"id":            id,
		"name":          name,
		"author":        author,
		"version":       version,
		"description":   description,
		"isEnabled":     false,
		"iconUrl":       "https://via.placeholder.com/220",
		"gameBananaId":  gbID,
		"latestVersion": version,
		"viewCount":     views,
		"likeCount":     likes,
		"downloadCount": downloads,
		"dateAdded":     fixedDateAdded,
		"images":        []any{},
		"category":      "Characters",
		"isNsfw":        false,
	}
}

// MockModBridge is the electronAPI stand-in used by BrowseMods.
func MockModBridge() *harness.BridgeConfig {
	return &harness.BridgeConfig{
		Global:  harness.DefaultBridgeGlobal,
		Version: BridgeVersion,
		Methods: map[string]harness.MockMethod{
			"getInstalledMods": {Returns: []any{}},
			"fetchCategories": {Returns: []any{
				map[string]any{"id": 1, "name": "Characters", "count": 10},
			}},
			"searchBySection": {Returns: []any{
				mockMod("1", "Goku Super Saiyan 5", "ModderX", "1.0", "The ultimate transformation", 1001, 1000, 500, 200),
				mockMod("2", "Vegeta Ultra Ego", "PrinceV", "2.0", "Destruction power", 1002, 800, 400, 150),
			}},
			"onDownloadScanFinished": {Noop: true},
		},
	}
}

type builtin struct {
	build   func(baseURL string) *harness.Scenario
	baseURL string
}

// BrowseMods mocks the bridge, so it targets the renderer-only server.
var builtins = map[string]builtin{
	"home-tour":   {HomeTour, DefaultBaseURL},
	"browse-mods": {BrowseMods, ViteBaseURL},
}

// Names lists the built-in scenarios.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// DefaultURL returns the base URL the named built-in targets when none is
// given.
func DefaultURL(name string) (string, bool) {
	b, ok := builtins[name]
	return b.baseURL, ok
}

// Get returns the named built-in scenario targeting baseURL, or its own
// default base URL when baseURL is empty.
func Get(name, baseURL string) (*harness.Scenario, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
	if baseURL == "" {
		baseURL = b.baseURL
	}
	return b.build(baseURL), nil
}
