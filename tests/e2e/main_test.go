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

package e2e

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ttbt-io/uismoke/harness"
	"github.com/ttbt-io/uismoke/scenarios"
)

var (
	withChromeDP   = flag.String("with-chromedp", "", "The url of the remote debugging port")
	withPlaywright = flag.Bool("with-playwright", false, "Also run the scenarios through playwright")
	appHost        = flag.String("app-host", "localhost", "Host name the browser uses to reach the test server")
)

func TestMain(m *testing.M) {
	flag.Parse()
	exitCode := m.Run()
	os.Exit(exitCode)
}

func chromeRunner(t *testing.T) *harness.Runner {
	if *withChromeDP == "" {
		t.Skip("--with-chromedp not set")
	}
	return &harness.Runner{
		Launcher:    &harness.ChromeLauncher{RemoteURL: *withChromeDP, Logf: t.Logf},
		Headless:    true,
		StepTimeout: 10 * time.Second,
		SettleDelay: -1,
		DebugDir:    t.TempDir(),
		Logf:        t.Logf,
	}
}

// runScenario runs sc with its screenshots placed in a temp dir.
func runScenario(t *testing.T, r *harness.Runner, sc *harness.Scenario) *harness.Report {
	t.Helper()
	if err := sc.Validate(); err != nil {
		t.Fatalf("Invalid scenario: %v", err)
	}
	out := sc.WithOutputDir(t.TempDir())
	rep := r.Run(t.Context(), &out)
	t.Logf("\n%s", rep.Summary())
	return rep
}

func assertScreenshots(t *testing.T, rep *harness.Report, names ...string) {
	t.Helper()
	if len(rep.Artifacts) != len(names) {
		t.Fatalf("Got artifacts %v, want %v", rep.Artifacts, names)
	}
	for i, a := range rep.Artifacts {
		if filepath.Base(a) != names[i] {
			t.Errorf("Artifact %d is %s, want %s", i, a, names[i])
		}
		b, err := os.ReadFile(a)
		if err != nil {
			t.Fatalf("Reading %s: %v", a, err)
		}
		if len(b) < 8 || string(b[1:4]) != "PNG" {
			t.Errorf("%s is not a PNG", a)
		}
	}
}

func TestHomeTour(t *testing.T) {
	r := chromeRunner(t)
	baseURL := startLoaderApp(t)

	rep := runScenario(t, r, scenarios.HomeTour(baseURL))

	if rep.Status != harness.StatusCompleted {
		t.Fatalf("home-tour %s: %v", rep.Status, rep.Err())
	}
	assertScreenshots(t, rep, "home_page.png", "mods_page.png", "settings_page.png")
}

func TestBrowseModsWithMockBridge(t *testing.T) {
	r := chromeRunner(t)
	baseURL := startLoaderApp(t)

	rep := runScenario(t, r, scenarios.BrowseMods(baseURL))

	if rep.Status != harness.StatusCompleted {
		t.Fatalf("browse-mods %s: %v", rep.Status, rep.Err())
	}
	assertScreenshots(t, rep, "verification_mods.png")
}

func TestBrowseModsWithoutBridge(t *testing.T) {
	r := chromeRunner(t)
	r.StepTimeout = 3 * time.Second
	baseURL := startLoaderApp(t)

	sc := scenarios.BrowseMods(baseURL)
	sc.Bridge = nil
	rep := runScenario(t, r, sc)

	if rep.Status != harness.StatusAborted {
		t.Fatalf("Expected Aborted without the bridge, got %s", rep.Status)
	}
	f := rep.Failure()
	if f.Kind != harness.KindTimeout || f.Index != 3 {
		t.Errorf("Unexpected failure: %+v", f)
	}
	if len(rep.Artifacts) != 0 {
		t.Errorf("Expected no screenshots, got %v", rep.Artifacts)
	}
	if len(rep.DebugArtifacts) != 2 {
		t.Errorf("Expected debug screenshot and HTML, got %v", rep.DebugArtifacts)
	}
}

func TestClickMissingText(t *testing.T) {
	r := chromeRunner(t)
	r.StepTimeout = 2 * time.Second
	baseURL := startLoaderApp(t)

	sc := &harness.Scenario{
		Name:    "missing",
		BaseURL: baseURL,
		Steps: []harness.Step{
			harness.Goto("/"),
			harness.ClickText("Uninstall Everything"),
			harness.Screenshot("never.png"),
		},
	}
	rep := runScenario(t, r, sc)

	if f := rep.Failure(); f == nil || f.Kind != harness.KindElementNotFound {
		t.Fatalf("Expected ElementNotFoundError, got:\n%s", rep.Summary())
	}
}

func TestNavigationRefused(t *testing.T) {
	r := chromeRunner(t)
	baseURL := startLoaderApp(t)
	r.ReadyTimeout = 5 * time.Second

	sc := &harness.Scenario{
		Name:    "refused",
		BaseURL: baseURL,
		Steps:   []harness.Step{harness.Goto("http://127.0.0.1:1/")},
	}
	rep := runScenario(t, r, sc)

	if f := rep.Failure(); f == nil || f.Kind != harness.KindNavigation {
		t.Fatalf("Expected NavigationError, got:\n%s", rep.Summary())
	}
}

func TestPlaywrightHomeTour(t *testing.T) {
	if !*withPlaywright {
		t.Skip("--with-playwright not set")
	}
	r := &harness.Runner{
		Launcher:    &harness.PlaywrightLauncher{},
		Headless:    true,
		StepTimeout: 10 * time.Second,
		SettleDelay: -1,
		Logf:        t.Logf,
	}
	baseURL := startLoaderApp(t)

	for _, sc := range []*harness.Scenario{scenarios.HomeTour(baseURL), scenarios.BrowseMods(baseURL)} {
		rep := runScenario(t, r, sc)
		if rep.Status != harness.StatusCompleted {
			t.Errorf("%s %s: %v", sc.Name, rep.Status, rep.Err())
		}
	}
}
