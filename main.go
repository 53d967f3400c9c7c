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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ttbt-io/uismoke/harness"
	"github.com/ttbt-io/uismoke/scenarios"
)

var (
	scenarioFlag = flag.String("scenario", "home-tour", "Comma-separated built-in scenario names or scenario file paths (YAML/JSON)")
	baseURL      = flag.String("base-url", "", "Base URL of the application under test. Empty uses each scenario's own")
	driver       = flag.String("driver", "chromedp", "Browser driver: chromedp or playwright")
	chromeURL    = flag.String("chrome-url", "", "The url of the remote debugging port. Empty launches a local browser")
	chromePath   = flag.String("chrome-path", "", "Path to the Chrome binary for local launches")
	headless     = flag.Bool("headless", true, "Run the browser headless")
	outputDir    = flag.String("output-dir", "screenshots", "Directory to save screenshots")
	stepTimeout  = flag.Duration("step-timeout", harness.DefaultStepTimeout, "Timeout of each step")
	settle       = flag.Duration("settle", harness.DefaultSettleDelay, "Fixed wait before the first navigation. 0 disables it")
	waitReady    = flag.Duration("wait-ready", 0, "If set, poll the base URL for up to this long instead of the fixed settle wait")
	debugDir     = flag.String("debug-dir", "", "Directory for failure screenshots and HTML dumps")
	reportDir    = flag.String("report-dir", "", "Directory to persist reports in. Empty disables persistence")
	parallel     = flag.Int("parallel", 1, "Number of scenarios to run concurrently, each in its own browser")
	listFlag     = flag.Bool("list", false, "List built-in scenarios and exit")
	installPW    = flag.Bool("install-playwright", false, "Install the playwright driver and browsers before launching")
)

// main runs the selected scenarios and exits 0 only if all of them completed.
func main() {
	flag.Parse()

	if *listFlag {
		for _, n := range scenarios.Names() {
			u, _ := scenarios.DefaultURL(n)
			fmt.Printf("%-12s %s\n", n, u)
		}
		return
	}

	var scs []*harness.Scenario
	for _, name := range strings.Split(*scenarioFlag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		sc, err := resolveScenario(name)
		if err != nil {
			fatalUsage("Failed to load scenario %q: %v", name, err)
		}
		out := sc.WithOutputDir(*outputDir)
		scs = append(scs, &out)
	}
	if len(scs) == 0 {
		fatalUsage("--scenario must name at least one scenario")
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fatalUsage("Failed to create output dir: %v", err)
	}
	if *debugDir != "" {
		if err := os.MkdirAll(*debugDir, 0755); err != nil {
			fatalUsage("Failed to create debug dir: %v", err)
		}
	}

	var launcher harness.Launcher
	switch *driver {
	case "chromedp":
		launcher = &harness.ChromeLauncher{RemoteURL: *chromeURL, ExecPath: *chromePath, Logf: log.Printf}
	case "playwright":
		launcher = &harness.PlaywrightLauncher{Install: *installPW}
	default:
		fatalUsage("Unknown --driver %q", *driver)
	}

	settleDelay := *settle
	if settleDelay == 0 {
		settleDelay = -1
	}
	runner := &harness.Runner{
		Launcher:     launcher,
		Headless:     *headless,
		StepTimeout:  *stepTimeout,
		SettleDelay:  settleDelay,
		ReadyTimeout: *waitReady,
		DebugDir:     *debugDir,
		Logf:         log.Printf,
	}
	if *reportDir != "" {
		store, err := harness.OpenReportStore(*reportDir, os.Getenv("UISMOKE_MASTER_KEY"))
		if err != nil {
			fatalUsage("Failed to open report store: %v", err)
		}
		runner.Store = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	reports := harness.RunAll(ctx, runner, scs, *parallel)
	exitCode := 0
	for _, r := range reports {
		fmt.Print(r.Summary())
		if c := r.ExitCode(); c > exitCode {
			exitCode = c
		}
	}
	log.Printf("Ran %d scenario(s) in %s", len(reports), time.Since(start).Round(time.Millisecond))
	stop()
	os.Exit(exitCode)
}

// resolveScenario treats name as a file when it exists or has a scenario file
// extension, and as a built-in otherwise. --base-url, when given, overrides
// the scenario's base URL.
func resolveScenario(name string) (*harness.Scenario, error) {
	ext := strings.ToLower(filepath.Ext(name))
	_, statErr := os.Stat(name)
	if statErr == nil || ext == ".yaml" || ext == ".yml" || ext == ".json" {
		sc, err := harness.LoadScenario(name)
		if err != nil {
			return nil, err
		}
		if *baseURL != "" {
			sc.BaseURL = *baseURL
		}
		return sc, sc.Validate()
	}
	sc, err := scenarios.Get(name, *baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w (known: %s)", err, strings.Join(scenarios.Names(), ", "))
	}
	return sc, sc.Validate()
}

func fatalUsage(format string, args ...any) {
	log.Printf(format, args...)
	os.Exit(2)
}
