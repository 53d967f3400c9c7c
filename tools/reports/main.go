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

// Command reports inspects the reports persisted by uismoke --report-dir.
//
//	reports --report-dir out/reports 'status:Aborted started:>=2026-10-01'
//	reports --report-dir out/reports --show <id> [<id>...]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ttbt-io/uismoke/harness"
)

var (
	reportDir = flag.String("report-dir", "reports", "Directory the reports were saved in")
	show      = flag.Bool("show", false, "Print the full reports named by the arguments instead of listing")
	asJSON    = flag.Bool("json", false, "Print reports as JSON instead of summaries")
)

func main() {
	flag.Parse()
	store, err := harness.OpenExistingReportStore(*reportDir, os.Getenv("UISMOKE_MASTER_KEY"))
	if err != nil {
		log.Fatalf("Failed to open report store: %v", err)
	}

	if *show {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		for _, id := range flag.Args() {
			r, err := store.LoadReport(id)
			if err != nil {
				log.Printf("%s: %v", id, err)
				continue
			}
			if !*asJSON {
				fmt.Print(r.Summary())
				continue
			}
			if err := enc.Encode(r); err != nil {
				log.Printf("JSON: %s: %v", id, err)
			}
		}
		return
	}

	q := harness.ParseReportQuery(strings.Join(flag.Args(), " "))
	list, err := store.FindReports(q)
	if err != nil {
		log.Fatalf("Failed to list reports: %v", err)
	}
	for _, m := range list {
		started := time.Unix(0, m.Started).Format(time.DateTime)
		fmt.Printf("%s  %s  %-9s  %s\n", m.ID, started, m.Status, m.Scenario)
	}
}
