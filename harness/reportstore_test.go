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
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
)

func TestReportStoreRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	rs := NewReportStore(dataDir, storage.New(dataDir, nil))

	if list, err := rs.ListReports(); err != nil || len(list) != 0 {
		t.Fatalf("Empty store: %v, %v", list, err)
	}

	base := time.Now()
	for i, id := range []string{"old", "new", "mid"} {
		offset := map[string]time.Duration{"old": 0, "mid": time.Minute, "new": 2 * time.Minute}[id]
		r := abortedReport()
		r.ID = id
		r.Scenario = "s" + string(rune('a'+i))
		r.Started = base.Add(offset)
		if err := rs.SaveReport(r); err != nil {
			t.Fatalf("SaveReport(%s): %v", id, err)
		}
	}

	list, err := rs.ListReports()
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	var ids []string
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	if len(ids) != 3 || ids[0] != "new" || ids[1] != "mid" || ids[2] != "old" {
		t.Errorf("ListReports order = %v, want [new mid old]", ids)
	}

	got, err := rs.LoadReport("mid")
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if got.Status != StatusAborted || got.Failure().Kind != KindElementNotFound || len(got.DebugArtifacts) != 2 {
		t.Errorf("Loaded report mismatch: %+v", got)
	}
	if _, err := rs.LoadReport("missing"); err == nil {
		t.Error("Expected error for missing report")
	}
	if err := rs.SaveReport(&Report{}); err == nil {
		t.Error("Expected error for report without id")
	}
}

func TestReportStoreEncrypted(t *testing.T) {
	dataDir := t.TempDir()
	mk, err := crypto.CreateAESMasterKeyForTest()
	if err != nil {
		t.Fatal(err)
	}
	rs := NewReportStore(dataDir, storage.New(dataDir, mk))

	r := abortedReport()
	if err := rs.SaveReport(r); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dataDir, reportFile(r.ID)))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte("home-tour")) {
		t.Error("Report stored in plaintext")
	}

	got, err := rs.LoadReport(r.ID)
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if got.Scenario != "home-tour" {
		t.Errorf("Scenario = %q", got.Scenario)
	}
}

func TestOpenReportStore(t *testing.T) {
	dir := t.TempDir()
	rs, err := OpenReportStore(dir, "correct horse")
	if err != nil {
		t.Fatalf("OpenReportStore: %v", err)
	}
	r := abortedReport()
	if err := rs.SaveReport(r); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "master.key")); err != nil {
		t.Fatalf("master.key not created: %v", err)
	}

	again, err := OpenReportStore(dir, "correct horse")
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if got, err := again.LoadReport(r.ID); err != nil || got.Scenario != r.Scenario {
		t.Errorf("LoadReport after reopen: %v, %v", got, err)
	}

	if _, err := OpenReportStore(dir, ""); err == nil {
		t.Error("Expected refusal to open an encrypted store without a passphrase")
	}
	if _, err := OpenReportStore(dir, "wrong"); err == nil {
		t.Error("Expected error for wrong passphrase")
	}
}

func TestOpenExistingReportStore(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-reports")
	if _, err := OpenExistingReportStore(missing, ""); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Missing dir: err = %v, want ErrNotExist", err)
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Errorf("Opening a missing dir created it (stat err: %v)", err)
	}

	plain := t.TempDir()
	if _, err := OpenExistingReportStore(plain, "correct horse"); err == nil {
		t.Error("Expected error for a passphrase on a store without master.key")
	}
	if _, err := os.Stat(filepath.Join(plain, "master.key")); !os.IsNotExist(err) {
		t.Errorf("Read-only open created master.key (stat err: %v)", err)
	}

	file := filepath.Join(t.TempDir(), "report.json")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenExistingReportStore(file, ""); err == nil {
		t.Error("Expected error for a regular file")
	}

	dir := t.TempDir()
	rs, err := OpenReportStore(dir, "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	r := abortedReport()
	if err := rs.SaveReport(r); err != nil {
		t.Fatal(err)
	}
	again, err := OpenExistingReportStore(dir, "correct horse")
	if err != nil {
		t.Fatalf("OpenExistingReportStore: %v", err)
	}
	if got, err := again.LoadReport(r.ID); err != nil || got.ID != r.ID {
		t.Errorf("LoadReport: %v, %v", got, err)
	}
}
