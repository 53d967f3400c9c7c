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
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
)

// ReportMetadata is the small sidecar saved next to each report so listings
// don't have to decode every outcome.
type ReportMetadata struct {
	ID       string `json:"id"`
	Scenario string `json:"scenario"`
	Status   Status `json:"status"`
	Started  int64  `json:"started"`
}

// ReportStore persists reports through c2FmZQ/storage, encrypted when the
// storage was created with a master key.
type ReportStore struct {
	DataDir string
	storage *storage.Storage
	mu      sync.Mutex
}

// NewReportStore creates a ReportStore rooted at dataDir.
func NewReportStore(dataDir string, s *storage.Storage) *ReportStore {
	return &ReportStore{DataDir: dataDir, storage: s}
}

func reportFile(id string) string {
	return filepath.Join("reports", fmt.Sprintf("%s.json", url.PathEscape(id)))
}

func reportMetaFile(id string) string {
	return filepath.Join("reports", fmt.Sprintf("%s.meta.json", url.PathEscape(id)))
}

// OpenReportStore opens the store in dataDir. A non-empty passphrase unlocks
// (or creates) dataDir/master.key and encrypts the reports. Without one, the
// store refuses to open a directory that already holds a master key.
func OpenReportStore(dataDir, passphrase string) (*ReportStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	var masterKey crypto.MasterKey
	keyFile := filepath.Join(dataDir, "master.key")
	if passphrase != "" {
		var err error
		masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile)
		if os.IsNotExist(err) {
			log.Println("Initializing new master encryption key...")
			if masterKey, err = crypto.CreateMasterKey(); err != nil {
				return nil, fmt.Errorf("creating master key: %w", err)
			}
			if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
				return nil, fmt.Errorf("saving master key: %w", err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("reading master key: %w", err)
		}
	} else if _, err := os.Stat(keyFile); err == nil {
		return nil, fmt.Errorf("%s exists but no passphrase was given; refusing to mix unencrypted reports with encrypted ones", keyFile)
	}
	return NewReportStore(dataDir, storage.New(dataDir, masterKey)), nil
}

// OpenExistingReportStore opens a store that uismoke has already written to.
// It never creates dataDir or a master key.
func OpenExistingReportStore(dataDir, passphrase string) (*ReportStore, error) {
	fi, err := os.Stat(dataDir)
	if err != nil {
		return nil, fmt.Errorf("report dir: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("report dir %s is not a directory", dataDir)
	}
	if passphrase != "" {
		if _, err := os.Stat(filepath.Join(dataDir, "master.key")); err != nil {
			return nil, fmt.Errorf("passphrase given but %s holds no master key: %w", dataDir, err)
		}
	}
	return OpenReportStore(dataDir, passphrase)
}

// SaveReport writes the report and its metadata sidecar.
func (rs *ReportStore) SaveReport(r *Report) error {
	if r.ID == "" {
		return fmt.Errorf("report has no id")
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(rs.DataDir, "reports"), 0755); err != nil {
		return err
	}
	if err := rs.storage.SaveDataFile(reportFile(r.ID), r); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	meta := ReportMetadata{
		ID:       r.ID,
		Scenario: r.Scenario,
		Status:   r.Status,
		Started:  r.Started.UnixNano(),
	}
	if err := rs.storage.SaveDataFile(reportMetaFile(r.ID), &meta); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

// LoadReport reads the report with the given id.
func (rs *ReportStore) LoadReport(id string) (*Report, error) {
	var r Report
	if err := rs.storage.ReadDataFile(reportFile(id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReports returns the metadata of all stored reports, newest first.
func (rs *ReportStore) ListReports() ([]ReportMetadata, error) {
	entries, err := os.ReadDir(filepath.Join(rs.DataDir, "reports"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []ReportMetadata
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".meta.json") {
			continue
		}
		var m ReportMetadata
		if err := rs.storage.ReadDataFile(filepath.Join("reports", name), &m); err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b ReportMetadata) int {
		switch {
		case a.Started > b.Started:
			return -1
		case a.Started < b.Started:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}
