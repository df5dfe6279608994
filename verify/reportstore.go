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

package verify

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/c2FmZQ/storage"
)

// ReportStore persists run reports.
type ReportStore struct {
	DataDir string
	storage *storage.Storage
	mu      sync.Mutex
}

// NewReportStore creates a new ReportStore.
func NewReportStore(dataDir string, s *storage.Storage) *ReportStore {
	return &ReportStore{
		DataDir: dataDir,
		storage: s,
	}
}

func reportFilename(id string) string {
	return filepath.Join("reports", fmt.Sprintf("%s.json", url.PathEscape(id)))
}

// Save writes the report.
func (rs *ReportStore) Save(r *Report) error {
	if r.ID == "" {
		return fmt.Errorf("report has no id")
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if err := rs.storage.SaveDataFile(reportFilename(r.ID), r); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

// Load reads one report. It returns os.ErrNotExist if there is none.
func (rs *ReportStore) Load(id string) (*Report, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	var r Report
	if err := rs.storage.ReadDataFile(reportFilename(id), &r); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	return &r, nil
}

// List yields all reports, most recent first.
func (rs *ReportStore) List() iter.Seq2[*Report, error] {
	return func(yield func(*Report, error) bool) {
		dir := filepath.Join(rs.DataDir, "reports")
		files, err := os.ReadDir(dir)
		if err != nil && !os.IsNotExist(err) {
			yield(nil, fmt.Errorf("could not read reports directory: %w", err))
			return
		}

		var reports []*Report
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
				continue
			}
			id, err := url.PathUnescape(strings.TrimSuffix(file.Name(), ".json"))
			if err != nil {
				continue
			}
			r, err := rs.Load(id)
			if err != nil {
				log.Printf("Warning: could not load report '%s': %v", id, err)
				continue
			}
			reports = append(reports, r)
		}
		slices.SortFunc(reports, func(a, b *Report) int {
			return b.Started.Compare(a.Started)
		})
		for _, r := range reports {
			if !yield(r, nil) {
				return
			}
		}
	}
}
