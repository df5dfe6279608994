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
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/ttbt-io/bombcheck/verify"
)

func TestRunResult(t *testing.T) {
	if err := runResult(nil, nil); err != nil {
		t.Errorf("Expected success, got %v", err)
	}
	if err := runResult([]string{verify.ScenarioMatch}, nil); err == nil || !strings.Contains(err.Error(), verify.ScenarioMatch) {
		t.Errorf("Expected the failed scenario to be named, got %v", err)
	}
	for _, ctxErr := range []error{context.Canceled, context.DeadlineExceeded} {
		if err := runResult(nil, ctxErr); !errors.Is(err, ctxErr) {
			t.Errorf("Expected %v to fail the run, got %v", ctxErr, err)
		}
	}
}

type logBuffer struct {
	lines []string
}

func (l *logBuffer) Logf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestListReports(t *testing.T) {
	dir := t.TempDir()
	rs := verify.NewReportStore(dir, storage.New(dir, nil))

	var logs logBuffer
	if n, err := listReports(rs, &logs); err != nil || n != 0 {
		t.Fatalf("listReports on empty store = %d, %v", n, err)
	}

	older := verify.NewReport(verify.ScenarioDotGrid, verify.DefaultBaseURL)
	older.Started = time.Now().Add(-time.Hour)
	older.Finish(nil)
	newer := verify.NewReport(verify.ScenarioMatch, verify.DefaultBaseURL)
	newer.Finish(errors.New("boom"))
	for _, r := range []*verify.Report{older, newer} {
		if err := rs.Save(r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	n, err := listReports(rs, &logs)
	if err != nil {
		t.Fatalf("listReports: %v", err)
	}
	if n != 2 || len(logs.lines) != 2 {
		t.Fatalf("Expected 2 reports logged, got %d (%d lines)", n, len(logs.lines))
	}
	if !strings.Contains(logs.lines[0], newer.ID) || !strings.Contains(logs.lines[1], older.ID) {
		t.Errorf("Expected newest first, got:\n%s", strings.Join(logs.lines, "\n"))
	}
}
