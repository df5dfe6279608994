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
	"os"
	"strings"
	"testing"
	"time"

	"github.com/c2FmZQ/storage"
)

func TestReportFinish(t *testing.T) {
	r := NewReport(ScenarioMatch, DefaultBaseURL)
	if r.ID == "" {
		t.Fatal("Report has no id")
	}
	r.Finish(nil)
	if r.Outcome != OutcomePassed || r.Error != "" {
		t.Errorf("Expected passed, got %s %q", r.Outcome, r.Error)
	}

	r = NewReport(ScenarioMatch, DefaultBaseURL)
	r.Finish(errors.New("boom"))
	if r.Outcome != OutcomeFailed || r.Error != "boom" {
		t.Errorf("Expected failed with boom, got %s %q", r.Outcome, r.Error)
	}

	r = NewReport(ScenarioDotGrid, DefaultBaseURL)
	r.Skip(ErrStoreUnavailable)
	r.Finish(nil)
	if r.Outcome != OutcomeSkipped {
		t.Errorf("Expected skip to survive Finish, got %s", r.Outcome)
	}
	if !strings.Contains(r.Summary(), "note: "+ErrStoreUnavailable.Error()) {
		t.Errorf("Summary does not mention the skip reason:\n%s", r.Summary())
	}
}

func TestReportSummary(t *testing.T) {
	r := NewReport(ScenarioDotGrid, "http://localhost:1234")
	r.Steps = []StepResult{
		{Session: "dot-grid", Name: "Navigate", Duration: 20 * time.Millisecond},
		{Session: "dot-grid", Name: "Dispatch", Error: "nope"},
	}
	r.Screenshots = []string{"verification/dot_grid_verification.png"}
	r.Finish(errors.New("nope"))

	s := r.Summary()
	for _, want := range []string{
		"dot-grid FAILED",
		"http://localhost:1234",
		"[dot-grid] Navigate (20ms) ok",
		"[dot-grid] Dispatch (0s) FAILED: nope",
		"screenshot: verification/dot_grid_verification.png",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Summary missing %q:\n%s", want, s)
		}
	}
}

func TestReportStore(t *testing.T) {
	dir := t.TempDir()
	rs := NewReportStore(dir, storage.New(dir, nil))

	if _, err := rs.Load("missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) = %v, want ErrNotExist", err)
	}
	for _, err := range rs.List() {
		t.Fatalf("List on empty store: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i, scenario := range []string{ScenarioDotGrid, ScenarioMatch, ScenarioDotGrid} {
		r := NewReport(scenario, DefaultBaseURL)
		r.Started = base.Add(time.Duration(i) * time.Minute)
		r.Steps = []StepResult{{Session: "s", Name: "step", Duration: time.Second}}
		r.Finish(nil)
		if err := rs.Save(r); err != nil {
			t.Fatalf("Save: %v", err)
		}
		ids = append(ids, r.ID)
	}

	got, err := rs.Load(ids[1])
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Scenario != ScenarioMatch || got.Outcome != OutcomePassed || len(got.Steps) != 1 {
		t.Errorf("Unexpected report: %+v", got)
	}

	var order []string
	for r, err := range rs.List() {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		order = append(order, r.ID)
	}
	want := []string{ids[2], ids[1], ids[0]}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("List order = %v, want %v", order, want)
	}

	if err := rs.Save(&Report{}); err == nil {
		t.Error("Save accepted a report without id")
	}
}
