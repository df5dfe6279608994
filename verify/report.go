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
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcome is the result of one scenario run.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// StepResult records one named step of a scenario.
type StepResult struct {
	Session  string        `json:"session"`
	Name     string        `json:"name"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Report is the record of one scenario run.
type Report struct {
	ID          string       `json:"id"`
	Scenario    string       `json:"scenario"`
	BaseURL     string       `json:"baseUrl"`
	Started     time.Time    `json:"started"`
	Finished    time.Time    `json:"finished"`
	Outcome     Outcome      `json:"outcome"`
	Steps       []StepResult `json:"steps"`
	Screenshots []string     `json:"screenshots,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// NewReport starts a report for scenario against baseURL.
func NewReport(scenario, baseURL string) *Report {
	return &Report{
		ID:       uuid.NewString(),
		Scenario: scenario,
		BaseURL:  baseURL,
		Started:  time.Now(),
	}
}

// Finish stamps the report. A nil err means passed, unless the outcome was
// already set to skipped.
func (r *Report) Finish(err error) {
	r.Finished = time.Now()
	switch {
	case err != nil:
		r.Outcome = OutcomeFailed
		r.Error = err.Error()
	case r.Outcome == "":
		r.Outcome = OutcomePassed
	}
}

// Skip marks the report as skipped for the given reason.
func (r *Report) Skip(reason error) {
	r.Outcome = OutcomeSkipped
	r.Error = reason.Error()
	r.Finished = time.Now()
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return time.Since(r.Started)
	}
	return r.Finished.Sub(r.Started)
}

// Summary renders the report for the log.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s (%s) against %s in %s\n", r.Scenario, strings.ToUpper(string(r.Outcome)), r.ID, r.BaseURL, r.Duration().Round(time.Millisecond))
	for _, s := range r.Steps {
		status := "ok"
		if s.Error != "" {
			status = "FAILED: " + s.Error
		}
		fmt.Fprintf(&sb, "  [%s] %s (%s) %s\n", s.Session, s.Name, s.Duration.Round(time.Millisecond), status)
	}
	for _, f := range r.Screenshots {
		fmt.Fprintf(&sb, "  screenshot: %s\n", f)
	}
	if r.Error != "" && r.Outcome != OutcomeFailed {
		fmt.Fprintf(&sb, "  note: %s\n", r.Error)
	}
	return sb.String()
}
