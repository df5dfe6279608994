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
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/chromedp/chromedp"
)

// Recorder runs named steps against sessions and records them in a Report.
// A failed step leaves a debug screenshot behind.
type Recorder struct {
	Report      *Report
	OutputDir   string
	StepTimeout time.Duration
	Logger      Logger
}

// NewRecorder creates a Recorder filling r.
func NewRecorder(r *Report, outputDir string, stepTimeout time.Duration, l Logger) *Recorder {
	if l == nil {
		l = StdLogger
	}
	return &Recorder{Report: r, OutputDir: outputDir, StepTimeout: stepTimeout, Logger: l}
}

// Step runs actions in s as one named step.
func (rec *Recorder) Step(s *Session, name string, actions ...chromedp.Action) error {
	rec.Logger.Logf("STEP [%s]: %s", s.Name, name)
	start := time.Now()
	err := rec.runAction(s, name, chromedp.Tasks(actions))
	result := StepResult{
		Session:  s.Name,
		Name:     name,
		Started:  start,
		Duration: time.Since(start),
	}
	if err != nil {
		result.Error = err.Error()
	}
	rec.Report.Steps = append(rec.Report.Steps, result)
	if err != nil {
		rec.debugFailure(s, name)
		return fmt.Errorf("step %q [%s]: %w", name, s.Name, err)
	}
	return nil
}

// Screenshot captures s to name under the output directory and records it.
func (rec *Recorder) Screenshot(s *Session, name string) error {
	filename := filepath.Join(rec.OutputDir, name)
	return rec.Step(s, "Screenshot "+name, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := CaptureScreenshot(ctx, filename); err != nil {
			return err
		}
		rec.Report.Screenshots = append(rec.Report.Screenshots, filename)
		return nil
	}))
}

// runAction executes a chromedp action with a timeout.
func (rec *Recorder) runAction(s *Session, name string, action chromedp.Action) error {
	if rec.StepTimeout <= 0 {
		return s.Run(action)
	}
	return s.Run(chromedp.ActionFunc(func(ctx context.Context) error {
		stepCtx, cancel := context.WithTimeout(ctx, rec.StepTimeout)
		defer cancel()
		if err := action.Do(stepCtx); err != nil {
			if stepCtx.Err() != nil && ctx.Err() == nil {
				return fmt.Errorf("step timed out after %s: %w", rec.StepTimeout, err)
			}
			return err
		}
		return nil
	}))
}

func (rec *Recorder) debugFailure(s *Session, name string) {
	rec.Logger.Logf("DEBUG: capturing failure info for %s", name)
	ctx, cancel := context.WithTimeout(s.Context(), 5*time.Second)
	defer cancel()

	var htmlContent string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &htmlContent, chromedp.ByQuery)); err != nil {
		rec.Logger.Logf("DEBUG: Failed to capture HTML: %v", err)
	} else {
		rec.Logger.Logf("DEBUG: HTML Dump for %s (%d bytes):\n%s", name, len(htmlContent), htmlContent)
	}

	filename := filepath.Join(rec.OutputDir, fmt.Sprintf("debug-%s-%s.png", slug(s.Name), slug(name)))
	if err := CaptureScreenshot(ctx, filename); err != nil {
		rec.Logger.Logf("DEBUG: Failed to capture screenshot: %v", err)
	}
}

// slug turns a step name into a file name fragment.
func slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
