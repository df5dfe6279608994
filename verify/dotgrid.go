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
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"
)

const (
	// ScenarioDotGrid names the state-injection check.
	ScenarioDotGrid = "dot-grid"
	// DotGridScreenshot is written under Config.OutputDir.
	DotGridScreenshot = "dot_grid_verification.png"
	// StartGameAction is the store action carrying the fixture.
	StartGameAction = "START_GAME"
)

// RunDotGrid loads the client, dispatches START_GAME with the fixed fixture
// through window.store and captures the rendered board.
//
// If window.store does not appear in time, the session is released and the
// report comes back skipped with a nil error.
func RunDotGrid(b *Browser, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	report := NewReport(ScenarioDotGrid, cfg.BaseURL)
	rec := NewRecorder(report, cfg.OutputDir, cfg.Timings.StepTimeout, cfg.Logger)

	err := runDotGrid(b, cfg, rec)
	if errors.Is(err, ErrStoreUnavailable) {
		cfg.Logger.Logf("Failed to find window.store: %v", err)
		report.Skip(err)
		return report, nil
	}
	report.Finish(err)
	return report, err
}

// storeWaitError marks a failed wait for window.store as ErrStoreUnavailable,
// unless the run itself was cancelled or ran out of time.
func storeWaitError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("waiting for window.store: %w", err)
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func runDotGrid(b *Browser, cfg Config, rec *Recorder) error {
	page, err := b.NewSession("dot-grid")
	if err != nil {
		return err
	}
	defer page.Close()

	if err := rec.Step(page, "Navigate", chromedp.Navigate(cfg.BaseURL)); err != nil {
		return err
	}
	if err := rec.Step(page, "Wait for window.store", WaitForGlobal("window.store && window.store.dispatch", cfg.Timings.StoreWait)); err != nil {
		return storeWaitError(page.Context(), err)
	}

	fixture := DotGridFixture()
	if err := fixture.Validate(); err != nil {
		return fmt.Errorf("invalid fixture: %w", err)
	}
	if err := rec.Step(page, "Dispatch START_GAME fixture",
		DispatchAction(StartGameAction, fixture),
		chromedp.Sleep(cfg.Timings.Settle),
	); err != nil {
		return err
	}
	return rec.Screenshot(page, DotGridScreenshot)
}
