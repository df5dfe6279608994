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

package e2e

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/bombcheck/verify"
)

func TestDotGrid(t *testing.T) {
	b := newBrowser(t, 60*time.Second)
	baseURL := startStubHost(t)
	outDir := t.TempDir()

	report, err := verify.RunDotGrid(b, verify.Config{
		BaseURL:   baseURL,
		OutputDir: outDir,
		Timings:   testTimings(),
		Logger:    t,
	})
	if err != nil {
		t.Fatalf("RunDotGrid: %v", err)
	}
	if report.Outcome != verify.OutcomePassed {
		t.Fatalf("Expected passed, got %s:\n%s", report.Outcome, report.Summary())
	}
	assertScreenshot(t, filepath.Join(outDir, verify.DotGridScreenshot))
}

func TestDotGridRendersFixture(t *testing.T) {
	b := newBrowser(t, 60*time.Second)
	baseURL := startStubHost(t)

	s, err := b.NewSession("render")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	fixture := verify.DotGridFixture()
	var cells, walls, players int
	var lives string
	err = s.Run(
		chromedp.Navigate(baseURL),
		verify.WaitForGlobal("window.store && window.store.dispatch", 5*time.Second),
		verify.DispatchAction(verify.StartGameAction, fixture),
		verify.WaitVisible(verify.BoardSelector, 5*time.Second),
		chromedp.Evaluate(`document.querySelectorAll('.board .cell').length`, &cells),
		chromedp.Evaluate(`document.querySelectorAll('.board .cell.wall').length`, &walls),
		chromedp.Evaluate(`document.querySelectorAll('.board .player').length`, &players),
		verify.TextContent(".player-status.player-player1 .lives", &lives),
	)
	if err != nil {
		t.Fatalf("Failed to render fixture: %v", err)
	}

	if want := fixture.Width() * fixture.Height(); cells != want {
		t.Errorf("Expected %d cells, got %d", want, cells)
	}
	wantWalls := 0
	for _, row := range fixture.Map {
		for _, tile := range row {
			if tile == verify.TileWall {
				wantWalls++
			}
		}
	}
	if walls != wantWalls {
		t.Errorf("Expected %d walls, got %d", wantWalls, walls)
	}
	if players != 1 {
		t.Errorf("Expected 1 player, got %d", players)
	}
	if lives != verify.LivesText(3) {
		t.Errorf("Expected %q, got %q", verify.LivesText(3), lives)
	}
}

func TestDotGridWithoutStore(t *testing.T) {
	b := newBrowser(t, 30*time.Second)
	l, baseURL := listen(t)
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html><html><body><h1>Nothing to see</h1></body></html>`))
	})}
	go server.Serve(l)
	t.Cleanup(func() { server.Close() })

	timings := testTimings()
	timings.StoreWait = time.Second
	outDir := t.TempDir()
	report, err := verify.RunDotGrid(b, verify.Config{
		BaseURL:   baseURL,
		OutputDir: outDir,
		Timings:   timings,
		Logger:    t,
	})
	if err != nil {
		t.Fatalf("Expected the missing store to be reported, not returned: %v", err)
	}
	if report.Outcome != verify.OutcomeSkipped {
		t.Errorf("Expected skipped, got %s", report.Outcome)
	}
	if len(report.Screenshots) != 0 {
		t.Errorf("Expected no screenshot, got %v", report.Screenshots)
	}
}

func TestMatch(t *testing.T) {
	b := newBrowser(t, 3*time.Minute)
	baseURL := startStubHost(t)
	outDir := t.TempDir()

	m := verify.DefaultMatchConfig(verify.Config{
		BaseURL:   baseURL,
		OutputDir: outDir,
		Timings:   testTimings(),
		Logger:    t,
	})
	report, err := verify.RunMatch(b, m)
	if err != nil {
		t.Fatalf("RunMatch: %v\n%s", err, report.Summary())
	}
	if report.Outcome != verify.OutcomePassed {
		t.Fatalf("Expected passed, got %s", report.Outcome)
	}
	assertScreenshot(t, filepath.Join(outDir, verify.MatchScreenshot))

	sessions := map[string]bool{}
	for _, s := range report.Steps {
		sessions[s.Session] = true
	}
	if !sessions[m.Attacker] || !sessions[m.Target] {
		t.Errorf("Expected steps from both sessions, got %v", sessions)
	}
}

func TestMatchLivesMismatch(t *testing.T) {
	b := newBrowser(t, 3*time.Minute)
	baseURL := startStubHost(t)

	timings := testTimings()
	timings.Expect = 2 * time.Second
	m := verify.DefaultMatchConfig(verify.Config{
		BaseURL:   baseURL,
		OutputDir: t.TempDir(),
		Timings:   timings,
		Logger:    t,
	})
	// Watch the attacker's own counter, which never drops.
	m.TargetIndex = 1

	report, err := verify.RunMatch(b, m)
	if err == nil {
		t.Fatal("Expected the lives check to fail")
	}
	if report.Outcome != verify.OutcomeFailed {
		t.Errorf("Expected failed, got %s", report.Outcome)
	}
}
