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
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/ttbt-io/bombcheck/stubhost"
	"github.com/ttbt-io/bombcheck/verify"
)

var (
	baseURL   = flag.String("base-url", verify.DefaultBaseURL, "URL the game client is served at")
	chromeURL = flag.String("chrome-url", "", "Remote debugging URL of a running Chrome. A local Chrome is launched when empty.")
	chromeBin = flag.String("chrome-path", "", "Chrome binary to launch when --chrome-url is not set")
	headful   = flag.Bool("headful", false, "Show the browser window")
	outputDir = flag.String("output-dir", verify.DefaultOutputDir, "Directory for screenshots")
	scenario  = flag.String("scenario", "all", "Check to run: dot-grid, match or all")
	timeout   = flag.Duration("timeout", 5*time.Minute, "Overall time limit for the run")
	serveStub = flag.Bool("serve-stub", false, "Serve the stand-in game host and check it instead of --base-url")
	stubAddr  = flag.String("stub-addr", "127.0.0.1:0", "The TCP address the stand-in host listens to")
	reportDir = flag.String("report-dir", "", "Directory to store run reports in. Reports are not kept when empty.")
	listOnly  = flag.Bool("list-reports", false, "List the reports kept in --report-dir, newest first, and exit")
	debugMode = flag.Bool("debug", false, "Enable debug mode")
)

// main runs the selected verification scenarios against the game.
func main() {
	flag.Parse()

	if *listOnly {
		if *reportDir == "" {
			log.Fatal("--list-reports requires --report-dir")
		}
		n, err := listReports(openReportStore(*reportDir), verify.StdLogger)
		if err != nil {
			log.Fatalf("Failed to list reports: %v", err)
		}
		log.Printf("%d report(s) in %s", n, *reportDir)
		return
	}

	scenarios, err := selectScenarios(*scenario)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	var reports *verify.ReportStore
	if *reportDir != "" {
		reports = openReportStore(*reportDir)
	}

	target := *baseURL
	if *serveStub {
		server, err := stubhost.StartServer(stubhost.Options{
			Addr:  *stubAddr,
			Debug: *debugMode,
		})
		if err != nil {
			log.Fatalf("Failed to start stand-in host: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				log.Printf("Shutdown error: %v", err)
			}
		}()
		target = server.URL()
	}

	browser, err := verify.NewBrowser(ctx, verify.BrowserOptions{
		ChromeURL: *chromeURL,
		ExecPath:  *chromeBin,
		Headful:   *headful,
		Debug:     *debugMode,
	})
	if err != nil {
		log.Fatalf("Failed to start browser: %v", err)
	}
	defer browser.Close()

	cfg := verify.Config{
		BaseURL:   target,
		OutputDir: *outputDir,
	}
	var failed []string
	for _, name := range scenarios {
		log.Printf("Running %s against %s...", name, target)
		var report *verify.Report
		switch name {
		case verify.ScenarioDotGrid:
			report, err = verify.RunDotGrid(browser, cfg)
		case verify.ScenarioMatch:
			report, err = verify.RunMatch(browser, verify.DefaultMatchConfig(cfg))
		}
		log.Print(report.Summary())
		if reports != nil {
			if err := reports.Save(report); err != nil {
				log.Printf("Failed to save report %s: %v", report.ID, err)
			}
		}
		if err != nil {
			log.Printf("%s failed: %v", name, err)
			failed = append(failed, name)
		}
		if ctx.Err() != nil {
			break
		}
	}

	if err := runResult(failed, ctx.Err()); err != nil {
		// Deferred cleanup does not run after log.Fatalf.
		browser.Close()
		log.Fatalf("Verification failed: %v", err)
	}
	log.Println("All checks passed.")
}

// runResult decides whether the run succeeded. An interrupted or timed out
// run never passes, even if no scenario reported a failure.
func runResult(failed []string, ctxErr error) error {
	switch {
	case ctxErr != nil && len(failed) > 0:
		return fmt.Errorf("%v, run aborted: %w", failed, ctxErr)
	case ctxErr != nil:
		return fmt.Errorf("run aborted: %w", ctxErr)
	case len(failed) > 0:
		return fmt.Errorf("%v", failed)
	}
	return nil
}

// listReports logs the summary of every stored report, newest first.
func listReports(rs *verify.ReportStore, l verify.Logger) (int, error) {
	n := 0
	for r, err := range rs.List() {
		if err != nil {
			return n, err
		}
		l.Logf("%s", r.Summary())
		n++
	}
	return n, nil
}

func selectScenarios(name string) ([]string, error) {
	switch name {
	case "all":
		return []string{verify.ScenarioDotGrid, verify.ScenarioMatch}, nil
	case verify.ScenarioDotGrid, verify.ScenarioMatch:
		return []string{name}, nil
	}
	return nil, fmt.Errorf("unknown scenario %q: want dot-grid, match or all", name)
}

// openReportStore opens the report store, encrypted when
// BOMBCHECK_MASTER_KEY is set.
func openReportStore(dir string) *verify.ReportStore {
	keyFile := filepath.Join(dir, "master.key")
	var masterKey crypto.MasterKey
	if passphrase := os.Getenv("BOMBCHECK_MASTER_KEY"); passphrase != "" {
		// Ensure data dir exists for key file
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create report directory: %v", err)
		}

		var err error
		masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Println("Initializing new master encryption key...")
			if masterKey, err = crypto.CreateMasterKey(); err != nil {
				log.Fatalf("Failed to create master key: %v", err)
			}
			if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
				log.Fatalf("Failed to save master key: %v", err)
			}
		case err != nil:
			log.Fatalf("Failed to read master key: %v", err)
		default:
			log.Println("Loaded master encryption key.")
		}
	} else if _, err := os.Stat(keyFile); err == nil {
		log.Fatalf("%s exists but BOMBCHECK_MASTER_KEY is not set. Refusing to write unencrypted reports next to encrypted ones.", keyFile)
	}

	store := storage.New(dir, masterKey)
	store.EnableCompression(true)
	return verify.NewReportStore(dir, store)
}
