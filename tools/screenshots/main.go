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
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/bombcheck/stubhost"
	"github.com/ttbt-io/bombcheck/verify"
)

var (
	chromeURL = flag.String("chrome-url", "", "The url of the remote debugging port. A local Chrome is launched when empty.")
	outputDir = flag.String("output-dir", "screenshots", "Directory to save screenshots")
	hostName  = flag.String("host-name", "localhost", "Host name the browser uses to reach the stand-in host")
)

// main captures every screen of the stand-in game client, for the docs and
// for eyeballing client changes.
func main() {
	flag.Parse()

	baseURL, shutdown := startServer()
	defer shutdown()
	log.Printf("Server started at %s", baseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)
	defer cancel()

	browser, err := verify.NewBrowser(ctx, verify.BrowserOptions{ChromeURL: *chromeURL})
	if err != nil {
		log.Fatalf("Failed to start browser: %v", err)
	}
	defer browser.Close()

	// Ensure output dir exists
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	log.Println("Starting screenshot generation...")
	report := verify.NewReport("screenshots", baseURL)
	rec := verify.NewRecorder(report, *outputDir, 60*time.Second, verify.StdLogger)
	err = captureScreens(browser, rec, baseURL)
	report.Finish(err)
	log.Print(report.Summary())
	if err != nil {
		browser.Close()
		shutdown()
		log.Fatalf("Failed to generate screenshots: %v", err)
	}
	log.Println("Screenshots generated successfully.")
}

func captureScreens(b *verify.Browser, rec *verify.Recorder, baseURL string) error {
	cfg := verify.Config{BaseURL: baseURL, Timings: verify.DefaultTimings()}
	t := cfg.Timings

	alice, err := b.NewSession("Alice")
	if err != nil {
		return err
	}
	defer alice.Close()
	bob, err := b.NewSession("Bob")
	if err != nil {
		return err
	}
	defer bob.Close()

	log.Println("Capturing: Nickname screen")
	if err := rec.Step(alice, "Open client",
		chromedp.Navigate(baseURL),
		verify.WaitPlaceholder(verify.NicknamePlaceholder, t.Expect),
	); err != nil {
		return err
	}
	if err := rec.Screenshot(alice, "nickname.png"); err != nil {
		return err
	}

	log.Println("Capturing: Lobby")
	if err := verify.JoinGame(rec, alice, cfg, "Alice", 1, 4); err != nil {
		return err
	}
	if err := rec.Screenshot(alice, "lobby.png"); err != nil {
		return err
	}

	log.Println("Capturing: Countdown")
	if err := verify.JoinGame(rec, bob, cfg, "Bob", 2, 4); err != nil {
		return err
	}
	if err := rec.Step(alice, "Wait for countdown", verify.WaitText("Game starts in:", t.Expect)); err != nil {
		return err
	}
	if err := rec.Screenshot(alice, "countdown.png"); err != nil {
		return err
	}

	log.Println("Capturing: Board")
	if err := rec.Step(alice, "Wait for board",
		verify.WaitVisible(verify.BoardSelector, t.BoardWait),
		verify.Focus(verify.AppSelector),
		verify.PressKey(verify.AppSelector, "ArrowDown"),
		verify.PressKey(verify.AppSelector, "Space"),
		verify.WaitVisible(".bomb", t.Expect),
	); err != nil {
		return err
	}
	if err := rec.Screenshot(alice, "game.png"); err != nil {
		return err
	}

	log.Println("Capturing: Game over")
	if err := rec.Step(bob, "Wait for game over", verify.WaitHeading(verify.GameOverHeading, t.Expect)); err != nil {
		return err
	}
	return rec.Screenshot(bob, "gameover.png")
}

// startServer serves the stand-in host with one life per player, so a single
// bomb ends the match.
func startServer() (string, func()) {
	l, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	server, err := stubhost.StartServer(stubhost.Options{
		Listener:      l,
		StartingLives: 1,
		LobbyWait:     500 * time.Millisecond,
		Countdown:     3,
		FuseTime:      time.Second,
		ExplosionTime: 500 * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	_, port, _ := net.SplitHostPort(l.Addr().String())
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(*hostName, port)), shutdown
}
