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
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/ttbt-io/bombcheck/stubhost"
	"github.com/ttbt-io/bombcheck/verify"
)

var (
	withChromeDP = flag.String("with-chromedp", "", "The url of the remote debugging port")
	hostName     = flag.String("host-name", "localhost", "Host name the browser uses to reach the test servers")
)

func TestMain(m *testing.M) {
	flag.Parse()
	exitCode := m.Run()
	os.Exit(exitCode)
}

// listen opens a listener on all interfaces and returns the URL the browser
// reaches it at.
func listen(t *testing.T) (net.Listener, string) {
	t.Helper()
	l, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	_, port, _ := net.SplitHostPort(l.Addr().String())
	return l, fmt.Sprintf("http://%s", net.JoinHostPort(*hostName, port))
}

// startStubHost serves the stand-in game with timings short enough for a
// test run.
func startStubHost(t *testing.T) string {
	t.Helper()
	l, baseURL := listen(t)
	server, err := stubhost.StartServer(stubhost.Options{
		Listener:      l,
		Debug:         true,
		LobbyWait:     500 * time.Millisecond,
		Countdown:     2,
		FuseTime:      300 * time.Millisecond,
		ExplosionTime: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Failed to start stand-in host: %v", err)
	}
	t.Cleanup(func() {
		sdCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(sdCtx)
	})

	_, port, _ := net.SplitHostPort(l.Addr().String())
	if err := waitForServer(fmt.Sprintf("http://localhost:%s/healthz", port), 5*time.Second); err != nil {
		t.Fatalf("Stand-in host failed to start: %v", err)
	}
	return baseURL
}

func waitForServer(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	for start := time.Now(); time.Since(start) < timeout; {
		resp, err := http.DefaultClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			log.Printf("Server at %s is ready!", url)
			return nil
		}
		log.Printf("waitForServer(%q): %v", url, err)
		if resp != nil {
			resp.Body.Close()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return fmt.Errorf("timeout waiting for server at %s", url)
}

func newBrowser(t *testing.T, timeout time.Duration) *verify.Browser {
	t.Helper()
	if *withChromeDP == "" {
		t.Skip("--with-chromedp not set")
	}
	ctx, cancel := context.WithTimeout(t.Context(), timeout)
	t.Cleanup(cancel)
	b, err := verify.NewBrowser(ctx, verify.BrowserOptions{
		ChromeURL: *withChromeDP,
		Logger:    t,
	})
	if err != nil {
		t.Fatalf("Failed to connect to browser: %v", err)
	}
	t.Cleanup(b.Close)
	return b
}

// testTimings keep the defaults but wait less for a game that is known to be
// up.
func testTimings() verify.Timings {
	t := verify.DefaultTimings()
	t.Settle = 500 * time.Millisecond
	t.Pause = 500 * time.Millisecond
	t.BoardWait = 15 * time.Second
	t.StepTimeout = 30 * time.Second
	return t
}

func assertScreenshot(t *testing.T, filename string) {
	t.Helper()
	info, err := os.Stat(filename)
	if err != nil {
		t.Fatalf("Screenshot missing: %v", err)
	}
	if info.Size() == 0 {
		t.Errorf("Screenshot %s is empty", filename)
	}
}
