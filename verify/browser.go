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
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// BrowserOptions selects and configures the browser to drive.
type BrowserOptions struct {
	// ChromeURL is the url of a remote debugging port. When empty, a local
	// Chrome is launched.
	ChromeURL string
	// ExecPath overrides the Chrome binary for local launches.
	ExecPath string
	// Headful shows the browser window for local launches.
	Headful bool
	// Debug logs every CDP message.
	Debug  bool
	Width  int
	Height int
	Logger Logger
}

// Browser owns one browser process (or remote connection). Sessions opened
// from it are isolated from each other.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      Logger

	mu       sync.Mutex
	sessions []*Session
	closed   bool
}

// NewBrowser allocates the browser and starts it.
func NewBrowser(ctx context.Context, opts BrowserOptions) (*Browser, error) {
	if opts.Logger == nil {
		opts.Logger = StdLogger
	}
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1280, 800
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.ChromeURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.ChromeURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.WindowSize(opts.Width, opts.Height),
		)
		if opts.Headful {
			execOpts = append(execOpts, chromedp.Flag("headless", false))
		}
		if opts.ExecPath != "" {
			execOpts = append(execOpts, chromedp.ExecPath(opts.ExecPath))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, execOpts...)
	}

	ctxOpts := []chromedp.ContextOption{
		chromedp.WithErrorf(log.Printf),
		chromedp.WithLogf(log.Printf),
	}
	if opts.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(log.Printf))
	}
	browserCtx, cancel := chromedp.NewContext(allocCtx, ctxOpts...)

	// The first Run starts the browser; sessions need it running.
	if err := chromedp.Run(browserCtx, chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height))); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return &Browser{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      opts.Logger,
	}, nil
}

// NewSession opens a tab in a fresh browser context, so cookies and storage
// are not shared with any other session.
func (b *Browser) NewSession(name string) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("browser is closed")
	}

	ctx, cancel := chromedp.NewContext(b.ctx, chromedp.WithNewBrowserContext())
	s := &Session{Name: name, ctx: ctx, cancel: cancel, logger: b.logger}
	chromedp.ListenTarget(ctx, s.onEvent)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open session %s: %w", name, err)
	}
	b.sessions = append(b.sessions, s)
	return s, nil
}

// Close releases every session, then the browser itself.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.sessions {
		s.Close()
	}
	if err := chromedp.Cancel(b.ctx); err != nil {
		log.Printf("Browser close: %v", err)
	}
	b.cancel()
	b.allocCancel()
}

// Session is one isolated browser tab, standing in for one player.
type Session struct {
	Name   string
	ctx    context.Context
	cancel context.CancelFunc
	logger Logger

	closeOnce sync.Once
}

// Context returns the chromedp context of the session's tab.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Run runs actions in the session's tab.
func (s *Session) Run(actions ...chromedp.Action) error {
	return chromedp.Run(s.ctx, actions...)
}

// Close disposes of the tab and its browser context.
func (s *Session) Close() {
	s.closeOnce.Do(s.cancel)
}

func (s *Session) onEvent(ev any) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		args := make([]string, 0, len(ev.Args))
		for _, arg := range ev.Args {
			args = append(args, remoteObjectText(arg))
		}
		s.logger.Logf("[%s] Browser Console: %s", s.Name, strings.Join(args, " "))
	case *runtime.EventExceptionThrown:
		text := ev.ExceptionDetails.Text
		if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != "" {
			text = ev.ExceptionDetails.Exception.Description
		}
		s.logger.Logf("[%s] JS EXCEPTION: %s", s.Name, text)
	}
}

func remoteObjectText(arg *runtime.RemoteObject) string {
	if arg == nil {
		return ""
	}
	if len(arg.Value) > 0 {
		var str string
		if err := json.Unmarshal([]byte(arg.Value), &str); err == nil {
			return str
		}
		return string(arg.Value)
	}
	return arg.Description
}
