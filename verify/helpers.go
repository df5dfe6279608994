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
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// Logger interface allows passing *testing.T or log.Printf
type Logger interface {
	Logf(format string, args ...any)
}

type stdLogger struct{}

func (stdLogger) Logf(format string, args ...any) {
	log.Printf(format, args...)
}

// StdLogger writes to the standard logger.
var StdLogger Logger = stdLogger{}

const pollInterval = 100 * time.Millisecond

// domHelpers defines the helpers shared by every polling expression. It is
// prepended to each expression so the expressions stay self-contained.
const domHelpers = `
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
	const visible = (el) => {
		if (!el || el.getClientRects().length === 0) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
	};
`

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// xpathLiteral quotes s for use inside an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// placeholderSelector matches an input by its placeholder text.
func placeholderSelector(placeholder string) string {
	return fmt.Sprintf(`input[placeholder=%s]`, jsString(placeholder))
}

// buttonXPath matches a button by its visible label.
func buttonXPath(label string) string {
	lit := xpathLiteral(label)
	return fmt.Sprintf(`//button[normalize-space(.)=%s] | //*[@role="button"][normalize-space(.)=%s]`, lit, lit)
}

// withTimeout bounds a single action.
func withTimeout(d time.Duration, a chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return a.Do(ctx)
	})
}

// poll waits until expr evaluates truthy, or fails with what.
func poll(what, expr string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		err := chromedp.Poll(expr, nil,
			chromedp.WithPollingInterval(pollInterval),
			chromedp.WithPollingTimeout(timeout),
		).Do(ctx)
		if err != nil {
			return fmt.Errorf("timeout after %s waiting for %s: %w", timeout, what, err)
		}
		return nil
	})
}

// CaptureScreenshot captures a screenshot and saves it to the specified filename.
func CaptureScreenshot(ctx context.Context, filename string) error {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for screenshot: %w", err)
	}

	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot to file: %w", err)
	}
	log.Printf("Saved screenshot to %s", filename)
	return nil
}

// WaitVisible waits for an element matching the CSS selector to be visible.
func WaitVisible(sel string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := withTimeout(timeout, chromedp.WaitVisible(sel, chromedp.ByQuery)).Do(ctx); err != nil {
			return fmt.Errorf("timeout after %s waiting for %s to be visible: %w", timeout, sel, err)
		}
		return nil
	})
}

// WaitForGlobal waits for a JavaScript expression, typically a global, to
// become truthy.
func WaitForGlobal(expr string, timeout time.Duration) chromedp.Action {
	return poll(expr, fmt.Sprintf(`(() => { try { return !!(%s); } catch (e) { return false; } })()`, expr), timeout)
}

// WaitText waits for a visible element whose own text contains text.
func WaitText(text string, timeout time.Duration) chromedp.Action {
	return poll(fmt.Sprintf("text %q", text), fmt.Sprintf(`(() => {%s
		const want = %s;
		return Array.from(document.querySelectorAll('body *')).some(el =>
			visible(el) && Array.from(el.childNodes).some(n => n.nodeType === Node.TEXT_NODE && norm(n.textContent).includes(want)));
	})()`, domHelpers, jsString(text)), timeout)
}

// WaitHeading waits for a visible heading whose text is exactly text.
func WaitHeading(text string, timeout time.Duration) chromedp.Action {
	return poll(fmt.Sprintf("heading %q", text), fmt.Sprintf(`(() => {%s
		const want = %s;
		return Array.from(document.querySelectorAll('h1, h2, h3, h4, h5, h6, [role="heading"]')).some(el =>
			visible(el) && norm(el.textContent) === want);
	})()`, domHelpers, jsString(text)), timeout)
}

// WaitTextEquals waits for the first element matching sel to have exactly
// the given text content.
func WaitTextEquals(sel, text string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		err := poll(fmt.Sprintf("%s to have text %q", sel, text), fmt.Sprintf(`(() => {%s
			const el = document.querySelector(%s);
			return !!el && norm(el.textContent) === %s;
		})()`, domHelpers, jsString(sel), jsString(text)), timeout).Do(ctx)
		if err == nil {
			return nil
		}
		var got string
		if tErr := TextContent(sel, &got).Do(ctx); tErr == nil {
			return fmt.Errorf("%w (last text %q)", err, got)
		}
		return err
	})
}

// TextContent reads the normalized text content of the first element
// matching sel. Missing elements yield an empty string.
func TextContent(sel string, text *string) chromedp.Action {
	return chromedp.Evaluate(fmt.Sprintf(`(() => {%s
		const el = document.querySelector(%s);
		return el ? norm(el.textContent) : '';
	})()`, domHelpers, jsString(sel)), text)
}

// WaitPlaceholder waits for an input with the given placeholder to be visible.
func WaitPlaceholder(placeholder string, timeout time.Duration) chromedp.Action {
	return WaitVisible(placeholderSelector(placeholder), timeout)
}

// TypeInto clears the input labelled by placeholder and types text into it,
// firing the same input events a user would.
func TypeInto(placeholder, text string) chromedp.Action {
	sel := placeholderSelector(placeholder)
	return chromedp.Tasks{
		chromedp.SetValue(sel, "", chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	}
}

// ClickButton clicks the button with the given label.
func ClickButton(label string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := withTimeout(timeout, chromedp.Click(buttonXPath(label), chromedp.BySearch)).Do(ctx); err != nil {
			return fmt.Errorf("failed to click button %q: %w", label, err)
		}
		return nil
	})
}

var keyNames = map[string]string{
	"ArrowUp":    kb.ArrowUp,
	"ArrowDown":  kb.ArrowDown,
	"ArrowLeft":  kb.ArrowLeft,
	"ArrowRight": kb.ArrowRight,
	"Space":      " ",
	" ":          " ",
	"Enter":      kb.Enter,
	"Escape":     kb.Escape,
}

// KeyValue maps a key name such as "ArrowRight" or "Space" to the value
// chromedp sends. Unknown names are sent as typed text.
func KeyValue(name string) string {
	if v, ok := keyNames[name]; ok {
		return v
	}
	return name
}

// PressKey focuses the element matching sel and presses the named key.
func PressKey(sel, key string) chromedp.Action {
	return chromedp.SendKeys(sel, KeyValue(key), chromedp.ByQuery)
}

// Focus gives keyboard focus to the element matching sel.
func Focus(sel string) chromedp.Action {
	return chromedp.Focus(sel, chromedp.ByQuery)
}

// DispatchAction calls window.store.dispatch with the given action.
func DispatchAction(actionType string, payload any) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", actionType, err)
		}
		expr := fmt.Sprintf(`(() => { window.store.dispatch({ type: %s, payload: %s }); return true; })()`, jsString(actionType), body)
		var ok bool
		if err := chromedp.Evaluate(expr, &ok).Do(ctx); err != nil {
			return fmt.Errorf("dispatch %s: %w", actionType, err)
		}
		return nil
	})
}
