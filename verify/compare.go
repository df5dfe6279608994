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
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/pmezard/go-difflib/difflib"
)

// HeadingsText reads the visible headings of the page, one per line, in
// document order.
func HeadingsText(text *string) chromedp.Action {
	return chromedp.Evaluate(fmt.Sprintf(`(() => {%s
		return Array.from(document.querySelectorAll('h1, h2, h3, h4, h5, h6, [role="heading"]'))
			.filter(visible)
			.map(el => norm(el.textContent))
			.join('\n');
	})()`, domHelpers), text)
}

// DiffText returns a unified diff of a and b, or "" when they are equal.
func DiffText(nameA, a, nameB, b string) string {
	if a == b {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.TrimSpace(a) + "\n"),
		B:        difflib.SplitLines(strings.TrimSpace(b) + "\n"),
		FromFile: nameA,
		ToFile:   nameB,
		Context:  3,
	})
	if err != nil {
		return fmt.Sprintf("--- %s\n+++ %s\n-%s\n+%s\n", nameA, nameB, a, b)
	}
	return diff
}

// SameHeadings checks that every session shows the same headings.
func SameHeadings(sessions ...*Session) error {
	if len(sessions) < 2 {
		return nil
	}
	texts := make([]string, len(sessions))
	for i, s := range sessions {
		if err := s.Run(HeadingsText(&texts[i])); err != nil {
			return fmt.Errorf("failed to read headings of %s: %w", s.Name, err)
		}
	}
	for i := 1; i < len(sessions); i++ {
		if diff := DiffText(sessions[0].Name, texts[0], sessions[i].Name, texts[i]); diff != "" {
			return fmt.Errorf("sessions show different screens:\n%s", diff)
		}
	}
	return nil
}

// sameHeadingsAction adapts SameHeadings to a recorded step.
func sameHeadingsAction(sessions ...*Session) chromedp.Action {
	return chromedp.ActionFunc(func(context.Context) error {
		return SameHeadings(sessions...)
	})
}
