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

// Package e2ehelpers holds chromedp actions shared by the harness driver and
// the end-to-end tests.
package e2ehelpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// PollInterval is how often the polling actions re-check the page.
var PollInterval = 100 * time.Millisecond

// ErrNotFound is returned by ClickText when no element matched before the
// context expired.
var ErrNotFound = errors.New("no element with matching text")

// Logger is satisfied by *testing.T.
type Logger interface {
	Logf(format string, args ...any)
}

// SaveScreenshot captures the viewport to filename. Unlike the harness
// Screenshot step it creates the parent directory, since tests write their
// debug captures into fresh subdirectories.
func SaveScreenshot(ctx context.Context, l Logger, filename string) error {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("capturing screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("creating screenshot dir: %w", err)
	}
	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}
	l.Logf("Screenshot: %s (%d bytes)", filename, len(buf))
	return nil
}

const disableAnimationsJS = `(() => {
	const style = document.createElement('style');
	style.textContent = '*, *::before, *::after { transition-duration: 0s !important; animation-duration: 0s !important; animation-delay: 0s !important; }';
	document.head.appendChild(style);
})()`

// DisableCSSAnimations zeroes transition and animation timings so text
// checks do not race fades.
func DisableCSSAnimations() chromedp.Action {
	return chromedp.Evaluate(disableAnimationsJS, nil)
}

// clickTextJS clicks the first visible element matching the text and reports
// whether it found one. Interactive elements are searched first; within a
// pass an exact (whitespace-normalized) match beats a substring match and
// document order breaks ties. The fallback pass only considers the innermost
// elements carrying the text.
const clickTextJS = `(function(target) {
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
	target = norm(target);
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		const st = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none';
	};
	const textOf = (el) => norm(el.tagName === 'INPUT' ? el.value : el.innerText);
	const pick = (els) => {
		let partial = null;
		for (const el of els) {
			if (!visible(el)) continue;
			const t = textOf(el);
			if (t === target) return el;
			if (partial === null && t.includes(target)) partial = el;
		}
		return partial;
	};
	const interactive = 'a, button, summary, label, [role="button"], [role="link"], [role="tab"], [role="menuitem"], input[type="button"], input[type="submit"], [onclick]';
	let el = pick(document.querySelectorAll(interactive));
	if (el === null && document.body) {
		const innermost = Array.from(document.body.querySelectorAll('*')).filter((e) => {
			const t = textOf(e);
			if (!t.includes(target)) return false;
			return !Array.from(e.children).some((c) => textOf(c).includes(target));
		});
		el = pick(innermost);
	}
	if (el === null) return false;
	el.scrollIntoView({block: 'center', inline: 'center'});
	el.click();
	return true;
})(%s)`

const hasTextJS = `(function(target) {
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
	const b = document.body;
	return !!b && norm(b.innerText).includes(norm(target));
})(%s)`

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// poll evaluates expr until it yields true or ctx ends.
func poll(ctx context.Context, expr string) error {
	return pollUntil(ctx, func(ctx context.Context) (bool, error) {
		var ok bool
		err := chromedp.Evaluate(expr, &ok).Do(ctx)
		return ok, err
	})
}

// pollUntil calls check every PollInterval until it reports true or ctx
// ends. Check errors are not fatal: the execution context is torn down and
// rebuilt on every navigation. The last one is attached to the ctx error.
func pollUntil(ctx context.Context, check func(context.Context) (bool, error)) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	var lastErr error
	for {
		ok, err := check(ctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			}
			return ctx.Err()
		}
	}
}

// ClickText waits for an element whose visible text matches text and clicks
// it. See clickTextJS for the tie-break rules.
func ClickText(text string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := poll(ctx, fmt.Sprintf(clickTextJS, jsString(text))); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w %q: %w", ErrNotFound, text, err)
			}
			return err
		}
		return nil
	})
}

// WaitText waits until text is rendered somewhere in the page body.
func WaitText(text string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := poll(ctx, fmt.Sprintf(hasTextJS, jsString(text))); err != nil {
			return fmt.Errorf("waiting for text %q: %w", text, err)
		}
		return nil
	})
}

// LogPageHTML logs the document's outer HTML under label. Failures to read
// it are logged too; this only ever runs on an already failing path.
func LogPageHTML(ctx context.Context, l Logger, label string) {
	var doc string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &doc, chromedp.ByQuery)); err != nil {
		l.Logf("%s: reading page HTML: %v", label, err)
		return
	}
	l.Logf("%s: page HTML:\n%s", label, doc)
}
