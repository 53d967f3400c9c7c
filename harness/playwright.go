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

package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher starts Chromium through playwright-go. The driver and
// browsers must already be installed unless Install is set.
type PlaywrightLauncher struct {
	Install bool
	Width   int
	Height  int
}

// Launch implements Launcher.
func (l *PlaywrightLauncher) Launch(ctx context.Context, headless bool) (Page, error) {
	if l.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	w, h := l.Width, l.Height
	if w == 0 || h == 0 {
		w, h = 1280, 800
	}
	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: w, Height: h},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	return &playwrightPage{pw: pw, browser: browser, page: page}, nil
}

type playwrightPage struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

// timeoutMS converts ctx's remaining time into playwright's millisecond timeout.
func timeoutMS(ctx context.Context) *float64 {
	d, ok := ctx.Deadline()
	if !ok {
		return playwright.Float(float64(DefaultStepTimeout.Milliseconds()))
	}
	left := time.Until(d)
	if left < time.Millisecond {
		left = time.Millisecond
	}
	return playwright.Float(float64(left.Milliseconds()))
}

// translate maps playwright's timeout onto context.DeadlineExceeded so the
// step classifier treats both drivers alike.
func translate(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

func (p *playwrightPage) AddInitScript(ctx context.Context, source string) error {
	return translate(ctx, p.page.AddInitScript(playwright.Script{Content: playwright.String(source)}))
}

func (p *playwrightPage) Navigate(ctx context.Context, url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{Timeout: timeoutMS(ctx)})
	return translate(ctx, err)
}

// ClickText relies on playwright's text locator; First() applies the same
// first-match tie-break as the chromedp driver.
func (p *playwrightPage) ClickText(ctx context.Context, text string) error {
	err := p.page.GetByText(text).First().Click(playwright.LocatorClickOptions{Timeout: timeoutMS(ctx)})
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w %q: %w", ErrNoMatch, text, err)
	}
	return translate(ctx, err)
}

func (p *playwrightPage) WaitText(ctx context.Context, text string) error {
	err := p.page.GetByText(text).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: timeoutMS(ctx),
	})
	return translate(ctx, err)
}

func (p *playwrightPage) WaitSelector(ctx context.Context, selector string) error {
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: timeoutMS(ctx),
	})
	return translate(ctx, err)
}

func (p *playwrightPage) Screenshot(ctx context.Context) ([]byte, error) {
	buf, err := p.page.Screenshot(playwright.PageScreenshotOptions{Timeout: timeoutMS(ctx)})
	return buf, translate(ctx, err)
}

func (p *playwrightPage) Evaluate(ctx context.Context, expression string) (string, error) {
	v, err := p.page.Evaluate(expression)
	if err != nil {
		return "", translate(ctx, err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *playwrightPage) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Content()
	return html, translate(ctx, err)
}

func (p *playwrightPage) Close() error {
	err := p.browser.Close()
	if stopErr := p.pw.Stop(); err == nil {
		err = stopErr
	}
	return err
}
