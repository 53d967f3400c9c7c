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
	"errors"
	"fmt"
	"log"
	"strings"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/uismoke/tools/e2ehelpers"
)

// ChromeLauncher starts Chrome through chromedp. With RemoteURL set it
// attaches to an already running browser's DevTools endpoint instead of
// starting a local process.
type ChromeLauncher struct {
	RemoteURL string
	ExecPath  string
	// Width and Height of the window; zero means 1280x800.
	Width, Height int
	Logf          func(format string, args ...any)
}

func (l *ChromeLauncher) logf() func(string, ...any) {
	if l.Logf != nil {
		return l.Logf
	}
	return log.Printf
}

// Launch implements Launcher.
func (l *ChromeLauncher) Launch(ctx context.Context, headless bool) (Page, error) {
	w, h := l.Width, l.Height
	if w == 0 || h == 0 {
		w, h = 1280, 800
	}
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if l.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, l.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", headless),
			chromedp.WindowSize(w, h),
		)
		if l.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(l.ExecPath))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}
	logf := l.logf()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logf),
		chromedp.WithErrorf(logf),
	)
	// Run with no actions starts the browser and opens the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}
	p := &chromePage{ctx: tabCtx, cancel: tabCancel, allocCancel: allocCancel, logf: logf}
	chromedp.ListenTarget(tabCtx, p.onEvent)
	return p, nil
}

type chromePage struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logf        func(string, ...any)
}

func (p *chromePage) onEvent(ev any) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		if ev.Type == runtime.APITypeError {
			args := make([]string, len(ev.Args))
			for i, arg := range ev.Args {
				args[i] = string(arg.Value)
			}
			p.logf("JS CONSOLE ERROR: %s", strings.Join(args, " "))
		}
	case *runtime.EventExceptionThrown:
		p.logf("JS EXCEPTION: %s", ev.ExceptionDetails.Text)
	}
}

// run executes actions on the tab, bounded by ctx's deadline and cancellation.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	c, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if d, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		c, cancelDeadline = context.WithDeadline(c, d)
		defer cancelDeadline()
	}
	// Deadlines are reported by c itself; only forward cancellation.
	stop := context.AfterFunc(ctx, func() {
		if errors.Is(ctx.Err(), context.Canceled) {
			cancel()
		}
	})
	defer stop()

	err := chromedp.Run(c, actions...)
	if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

func (p *chromePage) AddInitScript(ctx context.Context, source string) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := cdppage.AddScriptToEvaluateOnNewDocument(source).Do(ctx)
		return err
	}))
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromePage) ClickText(ctx context.Context, text string) error {
	err := p.run(ctx, e2ehelpers.ClickText(text))
	if errors.Is(err, e2ehelpers.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNoMatch, err)
	}
	return err
}

func (p *chromePage) WaitText(ctx context.Context, text string) error {
	return p.run(ctx, e2ehelpers.WaitText(text))
}

func (p *chromePage) WaitSelector(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromePage) Evaluate(ctx context.Context, expression string) (string, error) {
	var raw []byte
	if err := p.run(ctx, chromedp.Evaluate(expression, &raw)); err != nil {
		return "", err
	}
	return string(raw), nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close closes the tab and, for locally launched browsers, the process.
func (p *chromePage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	p.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
