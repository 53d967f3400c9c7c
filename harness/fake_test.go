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
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
)

// fakeApp is a tiny model of the application under test: each path shows
// some texts, and clicking a text may move to another path.
type fakeApp struct {
	pages map[string][]string
	links map[string]string
}

func kamisamaApp() *fakeApp {
	return &fakeApp{
		pages: map[string][]string{
			"/":         {"Welcome to Kamisama Loader", "Mods", "Settings"},
			"/mods":     {"Installed Mods", "Mods", "Settings"},
			"/settings": {"Game Directory", "Mods", "Settings"},
		},
		links: map[string]string{
			"Mods":     "/mods",
			"Settings": "/settings",
		},
	}
}

var fakePNG = []byte("\x89PNG\r\n\x1a\nfake-image-data")

type fakePage struct {
	app *fakeApp

	mu      sync.Mutex
	current string
	calls   []string
	scripts []string
	closed  int
	// hook, when set, runs before every operation. A non-nil error is
	// returned from the operation; it may also panic.
	hook func(op string) error
}

func (p *fakePage) enter(op, arg string) error {
	p.mu.Lock()
	p.calls = append(p.calls, op+":"+arg)
	hook := p.hook
	p.mu.Unlock()
	if hook != nil {
		return hook(op)
	}
	return nil
}

func (p *fakePage) count(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if len(c) > len(op) && c[:len(op)+1] == op+":" {
			n++
		}
	}
	return n
}

func (p *fakePage) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls)
}

func (p *fakePage) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePage) visible(text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.app.pages[p.current], text)
}

func (p *fakePage) AddInitScript(ctx context.Context, source string) error {
	if err := p.enter("AddInitScript", ""); err != nil {
		return err
	}
	p.mu.Lock()
	p.scripts = append(p.scripts, source)
	p.mu.Unlock()
	return nil
}

func (p *fakePage) Navigate(ctx context.Context, rawURL string) error {
	if err := p.enter("Navigate", rawURL); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if _, ok := p.app.pages[u.Path]; !ok || u.Host != "app.test" {
		return fmt.Errorf("page load error net::ERR_CONNECTION_REFUSED")
	}
	p.mu.Lock()
	p.current = u.Path
	p.mu.Unlock()
	return nil
}

func (p *fakePage) ClickText(ctx context.Context, text string) error {
	if err := p.enter("ClickText", text); err != nil {
		return err
	}
	if p.visible(text) {
		if to, ok := p.app.links[text]; ok {
			p.mu.Lock()
			p.current = to
			p.mu.Unlock()
		}
		return nil
	}
	<-ctx.Done()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w %q: %w", ErrNoMatch, text, ctx.Err())
	}
	return ctx.Err()
}

func (p *fakePage) WaitText(ctx context.Context, text string) error {
	if err := p.enter("WaitText", text); err != nil {
		return err
	}
	if p.visible(text) {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePage) WaitSelector(ctx context.Context, selector string) error {
	if err := p.enter("WaitSelector", selector); err != nil {
		return err
	}
	if selector == "body" {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := p.enter("Screenshot", ""); err != nil {
		return nil, err
	}
	return slices.Clone(fakePNG), nil
}

func (p *fakePage) Evaluate(ctx context.Context, expression string) (string, error) {
	if err := p.enter("Evaluate", expression); err != nil {
		return "", err
	}
	return `[{"method":"fetchCategories","args":[]}]`, nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	if err := p.enter("HTML", ""); err != nil {
		return "", err
	}
	return "<html><body>fake</body></html>", nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

type fakeLauncher struct {
	app  *fakeApp
	hook func(op string) error
	err  error
	// launchPanic, when set, makes Launch panic with it.
	launchPanic any

	mu       sync.Mutex
	pages    []*fakePage
	launches int

	active    atomic.Int32
	maxActive atomic.Int32
}

func (l *fakeLauncher) Launch(ctx context.Context, headless bool) (Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if l.launchPanic != nil {
		panic(l.launchPanic)
	}
	if l.err != nil {
		return nil, l.err
	}
	app := l.app
	if app == nil {
		app = kamisamaApp()
	}
	p := &fakePage{app: app, hook: l.hook}
	l.pages = append(l.pages, p)
	return p, nil
}

func (l *fakeLauncher) lastPage() *fakePage {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pages) == 0 {
		return nil
	}
	return l.pages[len(l.pages)-1]
}

// releases counts closed pages across all launches.
func (l *fakeLauncher) releases() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, p := range l.pages {
		n += p.closeCount()
	}
	return n
}
