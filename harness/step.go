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
	"os"
	"time"
)

// DefaultStepTimeout bounds every step unless the runner overrides it.
const DefaultStepTimeout = 30 * time.Second

// StepKind tags the variant of a Step.
type StepKind string

const (
	StepGoto            StepKind = "goto"
	StepClickText       StepKind = "click"
	StepWaitForText     StepKind = "waitForText"
	StepWaitForSelector StepKind = "waitForSelector"
	StepScreenshot      StepKind = "screenshot"
)

// Step is one immutable browser interaction.
type Step struct {
	kind StepKind
	arg  string
}

// Goto navigates to url. Relative URLs resolve against the scenario base URL.
func Goto(url string) Step { return Step{kind: StepGoto, arg: url} }

// ClickText clicks the first visible element, in document order, whose text
// matches. An exact (whitespace-normalized) match is preferred over a
// substring match. Ambiguity is not an error.
func ClickText(text string) Step { return Step{kind: StepClickText, arg: text} }

func WaitForText(text string) Step { return Step{kind: StepWaitForText, arg: text} }

func WaitForSelector(selector string) Step { return Step{kind: StepWaitForSelector, arg: selector} }

// Screenshot writes a PNG of the viewport to path. The parent directory must exist.
func Screenshot(path string) Step { return Step{kind: StepScreenshot, arg: path} }

// NewStep builds a step from its kind name, as used in scenario files.
func NewStep(kind StepKind, arg string) (Step, error) {
	switch kind {
	case StepGoto, StepClickText, StepWaitForText, StepWaitForSelector, StepScreenshot:
	default:
		return Step{}, fmt.Errorf("unknown step kind %q", kind)
	}
	if arg == "" {
		return Step{}, fmt.Errorf("step %s needs an argument", kind)
	}
	return Step{kind: kind, arg: arg}, nil
}

func (s Step) Kind() StepKind { return s.kind }
func (s Step) Arg() string    { return s.arg }

func (s Step) String() string {
	return fmt.Sprintf("%s(%s)", s.kind, s.arg)
}

// run executes the step against the session. For Screenshot steps it returns
// the artifact path written.
func (s Step) run(ctx context.Context, sess *Session, baseURL string) (string, error) {
	name := s.String()
	switch s.kind {
	case StepGoto:
		target, err := resolveURL(baseURL, s.arg)
		if err != nil {
			return "", newStepError(KindNavigation, name, err)
		}
		err = sess.do(ctx, func(ctx context.Context, p Page) error { return p.Navigate(ctx, target) })
		if err != nil {
			return "", classify(name, err, KindNavigation)
		}
		return "", nil

	case StepClickText:
		err := sess.do(ctx, func(ctx context.Context, p Page) error { return p.ClickText(ctx, s.arg) })
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrNoMatch) {
				err = fmt.Errorf("%w: %v", ErrNoMatch, err)
			}
			return "", classify(name, err, KindElementNotFound)
		}
		return "", nil

	case StepWaitForText, StepWaitForSelector:
		err := sess.do(ctx, func(ctx context.Context, p Page) error {
			if s.kind == StepWaitForText {
				return p.WaitText(ctx, s.arg)
			}
			return p.WaitSelector(ctx, s.arg)
		})
		if err != nil {
			return "", classify(name, err, KindTimeout)
		}
		return "", nil

	case StepScreenshot:
		var buf []byte
		err := sess.do(ctx, func(ctx context.Context, p Page) error {
			var err error
			buf, err = p.Screenshot(ctx)
			return err
		})
		if err != nil {
			return "", classify(name, err, KindUnexpected)
		}
		// The runner may have abandoned this step and torn the session down
		// while the driver was still capturing.
		if err := ctx.Err(); err != nil {
			return "", classify(name, err, KindTimeout)
		}
		if sess.State() != StateReady {
			return "", newStepError(KindCancellation, name, ErrSessionClosed)
		}
		if len(buf) == 0 {
			return "", newStepError(KindUnexpected, name, errors.New("empty screenshot"))
		}
		if err := os.WriteFile(s.arg, buf, 0644); err != nil {
			return "", newStepError(KindIO, name, fmt.Errorf("writing screenshot: %w", err))
		}
		return s.arg, nil
	}
	return "", newStepError(KindUnexpected, name, fmt.Errorf("unknown step kind %q", s.kind))
}

// classify maps a driver error onto the taxonomy. def is the kind expected
// for this step's ordinary failure mode.
func classify(step string, err error, def Kind) error {
	switch {
	case isCancellation(err):
		return newStepError(KindCancellation, step, err)
	case def == KindNavigation:
		return newStepError(KindNavigation, step, err)
	case def == KindElementNotFound && errors.Is(err, ErrNoMatch):
		return newStepError(KindElementNotFound, step, err)
	case def == KindTimeout && errors.Is(err, context.DeadlineExceeded):
		return newStepError(KindTimeout, step, err)
	case errors.Is(err, context.DeadlineExceeded):
		return newStepError(KindTimeout, step, err)
	}
	return newStepError(KindUnexpected, step, err)
}

func resolveURL(base, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", ref, err)
	}
	if r.IsAbs() || base == "" {
		return r.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base url %q: %w", base, err)
	}
	return b.ResolveReference(r).String(), nil
}
