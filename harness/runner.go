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
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// DefaultSettleDelay is the fixed wait before the first navigation. It gives
// an external dev server time to start accepting connections. It is not
// adaptive: it neither polls readiness nor retries refused connections. Set
// Runner.ReadyTimeout for a bounded readiness poll instead.
const DefaultSettleDelay = 2 * time.Second

// driverGrace is how long a step may overrun its deadline before the runner
// stops waiting for the driver to return.
const driverGrace = time.Second

// Runner executes scenarios, each in its own browser session.
type Runner struct {
	Launcher Launcher
	Headless bool
	// StepTimeout bounds each step. Zero means DefaultStepTimeout.
	StepTimeout time.Duration
	// SettleDelay is slept before the first step unless ReadyTimeout is set.
	// Zero means DefaultSettleDelay; a negative value disables the wait.
	SettleDelay time.Duration
	// ReadyTimeout, when positive, replaces the settle delay with a bounded
	// poll of the base URL.
	ReadyTimeout time.Duration
	// DebugDir, when set, receives a screenshot and HTML dump of the page
	// when a step fails.
	DebugDir string
	// Store, when set, persists every finished report.
	Store *ReportStore
	Logf  func(format string, args ...any)
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (r *Runner) stepTimeout() time.Duration {
	if r.StepTimeout > 0 {
		return r.StepTimeout
	}
	return DefaultStepTimeout
}

// Run executes sc and reports the outcome. It never returns an error: every
// failure, including launch and injection failures and panics, is recorded
// in the report. The session is released on every path.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (rep *Report) {
	start := time.Now()
	rep = &Report{
		ID:       uuid.NewString(),
		Scenario: sc.Name,
		BaseURL:  sc.BaseURL,
		Status:   StatusPending,
		Started:  start,
		Outcomes: []StepOutcome{},
	}
	defer func() {
		rep.Elapsed = time.Since(start)
		r.logf("[%s] %s in %s", sc.Name, rep.Status, rep.Elapsed.Round(time.Millisecond))
		if r.Store != nil {
			if err := r.Store.SaveReport(rep); err != nil {
				r.logf("[%s] saving report %s: %v", sc.Name, rep.ID, err)
			}
		}
	}()

	rep.Status = StatusRunning
	var sess *Session
	defer func() {
		if sess == nil {
			return
		}
		if err := sess.Release(); err != nil {
			r.logf("[%s] releasing session: %v", sc.Name, err)
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			name := "runner"
			if sess == nil {
				name = "launch"
			}
			err := newStepError(KindUnexpected, "", fmt.Errorf("panic: %v", p))
			rep.abort(setupOutcome(name, err, 0))
		}
	}()

	setupStart := time.Now()
	var err error
	sess, err = Acquire(ctx, r.Launcher, r.Headless)
	if err != nil {
		rep.abort(setupOutcome("launch", err, time.Since(setupStart)))
		return rep
	}

	if sc.Bridge != nil {
		t := time.Now()
		if err := InstallBridge(ctx, sess, sc.Bridge); err != nil {
			rep.abort(setupOutcome("install-bridge", err, time.Since(t)))
			return rep
		}
		r.logf("[%s] installed mock bridge %s with %d methods", sc.Name, sc.Bridge.global(), len(sc.Bridge.Methods))
	}

	if err := r.settle(ctx, sc); err != nil {
		rep.abort(*err)
		return rep
	}

	for i, step := range sc.Steps {
		r.logf("[%s] step %d/%d %s", sc.Name, i+1, len(sc.Steps), step)
		t := time.Now()
		artifact, err := r.runStep(ctx, sess, sc.BaseURL, step)
		o := StepOutcome{Index: i, Step: step.String(), OK: err == nil, Elapsed: time.Since(t)}
		if err != nil {
			o.Kind = KindOf(err)
			o.Message = errorMessage(err)
			r.logf("[%s] step %d %s failed: %v", sc.Name, i+1, step, err)
			rep.DebugArtifacts = append(rep.DebugArtifacts, r.captureDebug(ctx, sess, sc.Name, i)...)
			rep.abort(o)
			return rep
		}
		if artifact != "" {
			o.Artifact = artifact
			rep.Artifacts = append(rep.Artifacts, artifact)
			r.logf("[%s] saved screenshot to %s", sc.Name, artifact)
		}
		rep.Outcomes = append(rep.Outcomes, o)
	}
	rep.Status = StatusCompleted
	return rep
}

func (rep *Report) abort(o StepOutcome) {
	rep.Outcomes = append(rep.Outcomes, o)
	rep.Status = StatusAborted
}

// setupOutcome records a failure that happened outside the scenario's steps.
func setupOutcome(name string, err error, elapsed time.Duration) StepOutcome {
	return StepOutcome{
		Index:   -1,
		Step:    name,
		Kind:    KindOf(err),
		Message: errorMessage(err),
		Elapsed: elapsed,
	}
}

func errorMessage(err error) string {
	var se *StepError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}

func (r *Runner) settle(ctx context.Context, sc *Scenario) *StepOutcome {
	t := time.Now()
	if r.ReadyTimeout > 0 {
		name := fmt.Sprintf("wait-ready(%s)", sc.BaseURL)
		if err := WaitForServer(ctx, sc.BaseURL, r.ReadyTimeout, r.logf); err != nil {
			kind := KindNavigation
			if errors.Is(err, context.Canceled) {
				kind = KindCancellation
			}
			o := setupOutcome(name, newStepError(kind, name, err), time.Since(t))
			return &o
		}
		return nil
	}
	delay := r.SettleDelay
	if delay == 0 {
		delay = DefaultSettleDelay
	}
	if delay < 0 {
		return nil
	}
	r.logf("[%s] waiting %s for the server to settle", sc.Name, delay)
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		o := setupOutcome("settle", newStepError(KindCancellation, "settle", ctx.Err()), time.Since(t))
		return &o
	}
}

// runStep executes one step with the step timeout. A driver that ignores the
// deadline is abandoned after a short grace period; the session teardown
// then unblocks it.
func (r *Runner) runStep(ctx context.Context, sess *Session, baseURL string, step Step) (string, error) {
	stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout())
	defer cancel()

	type result struct {
		artifact string
		err      error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: newStepError(KindUnexpected, step.String(), fmt.Errorf("panic: %v", p))}
			}
		}()
		a, err := step.run(stepCtx, sess, baseURL)
		ch <- result{artifact: a, err: err}
	}()

	select {
	case res := <-ch:
		return res.artifact, res.err
	case <-stepCtx.Done():
	}
	select {
	case res := <-ch:
		return res.artifact, res.err
	case <-time.After(driverGrace):
	}
	err := stepCtx.Err()
	if step.kind == StepClickText && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrNoMatch, err)
	}
	def := KindTimeout
	switch step.kind {
	case StepGoto:
		def = KindNavigation
	case StepClickText:
		def = KindElementNotFound
	}
	return "", classify(step.String(), err, def)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// captureDebug saves what the page looked like when a step failed.
func (r *Runner) captureDebug(ctx context.Context, sess *Session, scenario string, index int) []string {
	if r.DebugDir == "" || ctx.Err() != nil || sess.State() != StateReady {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	base := filepath.Join(r.DebugDir, fmt.Sprintf("debug-%s-%d", unsafeFileChars.ReplaceAllString(scenario, "_"), index+1))
	var out []string
	var png []byte
	if err := sess.do(ctx, func(ctx context.Context, p Page) error {
		var err error
		png, err = p.Screenshot(ctx)
		return err
	}); err != nil {
		r.logf("DEBUG: failed to capture screenshot: %v", err)
	} else if err := os.WriteFile(base+".png", png, 0644); err != nil {
		r.logf("DEBUG: failed to write screenshot: %v", err)
	} else {
		out = append(out, base+".png")
	}
	var html string
	if err := sess.do(ctx, func(ctx context.Context, p Page) error {
		var err error
		html, err = p.HTML(ctx)
		return err
	}); err != nil {
		r.logf("DEBUG: failed to capture HTML: %v", err)
	} else if err := os.WriteFile(base+".html", []byte(html), 0644); err != nil {
		r.logf("DEBUG: failed to write HTML: %v", err)
	} else {
		out = append(out, base+".html")
	}
	for _, f := range out {
		r.logf("DEBUG: saved %s", f)
	}
	return out
}
