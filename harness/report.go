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
	"fmt"
	"strings"
	"time"
)

// Status is the state of a scenario run.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusAborted   Status = "Aborted"
)

// StepOutcome records the result of one executed step.
type StepOutcome struct {
	Index    int           `json:"index"`
	Step     string        `json:"step"`
	OK       bool          `json:"ok"`
	Kind     Kind          `json:"kind,omitempty"`
	Message  string        `json:"message,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	Artifact string        `json:"artifact,omitempty"`
}

// Report is the result of running one scenario.
type Report struct {
	ID       string        `json:"id"`
	Scenario string        `json:"scenario"`
	BaseURL  string        `json:"baseURL"`
	Status   Status        `json:"status"`
	Started  time.Time     `json:"started"`
	Elapsed  time.Duration `json:"elapsed"`
	Outcomes []StepOutcome `json:"outcomes"`
	// Artifacts are the screenshots written by successful steps, in order.
	Artifacts []string `json:"artifacts,omitempty"`
	// DebugArtifacts are failure diagnostics, never counted as step artifacts.
	DebugArtifacts []string `json:"debugArtifacts,omitempty"`
}

// Failure returns the outcome that aborted the run, if any.
func (r *Report) Failure() *StepOutcome {
	for i := range r.Outcomes {
		if !r.Outcomes[i].OK {
			return &r.Outcomes[i]
		}
	}
	return nil
}

// Err returns the failure as a StepError, or nil for a completed run.
func (r *Report) Err() error {
	if r.Status == StatusCompleted {
		return nil
	}
	f := r.Failure()
	if f == nil {
		return newStepError(KindUnexpected, "", fmt.Errorf("scenario %q ended %s", r.Scenario, r.Status))
	}
	return newStepError(f.Kind, f.Step, fmt.Errorf("%s", f.Message))
}

// ExitCode is the process exit status implied by the report.
func (r *Report) ExitCode() int {
	if r.Status == StatusCompleted {
		return 0
	}
	return 1
}

// Summary renders the concise, human-readable report.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario %q: %s in %s\n", r.Scenario, r.Status, r.Elapsed.Round(time.Millisecond))
	for _, o := range r.Outcomes {
		mark := "ok  "
		if !o.OK {
			mark = "FAIL"
		}
		label := fmt.Sprintf("#%d", o.Index+1)
		if o.Index < 0 {
			label = "setup"
		}
		fmt.Fprintf(&b, "  %s %s %s (%s)", mark, label, o.Step, o.Elapsed.Round(time.Millisecond))
		if o.Artifact != "" {
			fmt.Fprintf(&b, " -> %s", o.Artifact)
		}
		if !o.OK {
			fmt.Fprintf(&b, " [%s] %s", o.Kind, o.Message)
		}
		b.WriteString("\n")
	}
	if len(r.Artifacts) > 0 {
		fmt.Fprintf(&b, "  artifacts: %s\n", strings.Join(r.Artifacts, ", "))
	}
	if len(r.DebugArtifacts) > 0 {
		fmt.Fprintf(&b, "  debug: %s\n", strings.Join(r.DebugArtifacts, ", "))
	}
	return b.String()
}
