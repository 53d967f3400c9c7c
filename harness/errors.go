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
)

// Kind classifies why a step (or the scenario setup) failed.
type Kind int

const (
	KindNone Kind = iota
	KindLaunch
	KindInjection
	KindNavigation
	KindElementNotFound
	KindTimeout
	KindIO
	KindCancellation
	// KindUnexpected covers panics and errors outside the taxonomy.
	KindUnexpected
)

var kindNames = map[Kind]string{
	KindNone:            "None",
	KindLaunch:          "LaunchError",
	KindInjection:       "InjectionError",
	KindNavigation:      "NavigationError",
	KindElementNotFound: "ElementNotFoundError",
	KindTimeout:         "TimeoutError",
	KindIO:              "IOError",
	KindCancellation:    "CancellationError",
	KindUnexpected:      "UnexpectedError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText lets reports carry the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", b)
}

var (
	ErrLaunch          = errors.New("browser launch failed")
	ErrInjection       = errors.New("bridge injection failed")
	ErrNavigation      = errors.New("navigation failed")
	ErrElementNotFound = errors.New("element not found")
	ErrTimeout         = errors.New("timed out")
	ErrIO              = errors.New("i/o failure")
	ErrCancelled       = errors.New("cancelled")
	ErrUnexpected      = errors.New("unexpected failure")

	// ErrSessionClosed is returned by page operations once the session has been released.
	ErrSessionClosed = errors.New("session closed")
	// ErrNoMatch is returned by drivers when no element matches a text query.
	ErrNoMatch = errors.New("no matching element")
)

var kindSentinels = map[Kind]error{
	KindLaunch:          ErrLaunch,
	KindInjection:       ErrInjection,
	KindNavigation:      ErrNavigation,
	KindElementNotFound: ErrElementNotFound,
	KindTimeout:         ErrTimeout,
	KindIO:              ErrIO,
	KindCancellation:    ErrCancelled,
	KindUnexpected:      ErrUnexpected,
}

// StepError is the error recorded for a failed step.
type StepError struct {
	Kind Kind
	Step string
	Err  error
}

func (e *StepError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Is matches the sentinel error of the same kind.
func (e *StepError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

func newStepError(kind Kind, step string, err error) *StepError {
	return &StepError{Kind: kind, Step: step, Err: err}
}

// KindOf returns the kind of err, KindNone for nil and KindUnexpected for
// errors that were never classified.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnexpected
}

// isCancellation reports whether err stems from a cancelled run or a released session.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrSessionClosed)
}
