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
	"fmt"
	"sync"
)

// SessionState is the lifecycle state of a Session.
type SessionState int

const (
	StateUnstarted SessionState = iota
	StateReady
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateUnstarted:
		return "Unstarted"
	case StateReady:
		return "Ready"
	case StateClosed:
		return "Closed"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Session exclusively owns one browser page and its process. The page is only
// used while the session is Ready; Release may be called from any goroutine
// and makes in-flight and later operations fail with ErrSessionClosed.
type Session struct {
	mu     sync.Mutex
	state  SessionState
	page   Page
	bridge bool
	// done is closed on Release so in-flight operations stop waiting.
	done     chan struct{}
	closeErr error
}

// Acquire launches a browser and opens one page. A launch failure is fatal
// for the scenario and is never retried.
func Acquire(ctx context.Context, l Launcher, headless bool) (*Session, error) {
	s := &Session{done: make(chan struct{})}
	p, err := l.Launch(ctx, headless)
	if err != nil {
		s.state = StateClosed
		close(s.done)
		return nil, newStepError(KindLaunch, "", err)
	}
	if p == nil {
		s.state = StateClosed
		close(s.done)
		return nil, newStepError(KindLaunch, "", fmt.Errorf("launcher returned no page"))
	}
	s.page = p
	s.state = StateReady
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Release closes the page and browser process. Only the first call has an
// effect; later calls return the result of the first.
func (s *Session) Release() error {
	s.mu.Lock()
	if s.state == StateClosed {
		err := s.closeErr
		s.mu.Unlock()
		return err
	}
	s.state = StateClosed
	p := s.page
	close(s.done)
	s.mu.Unlock()

	err := p.Close()
	s.mu.Lock()
	s.closeErr = err
	s.mu.Unlock()
	return err
}

// do runs fn against the page, bound to ctx and to the session lifetime.
func (s *Session) do(ctx context.Context, fn func(ctx context.Context, p Page) error) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	p := s.page
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := fn(ctx, p)
	if err != nil && s.State() == StateClosed {
		return fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}
	return err
}

func (s *Session) markBridge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return fmt.Errorf("session is %s", s.state)
	}
	if s.bridge {
		return fmt.Errorf("bridge already installed")
	}
	s.bridge = true
	return nil
}

// BridgeCall is one recorded invocation of a mocked bridge method.
type BridgeCall struct {
	Method string            `json:"method"`
	Args   []json.RawMessage `json:"args"`
}

// BridgeCalls returns the recorded bridge invocations of the current document.
func (s *Session) BridgeCalls(ctx context.Context) ([]BridgeCall, error) {
	var out string
	err := s.do(ctx, func(ctx context.Context, p Page) error {
		var err error
		out, err = p.Evaluate(ctx, "window."+callLogName+" || []")
		return err
	})
	if err != nil {
		return nil, err
	}
	var calls []BridgeCall
	if err := json.Unmarshal([]byte(out), &calls); err != nil {
		return nil, fmt.Errorf("decoding bridge calls: %w", err)
	}
	return calls, nil
}
