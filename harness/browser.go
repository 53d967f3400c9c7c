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

import "context"

// Launcher starts a browser process and opens a single page in it.
type Launcher interface {
	Launch(ctx context.Context, headless bool) (Page, error)
}

// Page is the browser automation surface the harness drives. Every method may
// block on a round-trip to the browser and must honor ctx's deadline and
// cancellation. Close releases the page together with its browser process.
type Page interface {
	// AddInitScript registers JavaScript evaluated in every new document
	// before any of the document's own scripts.
	AddInitScript(ctx context.Context, source string) error
	Navigate(ctx context.Context, url string) error
	// ClickText clicks the first visible element, in document order, whose
	// text matches. It returns an error wrapping ErrNoMatch when nothing
	// matched before ctx expired.
	ClickText(ctx context.Context, text string) error
	WaitText(ctx context.Context, text string) error
	WaitSelector(ctx context.Context, selector string) error
	Screenshot(ctx context.Context) ([]byte, error)
	// Evaluate runs a JavaScript expression and returns its JSON encoding.
	Evaluate(ctx context.Context, expression string) (string, error)
	HTML(ctx context.Context) (string, error)
	Close() error
}
