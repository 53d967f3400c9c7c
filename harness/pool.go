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

	"golang.org/x/sync/errgroup"
)

// RunAll runs scenarios with at most workers in flight. Each scenario gets its
// own session; nothing is shared between them. Reports are returned in input
// order.
func RunAll(ctx context.Context, r *Runner, scenarios []*Scenario, workers int) []*Report {
	if workers < 1 {
		workers = 1
	}
	reports := make([]*Report, len(scenarios))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, sc := range scenarios {
		g.Go(func() error {
			reports[i] = r.Run(ctx, sc)
			return nil
		})
	}
	g.Wait()
	return reports
}
