// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package calc

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/f-block/archon/pkg/types"
)

// EvaluateAll runs the executor over a conformer batch with bounded
// parallelism. Calculation failures are recorded on the conformers; the
// returned error reports context cancellation only.
func EvaluateAll(ctx context.Context, ex *Executor, confs []*types.Conformer) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ex.Params.Workers)

	for _, c := range confs {
		c := c
		g.Go(func() error {
			return ex.Evaluate(ctx, c)
		})
	}
	return g.Wait()
}
