package migrate

import (
	"context"
	"fmt"
	"sync"

	"aggregate-mapper/internal/codec"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/walk"
	"aggregate-mapper/options"
)

// GraphTarget writes batches through the walker with action MIGRATE: each
// record becomes an object whose foreign keys are references, and the batch
// is merged into the walker's persister as one bulk traversal. Scalar values
// that cannot be converted are skipped and reported in the diagnostics.
// Batches are written one at a time because traversals of concurrent
// consumers share persistent objects.
type GraphTarget struct {
	mu       sync.Mutex
	walker   *walk.Walker
	settings options.Settings
}

var _ Target = (*GraphTarget)(nil)

func NewGraphTarget(w *walk.Walker) *GraphTarget {
	return &GraphTarget{walker: w, settings: options.Default(options.ActionMigrate)}
}

func (g *GraphTarget) CreateBatch(ctx context.Context, t *model.Type, recs []model.Record) ([]any, error) {
	objs := make([]*model.Object, 0, len(recs))
	for i, rec := range recs {
		o, err := codec.Unflatten(g.walker.Model(), t, rec, g.settings.Conversions)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		objs = append(objs, o)
	}

	g.mu.Lock()
	res, err := g.walker.Execute(ctx, g.settings, objs...)
	g.mu.Unlock()

	if err != nil {
		return nil, err
	}

	ids := make([]any, len(res.Outputs))
	for i, o := range res.Outputs {
		ids[i] = o.ID()
	}

	return ids, nil
}
