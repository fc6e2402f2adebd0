package walk

import (
	"aggregate-mapper/internal/action"
	"aggregate-mapper/internal/common"
	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/internal/model"
)

// Stats counts what one traversal did.
type Stats struct {
	Roots int
	// Visited counts entity visits of the UPDATE stage.
	Visited    int
	Created    int
	Found      int
	Duplicates int
	// Actions is the queue length before flush.
	Actions int
}

// Result is the outcome of Execute.
type Result struct {
	// Outputs holds the output of every root, in input order.
	Outputs []*model.Object
	// Records holds the flat records of a query.
	Records     []model.Record
	Stats       Stats
	Flush       action.FlushStats
	Diagnostics diagnostic.Diagnostics
}

// Output returns the single output of a one-root traversal.
func (r *Result) Output() *model.Object {
	o, _ := common.First(r.Outputs)
	return o
}
