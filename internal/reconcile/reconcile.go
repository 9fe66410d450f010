// Package reconcile merges keyed forecasts back into an indicator table and
// derives whole rows or columns from existing ones.
package reconcile

import (
	"go.uber.org/zap"

	"github.com/sells-group/turnout-prep/internal/indicator"
)

// Apply returns a copy of t where, for every key in updates that already
// exists in t, the cell in column is replaced by the update value. Keys with
// no matching row are ignored and missing (NaN) update values never overwrite
// a cell. Row count, column set and column order are unchanged, so applying
// the same updates twice yields the same table. The int is the number of
// cells written.
func Apply(t *indicator.Table, column string, updates indicator.Updates) (*indicator.Table, int, error) {
	ci, err := t.MustColumn(column)
	if err != nil {
		return nil, 0, err
	}

	out := t.Clone()
	if len(updates) == 0 {
		return out, 0, nil
	}

	written, orphans := 0, 0
	index := out.Index()
	for k, v := range updates {
		if indicator.IsMissing(v) {
			continue
		}
		pos, ok := index[k]
		if !ok {
			orphans++
			continue
		}
		out.Rows[pos].Values[ci] = v
		written++
	}

	zap.L().Debug("reconcile: updates applied",
		zap.String("column", column),
		zap.Int("written", written),
		zap.Int("orphans", orphans),
	)
	return out, written, nil
}
