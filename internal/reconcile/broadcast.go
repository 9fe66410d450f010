package reconcile

import (
	"github.com/sells-group/turnout-prep/internal/indicator"
	"github.com/sells-group/turnout-prep/internal/terc"
)

type voivKey struct {
	code string
	year int
}

// BroadcastVoivodeship copies column from the voivodeship-level table sec
// into every county row of main. Counties match on year and the first two
// characters of their 4-digit code; voivodeship rows match on their 2-digit
// code. When sec has several rows for one key the first wins. Unmatched
// counties get a missing value and the row count of main is preserved. The
// column is added to the result when main does not have it yet.
func BroadcastVoivodeship(main, sec *indicator.Table, column string) (*indicator.Table, int, error) {
	sci, err := sec.MustColumn(column)
	if err != nil {
		return nil, 0, err
	}

	lookup := make(map[voivKey]float64, len(sec.Rows))
	for _, r := range sec.Rows {
		k := voivKey{code: terc.VoivodeshipKey(r.Code), year: r.Year}
		if _, seen := lookup[k]; !seen {
			lookup[k] = r.Values[sci]
		}
	}

	out := main.Clone()
	ci := out.ColumnIndex(column)
	if ci < 0 {
		if ci, err = out.AddColumn(column); err != nil {
			return nil, 0, err
		}
	}

	matched := 0
	for i := range out.Rows {
		r := &out.Rows[i]
		v, ok := lookup[voivKey{code: terc.Voivodeship(r.Code), year: r.Year}]
		if !ok {
			r.Values[ci] = indicator.Missing()
			continue
		}
		r.Values[ci] = v
		matched++
	}
	return out, matched, nil
}
