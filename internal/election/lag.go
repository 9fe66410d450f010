// Package election joins county indicators with presidential-election
// results: lagged features, the merge itself, train/test splits and the
// county-code repairs the election files need.
package election

import "github.com/sells-group/turnout-prep/internal/indicator"

// Delta column suffixes added by LagFeatures.
const (
	Delta1Suffix = "_delta_1_year"
	Delta5Suffix = "_delta_5_years"
)

// LagFeatures shifts every row one year forward, so indicators describe the
// year before the election they are joined to, and adds 1-year and 5-year
// differences of each listed column. Differences are positional within an
// entity's year-ordered rows; they stay missing when the earlier row is
// absent or either value is missing.
func LagFeatures(t *indicator.Table, columns []string) (*indicator.Table, error) {
	sources := make([]int, len(columns))
	for i, c := range columns {
		ci, err := t.MustColumn(c)
		if err != nil {
			return nil, err
		}
		sources[i] = ci
	}

	out := t.Clone()
	for i := range out.Rows {
		out.Rows[i].Year++
	}
	out.Sort()

	d1 := make([]int, len(columns))
	d5 := make([]int, len(columns))
	for i, c := range columns {
		var err error
		if d1[i], err = out.AddColumn(c + Delta1Suffix); err != nil {
			return nil, err
		}
		if d5[i], err = out.AddColumn(c + Delta5Suffix); err != nil {
			return nil, err
		}
	}

	codes := out.Codes()
	groups := out.Group()
	for _, code := range codes {
		rows := groups[code]
		for pos, ri := range rows {
			for i, ci := range sources {
				out.Rows[ri].Values[d1[i]] = lagDiff(out, rows, pos, 1, ci)
				out.Rows[ri].Values[d5[i]] = lagDiff(out, rows, pos, 5, ci)
			}
		}
	}
	return out, nil
}

func lagDiff(t *indicator.Table, rows []int, pos, lag, ci int) float64 {
	if pos < lag {
		return indicator.Missing()
	}
	return t.Rows[rows[pos]].Values[ci] - t.Rows[rows[pos-lag]].Values[ci]
}

// DeltaColumns lists the columns LagFeatures adds for columns.
func DeltaColumns(columns []string) []string {
	out := make([]string, 0, 2*len(columns))
	for _, c := range columns {
		out = append(out, c+Delta1Suffix, c+Delta5Suffix)
	}
	return out
}
