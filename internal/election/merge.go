package election

import (
	"slices"

	"github.com/sells-group/turnout-prep/internal/indicator"
)

// ElectionYears are the presidential election years of the turnout model.
var ElectionYears = []int{2000, 2005, 2010, 2015, 2020, 2025}

// Merge inner-joins the election results with the feature rows of the given
// years on (terc_code, year, county). The result carries the election columns
// followed by the feature columns, in election row order. A column present in
// both tables is a schema error.
func Merge(election, features *indicator.Table, years []int) (*indicator.Table, error) {
	for _, c := range features.Columns {
		if election.HasColumn(c) {
			return nil, &indicator.SchemaError{Column: c, Reason: "column present in both election and feature tables"}
		}
	}

	type joinKey struct {
		key    indicator.Key
		county string
	}
	feat := make(map[joinKey]int, len(features.Rows))
	for i, r := range features.Rows {
		if !slices.Contains(years, r.Year) {
			continue
		}
		feat[joinKey{key: r.Key(), county: r.County}] = i
	}

	out := indicator.New(append(slices.Clone(election.Columns), features.Columns...)...)
	for _, r := range election.Rows {
		fi, ok := feat[joinKey{key: r.Key(), county: r.County}]
		if !ok {
			continue
		}
		values := make([]float64, 0, len(out.Columns))
		values = append(values, r.Values...)
		values = append(values, features.Rows[fi].Values...)
		out.Rows = append(out.Rows, indicator.Row{Code: r.Code, County: r.County, Year: r.Year, Values: values})
	}
	return out, nil
}

// SplitTrainTest separates the rows of testYear from the rest. Training rows
// with a missing target are dropped; test rows are kept as they are.
func SplitTrainTest(t *indicator.Table, target string, testYear int) (train, test *indicator.Table, err error) {
	ti, err := t.MustColumn(target)
	if err != nil {
		return nil, nil, err
	}
	train = indicator.New(t.Columns...)
	test = indicator.New(t.Columns...)
	for _, r := range t.Rows {
		r.Values = slices.Clone(r.Values)
		switch {
		case r.Year == testYear:
			test.Rows = append(test.Rows, r)
		case !indicator.IsMissing(r.Values[ti]):
			train.Rows = append(train.Rows, r)
		}
	}
	return train, test, nil
}
