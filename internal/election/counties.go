package election

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/turnout-prep/internal/indicator"
	"github.com/sells-group/turnout-prep/internal/terc"
)

// Vote count columns of the election result files.
const (
	ColAuthorizedVoters = "authorized_voters"
	ColVotesCast        = "votes_cast"
)

// CountyKey normalizes a county name for joins: NFC, case-folded, with
// surrounding and repeated whitespace removed.
func CountyKey(name string) string {
	name = norm.NFC.String(name)
	name = strings.Join(strings.Fields(name), " ")
	return cases.Fold().String(name)
}

// RowByCounty returns the first row whose county matches name.
func RowByCounty(t *indicator.Table, name string) (indicator.Row, error) {
	key := CountyKey(name)
	for _, r := range t.Rows {
		if CountyKey(r.County) == key {
			return r, nil
		}
	}
	return indicator.Row{}, eris.Errorf("election: county %q not found", name)
}

// SplitRow derives a row for county from the selected row, scaling the listed
// columns by share and truncating toward zero. The remaining columns are
// missing and the code is left empty for UpdateCodes to assign. With no
// columns the vote count columns are scaled.
func SplitRow(t *indicator.Table, selected indicator.Row, county string, share float64, columns ...string) (indicator.Row, error) {
	if share < 0 || math.IsNaN(share) {
		return indicator.Row{}, eris.Errorf("election: invalid share %v for %s", share, county)
	}
	if len(columns) == 0 {
		columns = []string{ColAuthorizedVoters, ColVotesCast}
	}

	values := make([]float64, len(t.Columns))
	for i := range values {
		values[i] = indicator.Missing()
	}
	for _, c := range columns {
		ci, err := t.MustColumn(c)
		if err != nil {
			return indicator.Row{}, err
		}
		values[ci] = math.Trunc(selected.Values[ci] * share)
	}
	return indicator.Row{County: county, Year: selected.Year, Values: values}, nil
}

// UpdateCodes returns a copy of target with every terc code replaced by the
// code of the reference row sharing its county name. When several reference
// rows share the name, the first whose code has the same voivodeship prefix as
// the current code wins, otherwise the first one. Rows without a match get an
// empty code. The int is the number of rows matched.
func UpdateCodes(target, reference *indicator.Table) (*indicator.Table, int) {
	candidates := make(map[string][]string)
	for _, r := range reference.Rows {
		k := CountyKey(r.County)
		candidates[k] = append(candidates[k], r.Code)
	}

	out := target.Clone()
	matched := 0
	for i := range out.Rows {
		r := &out.Rows[i]
		codes := candidates[CountyKey(r.County)]
		if len(codes) == 0 {
			r.Code = ""
			continue
		}
		pick := codes[0]
		for _, c := range codes {
			if terc.SamePrefix(r.Code, c) {
				pick = c
				break
			}
		}
		r.Code = pick
		matched++
	}
	return out, matched
}
