package reconcile

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/turnout-prep/internal/indicator"
)

// Clip decides whether a synthesized column is clipped at zero.
type Clip string

const (
	// ClipAuto clips when every observed value of the column is >= 0.
	ClipAuto   Clip = "auto"
	ClipAlways Clip = "always"
	ClipNever  Clip = "never"
)

// SynthSpec configures synthetic-year insertion: Target = 2*YearA - YearB,
// one year before YearA.
type SynthSpec struct {
	Target  int
	YearA   int
	YearB   int
	Columns []string        // empty means every column
	Clip    map[string]Clip // per column; absent means ClipAuto
}

// DefaultSynthSpec synthesizes 1999 from 2000 and 2001.
func DefaultSynthSpec(columns ...string) SynthSpec {
	return SynthSpec{Target: 1999, YearA: 2000, YearB: 2001, Columns: columns}
}

// Validate checks the spec against t.
func (s SynthSpec) Validate(t *indicator.Table) error {
	if s.YearA == s.YearB {
		return eris.Errorf("reconcile: synth years must differ, got %d twice", s.YearA)
	}
	if s.Target == s.YearA || s.Target == s.YearB {
		return eris.Errorf("reconcile: synth target %d overlaps a source year", s.Target)
	}
	for _, c := range s.Columns {
		if _, err := t.MustColumn(c); err != nil {
			return err
		}
	}
	for c, p := range s.Clip {
		switch p {
		case ClipAuto, ClipAlways, ClipNever:
		default:
			return eris.Errorf("reconcile: unknown clip policy %q for column %s", p, c)
		}
	}
	return nil
}

func (s SynthSpec) clips(t *indicator.Table, column string) bool {
	switch s.Clip[column] {
	case ClipAlways:
		return true
	case ClipNever:
		return false
	default:
		return t.NonNegative(column)
	}
}

// SynthesizeYear appends a Target row for every entity that has rows at both
// YearA and YearB and no Target row yet. The new row is a copy of the YearA
// row with each selected column set to 2*A - B (missing when either source
// is missing), clipped at zero per the column's policy. The result is sorted
// by (terc_code, year); the int is the number of rows added.
func SynthesizeYear(t *indicator.Table, spec SynthSpec) (*indicator.Table, int, error) {
	if err := spec.Validate(t); err != nil {
		return nil, 0, err
	}

	columns := spec.Columns
	if len(columns) == 0 {
		columns = t.Columns
	}
	type target struct {
		ci   int
		clip bool
	}
	targets := make([]target, len(columns))
	for i, c := range columns {
		targets[i] = target{ci: t.ColumnIndex(c), clip: spec.clips(t, c)}
	}

	out := t.Clone()
	index := t.Index()
	added := 0
	for _, code := range t.Codes() {
		a, okA := index[indicator.Key{Code: code, Year: spec.YearA}]
		b, okB := index[indicator.Key{Code: code, Year: spec.YearB}]
		if !okA || !okB {
			continue
		}
		if _, exists := index[indicator.Key{Code: code, Year: spec.Target}]; exists {
			continue
		}

		rowA, rowB := t.Rows[a], t.Rows[b]
		row := indicator.Row{
			Code:   rowA.Code,
			County: rowA.County,
			Year:   spec.Target,
			Values: slices.Clone(rowA.Values),
		}
		for _, tg := range targets {
			v := 2*rowA.Values[tg.ci] - rowB.Values[tg.ci]
			if tg.clip && v < 0 {
				v = 0
			}
			row.Values[tg.ci] = v
		}
		out.Rows = append(out.Rows, row)
		added++
	}

	out.Sort()
	return out, added, nil
}
