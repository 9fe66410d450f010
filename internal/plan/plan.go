// Package plan loads the declarative backfill plan: per-indicator policies
// and the ordered list of passes to run over the indicator table.
package plan

import (
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Pass kinds.
const (
	KindFloorFill       = "floor_fill"
	KindRangeFill       = "range_fill"
	KindBackcast        = "backcast"
	KindSynthYear       = "synth_year"
	KindVoivodeshipJoin = "voivodeship_join"
	KindLagFeatures     = "lag_features"
)

// Kinds lists every supported pass kind.
var Kinds = []string{
	KindFloorFill, KindRangeFill, KindBackcast,
	KindSynthYear, KindVoivodeshipJoin, KindLagFeatures,
}

// Non-negativity policies for synthesized values.
const (
	NonNegativeAuto   = "auto"
	NonNegativeAlways = "always"
	NonNegativeNever  = "never"
)

// Plan is the top-level plan file.
type Plan struct {
	Name       string               `yaml:"name"`
	Indicators map[string]Indicator `yaml:"indicators"`
	Passes     []Pass               `yaml:"passes"`
}

// Indicator is the per-column policy, resolved once at load time.
type Indicator struct {
	// NonNegative decides clipping of synthesized values: auto, always or never.
	NonNegative string `yaml:"non_negative"`
	// TrainYears overrides a floor_fill pass's training window for this column.
	TrainYears []int `yaml:"train_years,omitempty"`
	// ReferenceYear overrides a floor_fill pass's fallback year for this column.
	ReferenceYear int `yaml:"reference_year,omitempty"`
}

// Pass is one step of the plan. Only the fields of its Kind are read.
type Pass struct {
	Kind    string   `yaml:"kind"`
	Columns []string `yaml:"columns"`

	// floor_fill
	TrainYears    []int `yaml:"train_years,omitempty"`
	TargetYears   []int `yaml:"target_years,omitempty"`
	ReferenceYear int   `yaml:"reference_year,omitempty"`

	// range_fill
	From   int      `yaml:"from,omitempty"`
	To     int      `yaml:"to,omitempty"`
	Cutoff int      `yaml:"cutoff,omitempty"`
	Codes  []string `yaml:"codes,omitempty"`

	// backcast
	NearestYear int `yaml:"nearest_year,omitempty"`
	Periods     int `yaml:"periods,omitempty"`

	// synth_year
	Target int `yaml:"target,omitempty"`
	YearA  int `yaml:"year_a,omitempty"`
	YearB  int `yaml:"year_b,omitempty"`

	// voivodeship_join
	Source string `yaml:"source,omitempty"`
	Sheet  string `yaml:"sheet,omitempty"`
}

// Load reads and validates a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "plan: read %s", path)
	}
	return Parse(data)
}

// Parse decodes a plan, applies defaults and validates it.
func Parse(data []byte) (*Plan, error) {
	var wrapper struct {
		Plan Plan `yaml:"plan"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "plan: parse")
	}

	p := &wrapper.Plan
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Plan) applyDefaults() {
	if p.Name == "" {
		p.Name = "backfill"
	}
	for name, ind := range p.Indicators {
		if ind.NonNegative == "" {
			ind.NonNegative = NonNegativeAuto
		}
		p.Indicators[name] = ind
	}
	for i := range p.Passes {
		ps := &p.Passes[i]
		switch ps.Kind {
		case KindFloorFill:
			if len(ps.TrainYears) == 0 {
				ps.TrainYears = []int{2002, 2003, 2004}
			}
			if len(ps.TargetYears) == 0 {
				ps.TargetYears = []int{2001, 2000}
			}
			if ps.ReferenceYear == 0 {
				ps.ReferenceYear = slices.Min(ps.TrainYears)
			}
		case KindSynthYear:
			if ps.Target == 0 && ps.YearA == 0 && ps.YearB == 0 {
				ps.Target, ps.YearA, ps.YearB = 1999, 2000, 2001
			}
		case KindBackcast:
			if ps.NearestYear == 0 {
				ps.NearestYear = 2001
			}
		}
	}
}

// Validate checks every pass has the fields its kind needs.
func (p *Plan) Validate() error {
	for name, ind := range p.Indicators {
		switch ind.NonNegative {
		case NonNegativeAuto, NonNegativeAlways, NonNegativeNever:
		default:
			return eris.Errorf("plan: indicator %s: unknown non_negative policy %q", name, ind.NonNegative)
		}
		if len(ind.TrainYears) == 1 {
			return eris.Errorf("plan: indicator %s: train_years needs at least 2 years", name)
		}
	}
	if len(p.Passes) == 0 {
		return eris.New("plan: no passes")
	}
	for i, ps := range p.Passes {
		if err := ps.validate(); err != nil {
			return eris.Wrapf(err, "plan: pass %d (%s)", i+1, ps.Kind)
		}
	}
	return nil
}

func (ps Pass) validate() error {
	if !slices.Contains(Kinds, ps.Kind) {
		return eris.Errorf("unknown kind %q", ps.Kind)
	}
	if len(ps.Columns) == 0 && ps.Kind != KindSynthYear {
		return eris.New("no columns")
	}
	switch ps.Kind {
	case KindFloorFill:
		if len(ps.TrainYears) < 2 {
			return eris.New("train_years needs at least 2 years")
		}
	case KindRangeFill:
		if ps.From == 0 || ps.To == 0 || ps.Cutoff == 0 {
			return eris.New("from, to and cutoff are required")
		}
		if ps.From > ps.To || ps.Cutoff <= ps.To {
			return eris.Errorf("invalid range %d-%d with cutoff %d", ps.From, ps.To, ps.Cutoff)
		}
	case KindBackcast:
		if ps.Periods <= 0 {
			return eris.New("periods must be positive")
		}
	case KindSynthYear:
		if ps.YearA == ps.YearB || ps.Target == ps.YearA || ps.Target == ps.YearB {
			return eris.Errorf("invalid synth years target=%d a=%d b=%d", ps.Target, ps.YearA, ps.YearB)
		}
	case KindVoivodeshipJoin:
		if ps.Source == "" {
			return eris.New("source is required")
		}
	}
	return nil
}

// Policy returns the indicator policy for column, defaulting to auto
// non-negativity and the pass's own windows.
func (p *Plan) Policy(column string) Indicator {
	if ind, ok := p.Indicators[column]; ok {
		return ind
	}
	return Indicator{NonNegative: NonNegativeAuto}
}
