package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/turnout-prep/internal/extrapolate"
	"github.com/sells-group/turnout-prep/internal/indicator"
	"github.com/sells-group/turnout-prep/internal/plan"
	"github.com/sells-group/turnout-prep/internal/reconcile"
	"github.com/sells-group/turnout-prep/internal/store"
	"github.com/sells-group/turnout-prep/internal/trend"
)

const testPlan = `
plan:
  name: test
  indicators:
    population:
      non_negative: always
  passes:
    - kind: floor_fill
      columns: [unemployment]
    - kind: backcast
      columns: [population]
      nearest_year: 2001
      periods: 2
    - kind: synth_year
      columns: [population, unemployment]
    - kind: voivodeship_join
      columns: [gdp]
      source: voivodeship.csv
    - kind: lag_features
      columns: [population]
`

// countyTable has one county observed from 2002 on and one with no data.
func countyTable(t *testing.T) *indicator.Table {
	t.Helper()
	tbl := indicator.New("population", "unemployment")
	for y := 2000; y <= 2010; y++ {
		pop, unemp := math.NaN(), math.NaN()
		if y >= 2002 {
			pop = 1000 + 10*float64(y-2002)
			unemp = 20 - 2*float64(y-2002)
		}
		require.NoError(t, tbl.Append(indicator.Row{Code: "0201", County: "bolesławiecki", Year: y, Values: []float64{pop, unemp}}))
		require.NoError(t, tbl.Append(indicator.Row{Code: "0202", County: "dzierżoniowski", Year: y, Values: []float64{math.NaN(), math.NaN()}}))
	}
	return tbl
}

func voivodeshipTable() *indicator.Table {
	tbl := indicator.New("gdp")
	for y := 1999; y <= 2010; y++ {
		tbl.Rows = append(tbl.Rows, indicator.Row{Code: "02", County: "dolnośląskie", Year: y, Values: []float64{float64(y)}})
	}
	return tbl
}

func buildTestPasses(t *testing.T) []Pass {
	t.Helper()
	p, err := plan.Parse([]byte(testPlan))
	require.NoError(t, err)

	var opened []string
	passes, err := Build(context.Background(), p, Deps{
		Batch: extrapolate.NewBatch(2),
		ARIMA: trend.DefaultAutoConfig(),
		Open: func(_ context.Context, path, _ string) (*indicator.Table, error) {
			opened = append(opened, path)
			return voivodeshipTable(), nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"voivodeship.csv"}, opened)
	return passes
}

func TestBuild(t *testing.T) {
	passes := buildTestPasses(t)
	var names []string
	for _, p := range passes {
		names = append(names, p.Name()+":"+p.Column())
	}
	assert.Equal(t, []string{
		"floor_fill:unemployment",
		"backcast:population",
		"synth_year:",
		"voivodeship_join:gdp",
		"lag_features:",
	}, names)

	synth := passes[2].(*synthPass)
	assert.Equal(t, 1999, synth.spec.Target)
	assert.EqualValues(t, "always", synth.spec.Clip["population"])
}

func TestBuild_IndicatorWindowOverride(t *testing.T) {
	p, err := plan.Parse([]byte(`
plan:
  indicators:
    unemployment:
      train_years: [2003, 2004, 2005]
  passes:
    - kind: floor_fill
      columns: [unemployment, population]
`))
	require.NoError(t, err)

	passes, err := Build(context.Background(), p, Deps{})
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.Equal(t, []int{2003, 2004, 2005}, passes[0].(*floorFillPass).spec.TrainYears)
	assert.Equal(t, 2002, passes[0].(*floorFillPass).spec.ReferenceYear, "pass default kept")
	assert.Equal(t, []int{2002, 2003, 2004}, passes[1].(*floorFillPass).spec.TrainYears)
}

func TestBuild_SourceError(t *testing.T) {
	p, err := plan.Parse([]byte(testPlan))
	require.NoError(t, err)
	_, err = Build(context.Background(), p, Deps{
		Open: func(context.Context, string, string) (*indicator.Table, error) {
			return nil, eris.New("no such file")
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voivodeship.csv")
}

func TestRunner_Run(t *testing.T) {
	passes := buildTestPasses(t)
	ledger := &mockLedger{}
	ledger.On("CreateRun", mock.Anything, "test", "in.csv").Return(&store.Run{ID: "run-1"}, nil)
	ledger.On("RecordPass", mock.Anything, "run-1", mock.AnythingOfType("store.PassRecord")).Return(&store.PassRecord{}, nil).Times(len(passes))
	ledger.On("FinishRun", mock.Anything, "run-1", store.RunStatusComplete, "").Return(nil)

	in := countyTable(t)
	res, err := NewRunner(ledger).Run(context.Background(), "test", "in.csv", in, passes)
	require.NoError(t, err)
	ledger.AssertExpectations(t)

	assert.Equal(t, "run-1", res.RunID)
	require.Len(t, res.Passes, 5)

	floor := res.Passes[0]
	assert.Equal(t, 2, floor.Filled)
	assert.Equal(t, 1, floor.Skipped)

	backcast := res.Passes[1]
	assert.Equal(t, 2, backcast.Filled)

	synth := res.Passes[2]
	assert.Equal(t, 2, synth.Filled, "both counties have 2000 and 2001 rows")
	assert.Equal(t, 22, synth.RowsIn)
	assert.Equal(t, 24, synth.RowsOut)

	out := res.Table
	assert.Equal(t, []string{"population", "unemployment", "gdp", "population_delta_1_year", "population_delta_5_years"}, out.Columns)

	// lag_features shifted every year by one: the 2001 backcast now sits at 2002
	v, ok := out.Value(indicator.Key{Code: "0201", Year: 2002}, "population")
	require.True(t, ok)
	assert.Equal(t, 990.0, v)
	v, _ = out.Value(indicator.Key{Code: "0201", Year: 2001}, "unemployment")
	assert.Equal(t, 24.0, v, "floor fill of 2000")
	v, _ = out.Value(indicator.Key{Code: "0201", Year: 2000}, "population")
	assert.Equal(t, 970.0, v, "synthesized 1999 = 2*980 - 990")
	v, _ = out.Value(indicator.Key{Code: "0201", Year: 2001}, "population_delta_1_year")
	assert.Equal(t, 10.0, v)
	v, _ = out.Value(indicator.Key{Code: "0202", Year: 2005}, "gdp")
	assert.Equal(t, 2004.0, v)
	assert.Equal(t, 22, in.Len(), "input table untouched")
}

func TestRunner_PassFailure(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("CreateRun", mock.Anything, "bad", "in.csv").Return(&store.Run{ID: "run-2"}, nil)
	ledger.On("FinishRun", mock.Anything, "run-2", store.RunStatusFailed, mock.AnythingOfType("string")).Return(nil)

	passes := []Pass{&lagPass{columns: []string{"missing"}}}
	_, err := NewRunner(ledger).Run(context.Background(), "bad", "in.csv", countyTable(t), passes)
	require.Error(t, err)
	assert.True(t, indicator.IsSchemaError(err))
	assert.Contains(t, err.Error(), "lag_features")
	ledger.AssertExpectations(t)
	ledger.AssertNotCalled(t, "RecordPass", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_InvalidTable(t *testing.T) {
	tbl := countyTable(t)
	tbl.Rows = append(tbl.Rows, tbl.Rows[0])

	_, err := NewRunner(nil).Run(context.Background(), "dup", "in.csv", tbl, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key 0201/2000")
}

func TestRunner_NoLedger(t *testing.T) {
	passes := []Pass{&synthPass{spec: reconcile.DefaultSynthSpec()}}
	res, err := NewRunner(nil).Run(context.Background(), "p", "in.csv", countyTable(t), passes)
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
	assert.Equal(t, 2, res.Passes[0].Filled)
}

func TestRunner_CreateRunError(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("CreateRun", mock.Anything, "p", "in.csv").Return(nil, eris.New("disk full"))
	_, err := NewRunner(ledger).Run(context.Background(), "p", "in.csv", countyTable(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create run")
}
