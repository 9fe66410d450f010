package reconcile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/turnout-prep/internal/indicator"
)

func row(code string, year int, values ...float64) indicator.Row {
	return indicator.Row{Code: code, County: "county " + code, Year: year, Values: values}
}

func table(t *testing.T, columns []string, rows ...indicator.Row) *indicator.Table {
	t.Helper()
	tbl := indicator.New(columns...)
	for _, r := range rows {
		require.NoError(t, tbl.Append(r))
	}
	return tbl
}

func TestApply_UpdateOnly(t *testing.T) {
	tbl := table(t, []string{"x"},
		row("A", 1999, math.NaN()),
		row("A", 2000, 5),
	)
	updates := indicator.Updates{
		{Code: "A", Year: 1998}: 7,
		{Code: "A", Year: 1999}: 4.2,
	}

	out, written, err := Apply(tbl, "x", updates)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, 4.2, out.Rows[0].Values[0])
	assert.Equal(t, 5.0, out.Rows[1].Values[0])
	_, found := out.Value(indicator.Key{Code: "A", Year: 1998}, "x")
	assert.False(t, found, "no row is inserted for 1998")

	assert.True(t, math.IsNaN(tbl.Rows[0].Values[0]), "input table is untouched")
}

func TestApply_Idempotent(t *testing.T) {
	tbl := table(t, []string{"x", "y"},
		row("A", 2000, 1, 10),
		row("B", 2000, 2, 20),
	)
	updates := indicator.Updates{
		{Code: "A", Year: 2000}: 3,
		{Code: "C", Year: 2000}: 9,
	}

	once, _, err := Apply(tbl, "y", updates)
	require.NoError(t, err)
	twice, _, err := Apply(once, "y", updates)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.Equal(t, tbl.Columns, twice.Columns)
	assert.Equal(t, tbl.Len(), twice.Len())
	assert.Equal(t, []float64{1, 3}, twice.Rows[0].Values)
}

func TestApply_MissingValueIgnored(t *testing.T) {
	tbl := table(t, []string{"x"}, row("A", 2000, 8))
	out, written, err := Apply(tbl, "x", indicator.Updates{{Code: "A", Year: 2000}: math.NaN()})
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Equal(t, 8.0, out.Rows[0].Values[0])
}

func TestApply_MissingColumn(t *testing.T) {
	tbl := table(t, []string{"x"}, row("A", 2000, 8))
	_, _, err := Apply(tbl, "nope", indicator.Updates{})
	require.Error(t, err)
	assert.True(t, indicator.IsSchemaError(err))
}

func TestApply_EmptyUpdates(t *testing.T) {
	tbl := table(t, []string{"x"}, row("A", 2000, 8))
	out, written, err := Apply(tbl, "x", nil)
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Equal(t, tbl, out)
}
