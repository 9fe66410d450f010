package indicator

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
)

// WriteCSVFile writes t to path.
func WriteCSVFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "indicator: create %s", path)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrap(f.Close(), "indicator: close output")
}

// WriteCSV writes the key columns followed by the indicator columns. Missing
// cells are written empty.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	header := append([]string{ColCode, ColCounty, ColYear}, t.Columns...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "indicator: write header")
	}
	rec := make([]string, len(header))
	for _, r := range t.Rows {
		rec[0] = r.Code
		rec[1] = r.County
		rec[2] = strconv.Itoa(r.Year)
		for i, v := range r.Values {
			rec[3+i] = FormatValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrapf(err, "indicator: write row %s/%d", r.Code, r.Year)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "indicator: flush csv")
}

// FormatValue renders a cell in the shortest exact form, or "" when missing.
func FormatValue(v float64) string {
	if IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
