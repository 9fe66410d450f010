package indicator

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/turnout-prep/internal/terc"
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	Delimiter rune // default ','
	CodeWidth int  // zero-pad codes to this width; 0 leaves them as read
}

// XLSXOptions configures ReadXLSX.
type XLSXOptions struct {
	SheetName string // if set, overrides SheetIndex
	SheetIndex int
	SkipRows  int // rows above the header
	CodeWidth int
}

// FileOptions configures ReadFile.
type FileOptions struct {
	Sheet     string // xlsx only; first sheet when empty
	Delimiter rune   // csv only
	CodeWidth int
}

// ReadFile reads a .xlsx workbook or a delimited text file, chosen by
// extension.
func ReadFile(ctx context.Context, path string, opts FileOptions) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{SheetName: opts.Sheet, CodeWidth: opts.CodeWidth})
	default:
		return ReadCSVFile(ctx, path, CSVOptions{Delimiter: opts.Delimiter, CodeWidth: opts.CodeWidth})
	}
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(ctx context.Context, path string, opts CSVOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "indicator: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return ReadCSV(ctx, f, opts)
}

// ReadCSV parses a table whose header holds terc_code, county, year and any
// number of numeric indicator columns. Codes are kept verbatim as text.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) (*Table, error) {
	rowCh, errCh := streamRecords(ctx, r, opts.Delimiter)

	var b *builder
	line := 0
	for rec := range rowCh {
		line++
		if b == nil {
			var err error
			if b, err = newBuilder(rec, opts.CodeWidth); err != nil {
				drain(rowCh)
				return nil, err
			}
			continue
		}
		if err := b.add(rec, line); err != nil {
			drain(rowCh)
			return nil, err
		}
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if b == nil {
		return nil, &SchemaError{Column: ColCode, Reason: "empty input"}
	}
	return b.finish()
}

// ReadXLSX parses the same layout from a workbook sheet. Cells are read as
// their formatted text so zero-padded codes survive.
func ReadXLSX(path string, opts XLSXOptions) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "indicator: open xlsx")
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var b *builder
	for i, row := range sheet.Rows {
		if i < opts.SkipRows {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if b == nil {
			if b, err = newBuilder(cells, opts.CodeWidth); err != nil {
				return nil, err
			}
			continue
		}
		if isBlank(cells) {
			continue
		}
		if err := b.add(cells, i+1); err != nil {
			return nil, err
		}
	}
	if b == nil {
		return nil, &SchemaError{Column: ColCode, Reason: "empty sheet"}
	}
	return b.finish()
}

func pickSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("indicator: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("indicator: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

// streamRecords reads CSV records on a goroutine. Both channels are closed
// when reading completes.
func streamRecords(ctx context.Context, r io.Reader, delim rune) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if delim != 0 {
			reader.Comma = delim
		}
		reader.FieldsPerRecord = -1

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "indicator: context cancelled")
				return
			}
			rec, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "indicator: read csv row")
				return
			}
			select {
			case rowCh <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "indicator: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

func drain(ch <-chan []string) {
	for range ch {
	}
}

// builder accumulates parsed rows against a resolved header.
type builder struct {
	codeCol, countyCol, yearCol int
	valueCols                   []int
	codeWidth                   int
	table                       *Table
}

func newBuilder(header []string, codeWidth int) (*builder, error) {
	b := &builder{codeCol: -1, countyCol: -1, yearCol: -1, codeWidth: codeWidth}
	var columns []string
	seen := make(map[string]bool)
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, &SchemaError{Column: name, Line: 1, Reason: "duplicate column"}
		}
		seen[name] = true
		switch name {
		case ColCode:
			b.codeCol = i
		case ColCounty:
			b.countyCol = i
		case ColYear:
			b.yearCol = i
		default:
			b.valueCols = append(b.valueCols, i)
			columns = append(columns, name)
		}
	}
	required := []struct {
		name string
		idx  int
	}{{ColCode, b.codeCol}, {ColCounty, b.countyCol}, {ColYear, b.yearCol}}
	for _, rc := range required {
		if rc.idx < 0 {
			return nil, &SchemaError{Column: rc.name, Line: 1, Reason: "required column missing"}
		}
	}
	b.table = New(columns...)
	return b, nil
}

func (b *builder) add(rec []string, line int) error {
	code := cell(rec, b.codeCol)
	if b.codeWidth > 0 {
		code = terc.Pad(code, b.codeWidth)
	} else {
		code = terc.Clean(code)
	}
	if code == "" {
		return &SchemaError{Column: ColCode, Line: line, Reason: "empty code"}
	}

	year, err := parseYear(cell(rec, b.yearCol))
	if err != nil {
		return &SchemaError{Column: ColYear, Line: line, Reason: "unparsable year " + strconv.Quote(cell(rec, b.yearCol))}
	}

	values := make([]float64, len(b.valueCols))
	for i, ci := range b.valueCols {
		v, ok := parseValue(cell(rec, ci))
		if !ok {
			return &SchemaError{Column: b.table.Columns[i], Line: line, Reason: "unparsable value " + strconv.Quote(cell(rec, ci))}
		}
		values[i] = v
	}

	return b.table.Append(Row{
		Code:   code,
		County: strings.TrimSpace(cell(rec, b.countyCol)),
		Year:   year,
		Values: values,
	})
}

func (b *builder) finish() (*Table, error) {
	if err := b.table.Validate(); err != nil {
		return nil, err
	}
	return b.table, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	return strconv.Atoi(s)
}

// parseValue parses a numeric cell. Empty cells and the usual statistical
// office suppression markers read as missing; a decimal comma is accepted.
func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "-", ".", "nan", "na", "n/a", "null", "x":
		return math.NaN(), true
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
