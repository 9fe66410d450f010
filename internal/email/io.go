package email

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Input and output column names.
const (
	ColCustomerID   = "customer_id"
	ColSegmentation = "segmentation"
	ColEmail        = "email"
)

// ReadCustomers reads a CSV with customer_id and segmentation columns.
// Other columns are ignored.
func ReadCustomers(r io.Reader) ([]Customer, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "email: read header")
	}
	idIdx, segIdx := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case ColCustomerID:
			idIdx = i
		case ColSegmentation:
			segIdx = i
		}
	}
	if idIdx < 0 || segIdx < 0 {
		return nil, eris.Errorf("email: customers need %s and %s columns", ColCustomerID, ColSegmentation)
	}

	var out []Customer
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "email: read line %d", line)
		}
		if idIdx >= len(rec) || segIdx >= len(rec) {
			return nil, eris.Errorf("email: line %d: short record", line)
		}
		out = append(out, Customer{
			ID:      strings.TrimSpace(rec[idIdx]),
			Segment: strings.TrimSpace(rec[segIdx]),
		})
	}
	return out, nil
}

// ReadCustomersFile opens path and calls ReadCustomers.
func ReadCustomersFile(path string) ([]Customer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "email: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadCustomers(f)
}

// LoadPrompts reads a YAML (or JSON) mapping of segment to instruction.
func LoadPrompts(path string) (Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "email: read prompts %s", path)
	}
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "email: parse prompts %s", path)
	}
	if len(p) == 0 {
		return nil, eris.Errorf("email: prompts file %s is empty", path)
	}
	return p, nil
}

// WriteResults writes customer_id, segmentation and email columns.
func WriteResults(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColCustomerID, ColSegmentation, ColEmail}); err != nil {
		return eris.Wrap(err, "email: write header")
	}
	for _, r := range results {
		if err := cw.Write([]string{r.CustomerID, r.Segment, r.Email}); err != nil {
			return eris.Wrap(err, "email: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "email: flush")
}

// WriteResultsFile creates path and calls WriteResults.
func WriteResultsFile(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "email: create %s", path)
	}
	if err := WriteResults(f, results); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "email: close %s", path)
}
