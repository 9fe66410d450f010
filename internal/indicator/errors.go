package indicator

import (
	"errors"
	"fmt"
	"strconv"
)

// SchemaError reports malformed input: a missing or duplicated column, a
// duplicate (terc_code, year) key, or an unparsable key cell. It is the only
// fatal error class of the backfill pipeline and is raised before any fitting.
type SchemaError struct {
	Column string
	Line   int // 1-based input line, 0 when not tied to a line
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("indicator: schema: %s (column %q, line %d)", e.Reason, e.Column, e.Line)
	}
	return fmt.Sprintf("indicator: schema: %s (column %q)", e.Reason, e.Column)
}

// IsSchemaError reports whether err carries a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

func itoa(i int) string { return strconv.Itoa(i) }
