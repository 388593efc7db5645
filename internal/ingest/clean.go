package ingest

import (
	"math"
	"regexp"
	"strings"

	"datasetapi/internal/model"
)

// RE2's \s is ASCII only; \v, the Unicode separators and the BOM count as
// whitespace too.
var unsafeNameChars = regexp.MustCompile(`[^\w\s\v\p{Z}\x{FEFF}]`)

// SanitizeName replaces every character that is neither a word character nor
// whitespace with an underscore.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// CleanValue normalizes a single cell: Null becomes "", NaN becomes 0 and
// text is trimmed. Everything else passes through.
func CleanValue(v model.Value) model.Value {
	switch v.Kind() {
	case model.KindNull:
		return model.StringValue("")
	case model.KindNumber:
		if f, _ := v.Number(); math.IsNaN(f) {
			return model.NumberValue(0)
		}
	case model.KindString:
		s, _ := v.Text()
		return model.StringValue(strings.TrimSpace(s))
	case model.KindDate:
		s, _ := v.Text()
		return model.DateValue(strings.TrimSpace(s))
	}
	return v
}

// Cleaner applies the normalization stage to rows of one header. Sanitized
// names that collide are suffixed so the output columns stay unique.
type Cleaner struct {
	header  []string
	columns []string
}

func NewCleaner(header []string) *Cleaner {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = SanitizeName(h)
	}
	return &Cleaner{header: header, columns: uniqueNames(names)}
}

// Columns returns the sanitized column names in header order.
func (c *Cleaner) Columns() []string { return c.columns }

// Row returns a cleaned copy of row keyed by the sanitized names.
func (c *Cleaner) Row(row model.Row) model.Row {
	out := make(model.Row, len(c.header))
	for i, name := range c.header {
		out[c.columns[i]] = CleanValue(row[name])
	}
	return out
}

// Clean is the whole-sequence form of Cleaner. It does not modify rows.
func Clean(header []string, rows []model.Row) ([]string, []model.Row) {
	c := NewCleaner(header)
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		out[i] = c.Row(r)
	}
	return c.Columns(), out
}
