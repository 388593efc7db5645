package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"datasetapi/internal/model"
)

// dateLayouts are the calendar forms recognized as dates, most common first.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"2006-01",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.RFC822Z,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
}

// InferSchema derives the column list from the first data row, in header
// order. Descriptions start empty. A nil row yields no columns.
func InferSchema(header []string, first model.Row) []model.Column {
	if first == nil {
		return []model.Column{}
	}
	cols := make([]model.Column, 0, len(header))
	for _, name := range header {
		cols = append(cols, model.Column{
			Name: name,
			Type: InferType(first[name]),
		})
	}
	return cols
}

// InferType classifies a single value. The numeric check always runs before
// the date check, so "20240115" is a number.
func InferType(v model.Value) model.ColumnType {
	switch v.Kind() {
	case model.KindNumber:
		return model.ColumnNumber
	case model.KindDate:
		return model.ColumnDate
	case model.KindString:
		s, _ := v.Text()
		switch {
		case isNumeric(s):
			return model.ColumnNumber
		case isDate(s):
			return model.ColumnDate
		}
	}
	return model.ColumnString
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
