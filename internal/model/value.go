package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindNumber
	KindDate
	KindString
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// Value is a single parsed cell. The zero value is Null.
type Value struct {
	kind ValueKind
	num  float64
	str  string
}

// Row maps a column name to its cell value.
type Row map[string]Value

func NullValue() Value { return Value{} }

func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }

// DateValue holds a date as its textual form; it is not parsed further.
func DateValue(s string) Value { return Value{kind: KindDate, str: s} }

func StringValue(s string) Value { return Value{kind: KindString, str: s} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Number returns the numeric payload and whether v is a Number.
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Text returns the textual payload of a String or Date value.
func (v Value) Text() (string, bool) {
	return v.str, v.kind == KindString || v.kind == KindDate
}

// String renders the value the way it is written to a delimited file.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate, KindString:
		return v.str
	default:
		return ""
	}
}

// MarshalJSON encodes numbers as JSON numbers (non-finite ones as null),
// text as strings and Null as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	case KindDate, KindString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON. Dates come back as strings
// since JSON carries no distinction between the two.
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = NullValue()
	case float64:
		*v = NumberValue(t)
	case string:
		*v = StringValue(t)
	case bool:
		*v = StringValue(strconv.FormatBool(t))
	default:
		return fmt.Errorf("unsupported cell value %s", string(b))
	}
	return nil
}
