package ingest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"datasetapi/internal/model"
)

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"amount":         "amount",
		"Unit Price ($)": "Unit Price ___",
		"e-mail":         "e_mail",
		"snake_case_ok":  "snake_case_ok",
		"a.b/c":          "a_b_c",
		"a\u00a0b":       "a\u00a0b",
		"x\u3000y\vz":    "x\u3000y\vz",
		"\ufeffid":       "\ufeffid",
		"caf\u00e9":      "caf_",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeName(in), in)
	}
}

func TestCleanValue(t *testing.T) {
	assert.Equal(t, model.StringValue(""), CleanValue(model.NullValue()))
	assert.Equal(t, model.NumberValue(0), CleanValue(model.NumberValue(math.NaN())))
	assert.Equal(t, model.NumberValue(2.5), CleanValue(model.NumberValue(2.5)))
	assert.Equal(t, model.StringValue("x"), CleanValue(model.StringValue("  x \t")))
	assert.Equal(t, model.DateValue("2024-01-01"), CleanValue(model.DateValue(" 2024-01-01 ")))
}

func TestClean(t *testing.T) {
	header := []string{"a-b", "a_b", "note"}
	rows := []model.Row{
		{"a-b": model.StringValue(" 1 "), "a_b": model.NullValue(), "note": model.StringValue("keep")},
	}

	cols, out := Clean(header, rows)

	assert.Equal(t, []string{"a_b", "a_b_1", "note"}, cols)
	assert.Equal(t, model.Row{
		"a_b":   model.StringValue("1"),
		"a_b_1": model.StringValue(""),
		"note":  model.StringValue("keep"),
	}, out[0])
	// input untouched
	assert.Equal(t, model.StringValue(" 1 "), rows[0]["a-b"])
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		offered int
		want    int
	}{
		{name: "fewer rows than limit", limit: 20, offered: 5, want: 5},
		{name: "exactly the limit", limit: 20, offered: 20, want: 20},
		{name: "more rows than limit", limit: 20, offered: 25, want: 20},
		{name: "smaller limit", limit: 3, offered: 10, want: 3},
		{name: "zero limit falls back", limit: 0, offered: 30, want: model.PreviewLimit},
		{name: "limit above cap", limit: 500, offered: 30, want: model.PreviewLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPreview(tt.limit)
			for i := 0; i < tt.offered; i++ {
				p.Offer(model.Row{"i": model.NumberValue(float64(i))})
			}
			rows := p.Rows()
			assert.Len(t, rows, tt.want)
			if tt.want > 0 {
				assert.Equal(t, model.NumberValue(0), rows[0]["i"])
			}
		})
	}
}
