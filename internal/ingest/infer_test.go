package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"datasetapi/internal/model"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		in   model.Value
		want model.ColumnType
	}{
		{model.StringValue("42"), model.ColumnNumber},
		{model.StringValue("-3.5e2"), model.ColumnNumber},
		{model.StringValue("20240115"), model.ColumnNumber},
		{model.StringValue("2024-01-15"), model.ColumnDate},
		{model.StringValue("2024-01-15T10:20:30Z"), model.ColumnDate},
		{model.StringValue("01/15/2024"), model.ColumnDate},
		{model.StringValue("Jan 15, 2024"), model.ColumnDate},
		{model.StringValue("hello"), model.ColumnString},
		{model.StringValue("NaN"), model.ColumnString},
		{model.StringValue("Inf"), model.ColumnString},
		{model.StringValue(""), model.ColumnString},
		{model.NumberValue(1), model.ColumnNumber},
		{model.DateValue("45306"), model.ColumnDate},
		{model.NullValue(), model.ColumnString},
	}

	for _, tt := range tests {
		t.Run(tt.in.Kind().String()+"/"+tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.in))
		})
	}
}

func TestInferSchema(t *testing.T) {
	header := []string{"name", "amount", "when", "missing"}
	first := model.Row{
		"name":   model.StringValue("alice"),
		"amount": model.StringValue("12.50"),
		"when":   model.StringValue("2024-02-29"),
	}

	cols := InferSchema(header, first)

	assert.Equal(t, []model.Column{
		{Name: "name", Type: model.ColumnString},
		{Name: "amount", Type: model.ColumnNumber},
		{Name: "when", Type: model.ColumnDate},
		{Name: "missing", Type: model.ColumnString},
	}, cols)

	assert.Empty(t, InferSchema(header, nil))
	assert.NotNil(t, InferSchema(header, nil))
}
