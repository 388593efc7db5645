package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueJSON(t *testing.T) {
	row := Row{
		"n":    NumberValue(12.5),
		"nan":  NumberValue(math.NaN()),
		"d":    DateValue("2024-01-15"),
		"s":    StringValue("hi"),
		"null": NullValue(),
	}
	b, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":12.5,"nan":null,"d":"2024-01-15","s":"hi","null":null}`, string(b))

	var back Row
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, NumberValue(12.5), back["n"])
	assert.Equal(t, StringValue("2024-01-15"), back["d"])
	assert.True(t, back["null"].IsNull())

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`true`), &v))
	assert.Equal(t, StringValue("true"), v)
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &v))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "", NullValue().String())
	assert.Equal(t, "1200", NumberValue(1200).String())
	assert.Equal(t, "0.1", NumberValue(0.1).String())
	assert.Equal(t, "x", StringValue("x").String())
	assert.Equal(t, "2024-01-15", DateValue("2024-01-15").String())

	_, ok := NullValue().Text()
	assert.False(t, ok)
	_, ok = StringValue("").Number()
	assert.False(t, ok)
}

func TestErrors(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := fmt.Errorf("wrapped: %w", E(KindParseFailure, "parse csv", "line 3", cause))

	assert.ErrorIs(t, err, ErrParseFailure)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, ErrEmptyFile)
	assert.Equal(t, KindParseFailure, KindOf(err))
	assert.Equal(t, "wrapped: parse csv: line 3: unexpected EOF", err.Error())

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, "empty_file", E(KindEmptyFile, "", "", nil).Error())

	// A specific error is not a sentinel for other errors of its kind.
	specific := E(KindNotFound, "get", "missing", nil)
	assert.NotErrorIs(t, E(KindNotFound, "other", "", nil), specific)
}

func TestDatasetLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
	cols := []Column{{Name: "a", Type: ColumnNumber}}

	t.Run("new dataset validation", func(t *testing.T) {
		_, err := NewDataset("", "o", "f", "f.csv", FileTypeCSV, now)
		assert.ErrorIs(t, err, ErrValidation)
		_, err = NewDataset("id", "o", "f", "f.csv", FileType("pdf"), now)
		assert.ErrorIs(t, err, ErrValidation)

		d, err := NewDataset("id", "o", "f", "f.csv", FileTypeCSV, now)
		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, d.Status)
		assert.Equal(t, time.UTC, d.CreatedAt.Location())
		assert.NotNil(t, d.Columns)
		assert.NoError(t, d.Validate())
	})

	t.Run("complete", func(t *testing.T) {
		d, _ := NewDataset("id", "o", "f", "f.csv", FileTypeCSV, now)
		later := now.Add(time.Minute)
		require.NoError(t, d.Complete(cols, 1, []Row{{"a": NumberValue(1)}}, "p.csv", later))

		assert.Equal(t, StatusCompleted, d.Status)
		assert.True(t, d.Downloadable())
		assert.True(t, d.UpdatedAt.Equal(later))
		assert.ErrorIs(t, d.Complete(cols, 1, nil, "p.csv", later), ErrValidation)
		assert.ErrorIs(t, d.Fail(errors.New("x"), later), ErrValidation)
	})

	t.Run("complete rejects invalid results and leaves dataset unchanged", func(t *testing.T) {
		tests := []struct {
			name    string
			cols    []Column
			rows    int
			preview []Row
			ref     string
		}{
			{name: "no artifact", cols: cols, rows: 1, ref: ""},
			{name: "rows without columns", cols: nil, rows: 3, ref: "p"},
			{name: "negative rows", cols: cols, rows: -1, ref: "p"},
			{name: "duplicate columns", cols: []Column{{Name: "a"}, {Name: "a"}}, rows: 1, ref: "p"},
			{name: "preview longer than rows", cols: cols, rows: 1, preview: []Row{{}, {}}, ref: "p"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				d, _ := NewDataset("id", "o", "f", "f.csv", FileTypeCSV, now)
				before := *d
				assert.ErrorIs(t, d.Complete(tt.cols, tt.rows, tt.preview, tt.ref, now), ErrValidation)
				assert.Equal(t, before, *d)
			})
		}
	})

	t.Run("fail", func(t *testing.T) {
		d, _ := NewDataset("id", "o", "f", "f.csv", FileTypeCSV, now)
		require.NoError(t, d.Fail(E(KindEmptyFile, "infer schema", "file has no data rows", nil), now))

		assert.Equal(t, StatusError, d.Status)
		assert.Equal(t, KindEmptyFile, d.ErrorKind)
		assert.Equal(t, "infer schema: file has no data rows", d.Error)
		assert.False(t, d.Downloadable())
		assert.NoError(t, d.Validate())
	})
}
