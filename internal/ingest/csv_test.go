package ingest

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasetapi/internal/model"
)

func readAll(t *testing.T, rr RowReader) []model.Row {
	t.Helper()
	var rows []model.Row
	for {
		row, err := rr.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestCSVReader(t *testing.T) {
	t.Run("header and trimmed rows", func(t *testing.T) {
		rr, err := OpenReader(model.FileTypeCSV, strings.NewReader(" name , age \nalice, 30\n\n  ,  \nbob,41\n"))
		require.NoError(t, err)
		defer rr.Close()

		assert.Equal(t, []string{"name", "age"}, rr.Header())
		rows := readAll(t, rr)
		require.Len(t, rows, 2)
		assert.Equal(t, model.StringValue("alice"), rows[0]["name"])
		assert.Equal(t, model.StringValue("30"), rows[0]["age"])
		assert.Equal(t, model.StringValue("bob"), rows[1]["name"])
	})

	t.Run("byte order mark is stripped", func(t *testing.T) {
		rr, err := OpenReader(model.FileTypeCSV, strings.NewReader("\xEF\xBB\xBFid,value\n1,2\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "value"}, rr.Header())
		assert.Len(t, readAll(t, rr), 1)
	})

	t.Run("quoted fields keep commas and newlines", func(t *testing.T) {
		rr, err := OpenReader(model.FileTypeCSV, strings.NewReader("a,b\n\"x, y\",\"line1\nline2\"\n"))
		require.NoError(t, err)
		rows := readAll(t, rr)
		require.Len(t, rows, 1)
		assert.Equal(t, model.StringValue("x, y"), rows[0]["a"])
		assert.Equal(t, model.StringValue("line1\nline2"), rows[0]["b"])
	})

	t.Run("duplicate and blank headers are made unique", func(t *testing.T) {
		rr, err := OpenReader(model.FileTypeCSV, strings.NewReader("a,a,,\n1,2,3,4\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "a_1", "__EMPTY", "__EMPTY_1"}, rr.Header())
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := OpenReader(model.FileTypeCSV, strings.NewReader(""))
		assert.ErrorIs(t, err, model.ErrEmptyFile)
	})

	t.Run("blank lines only", func(t *testing.T) {
		_, err := OpenReader(model.FileTypeCSV, strings.NewReader("\n \n,,\n"))
		assert.ErrorIs(t, err, model.ErrEmptyFile)
	})

	t.Run("header only has no rows", func(t *testing.T) {
		rr, err := OpenReader(model.FileTypeCSV, strings.NewReader("a,b\n"))
		require.NoError(t, err)
		_, err = rr.Next()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("unterminated quote", func(t *testing.T) {
		rr, err := OpenReader(model.FileTypeCSV, strings.NewReader("a,b\n1,\"open\n"))
		require.NoError(t, err)
		_, err = rr.Next()
		assert.ErrorIs(t, err, model.ErrParseFailure)
	})

	t.Run("field count mismatch names the line", func(t *testing.T) {
		rr, err := OpenReader(model.FileTypeCSV, strings.NewReader("a,b\n1,2\n3\n"))
		require.NoError(t, err)
		_, err = rr.Next()
		require.NoError(t, err)
		_, err = rr.Next()
		assert.ErrorIs(t, err, model.ErrParseFailure)
		assert.ErrorContains(t, err, "line 3")
	})
}

func TestUniqueNames(t *testing.T) {
	assert.Equal(t, []string{"x", "x_1", "x_1_1", "x_2"}, uniqueNames([]string{"x", "x", "x_1", "x"}))
	assert.Equal(t, []string{}, uniqueNames([]string{}))
}
