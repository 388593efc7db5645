package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"datasetapi/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvReader streams records from a delimited text file. Each Next call reads
// only as far as the next record.
type csvReader struct {
	cr     *csv.Reader
	header []string
}

func newCSVReader(r io.Reader) (*csvReader, error) {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	// Field counts are checked against the header in Next so that blank
	// lines can be skipped first.
	cr.FieldsPerRecord = -1

	c := &csvReader{cr: cr}
	rec, err := c.nextRecord()
	if errors.Is(err, io.EOF) {
		return nil, model.E(model.KindEmptyFile, "parse csv", "file has no header row", nil)
	}
	if err != nil {
		return nil, err
	}
	c.header = uniqueNames(rec)
	return c, nil
}

func (c *csvReader) Header() []string { return c.header }

func (c *csvReader) Next() (model.Row, error) {
	rec, err := c.nextRecord()
	if err != nil {
		return nil, err
	}
	if len(rec) != len(c.header) {
		line, _ := c.cr.FieldPos(0)
		return nil, model.E(model.KindParseFailure, "parse csv",
			fmt.Sprintf("line %d: expected %d fields, got %d", line, len(c.header), len(rec)), nil)
	}
	row := make(model.Row, len(c.header))
	for i, name := range c.header {
		row[name] = model.StringValue(rec[i])
	}
	return row, nil
}

func (c *csvReader) Close() error { return nil }

// nextRecord returns the next record with every field trimmed, skipping
// records that are entirely blank.
func (c *csvReader) nextRecord() ([]string, error) {
	for {
		rec, err := c.cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, model.E(model.KindParseFailure, "parse csv", "", err)
		}
		blank := true
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
			if rec[i] != "" {
				blank = false
			}
		}
		if !blank {
			return rec, nil
		}
	}
}
