package ingest

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"datasetapi/internal/model"
)

// sheetReader serves rows from the first sheet of a workbook. excelize needs
// the whole archive in memory, so the workbook is loaded up front.
type sheetReader struct {
	f      *excelize.File
	sheet  string
	rows   [][]string
	pos    int
	header []string
}

// xmlChunkLimit is the most of one worksheet or shared string table kept in
// memory; larger parts spill to temp files.
const xmlChunkLimit = 16 << 20

// newSheetReader loads the workbook in the background so that a deadline
// hit during the load is reported at once. The abandoned load closes its
// own workbook.
func newSheetReader(ctx context.Context, r io.Reader, opts ReaderOptions) (*sheetReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, interrupted(err)
	}

	type loaded struct {
		s   *sheetReader
		err error
	}
	done := make(chan loaded, 1)
	go func() {
		s, err := loadSheet(r, opts)
		done <- loaded{s, err}
	}()

	select {
	case l := <-done:
		return l.s, l.err
	case <-ctx.Done():
		go func() {
			if l := <-done; l.s != nil {
				_ = l.s.Close()
			}
		}()
		return nil, interrupted(ctx.Err())
	}
}

func loadSheet(r io.Reader, opts ReaderOptions) (*sheetReader, error) {
	const op = "parse spreadsheet"

	xo := excelize.Options{}
	if opts.MaxUnzipBytes > 0 {
		xo.UnzipSizeLimit = opts.MaxUnzipBytes
		xo.UnzipXMLSizeLimit = min(opts.MaxUnzipBytes, xmlChunkLimit)
	}
	f, err := excelize.OpenReader(r, xo)
	if err != nil {
		return nil, model.E(model.KindParseFailure, op, "unreadable workbook", err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, model.E(model.KindEmptyFile, op, "workbook has no sheets", nil)
	}
	sheet := sheets[0]

	// Raw values keep numbers unformatted; empty rows come back as empty
	// slices so indexes line up with sheet row numbers.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		_ = f.Close()
		return nil, model.E(model.KindParseFailure, op, "read sheet "+sheet, err)
	}

	s := &sheetReader{f: f, sheet: sheet, rows: rows}
	for ; s.pos < len(rows); s.pos++ {
		if !blankCells(rows[s.pos]) {
			break
		}
	}
	if s.pos == len(rows) {
		_ = f.Close()
		return nil, model.E(model.KindEmptyFile, op, "sheet "+sheet+" has no header row", nil)
	}

	// Cells right of the header row still belong to the table; they get
	// generated column names.
	width := 0
	for _, cells := range rows[s.pos:] {
		width = max(width, len(cells))
	}
	names := make([]string, width)
	for i, cell := range rows[s.pos] {
		names[i] = strings.TrimSpace(cell)
	}
	s.header = uniqueNames(names)
	s.pos++
	return s, nil
}

func (s *sheetReader) Header() []string { return s.header }

func (s *sheetReader) Next() (model.Row, error) {
	for ; s.pos < len(s.rows); s.pos++ {
		cells := s.rows[s.pos]
		if blankCells(cells) {
			continue
		}
		rowNum := s.pos + 1
		s.pos++

		row := make(model.Row, len(s.header))
		for i, name := range s.header {
			if i >= len(cells) || cells[i] == "" {
				row[name] = model.NullValue()
				continue
			}
			v, err := s.cellValue(i+1, rowNum, cells[i])
			if err != nil {
				return nil, err
			}
			row[name] = v
		}
		return row, nil
	}
	return nil, io.EOF
}

func (s *sheetReader) Close() error { return s.f.Close() }

func (s *sheetReader) cellValue(col, row int, raw string) (model.Value, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return model.Value{}, model.E(model.KindParseFailure, "parse spreadsheet", "", err)
	}
	typ, err := s.f.GetCellType(s.sheet, cell)
	if err != nil {
		return model.Value{}, model.E(model.KindParseFailure, "parse spreadsheet", "cell "+cell, err)
	}

	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeFormula:
		// Plain numeric cells carry no type attribute at all.
		if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) {
			return model.NumberValue(f), nil
		}
		return model.StringValue(raw), nil
	case excelize.CellTypeDate:
		return model.DateValue(raw), nil
	case excelize.CellTypeBool:
		if raw == "1" || strings.EqualFold(raw, "true") {
			return model.StringValue("TRUE"), nil
		}
		return model.StringValue("FALSE"), nil
	default:
		return model.StringValue(raw), nil
	}
}

func blankCells(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
