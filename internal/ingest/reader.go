package ingest

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"datasetapi/internal/model"
)

// RowReader yields the parsed rows of one file in order. It cannot be
// rewound; Next returns io.EOF once the rows are exhausted.
type RowReader interface {
	// Header returns the unique column names in file order.
	Header() []string
	Next() (model.Row, error)
	Close() error
}

// ReaderOptions bound the work a parser may do.
type ReaderOptions struct {
	// MaxUnzipBytes caps the uncompressed size of a workbook. Zero keeps
	// the excelize default.
	MaxUnzipBytes int64
}

// OpenReader returns the parser variant for ft reading from r. The header is
// consumed before OpenReader returns, so a file without one fails here with
// an empty-file error.
func OpenReader(ft model.FileType, r io.Reader) (RowReader, error) {
	return OpenReaderContext(context.Background(), ft, r, ReaderOptions{})
}

// OpenReaderContext is OpenReader bounded by ctx and opts. Spreadsheets are
// loaded whole, so cancellation is honoured while the workbook loads.
func OpenReaderContext(ctx context.Context, ft model.FileType, r io.Reader, opts ReaderOptions) (RowReader, error) {
	switch ft {
	case model.FileTypeCSV:
		if err := ctx.Err(); err != nil {
			return nil, interrupted(err)
		}
		return newCSVReader(r)
	case model.FileTypeSpreadsheet:
		return newSheetReader(ctx, r, opts)
	default:
		return nil, model.E(model.KindUnsupportedFormat, "open reader", fmt.Sprintf("no parser for file type %q", ft), nil)
	}
}

const emptyHeader = "__EMPTY"

// uniqueNames names blank header cells and suffixes duplicates so that every
// column can be addressed by name.
func uniqueNames(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	for i, n := range names {
		if n == "" {
			n = emptyHeader
		}
		name := n
		for k := 1; used[name]; k++ {
			name = n + "_" + strconv.Itoa(k)
		}
		used[name] = true
		out[i] = name
	}
	return out
}
