package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"datasetapi/internal/model"
)

// Options tune a Pipeline.
type Options struct {
	// PreviewRows caps the preview; values outside 1..20 mean 20.
	PreviewRows int
	// Clean applies the normalization stage to the artifact rows.
	Clean bool
	// MaxUnzipBytes caps the uncompressed size of an uploaded workbook.
	MaxUnzipBytes int64
}

// interrupted is the single error recorded for a run stopped by its deadline
// or by cancellation, whichever stage noticed it.
func interrupted(cause error) error {
	return model.E(model.KindInternal, "ingest", "processing interrupted", cause)
}

// Source identifies one uploaded file.
type Source struct {
	// Path is the local file to parse.
	Path string
	// Name is the original filename; only its extension is used.
	Name string
	// Key is the upload's storage key. The artifact is written to a
	// processed directory beside it.
	Key string
}

// Result is everything a completed dataset needs from one run.
type Result struct {
	FileType model.FileType
	Columns  []model.Column
	RowCount int
	// Preview holds raw rows, before cleaning.
	Preview []model.Row
	// Artifact is the storage reference of the canonical CSV.
	Artifact string
}

// Pipeline runs detection, parsing, inference, sampling, cleaning and
// artifact writing for one upload at a time. It holds no per-run state and
// may be shared between goroutines.
type Pipeline struct {
	artifacts *Artifacts
	opts      Options
	metrics   *Metrics
}

func NewPipeline(artifacts *Artifacts, opts Options, metrics *Metrics) *Pipeline {
	return &Pipeline{artifacts: artifacts, opts: opts, metrics: metrics}
}

// Artifacts exposes the artifact store the pipeline writes to.
func (p *Pipeline) Artifacts() *Artifacts { return p.artifacts }

// Run ingests src. Every error it returns is a *model.Error. An unsupported
// extension is rejected before the file is opened, and no artifact survives
// a failed run.
func (p *Pipeline) Run(ctx context.Context, src Source) (res *Result, err error) {
	start := time.Now()
	ft, err := DetectFormat(src.Name)
	defer func() {
		rows := 0
		if res != nil {
			rows = res.RowCount
		}
		p.metrics.observe(ft, rows, err, time.Since(start))
	}()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return nil, model.E(model.KindFilesystem, "open upload", "", err)
	}
	defer f.Close()

	rr, err := OpenReaderContext(ctx, ft, f, ReaderOptions{MaxUnzipBytes: p.opts.MaxUnzipBytes})
	if err != nil {
		return nil, err
	}
	defer rr.Close()

	first, err := rr.Next()
	if errors.Is(err, io.EOF) {
		return nil, model.E(model.KindEmptyFile, "infer schema", "file has no data rows", nil)
	}
	if err != nil {
		return nil, err
	}

	header := rr.Header()
	columns := InferSchema(header, first)
	if len(columns) == 0 {
		return nil, model.E(model.KindEmptyFile, "infer schema", "file has no columns", nil)
	}

	outColumns := header
	transform := func(r model.Row) model.Row { return r }
	if p.opts.Clean {
		c := NewCleaner(header)
		outColumns = c.Columns()
		transform = c.Row
	}

	w, err := p.artifacts.Create(ctx, src.Key, outColumns)
	if err != nil {
		return nil, err
	}
	defer w.Abort()

	preview := NewPreview(p.opts.PreviewRows)
	count := 0
	for row := first; ; {
		if err := ctx.Err(); err != nil {
			return nil, interrupted(err)
		}
		preview.Offer(row)
		count++
		if err := w.WriteRow(transform(row)); err != nil {
			return nil, err
		}

		row, err = rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	ref, err := w.Commit()
	if err != nil {
		return nil, err
	}
	return &Result{
		FileType: ft,
		Columns:  columns,
		RowCount: count,
		Preview:  preview.Rows(),
		Artifact: ref,
	}, nil
}
