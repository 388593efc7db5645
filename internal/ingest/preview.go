package ingest

import "datasetapi/internal/model"

// Preview keeps the leading rows of a stream exactly as parsed.
type Preview struct {
	limit int
	rows  []model.Row
}

// NewPreview returns a Preview holding at most limit rows. A non-positive
// limit falls back to model.PreviewLimit.
func NewPreview(limit int) *Preview {
	if limit <= 0 || limit > model.PreviewLimit {
		limit = model.PreviewLimit
	}
	return &Preview{limit: limit, rows: make([]model.Row, 0, limit)}
}

// Offer records row if the preview is not yet full.
func (p *Preview) Offer(row model.Row) {
	if len(p.rows) < p.limit {
		p.rows = append(p.rows, row)
	}
}

func (p *Preview) Rows() []model.Row { return p.rows }
