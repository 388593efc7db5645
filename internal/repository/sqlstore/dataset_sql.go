// Package sqlstore implements the repositories on database/sql. Queries use
// $n placeholders and plain types so the same statements run on PostgreSQL
// (pgx) and SQLite (go-sqlite3).
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"datasetapi/internal/model"
	"datasetapi/internal/repository"
)

// DatasetSQL is a database/sql implementation of repository.DatasetRepository.
// It contains no business logic.
type DatasetSQL struct {
	db *sql.DB
}

// NewDatasetSQL creates a new DatasetSQL repository.
func NewDatasetSQL(db *sql.DB) *DatasetSQL {
	return &DatasetSQL{db: db}
}

var _ repository.DatasetRepository = (*DatasetSQL)(nil)

type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new dataset row and returns the stored record.
func (r *DatasetSQL) Create(ctx context.Context, d *model.Dataset) (*model.Dataset, error) {
	const q = `
		INSERT INTO datasets (id, owner_id, file_name, original_name, file_type, columns, row_count,
			preview_data, processed_data, status, error_kind, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	columns, preview, err := encodeJSONFields(d)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, q,
		d.ID,
		d.OwnerID,
		d.FileName,
		d.OriginalName,
		string(d.FileType),
		columns,
		d.RowCount,
		preview,
		d.ProcessedData,
		string(d.Status),
		string(d.ErrorKind),
		d.Error,
		d.CreatedAt,
		d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	out := *d
	return &out, nil
}

// FindByID fetches a single dataset by owner and ID.
func (r *DatasetSQL) FindByID(ctx context.Context, ownerID, id string) (*model.Dataset, error) {
	const q = `
		SELECT id, owner_id, file_name, original_name, file_type, columns, row_count,
			preview_data, processed_data, status, error_kind, error_message, created_at, updated_at
		FROM datasets
		WHERE id = $1 AND owner_id = $2
	`
	row := r.db.QueryRowContext(ctx, q, id, ownerID)
	d, err := scanDataset(row, true)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// List returns the owner's datasets using LIMIT/OFFSET pagination and a total count.
func (r *DatasetSQL) List(ctx context.Context, ownerID string, pq repository.PageQuery) (*repository.PageResult[model.Dataset], error) {
	// Count total rows
	const qCount = `SELECT COUNT(*) FROM datasets WHERE owner_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, ownerID).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	const qList = `
		SELECT id, owner_id, file_name, original_name, file_type, columns, row_count,
			status, error_kind, error_message, created_at, updated_at
		FROM datasets
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, qList, ownerID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Dataset, 0)
	for rows.Next() {
		d, err := scanDataset(rows, false)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Dataset]{
		Items: items,
		Total: total,
	}, nil
}

// Finalize persists the terminal fields of d. It returns sql.ErrNoRows when
// no dataset with that ID is still processing.
func (r *DatasetSQL) Finalize(ctx context.Context, d *model.Dataset) error {
	const q = `
		UPDATE datasets
		SET columns = $2, row_count = $3, preview_data = $4, processed_data = $5,
			status = $6, error_kind = $7, error_message = $8, updated_at = $9
		WHERE id = $1 AND status = 'processing'
	`
	columns, preview, err := encodeJSONFields(d)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q,
		d.ID,
		columns,
		d.RowCount,
		preview,
		d.ProcessedData,
		string(d.Status),
		string(d.ErrorKind),
		d.Error,
		d.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a dataset by owner and ID. It does not return an error if the row does not exist.
func (r *DatasetSQL) Delete(ctx context.Context, ownerID, id string) error {
	const q = `DELETE FROM datasets WHERE id = $1 AND owner_id = $2`
	_, err := r.db.ExecContext(ctx, q, id, ownerID)
	return err
}

func encodeJSONFields(d *model.Dataset) (string, string, error) {
	cols := d.Columns
	if cols == nil {
		cols = []model.Column{}
	}
	preview := d.PreviewData
	if preview == nil {
		preview = []model.Row{}
	}
	cb, err := json.Marshal(cols)
	if err != nil {
		return "", "", fmt.Errorf("encode columns: %w", err)
	}
	pb, err := json.Marshal(preview)
	if err != nil {
		return "", "", fmt.Errorf("encode preview: %w", err)
	}
	return string(cb), string(pb), nil
}

// scanDataset reads one row. full selects the column set of FindByID, which
// also includes preview_data and processed_data.
func scanDataset(s scanner, full bool) (*model.Dataset, error) {
	var (
		d                         model.Dataset
		fileType, status, errKind string
		columns, preview          []byte
		createdAt, updatedAt      time.Time
	)
	dest := []any{&d.ID, &d.OwnerID, &d.FileName, &d.OriginalName, &fileType, &columns, &d.RowCount}
	if full {
		dest = append(dest, &preview, &d.ProcessedData)
	}
	dest = append(dest, &status, &errKind, &d.Error, &createdAt, &updatedAt)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	d.FileType = model.FileType(fileType)
	d.Status = model.Status(status)
	d.ErrorKind = model.ErrorKind(errKind)
	d.CreatedAt = createdAt.UTC()
	d.UpdatedAt = updatedAt.UTC()

	d.Columns = []model.Column{}
	if len(columns) > 0 {
		if err := json.Unmarshal(columns, &d.Columns); err != nil {
			return nil, fmt.Errorf("decode columns: %w", err)
		}
	}
	if full && len(preview) > 0 {
		if err := json.Unmarshal(preview, &d.PreviewData); err != nil {
			return nil, fmt.Errorf("decode preview: %w", err)
		}
	}
	return &d, nil
}
