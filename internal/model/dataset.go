package model

import (
	"errors"
	"fmt"
	"time"
)

// FileType is the detected source format of an upload.
type FileType string

const (
	FileTypeCSV         FileType = "csv"
	FileTypeSpreadsheet FileType = "spreadsheet"
)

// ColumnType is the inferred type of a column.
type ColumnType string

const (
	ColumnNumber ColumnType = "number"
	ColumnDate   ColumnType = "date"
	ColumnString ColumnType = "string"
)

// Status is the lifecycle state of a dataset.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// PreviewLimit is the maximum number of rows kept in PreviewData.
const PreviewLimit = 20

// Column describes one column of a dataset.
type Column struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Description string     `json:"description"`
}

// Dataset is the persisted record of one ingestion.
// It carries no persistence tags; repositories map it explicitly.
type Dataset struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	FileName      string    `json:"file_name"`
	OriginalName  string    `json:"original_name"`
	FileType      FileType  `json:"file_type"`
	Columns       []Column  `json:"columns"`
	RowCount      int       `json:"row_count"`
	PreviewData   []Row     `json:"preview_data,omitempty"`
	ProcessedData string    `json:"processed_data,omitempty"`
	Status        Status    `json:"status"`
	ErrorKind     ErrorKind `json:"error_kind,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

var errTerminal = errors.New("dataset already reached a terminal status")

// NewDataset returns a dataset in processing status.
func NewDataset(id, ownerID, fileName, originalName string, ft FileType, now time.Time) (*Dataset, error) {
	switch {
	case id == "":
		return nil, E(KindValidation, "new dataset", "id is required", nil)
	case ownerID == "":
		return nil, E(KindValidation, "new dataset", "owner is required", nil)
	case fileName == "":
		return nil, E(KindValidation, "new dataset", "file name is required", nil)
	case originalName == "":
		return nil, E(KindValidation, "new dataset", "original name is required", nil)
	}
	if ft != FileTypeCSV && ft != FileTypeSpreadsheet {
		return nil, E(KindValidation, "new dataset", fmt.Sprintf("unknown file type %q", ft), nil)
	}
	now = now.UTC()
	return &Dataset{
		ID:           id,
		OwnerID:      ownerID,
		FileName:     fileName,
		OriginalName: originalName,
		FileType:     ft,
		Columns:      []Column{},
		Status:       StatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Touch refreshes UpdatedAt. Every mutation must call it.
func (d *Dataset) Touch(now time.Time) {
	d.UpdatedAt = now.UTC()
}

// Complete moves a processing dataset to completed, setting every field that
// status requires in one step. On error d is left unchanged.
func (d *Dataset) Complete(columns []Column, rowCount int, preview []Row, processedData string, now time.Time) error {
	if d.Status != StatusProcessing {
		return E(KindValidation, "complete dataset", "", errTerminal)
	}
	next := *d
	next.Columns = columns
	next.RowCount = rowCount
	next.PreviewData = preview
	next.ProcessedData = processedData
	next.Status = StatusCompleted
	next.ErrorKind = ""
	next.Error = ""
	if err := next.Validate(); err != nil {
		return err
	}
	*d = next
	d.Touch(now)
	return nil
}

// Fail moves a processing dataset to error, capturing the cause.
func (d *Dataset) Fail(cause error, now time.Time) error {
	if d.Status != StatusProcessing {
		return E(KindValidation, "fail dataset", "", errTerminal)
	}
	d.Status = StatusError
	d.ErrorKind = KindOf(cause)
	d.Error = "unknown error"
	if cause != nil {
		d.Error = cause.Error()
	}
	d.Touch(now)
	return nil
}

// Downloadable reports whether the dataset has a usable artifact.
func (d *Dataset) Downloadable() bool {
	return d.Status == StatusCompleted && d.ProcessedData != ""
}

// Validate checks the record invariants for its current status.
func (d *Dataset) Validate() error {
	const op = "validate dataset"
	if d.RowCount < 0 {
		return E(KindValidation, op, "row count is negative", nil)
	}
	if len(d.Columns) == 0 && d.RowCount > 0 {
		return E(KindValidation, op, "columns are empty but rows exist", nil)
	}
	seen := make(map[string]struct{}, len(d.Columns))
	for _, c := range d.Columns {
		if c.Name == "" {
			return E(KindValidation, op, "column name is empty", nil)
		}
		if _, dup := seen[c.Name]; dup {
			return E(KindValidation, op, fmt.Sprintf("duplicate column %q", c.Name), nil)
		}
		seen[c.Name] = struct{}{}
	}
	if len(d.PreviewData) > min(d.RowCount, PreviewLimit) {
		return E(KindValidation, op, "preview is longer than the dataset", nil)
	}
	switch d.Status {
	case StatusProcessing, StatusError:
	case StatusCompleted:
		if d.ProcessedData == "" {
			return E(KindValidation, op, "completed dataset has no processed data", nil)
		}
	default:
		return E(KindValidation, op, fmt.Sprintf("unknown status %q", d.Status), nil)
	}
	return nil
}
