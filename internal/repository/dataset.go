// Package repository holds the data access abstractions. Implementations live
// in subpackages.
package repository

import (
	"context"

	"datasetapi/internal/model"
)

// DatasetRepository defines data access for datasets using SQL queries only.
// Strictly persistence operations, no business logic.
// Lookups that find nothing return sql.ErrNoRows.
type DatasetRepository interface {
	// Create inserts a new dataset record.
	Create(ctx context.Context, d *model.Dataset) (*model.Dataset, error)

	// FindByID returns the owner's dataset with the given ID.
	FindByID(ctx context.Context, ownerID, id string) (*model.Dataset, error)

	// List returns a page of the owner's datasets, newest first, and the total
	// count. Preview rows and the artifact reference are not loaded.
	List(ctx context.Context, ownerID string, pq PageQuery) (*PageResult[model.Dataset], error)

	// Finalize writes the terminal state of a dataset in one statement. It only
	// matches rows still in processing status.
	Finalize(ctx context.Context, d *model.Dataset) error

	// Delete removes the owner's dataset by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, ownerID, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
