package mocks

import (
	"context"

	"datasetapi/internal/model"
	"datasetapi/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockDatasetRepository struct {
	mock.Mock
}

func (m *MockDatasetRepository) Create(ctx context.Context, d *model.Dataset) (*model.Dataset, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dataset), args.Error(1)
}

func (m *MockDatasetRepository) FindByID(ctx context.Context, ownerID, id string) (*model.Dataset, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dataset), args.Error(1)
}

func (m *MockDatasetRepository) List(ctx context.Context, ownerID string, pq repository.PageQuery) (*repository.PageResult[model.Dataset], error) {
	args := m.Called(ctx, ownerID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Dataset]), args.Error(1)
}

func (m *MockDatasetRepository) Finalize(ctx context.Context, d *model.Dataset) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDatasetRepository) Delete(ctx context.Context, ownerID, id string) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}
