package mocks

import (
	"context"

	"datasetapi/internal/model"
	"datasetapi/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockDatasetService struct {
	mock.Mock
}

func (m *MockDatasetService) Ingest(ctx context.Context, req service.IngestRequest) (*model.Dataset, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dataset), args.Error(1)
}

func (m *MockDatasetService) List(ctx context.Context, ownerID string, limit, offset int) (*service.DatasetListResult, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DatasetListResult), args.Error(1)
}

func (m *MockDatasetService) Get(ctx context.Context, ownerID, id string) (*model.Dataset, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dataset), args.Error(1)
}

func (m *MockDatasetService) Download(ctx context.Context, ownerID, id string) (*service.Download, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Download), args.Error(1)
}

func (m *MockDatasetService) Delete(ctx context.Context, ownerID, id string) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}
