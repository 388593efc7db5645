package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"datasetapi/internal/ingest"
	"datasetapi/internal/logging"
	"datasetapi/internal/model"
	"datasetapi/internal/repository"
	"datasetapi/internal/storage"
)

var (
	ErrIDRequired    = model.E(model.KindValidation, "", "id is required", nil)
	ErrOwnerRequired = model.E(model.KindValidation, "", "owner is required", nil)
	ErrNameRequired  = model.E(model.KindValidation, "", "original file name is required", nil)
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
	defaultTimeout   = 60 * time.Second
)

var tracer = otel.Tracer("datasetapi/internal/service")

// DatasetListResult is the service-level DTO for paginated datasets.
type DatasetListResult struct {
	Items []model.Dataset `json:"data"`
	Total int             `json:"total"`
}

// IngestRequest describes one uploaded file waiting to be ingested.
type IngestRequest struct {
	OwnerID      string
	OriginalName string
	// SourcePath is the local file holding the upload.
	SourcePath string
	// SourceKey is the upload's storage key; its base name becomes the
	// dataset's FileName and its directory hosts the processed artifact.
	SourceKey string
}

// Download is an open artifact ready to be streamed to a client.
type Download struct {
	Body     io.ReadCloser
	Size     int64
	FileName string
	Dataset  *model.Dataset
}

// DatasetService defines the use cases for handling datasets.
type DatasetService interface {
	// Ingest records the upload as processing, runs the pipeline and persists
	// the terminal state. When the pipeline fails the returned dataset is in
	// error status and err carries the cause.
	Ingest(ctx context.Context, req IngestRequest) (*model.Dataset, error)

	// List returns the owner's datasets, newest first, using limit/offset.
	List(ctx context.Context, ownerID string, limit, offset int) (*DatasetListResult, error)

	// Get returns a single dataset of the owner.
	Get(ctx context.Context, ownerID, id string) (*model.Dataset, error)

	// Download opens the processed artifact of a completed dataset.
	Download(ctx context.Context, ownerID, id string) (*Download, error)

	// Delete removes the artifact, then the record.
	Delete(ctx context.Context, ownerID, id string) error
}

// Runner runs the ingestion pipeline for one upload.
type Runner interface {
	Run(ctx context.Context, src ingest.Source) (*ingest.Result, error)
}

// ArtifactStore reads and removes processed artifacts.
type ArtifactStore interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, storage.ObjectInfo, error)
	Remove(ctx context.Context, ref string) error
}

// Options tune a DatasetService.
type Options struct {
	// Timeout bounds one pipeline run. Zero means one minute.
	Timeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type datasetService struct {
	repo      repository.DatasetRepository
	runner    Runner
	artifacts ArtifactStore
	timeout   time.Duration
	now       func() time.Time
}

// NewDatasetService constructs a new DatasetService.
func NewDatasetService(repo repository.DatasetRepository, runner Runner, artifacts ArtifactStore, opts Options) DatasetService {
	s := &datasetService{
		repo:      repo,
		runner:    runner,
		artifacts: artifacts,
		timeout:   opts.Timeout,
		now:       opts.Now,
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *datasetService) Ingest(ctx context.Context, req IngestRequest) (*model.Dataset, error) {
	ctx, span := tracer.Start(ctx, "DatasetService.Ingest", trace.WithAttributes(
		attribute.String("dataset.owner_id", req.OwnerID),
		attribute.String("dataset.original_name", req.OriginalName),
	))
	defer span.End()

	switch {
	case req.OwnerID == "":
		return nil, ErrOwnerRequired
	case req.OriginalName == "":
		return nil, ErrNameRequired
	case req.SourcePath == "" || req.SourceKey == "":
		return nil, model.E(model.KindValidation, "ingest", "source file is required", nil)
	}

	// Unsupported files never get a record.
	ft, err := ingest.DetectFormat(req.OriginalName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	d, err := model.NewDataset(uuid.NewString(), req.OwnerID, path.Base(req.SourceKey), req.OriginalName, ft, s.now())
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Create(ctx, d); err != nil {
		err = model.E(model.KindInternal, "create dataset", "", err)
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("dataset.id", d.ID))

	log := logging.FromContext(ctx).With("component", "ingest", "dataset_id", d.ID, "file_type", string(ft))
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	res, runErr := s.runner.Run(runCtx, ingest.Source{
		Path: req.SourcePath,
		Name: req.OriginalName,
		Key:  req.SourceKey,
	})
	cancel()

	if runErr == nil {
		done, err := s.complete(ctx, d, res)
		if err == nil {
			log.Info("dataset_ingested",
				"status", string(done.Status),
				"row_count", done.RowCount,
				"columns", len(done.Columns),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return done, nil
		}
		runErr = err
	}

	// Persist the failure even if the caller's context is already gone.
	if err := d.Fail(runErr, s.now()); err != nil {
		return nil, err
	}
	recordSpanError(span, runErr)
	log.Warn("dataset_ingest_failed",
		"status", string(d.Status),
		"error_kind", string(d.ErrorKind),
		"error_message", d.Error,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err := s.repo.Finalize(context.WithoutCancel(ctx), d); err != nil {
		log.Error("dataset_finalize_failed", "error_message", err.Error())
		return d, errors.Join(runErr, model.E(model.KindInternal, "finalize dataset", "record the failure", err))
	}
	return d, runErr
}

// complete finalizes a successful run. On failure the artifact is removed so
// no completed record can point at a missing file, and no artifact is left
// without a record.
func (s *datasetService) complete(ctx context.Context, d *model.Dataset, res *ingest.Result) (*model.Dataset, error) {
	done := *d
	err := done.Complete(res.Columns, res.RowCount, res.Preview, res.Artifact, s.now())
	if err == nil {
		err = s.repo.Finalize(context.WithoutCancel(ctx), &done)
		if err != nil {
			err = model.E(model.KindInternal, "finalize dataset", "", err)
		}
	}
	if err != nil {
		if rmErr := s.artifacts.Remove(context.WithoutCancel(ctx), res.Artifact); rmErr != nil {
			logging.FromContext(ctx).Error("artifact_cleanup_failed",
				"artifact", res.Artifact,
				"error_message", rmErr.Error(),
			)
		}
		return nil, err
	}
	return &done, nil
}

// List returns paginated datasets without exposing repository types.
func (s *datasetService) List(ctx context.Context, ownerID string, limit, offset int) (*DatasetListResult, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, ownerID, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, model.E(model.KindInternal, "list datasets", "", err)
	}
	return &DatasetListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a dataset by owner and ID.
func (s *datasetService) Get(ctx context.Context, ownerID, id string) (*model.Dataset, error) {
	return s.find(ctx, "get dataset", ownerID, id)
}

func (s *datasetService) Download(ctx context.Context, ownerID, id string) (*Download, error) {
	ctx, span := tracer.Start(ctx, "DatasetService.Download", trace.WithAttributes(attribute.String("dataset.id", id)))
	defer span.End()

	d, err := s.find(ctx, "download dataset", ownerID, id)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if !d.Downloadable() {
		err := model.E(model.KindNotFound, "download dataset", fmt.Sprintf("dataset is %s, no processed data", d.Status), nil)
		recordSpanError(span, err)
		return nil, err
	}
	rc, info, err := s.artifacts.Open(ctx, d.ProcessedData)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return &Download{
		Body:     rc,
		Size:     info.Size,
		FileName: DownloadName(d.OriginalName),
		Dataset:  d,
	}, nil
}

// Delete removes the artifact first and then the record. A failure names the
// step that failed; when the artifact cannot be removed the record is kept so
// the reference is not lost.
func (s *datasetService) Delete(ctx context.Context, ownerID, id string) error {
	ctx, span := tracer.Start(ctx, "DatasetService.Delete", trace.WithAttributes(attribute.String("dataset.id", id)))
	defer span.End()

	d, err := s.find(ctx, "delete dataset", ownerID, id)
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	if err := s.artifacts.Remove(ctx, d.ProcessedData); err != nil {
		err = model.E(model.KindFilesystem, "delete dataset", "artifact removal failed, record kept", err)
		recordSpanError(span, err)
		return err
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		err = model.E(model.KindInternal, "delete dataset", "artifact removed, record deletion failed", err)
		recordSpanError(span, err)
		return err
	}
	logging.FromContext(ctx).Info("dataset_deleted", "dataset_id", id)
	return nil
}

func (s *datasetService) find(ctx context.Context, op, ownerID, id string) (*model.Dataset, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	d, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.E(model.KindNotFound, op, "dataset not found", nil)
		}
		return nil, model.E(model.KindInternal, op, "", err)
	}
	return d, nil
}

// DownloadName is the attachment name of a dataset's artifact:
// "processed_" plus the original base name with a .csv extension.
func DownloadName(originalName string) string {
	base := path.Base(strings.ReplaceAll(originalName, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "dataset"
	}
	return "processed_" + base + ".csv"
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(model.KindOf(err)))
}
