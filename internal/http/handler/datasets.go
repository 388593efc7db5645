package handler

import (
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"datasetapi/internal/http/middleware"
	"datasetapi/internal/ingest"
	"datasetapi/internal/logging"
	"datasetapi/internal/service"
)

const uploadsDir = "uploads"

// UploadDataset ingests a multipart upload (field name: file).
//
// @Summary Upload and ingest a CSV or spreadsheet
// @Tags datasets
// @Accept multipart/form-data
// @Produce json
// @Param X-Owner-ID header string true "Owner reference"
// @Param file formData file true "CSV or XLSX file"
// @Success 201 {object} model.Dataset
// @Failure 400 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Failure 415 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Router /datasets [post]
func UploadDataset(svc service.DatasetService, cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		if cfg.MaxUploadBytes > 0 && fh.Size > cfg.MaxUploadBytes {
			return writeError(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
				"file exceeds "+strconv.FormatInt(cfg.MaxUploadBytes, 10)+" bytes")
		}

		// Reject by extension before anything touches the disk.
		name := path.Base(strings.ReplaceAll(fh.Filename, "\\", "/"))
		if _, err := ingest.DetectFormat(name); err != nil {
			return writeServiceError(c, err, "")
		}

		key := path.Join(uploadsDir, uuid.NewString()+strings.ToLower(filepath.Ext(name)))
		dst := filepath.Join(cfg.UploadDir, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		if err := c.SaveFile(fh, dst); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		defer func() {
			if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
				logging.FromContext(c.UserContext()).Warn("upload_cleanup_failed", "path", dst, "error_message", err.Error())
			}
		}()

		d, err := svc.Ingest(c.UserContext(), service.IngestRequest{
			OwnerID:      middleware.OwnerFrom(c),
			OriginalName: name,
			SourcePath:   dst,
			SourceKey:    key,
		})
		if err != nil {
			id := ""
			if d != nil {
				id = d.ID
			}
			return writeServiceError(c, err, id)
		}
		return c.Status(fiber.StatusCreated).JSON(d)
	}
}

// ListDatasets lists the owner's datasets with limit & offset, newest first.
//
// @Summary List datasets
// @Tags datasets
// @Produce json
// @Param X-Owner-ID header string true "Owner reference"
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} service.DatasetListResult
// @Router /datasets [get]
func ListDatasets(svc service.DatasetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), middleware.OwnerFrom(c), limit, offset)
		if err != nil {
			return writeServiceError(c, err, "")
		}
		return c.JSON(res)
	}
}

// GetDataset returns one dataset including its preview.
//
// @Summary Get a dataset
// @Tags datasets
// @Produce json
// @Param X-Owner-ID header string true "Owner reference"
// @Param id path string true "Dataset ID"
// @Success 200 {object} model.Dataset
// @Failure 404 {object} errorPayload
// @Router /datasets/{id} [get]
func GetDataset(svc service.DatasetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := datasetID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		d, err := svc.Get(c.UserContext(), middleware.OwnerFrom(c), id)
		if err != nil {
			return writeServiceError(c, err, id)
		}
		return c.JSON(d)
	}
}

// DownloadDataset streams the processed CSV of a completed dataset.
//
// @Summary Download processed CSV
// @Tags datasets
// @Produce text/csv
// @Param X-Owner-ID header string true "Owner reference"
// @Param id path string true "Dataset ID"
// @Success 200 {file} file
// @Failure 404 {object} errorPayload
// @Router /datasets/{id}/download [get]
func DownloadDataset(svc service.DatasetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := datasetID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		dl, err := svc.Download(c.UserContext(), middleware.OwnerFrom(c), id)
		if err != nil {
			return writeServiceError(c, err, id)
		}

		c.Attachment(dl.FileName)
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		size := int(dl.Size)
		if size <= 0 {
			size = -1
		}
		// fasthttp closes the body once it has been sent.
		return c.SendStream(dl.Body, size)
	}
}

// DeleteDataset removes the processed artifact and then the record.
//
// @Summary Delete a dataset
// @Tags datasets
// @Param X-Owner-ID header string true "Owner reference"
// @Param id path string true "Dataset ID"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /datasets/{id} [delete]
func DeleteDataset(svc service.DatasetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := datasetID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), middleware.OwnerFrom(c), id); err != nil {
			return writeServiceError(c, err, id)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func datasetID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
