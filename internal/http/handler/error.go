package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"datasetapi/internal/http/middleware"
	"datasetapi/internal/logging"
	"datasetapi/internal/model"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	DatasetID string        `json:"dataset_id,omitempty"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	})
}

// kindStatus maps every model.ErrorKind to its response status and code.
var kindStatus = map[model.ErrorKind]struct {
	status int
	code   string
}{
	model.KindUnsupportedFormat: {fiber.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT"},
	model.KindEmptyFile:         {fiber.StatusUnprocessableEntity, "EMPTY_FILE"},
	model.KindParseFailure:      {fiber.StatusUnprocessableEntity, "PARSE_FAILURE"},
	model.KindNotFound:          {fiber.StatusNotFound, "NOT_FOUND"},
	model.KindValidation:        {fiber.StatusBadRequest, "VALIDATION"},
	model.KindFilesystem:        {fiber.StatusInternalServerError, "FILESYSTEM"},
	model.KindInternal:          {fiber.StatusInternalServerError, "INTERNAL_ERROR"},
}

// writeServiceError classifies err by kind. Client errors carry the captured
// message; server errors are logged and answered with a generic one.
func writeServiceError(c *fiber.Ctx, err error, datasetID string) error {
	kind := model.KindOf(err)
	m, ok := kindStatus[kind]
	if !ok {
		m = kindStatus[model.KindInternal]
	}

	msg := err.Error()
	if m.status >= fiber.StatusInternalServerError {
		logging.FromContext(c.UserContext()).Error("request_failed",
			"error_kind", string(kind),
			"error_message", err.Error(),
			"dataset_id", datasetID,
		)
		msg = "internal server error"
	}

	return c.Status(m.status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		DatasetID: datasetID,
		Error: errorEnvelope{
			Code:    m.code,
			Message: msg,
		},
	})
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "OWNER_REQUIRED", "owner reference is required")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "FILE_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
