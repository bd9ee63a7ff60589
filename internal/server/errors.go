package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"ViSearch/internal/analysis"
	"ViSearch/internal/engine"
	"ViSearch/internal/index"
	"ViSearch/internal/indexing"
	"ViSearch/internal/query"
	"ViSearch/internal/snapshot"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  errorCause `json:"error"`
	Status int        `json:"status"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type errorClass struct {
	target error
	status int
	kind   string
}

// errorClasses is checked in order; the first match wins.
var errorClasses = []errorClass{
	{analysis.ErrInvalidArgument, fiber.StatusBadRequest, "invalid_argument"},
	{analysis.ErrUnknownAnalyzer, fiber.StatusBadRequest, "illegal_argument_exception"},
	{ErrIndexNotFound, fiber.StatusNotFound, "index_not_found_exception"},
	{snapshot.ErrManagerClosed, fiber.StatusNotFound, "index_not_found_exception"},
	{ErrIndexExists, fiber.StatusBadRequest, "resource_already_exists_exception"},
	{ErrInvalidIndexName, fiber.StatusBadRequest, "invalid_index_name_exception"},
	{ErrIndexBusy, fiber.StatusConflict, "illegal_state_exception"},
	{ErrDocumentNotFound, fiber.StatusNotFound, "document_missing_exception"},
	{index.ErrInvalidMapping, fiber.StatusBadRequest, "mapper_parsing_exception"},
	{index.ErrSchemaFieldConflict, fiber.StatusBadRequest, "illegal_argument_exception"},
	{index.ErrSchemaFieldLimit, fiber.StatusBadRequest, "illegal_argument_exception"},
	{index.ErrSchemaReservedField, fiber.StatusBadRequest, "mapper_parsing_exception"},
	{index.ErrSchemaDuplicateField, fiber.StatusBadRequest, "mapper_parsing_exception"},
	{index.ErrSchemaInvalidType, fiber.StatusBadRequest, "mapper_parsing_exception"},
	{index.ErrSchemaInvalidAnalyzer, fiber.StatusBadRequest, "mapper_parsing_exception"},
	{index.ErrSchemaFieldNameTooLong, fiber.StatusBadRequest, "mapper_parsing_exception"},
	{index.ErrSchemaEmptyFieldName, fiber.StatusBadRequest, "mapper_parsing_exception"},
	{indexing.ErrMissingID, fiber.StatusBadRequest, "invalid_argument"},
	{indexing.ErrInvalidFieldValue, fiber.StatusBadRequest, "mapper_parsing_exception"},
	{indexing.ErrWriterNotActive, fiber.StatusNotFound, "index_not_found_exception"},
	{query.ErrInvalidQuery, fiber.StatusBadRequest, "parsing_exception"},
	{engine.ErrTooManyClauses, fiber.StatusBadRequest, "too_many_clauses"},
	{engine.ErrQueryCanceled, fiber.StatusRequestTimeout, "task_cancelled_exception"},
}

// classify maps an error to its HTTP status and error type.
func classify(err error) (int, string) {
	for _, c := range errorClasses {
		if errors.Is(err, c.target) {
			return c.status, c.kind
		}
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return fe.Code, "resource_not_found_exception"
		case fiber.StatusMethodNotAllowed:
			return fe.Code, "method_not_allowed"
		case fiber.StatusRequestEntityTooLarge:
			return fe.Code, "content_too_long_exception"
		}
		if fe.Code < fiber.StatusInternalServerError {
			return fe.Code, "illegal_argument_exception"
		}
		return fe.Code, "internal_error"
	}
	return fiber.StatusInternalServerError, "internal_error"
}

// errorHandler is the app-wide fiber error handler. Handlers return errors
// and never write error bodies themselves.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, kind := classify(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(status).JSON(errorBody{
			Error:  errorCause{Type: kind, Reason: err.Error()},
			Status: status,
		})
	}
}

// badRequest wraps a decoding failure so it maps to 400.
func badRequest(reason string) error {
	return fiber.NewError(fiber.StatusBadRequest, reason)
}
