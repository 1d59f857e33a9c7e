package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
	httperr "github.com/itad-lab/itad-metrics/internal/core/errors"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgEmptyBatch     = "Request contains no records"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler handles POST /v1/records. The body is a single record object,
// a JSON array of records, or an object with a "records" array.
func (s *Service) IngestHandler(c *gin.Context) {
	elems, err := s.parseBatch(c)
	if err != nil {
		writeError(c, err)
		return
	}

	result := newBatchResult(len(elems))
	for i, raw := range elems {
		var p v1.RecordPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			result.add(RecordResult{
				Index:   i,
				Status:  StatusRejected,
				Reason:  string(v1.CodeMalformedRecord),
				Message: err.Error(),
			})
			continue
		}
		result.add(s.ingestOne(c.Request.Context(), i, &p))
	}
	s.afterBatch(result)

	c.JSON(http.StatusOK, result)
}

// parseBatch reads the size-limited body and splits it into raw record elements.
func (s *Service) parseBatch(c *gin.Context) ([]json.RawMessage, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return nil, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	elems, err := splitRecords(bodyBytes)
	if err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}
	if len(elems) == 0 {
		return nil, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgEmptyBatch,
		}
	}
	if len(elems) > s.maxBatchSize {
		return nil, &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpBatchTooLargeError,
			message:    fmt.Sprintf("Batch of %d records exceeds the maximum of %d", len(elems), s.maxBatchSize),
			details: map[string]interface{}{
				"max_batch_size": s.maxBatchSize,
			},
		}
	}
	return elems, nil
}

// splitRecords accepts `{...}`, `[{...}, ...]` or `{"records": [...]}`.
func splitRecords(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	switch trimmed[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, err
		}
		return elems, nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, err
		}
		if records, ok := envelope["records"]; ok {
			var elems []json.RawMessage
			if err := json.Unmarshal(records, &elems); err != nil {
				return nil, fmt.Errorf("records: %w", err)
			}
			return elems, nil
		}
		return []json.RawMessage{json.RawMessage(trimmed)}, nil
	}
	return nil, fmt.Errorf("body must be a JSON object or array")
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
