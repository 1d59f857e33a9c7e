package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
	httperr "github.com/itad-lab/itad-metrics/internal/core/errors"
	"github.com/itad-lab/itad-metrics/internal/core/storage/memory"
	"github.com/itad-lab/itad-metrics/internal/index"
	storagemocks "github.com/itad-lab/itad-metrics/internal/mocks/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc.RegisterRoutes(r)
	return r
}

func postRecords(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/records", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeBatch(t *testing.T, resp *httptest.ResponseRecorder) BatchResult {
	t.Helper()
	var result BatchResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	return result
}

func TestIngestHandler_SingleRecord(t *testing.T) {
	triggered := 0
	svc := NewService(NewStore(memory.NewRecordStore(), index.New()), nil, 1, 0)
	svc.OnAccepted(func() { triggered++ })
	r := newTestRouter(t, svc)

	resp := postRecords(r, recordJSON("rec-1", "Refurbished", "310.25"))
	require.Equal(t, http.StatusOK, resp.Code)

	result := decodeBatch(t, resp)
	require.Equal(t, 1, result.Accepted)
	require.Empty(t, result.Rejected)
	require.Len(t, result.Results, 1)
	require.Equal(t, StatusAccepted, result.Results[0].Status)
	require.Equal(t, 1, triggered)

	// e-Stewards is stored under its canonical spelling.
	recs := svc.store.Indexer().RecordsFor(index.ByCertification, string(v1.CertificationEStewards), svc.store.Version())
	require.Len(t, recs, 1)
}

func TestIngestHandler_MixedBatchNeverAborts(t *testing.T) {
	svc := NewService(NewStore(memory.NewRecordStore(), index.New()), nil, 1, 0)
	r := newTestRouter(t, svc)

	body := "[" + strings.Join([]string{
		recordJSON("rec-1", "Refurbished", "100"),
		recordJSON("rec-2", "Failed", "15"),       // revenue on a failed outcome
		`{"id": "rec-3"}`,                         // missing fields
		`"not an object"`,                         // malformed element
		recordJSON("rec-1", "Refurbished", "100"), // duplicate id
		recordJSON("rec-4", "Recycled", "12.40"),
	}, ",") + "]"

	resp := postRecords(r, body)
	require.Equal(t, http.StatusOK, resp.Code)

	result := decodeBatch(t, resp)
	require.Equal(t, 2, result.Accepted)
	require.Equal(t, 1, result.Duplicates)
	require.Empty(t, result.Errors)
	require.Len(t, result.Results, 6)

	require.Len(t, result.Rejected, 3)
	require.Equal(t, Rejection{Index: 1, ID: "rec-2", Reason: string(v1.CodeInconsistentOutcomeRevenue), Field: "revenue",
		Message: result.Rejected[0].Message}, result.Rejected[0])
	require.Equal(t, 2, result.Rejected[1].Index)
	require.Equal(t, string(v1.CodeMissingField), result.Rejected[1].Reason)
	require.Equal(t, 3, result.Rejected[2].Index)
	require.Equal(t, string(v1.CodeMalformedRecord), result.Rejected[2].Reason)

	require.Equal(t, int64(2), svc.store.Version())
}

func TestIngestHandler_OutOfRangeValuesRejectedPerRecord(t *testing.T) {
	svc := NewService(NewStore(memory.NewRecordStore(), index.New()), nil, 1, 0)
	r := newTestRouter(t, svc)

	farFuture := strings.Replace(recordJSON("rec-future", "Refurbished", "50"),
		"2024-05-20T00:00:00Z", "9999-12-01T00:00:00Z", 1)

	body := "[" + strings.Join([]string{
		recordJSON("rec-1", "Refurbished", "100"),
		recordJSON("rec-huge", "Refurbished", "1e400"),
		farFuture,
		recordJSON("rec-2", "Recycled", "12.40"),
	}, ",") + "]"

	resp := postRecords(r, body)
	require.Equal(t, http.StatusOK, resp.Code)

	result := decodeBatch(t, resp)
	require.Equal(t, 2, result.Accepted)
	require.Len(t, result.Rejected, 2)
	require.Equal(t, 1, result.Rejected[0].Index)
	require.Equal(t, string(v1.CodeAmountOutOfRange), result.Rejected[0].Reason)
	require.Equal(t, "revenue", result.Rejected[0].Field)
	require.Equal(t, 2, result.Rejected[1].Index)
	require.Equal(t, string(v1.CodeDateOutOfRange), result.Rejected[1].Reason)
	require.Equal(t, "dispositionDate", result.Rejected[1].Field)

	require.Equal(t, int64(2), svc.store.Version())
	require.Equal(t, []string{"2024-05"}, svc.store.Indexer().Keys(index.ByMonth))
}

func TestIngestHandler_SetLimits(t *testing.T) {
	svc := NewService(NewStore(memory.NewRecordStore(), index.New()), nil, 1, 0)
	limits := v1.DefaultLimits()
	limits.MaxAmount = decimal.NewFromInt(500)
	svc.SetLimits(limits)
	r := newTestRouter(t, svc)

	body := "[" + recordJSON("cheap", "Refurbished", "499") + "," + recordJSON("pricey", "Refurbished", "501") + "]"
	result := decodeBatch(t, postRecords(r, body))
	require.Equal(t, 1, result.Accepted)
	require.Len(t, result.Rejected, 1)
	require.Equal(t, "pricey", result.Rejected[0].ID)
	require.Equal(t, string(v1.CodeAmountOutOfRange), result.Rejected[0].Reason)
}

func TestIngestHandler_RecordsEnvelope(t *testing.T) {
	svc := NewService(NewStore(memory.NewRecordStore(), index.New()), nil, 1, 0)
	r := newTestRouter(t, svc)

	body := `{"records": [` + recordJSON("a", "Refurbished", "1") + `,` + recordJSON("b", "Refurbished", "2") + `]}`
	resp := postRecords(r, body)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, 2, decodeBatch(t, resp).Accepted)
}

func TestIngestHandler_StorageFailureIsPerRecord(t *testing.T) {
	backend := storagemocks.NewRecordStore(t)
	backend.EXPECT().
		SaveRecord(mock.Anything, mock.MatchedBy(func(r *v1.AssetRecord) bool { return r.ID == "bad" })).
		Return(errors.New("disk full")).
		Once()
	backend.EXPECT().
		SaveRecord(mock.Anything, mock.MatchedBy(func(r *v1.AssetRecord) bool { return r.ID == "good" })).
		Return(nil).
		Once()

	svc := NewService(NewStore(backend, index.New()), nil, 1, 0)
	r := newTestRouter(t, svc)

	body := "[" + recordJSON("bad", "Recycled", "5") + "," + recordJSON("good", "Recycled", "5") + "]"
	resp := postRecords(r, body)
	require.Equal(t, http.StatusOK, resp.Code)

	result := decodeBatch(t, resp)
	require.Equal(t, 1, result.Accepted)
	require.Len(t, result.Errors, 1)
	require.Equal(t, ReasonStorageFailure, result.Errors[0].Reason)
	require.Equal(t, 0, result.Errors[0].Index)
}

func TestIngestHandler_InvalidJSON(t *testing.T) {
	svc := NewService(NewStore(memory.NewRecordStore(), index.New()), nil, 1, 0)
	r := newTestRouter(t, svc)

	for _, body := range []string{"{not json", "", "42", "[]"} {
		resp := postRecords(r, body)
		require.Equal(t, http.StatusBadRequest, resp.Code, "body %q", body)

		var errResp httperr.ErrorResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
		require.Equal(t, httperr.HttpInvalidJsonError, errResp.ErrorType)
	}
}

func TestIngestHandler_BodyTooLarge(t *testing.T) {
	svc := NewService(NewStore(memory.NewRecordStore(), index.New()), nil, 1, 0)
	svc.maxBodySizeBytes = 10
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/records", bytes.NewReader([]byte(recordJSON("x", "Recycled", "1"))))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)

	var errResp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Contains(t, errResp.Message, "maximum allowed size")
}

func TestIngestHandler_BatchTooLarge(t *testing.T) {
	svc := NewService(NewStore(memory.NewRecordStore(), index.New()), nil, 1, 2)
	r := newTestRouter(t, svc)

	body := "[" + strings.Join([]string{
		recordJSON("a", "Recycled", "1"),
		recordJSON("b", "Recycled", "1"),
		recordJSON("c", "Recycled", "1"),
	}, ",") + "]"
	resp := postRecords(r, body)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)

	var errResp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, httperr.HttpBatchTooLargeError, errResp.ErrorType)
	require.Equal(t, 0, svc.store.Len())
}

func TestService_IngestIsIdempotent(t *testing.T) {
	triggered := 0
	svc := NewService(NewStore(memory.NewRecordStore(), index.New()), nil, 1, 0)
	svc.OnAccepted(func() { triggered++ })

	batch := []v1.RecordPayload{validPayload("a"), validPayload("b")}
	first := svc.Ingest(context.Background(), batch)
	require.Equal(t, 2, first.Accepted)

	second := svc.Ingest(context.Background(), batch)
	require.Equal(t, 0, second.Accepted)
	require.Equal(t, 2, second.Duplicates)

	// Only the batch that changed the data set triggers a publish.
	require.Equal(t, 1, triggered)
}
