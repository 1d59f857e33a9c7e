package ingestion

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
)

const (
	defaultMaxBatchSize = 10000
)

// Service validates incoming records and appends accepted ones to the Store.
type Service struct {
	store            *Store
	enums            *v1.Enums
	limits           v1.Limits
	maxBodySizeBytes int
	maxBatchSize     int
	onAccepted       func()
}

func NewService(store *Store, enums *v1.Enums, maxBodySizeMB, maxBatchSize int) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if enums == nil {
		enums = v1.DefaultEnums()
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	if maxBatchSize <= 0 {
		maxBatchSize = defaultMaxBatchSize
	}
	return &Service{
		store:            store,
		enums:            enums,
		limits:           v1.DefaultLimits(),
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		maxBatchSize:     maxBatchSize,
	}
}

// OnAccepted registers a hook run after any batch that accepted at least one
// record. The hook must not block; the snapshot publisher's Trigger qualifies.
func (s *Service) OnAccepted(fn func()) {
	s.onAccepted = fn
}

// SetLimits replaces the date and amount bounds applied to incoming records.
func (s *Service) SetLimits(l v1.Limits) {
	s.limits = l
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/records", s.IngestHandler)
}

// Rejection identifies a record that was not stored and why.
type Rejection struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Reason  string `json:"reason"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// RecordResult is the outcome of one record of a batch.
type RecordResult struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Status  Status `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// BatchResult summarizes a batch. Every record is processed independently:
// one rejection or storage failure never aborts the rest of the batch.
type BatchResult struct {
	Accepted   int            `json:"accepted"`
	Rejected   []Rejection    `json:"rejected"`
	Duplicates int            `json:"duplicates"`
	Errors     []Rejection    `json:"errors"`
	Results    []RecordResult `json:"results"`
}

func newBatchResult(n int) *BatchResult {
	return &BatchResult{
		Rejected: []Rejection{},
		Errors:   []Rejection{},
		Results:  make([]RecordResult, 0, n),
	}
}

func (b *BatchResult) add(r RecordResult) {
	b.Results = append(b.Results, r)
	switch r.Status {
	case StatusAccepted:
		b.Accepted++
	case StatusDuplicate:
		b.Duplicates++
	case StatusRejected:
		b.Rejected = append(b.Rejected, r.rejection())
	case StatusError:
		b.Errors = append(b.Errors, r.rejection())
	}
}

func (r RecordResult) rejection() Rejection {
	return Rejection{Index: r.Index, ID: r.ID, Reason: r.Reason, Field: r.Field, Message: r.Message}
}

// Ingest validates and stores each payload in order.
func (s *Service) Ingest(ctx context.Context, payloads []v1.RecordPayload) *BatchResult {
	result := newBatchResult(len(payloads))
	for i := range payloads {
		result.add(s.ingestOne(ctx, i, &payloads[i]))
	}
	s.afterBatch(result)
	return result
}

func (s *Service) ingestOne(ctx context.Context, idx int, p *v1.RecordPayload) RecordResult {
	res := RecordResult{Index: idx}
	if p.ID != nil {
		res.ID = *p.ID
	}

	rec, verr := p.ToRecordWithLimits(s.enums, s.limits)
	if verr != nil {
		slog.Debug("[Ingestion] Record rejected", "index", idx, "record_id", res.ID, "code", verr.Code, "field", verr.Field)
		res.Status = StatusRejected
		res.Reason = string(verr.Code)
		res.Field = verr.Field
		res.Message = verr.Message
		return res
	}

	status, err := s.store.Append(ctx, rec)
	res.Status = status
	if err != nil {
		slog.Error("[Ingestion] Failed to persist record", "record_id", rec.ID, "error", err)
		res.Reason = ReasonStorageFailure
		res.Message = "failed to persist record"
	}
	return res
}

func (s *Service) afterBatch(result *BatchResult) {
	slog.Info("[Ingestion] Batch processed",
		"records", len(result.Results),
		"accepted", result.Accepted,
		"rejected", len(result.Rejected),
		"duplicates", result.Duplicates,
		"errors", len(result.Errors))

	if result.Accepted > 0 && s.onAccepted != nil {
		s.onAccepted()
	}
}
