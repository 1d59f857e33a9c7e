package v1

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetRecord is one processed unit of IT equipment.
// Records are immutable once accepted. Corrections are submitted as new,
// compensating records with their own ID.
type AssetRecord struct {
	// ID is the unique identifier provided by the client. Re-submitting the same
	// ID is a no-op (idempotent ingestion).
	ID string `json:"id"`

	DeviceType      DeviceType      `json:"deviceType"`
	CustomerSegment CustomerSegment `json:"customerSegment"`
	Certification   Certification   `json:"certification"`
	Outcome         Outcome         `json:"outcome"`

	IntakeDate      time.Time `json:"intakeDate"`
	DispositionDate time.Time `json:"dispositionDate"`

	// Monetary and weight fields use exact decimal arithmetic so rollup sums do
	// not depend on summation order.
	Revenue             decimal.Decimal `json:"revenue"`
	CarbonSavedKg       decimal.Decimal `json:"carbonSavedKg"`
	MaterialRecoveredKg decimal.Decimal `json:"materialRecoveredKg"`
	LaborCost           decimal.Decimal `json:"laborCost"`
	PartsCost           decimal.Decimal `json:"partsCost"`

	// SatisfactionScore is optional (1-5). Nil means the customer gave no score.
	SatisfactionScore *int `json:"satisfactionScore,omitempty"`

	// IngestedAt is set by the Record Store, not the client.
	IngestedAt time.Time `json:"ingestedAt"`

	// IngestSeq is the monotonic sequence assigned on acceptance.
	// Set by the persistence backend (BIGSERIAL), not exposed in public API.
	IngestSeq int64 `json:"-"`
}

// Succeeded reports whether the asset was refurbished for resale.
func (r *AssetRecord) Succeeded() bool {
	return r.Outcome == OutcomeRefurbished
}

// Processed reports whether the asset completed disposition (refurbished or recycled).
func (r *AssetRecord) Processed() bool {
	return r.Outcome == OutcomeRefurbished || r.Outcome == OutcomeRecycled
}

// ProcessingTime is the elapsed time between intake and disposition.
func (r *AssetRecord) ProcessingTime() time.Duration {
	return r.DispositionDate.Sub(r.IntakeDate)
}

// Cost is the combined labor and parts cost of processing the asset.
func (r *AssetRecord) Cost() decimal.Decimal {
	return r.LaborCost.Add(r.PartsCost)
}
