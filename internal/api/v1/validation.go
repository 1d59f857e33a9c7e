package v1

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ValidationCode classifies why a record was rejected.
type ValidationCode string

const (
	CodeMissingField               ValidationCode = "MissingField"
	CodeDateOrderViolation         ValidationCode = "DateOrderViolation"
	CodeNegativeAmount             ValidationCode = "NegativeAmount"
	CodeUnknownEnumValue           ValidationCode = "UnknownEnumValue"
	CodeInconsistentOutcomeRevenue ValidationCode = "InconsistentOutcomeRevenue"

	// CodeDateOutOfRange is reported in the date step for dates before the
	// earliest accepted date or beyond the allowed future skew.
	CodeDateOutOfRange ValidationCode = "DateOutOfRange"
	// CodeAmountOutOfRange is reported in the amount step for monetary or
	// weight values above the configured maximum.
	CodeAmountOutOfRange ValidationCode = "AmountOutOfRange"

	// CodeMalformedRecord is reported for a batch element that is not a JSON
	// object of the expected shape, before any field check runs.
	CodeMalformedRecord ValidationCode = "MalformedRecord"
)

// Limits bounds the dates and amounts a record may carry. Records outside the
// bounds would stretch the rollup timeline or overflow float KPI values.
type Limits struct {
	// EarliestDate is the earliest accepted intake or disposition date.
	EarliestDate time.Time
	// MaxFutureSkew is how far past the current time a date may lie.
	MaxFutureSkew time.Duration
	// MaxAmount is the largest accepted monetary or weight value.
	MaxAmount decimal.Decimal
	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

var (
	DefaultEarliestDate  = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	DefaultMaxFutureSkew = 48 * time.Hour
	DefaultMaxAmount     = decimal.New(1, 12)
)

// DefaultLimits returns the built-in bounds.
func DefaultLimits() Limits {
	return Limits{
		EarliestDate:  DefaultEarliestDate,
		MaxFutureSkew: DefaultMaxFutureSkew,
		MaxAmount:     DefaultMaxAmount,
	}
}

func (l Limits) latest() time.Time {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	return now().UTC().Add(l.MaxFutureSkew)
}

// ValidationError describes the first validation failure of a single record.
// It never aborts a batch.
type ValidationError struct {
	Code    ValidationCode `json:"code"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s': %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// RecordPayload is the wire form of an AssetRecord. Every field is a pointer so
// that a missing field can be told apart from a zero value.
type RecordPayload struct {
	ID                  *string          `json:"id"`
	DeviceType          *string          `json:"deviceType"`
	IntakeDate          *time.Time       `json:"intakeDate"`
	DispositionDate     *time.Time       `json:"dispositionDate"`
	Outcome             *string          `json:"outcome"`
	Revenue             *decimal.Decimal `json:"revenue"`
	CarbonSavedKg       *decimal.Decimal `json:"carbonSavedKg"`
	MaterialRecoveredKg *decimal.Decimal `json:"materialRecoveredKg"`
	CustomerSegment     *string          `json:"customerSegment"`
	Certification       *string          `json:"certification"`
	SatisfactionScore   *int             `json:"satisfactionScore,omitempty"`
	LaborCost           *decimal.Decimal `json:"laborCost"`
	PartsCost           *decimal.Decimal `json:"partsCost"`
}

// PayloadFromRecord builds the wire form of an accepted record.
func PayloadFromRecord(r *AssetRecord) RecordPayload {
	id := r.ID
	device := string(r.DeviceType)
	outcome := string(r.Outcome)
	segment := string(r.CustomerSegment)
	cert := string(r.Certification)
	intake := r.IntakeDate
	disposition := r.DispositionDate
	revenue := r.Revenue
	carbon := r.CarbonSavedKg
	material := r.MaterialRecoveredKg
	labor := r.LaborCost
	parts := r.PartsCost

	return RecordPayload{
		ID:                  &id,
		DeviceType:          &device,
		IntakeDate:          &intake,
		DispositionDate:     &disposition,
		Outcome:             &outcome,
		Revenue:             &revenue,
		CarbonSavedKg:       &carbon,
		MaterialRecoveredKg: &material,
		CustomerSegment:     &segment,
		Certification:       &cert,
		SatisfactionScore:   r.SatisfactionScore,
		LaborCost:           &labor,
		PartsCost:           &parts,
	}
}

// ToRecord validates the payload against DefaultLimits and converts it into an
// AssetRecord. See ToRecordWithLimits.
func (p *RecordPayload) ToRecord(enums *Enums) (*AssetRecord, *ValidationError) {
	return p.ToRecordWithLimits(enums, DefaultLimits())
}

// ToRecordWithLimits validates the payload and converts it into an AssetRecord.
// Checks run in a fixed order and the first failure wins:
// missing field, date order and range, negative or oversized amount, unknown
// enum, outcome/revenue consistency.
func (p *RecordPayload) ToRecordWithLimits(enums *Enums, limits Limits) (*AssetRecord, *ValidationError) {
	if enums == nil {
		enums = DefaultEnums()
	}

	if err := p.checkRequired(); err != nil {
		return nil, err
	}

	intake := p.IntakeDate.UTC()
	disposition := p.DispositionDate.UTC()
	if disposition.Before(intake) {
		return nil, &ValidationError{
			Code:    CodeDateOrderViolation,
			Field:   "dispositionDate",
			Message: fmt.Sprintf("disposition date %s is before intake date %s", disposition.Format(time.RFC3339), intake.Format(time.RFC3339)),
		}
	}
	if !limits.EarliestDate.IsZero() && intake.Before(limits.EarliestDate) {
		return nil, &ValidationError{
			Code:    CodeDateOutOfRange,
			Field:   "intakeDate",
			Message: fmt.Sprintf("intake date %s is before %s", intake.Format(time.RFC3339), limits.EarliestDate.UTC().Format(time.RFC3339)),
		}
	}
	if latest := limits.latest(); disposition.After(latest) {
		return nil, &ValidationError{
			Code:    CodeDateOutOfRange,
			Field:   "dispositionDate",
			Message: fmt.Sprintf("disposition date %s is after %s", disposition.Format(time.RFC3339), latest.Format(time.RFC3339)),
		}
	}

	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{"revenue", *p.Revenue},
		{"carbonSavedKg", *p.CarbonSavedKg},
		{"materialRecoveredKg", *p.MaterialRecoveredKg},
		{"laborCost", *p.LaborCost},
		{"partsCost", *p.PartsCost},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			return nil, &ValidationError{
				Code:    CodeNegativeAmount,
				Field:   a.field,
				Message: fmt.Sprintf("must be non-negative, got %s", a.value.String()),
			}
		}
		if limits.MaxAmount.IsPositive() && a.value.GreaterThan(limits.MaxAmount) {
			return nil, &ValidationError{
				Code:    CodeAmountOutOfRange,
				Field:   a.field,
				Message: fmt.Sprintf("must not exceed %s", limits.MaxAmount.String()),
			}
		}
	}

	device, ok := enums.parseDeviceType(*p.DeviceType)
	if !ok {
		return nil, unknownEnum("deviceType", *p.DeviceType)
	}
	outcome, ok := parseOutcome(*p.Outcome)
	if !ok {
		return nil, unknownEnum("outcome", *p.Outcome)
	}
	segment, ok := parseSegment(*p.CustomerSegment)
	if !ok {
		return nil, unknownEnum("customerSegment", *p.CustomerSegment)
	}
	cert, ok := parseCertification(*p.Certification)
	if !ok {
		return nil, unknownEnum("certification", *p.Certification)
	}
	if p.SatisfactionScore != nil && (*p.SatisfactionScore < 1 || *p.SatisfactionScore > 5) {
		return nil, &ValidationError{
			Code:    CodeUnknownEnumValue,
			Field:   "satisfactionScore",
			Message: fmt.Sprintf("must be between 1 and 5, got %d", *p.SatisfactionScore),
		}
	}

	if outcome == OutcomeFailed && !p.Revenue.IsZero() {
		return nil, &ValidationError{
			Code:    CodeInconsistentOutcomeRevenue,
			Field:   "revenue",
			Message: fmt.Sprintf("failed outcome must carry zero revenue, got %s", p.Revenue.String()),
		}
	}

	var score *int
	if p.SatisfactionScore != nil {
		v := *p.SatisfactionScore
		score = &v
	}

	return &AssetRecord{
		ID:                  *p.ID,
		DeviceType:          device,
		CustomerSegment:     segment,
		Certification:       cert,
		Outcome:             outcome,
		IntakeDate:          intake,
		DispositionDate:     disposition,
		Revenue:             *p.Revenue,
		CarbonSavedKg:       *p.CarbonSavedKg,
		MaterialRecoveredKg: *p.MaterialRecoveredKg,
		LaborCost:           *p.LaborCost,
		PartsCost:           *p.PartsCost,
		SatisfactionScore:   score,
	}, nil
}

func (p *RecordPayload) checkRequired() *ValidationError {
	switch {
	case p.ID == nil || *p.ID == "":
		return missing("id")
	case p.DeviceType == nil || *p.DeviceType == "":
		return missing("deviceType")
	case p.IntakeDate == nil || p.IntakeDate.IsZero():
		return missing("intakeDate")
	case p.DispositionDate == nil || p.DispositionDate.IsZero():
		return missing("dispositionDate")
	case p.Outcome == nil || *p.Outcome == "":
		return missing("outcome")
	case p.Revenue == nil:
		return missing("revenue")
	case p.CarbonSavedKg == nil:
		return missing("carbonSavedKg")
	case p.MaterialRecoveredKg == nil:
		return missing("materialRecoveredKg")
	case p.CustomerSegment == nil || *p.CustomerSegment == "":
		return missing("customerSegment")
	case p.Certification == nil || *p.Certification == "":
		return missing("certification")
	case p.LaborCost == nil:
		return missing("laborCost")
	case p.PartsCost == nil:
		return missing("partsCost")
	}
	return nil
}

func missing(field string) *ValidationError {
	return &ValidationError{Code: CodeMissingField, Field: field, Message: "is required"}
}

func unknownEnum(field, value string) *ValidationError {
	return &ValidationError{
		Code:    CodeUnknownEnumValue,
		Field:   field,
		Message: fmt.Sprintf("unknown value %q", value),
	}
}
