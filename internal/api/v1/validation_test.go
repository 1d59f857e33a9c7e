package v1

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func validPayload() RecordPayload {
	intake := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	disposition := intake.Add(5 * 24 * time.Hour)
	score := 5
	return PayloadFromRecord(&AssetRecord{
		ID:                  "asset-001",
		DeviceType:          DeviceLaptop,
		IntakeDate:          intake,
		DispositionDate:     disposition,
		Outcome:             OutcomeRefurbished,
		Revenue:             decimal.NewFromInt(385),
		CarbonSavedKg:       decimal.RequireFromString("31.8"),
		MaterialRecoveredKg: decimal.RequireFromString("1.9"),
		CustomerSegment:     SegmentEnterprise,
		Certification:       CertificationR2,
		SatisfactionScore:   &score,
		LaborCost:           decimal.NewFromInt(40),
		PartsCost:           decimal.NewFromInt(12),
	})
}

func TestRecordPayload_ToRecord(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *RecordPayload)
		wantCode  ValidationCode
		wantField string
	}{
		{
			name:   "valid record",
			mutate: func(p *RecordPayload) {},
		},
		{
			name:      "missing id",
			mutate:    func(p *RecordPayload) { p.ID = nil },
			wantCode:  CodeMissingField,
			wantField: "id",
		},
		{
			name:      "missing parts cost",
			mutate:    func(p *RecordPayload) { p.PartsCost = nil },
			wantCode:  CodeMissingField,
			wantField: "partsCost",
		},
		{
			name: "disposition before intake",
			mutate: func(p *RecordPayload) {
				d := p.IntakeDate.Add(-time.Hour)
				p.DispositionDate = &d
			},
			wantCode:  CodeDateOrderViolation,
			wantField: "dispositionDate",
		},
		{
			name: "same day disposition is allowed",
			mutate: func(p *RecordPayload) {
				d := *p.IntakeDate
				p.DispositionDate = &d
			},
		},
		{
			name: "negative carbon",
			mutate: func(p *RecordPayload) {
				v := decimal.NewFromInt(-1)
				p.CarbonSavedKg = &v
			},
			wantCode:  CodeNegativeAmount,
			wantField: "carbonSavedKg",
		},
		{
			name: "unknown device",
			mutate: func(p *RecordPayload) {
				v := "Toaster"
				p.DeviceType = &v
			},
			wantCode:  CodeUnknownEnumValue,
			wantField: "deviceType",
		},
		{
			name: "satisfaction out of range",
			mutate: func(p *RecordPayload) {
				v := 6
				p.SatisfactionScore = &v
			},
			wantCode:  CodeUnknownEnumValue,
			wantField: "satisfactionScore",
		},
		{
			name: "failed outcome with revenue",
			mutate: func(p *RecordPayload) {
				v := string(OutcomeFailed)
				p.Outcome = &v
			},
			wantCode:  CodeInconsistentOutcomeRevenue,
			wantField: "revenue",
		},
		{
			name: "date violation wins over negative amount",
			mutate: func(p *RecordPayload) {
				d := p.IntakeDate.Add(-time.Hour)
				p.DispositionDate = &d
				v := decimal.NewFromInt(-5)
				p.Revenue = &v
			},
			wantCode:  CodeDateOrderViolation,
			wantField: "dispositionDate",
		},
		{
			name: "negative amount wins over unknown enum",
			mutate: func(p *RecordPayload) {
				v := decimal.NewFromInt(-5)
				p.LaborCost = &v
				s := "Mainframe"
				p.DeviceType = &s
			},
			wantCode:  CodeNegativeAmount,
			wantField: "laborCost",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := validPayload()
			tc.mutate(&p)

			rec, verr := p.ToRecord(DefaultEnums())
			if tc.wantCode == "" {
				require.Nil(t, verr)
				require.NotNil(t, rec)
				return
			}
			require.Nil(t, rec)
			require.NotNil(t, verr)
			require.Equal(t, tc.wantCode, verr.Code)
			require.Equal(t, tc.wantField, verr.Field)
		})
	}
}

func TestRecordPayload_ToRecordWithLimits(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	limits := DefaultLimits()
	limits.Now = func() time.Time { return now }

	at := func(y int, m time.Month, d int) *time.Time {
		ts := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &ts
	}

	tests := []struct {
		name      string
		mutate    func(p *RecordPayload)
		wantCode  ValidationCode
		wantField string
	}{
		{
			name: "disposition within future skew",
			mutate: func(p *RecordPayload) {
				d := now.Add(DefaultMaxFutureSkew - time.Minute)
				p.DispositionDate = &d
			},
		},
		{
			name: "disposition far in the future",
			mutate: func(p *RecordPayload) {
				p.DispositionDate = at(9000, time.June, 1)
			},
			wantCode:  CodeDateOutOfRange,
			wantField: "dispositionDate",
		},
		{
			name: "disposition in the last representable month",
			mutate: func(p *RecordPayload) {
				p.DispositionDate = at(9999, time.December, 1)
			},
			wantCode:  CodeDateOutOfRange,
			wantField: "dispositionDate",
		},
		{
			name: "intake before earliest date",
			mutate: func(p *RecordPayload) {
				p.IntakeDate = at(1900, time.January, 1)
			},
			wantCode:  CodeDateOutOfRange,
			wantField: "intakeDate",
		},
		{
			name: "date order is checked before range",
			mutate: func(p *RecordPayload) {
				p.IntakeDate = at(9999, time.December, 2)
				p.DispositionDate = at(9999, time.December, 1)
			},
			wantCode:  CodeDateOrderViolation,
			wantField: "dispositionDate",
		},
		{
			name: "huge exponent revenue",
			mutate: func(p *RecordPayload) {
				v := decimal.RequireFromString("1e400")
				p.Revenue = &v
			},
			wantCode:  CodeAmountOutOfRange,
			wantField: "revenue",
		},
		{
			name: "weight above maximum",
			mutate: func(p *RecordPayload) {
				v := DefaultMaxAmount.Add(decimal.NewFromInt(1))
				p.CarbonSavedKg = &v
			},
			wantCode:  CodeAmountOutOfRange,
			wantField: "carbonSavedKg",
		},
		{
			name: "amount at maximum",
			mutate: func(p *RecordPayload) {
				v := DefaultMaxAmount
				p.Revenue = &v
			},
		},
		{
			name: "negative amount wins over later oversized amount",
			mutate: func(p *RecordPayload) {
				neg := decimal.NewFromInt(-1)
				huge := decimal.RequireFromString("1e400")
				p.Revenue = &neg
				p.PartsCost = &huge
			},
			wantCode:  CodeNegativeAmount,
			wantField: "revenue",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := validPayload()
			tc.mutate(&p)

			rec, verr := p.ToRecordWithLimits(DefaultEnums(), limits)
			if tc.wantCode == "" {
				require.Nil(t, verr)
				require.NotNil(t, rec)
				return
			}
			require.Nil(t, rec)
			require.NotNil(t, verr)
			require.Equal(t, tc.wantCode, verr.Code)
			require.Equal(t, tc.wantField, verr.Field)
		})
	}
}

func TestRecordPayload_UnmarshalHugeExponentIsRejected(t *testing.T) {
	body := []byte(`{
		"id": "asset-huge",
		"deviceType": "Server",
		"intakeDate": "2024-01-02T00:00:00Z",
		"dispositionDate": "2024-01-09T00:00:00Z",
		"outcome": "Refurbished",
		"revenue": 1e400,
		"carbonSavedKg": 60,
		"materialRecoveredKg": 1,
		"customerSegment": "Government",
		"certification": "R2",
		"laborCost": 30,
		"partsCost": 0
	}`)

	var p RecordPayload
	require.NoError(t, json.Unmarshal(body, &p))

	_, verr := p.ToRecord(DefaultEnums())
	require.NotNil(t, verr)
	require.Equal(t, CodeAmountOutOfRange, verr.Code)
	require.Equal(t, "revenue", verr.Field)
}

func TestRecordPayload_UnmarshalPlainNumbers(t *testing.T) {
	body := []byte(`{
		"id": "asset-9",
		"deviceType": "Server",
		"intakeDate": "2024-01-02T00:00:00Z",
		"dispositionDate": "2024-01-09T00:00:00Z",
		"outcome": "Recycled",
		"revenue": 120.5,
		"carbonSavedKg": 60,
		"materialRecoveredKg": "14.25",
		"customerSegment": "Government",
		"certification": "e-Stewards",
		"laborCost": 30,
		"partsCost": 0
	}`)

	var p RecordPayload
	require.NoError(t, json.Unmarshal(body, &p))

	rec, verr := p.ToRecord(DefaultEnums())
	require.Nil(t, verr)
	require.Equal(t, CertificationEStewards, rec.Certification)
	require.True(t, decimal.RequireFromString("120.5").Equal(rec.Revenue))
	require.True(t, decimal.RequireFromString("14.25").Equal(rec.MaterialRecoveredKg))
	require.Nil(t, rec.SatisfactionScore)
	require.Equal(t, 7*24*time.Hour, rec.ProcessingTime())
}

func TestEnums_ExtraDeviceTypes(t *testing.T) {
	enums := NewEnums([]string{"Printer", " ", "Laptop", "Printer"})

	devices := enums.DeviceTypes()
	require.Len(t, devices, len(DefaultDeviceTypes)+1)
	require.Equal(t, DeviceType("Printer"), devices[len(devices)-1])

	p := validPayload()
	printer := "Printer"
	p.DeviceType = &printer
	rec, verr := p.ToRecord(enums)
	require.Nil(t, verr)
	require.Equal(t, DeviceType("Printer"), rec.DeviceType)

	_, verr = p.ToRecord(DefaultEnums())
	require.NotNil(t, verr)
	require.Equal(t, CodeUnknownEnumValue, verr.Code)
}
