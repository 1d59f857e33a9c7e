package ingestion

import (
	"fmt"
	"time"

	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func timePtr(t time.Time) *time.Time { return &t }

// validPayload returns a complete, valid payload with the given id.
func validPayload(id string) v1.RecordPayload {
	intake := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	return v1.RecordPayload{
		ID:                  strPtr(id),
		DeviceType:          strPtr("Laptop"),
		IntakeDate:          timePtr(intake),
		DispositionDate:     timePtr(intake.AddDate(0, 0, 12)),
		Outcome:             strPtr("Refurbished"),
		Revenue:             decPtr("385.00"),
		CarbonSavedKg:       decPtr("210.5"),
		MaterialRecoveredKg: decPtr("1.9"),
		CustomerSegment:     strPtr("Enterprise"),
		Certification:       strPtr("R2"),
		LaborCost:           decPtr("42"),
		PartsCost:           decPtr("18.5"),
	}
}

func recordJSON(id, outcome, revenue string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"deviceType": "Desktop",
		"intakeDate": "2024-05-01T00:00:00Z",
		"dispositionDate": "2024-05-20T00:00:00Z",
		"outcome": %q,
		"revenue": %s,
		"carbonSavedKg": 95,
		"materialRecoveredKg": 4.2,
		"customerSegment": "SMB",
		"certification": "e-Stewards",
		"satisfactionScore": 5,
		"laborCost": 30,
		"partsCost": 0
	}`, id, outcome, revenue)
}
