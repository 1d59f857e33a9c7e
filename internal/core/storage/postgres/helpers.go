package postgres

import (
	"database/sql"
	"fmt"

	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
	"github.com/shopspring/decimal"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// nullableScore maps an optional satisfaction score to SQL NULL.
func nullableScore(score *int) sql.NullInt32 {
	if score == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*score), Valid: true}
}

// scanRecordRow scans a database row into an AssetRecord.
// NUMERIC columns are read as strings and parsed into exact decimals.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanRecordRow(row scanner) (*v1.AssetRecord, error) {
	var (
		rec                                          v1.AssetRecord
		revenue, carbon, material, labor, partsCost string
		score                                        sql.NullInt32
	)

	err := row.Scan(
		&rec.ID,
		&rec.DeviceType,
		&rec.CustomerSegment,
		&rec.Certification,
		&rec.Outcome,
		&rec.IntakeDate,
		&rec.DispositionDate,
		&revenue,
		&carbon,
		&material,
		&labor,
		&partsCost,
		&score,
		&rec.IngestedAt,
		&rec.IngestSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan record row: %w", err)
	}

	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"revenue", revenue, &rec.Revenue},
		{"carbon_saved_kg", carbon, &rec.CarbonSavedKg},
		{"material_recovered_kg", material, &rec.MaterialRecoveredKg},
		{"labor_cost", labor, &rec.LaborCost},
		{"parts_cost", partsCost, &rec.PartsCost},
	} {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = v
	}

	if score.Valid {
		s := int(score.Int32)
		rec.SatisfactionScore = &s
	}

	rec.IntakeDate = rec.IntakeDate.UTC()
	rec.DispositionDate = rec.DispositionDate.UTC()
	rec.IngestedAt = rec.IngestedAt.UTC()
	return &rec, nil
}
