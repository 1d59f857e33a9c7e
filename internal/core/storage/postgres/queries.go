package postgres

// SQL queries for record storage and the snapshot archive

const (
	// querySaveRecord inserts a record keyed by its client id.
	// RETURNING clause retrieves auto-generated ingest_seq for cursor tracking.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) for duplicates.
	querySaveRecord = `
		INSERT INTO asset_records (
			id, device_type, customer_segment, certification, outcome,
			intake_date, disposition_date, revenue, carbon_saved_kg, material_recovered_kg,
			labor_cost, parts_cost, satisfaction_score, ingested_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
		RETURNING ingest_seq
	`

	// queryRetrieveRecordsAfterCursor fetches records after a cursor (ingest_seq).
	// Used by startup replay in strict total order.
	queryRetrieveRecordsAfterCursor = `
		SELECT
			id, device_type, customer_segment, certification, outcome,
			intake_date, disposition_date, revenue, carbon_saved_kg, material_recovered_kg,
			labor_cost, parts_cost, satisfaction_score, ingested_at, ingest_seq
		FROM asset_records
		WHERE ingest_seq > $1
		ORDER BY ingest_seq ASC
		LIMIT $2
	`

	querySaveSnapshot = `
		INSERT INTO published_snapshots (version, snapshot_id, generated_at, payload, archived_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (version) DO NOTHING
	`

	queryLoadLatestSnapshot = `
		SELECT version, snapshot_id, generated_at, payload
		FROM published_snapshots
		ORDER BY version DESC
		LIMIT 1
	`

	queryListSnapshots = `
		SELECT version, snapshot_id, generated_at
		FROM published_snapshots
		ORDER BY version DESC
		LIMIT $1
	`
)
