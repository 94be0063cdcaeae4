package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Landmarklens/ImobiliareScraper/models"
	"github.com/Landmarklens/ImobiliareScraper/pricing"
)

type PostgresStore struct {
	pool      *pgxpool.Pool
	retention pricing.Retention
}

func NewPostgresStore(ctx context.Context, connString string, retention pricing.Retention) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool, retention: retention}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id UUID PRIMARY KEY,
		fingerprint VARCHAR(64) NOT NULL UNIQUE,
		external_source TEXT,
		external_id TEXT,
		external_url TEXT,
		title TEXT,
		description TEXT,
		property_type TEXT,
		deal_type TEXT,
		country TEXT,
		county TEXT,
		city TEXT,
		neighborhood TEXT,
		address TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		square_meters INTEGER,
		room_count INTEGER,
		floor INTEGER,
		price_ron DOUBLE PRECISION,
		price_eur DOUBLE PRECISION,
		currency TEXT DEFAULT 'RON',
		previous_price_ron DOUBLE PRECISION,
		previous_price_eur DOUBLE PRECISION,
		price_change_ron DOUBLE PRECISION,
		price_change_eur DOUBLE PRECISION,
		price_change_percentage DOUBLE PRECISION,
		price_last_changed TIMESTAMPTZ,
		price_change_count INTEGER NOT NULL DEFAULT 0,
		price_drop_alert BOOLEAN NOT NULL DEFAULT FALSE,
		highest_price_ron DOUBLE PRECISION,
		lowest_price_ron DOUBLE PRECISION,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_properties_change_pct ON properties (price_change_percentage);
	CREATE INDEX IF NOT EXISTS idx_properties_drop_alert ON properties (price_drop_alert);
	CREATE INDEX IF NOT EXISTS idx_properties_last_changed ON properties (price_last_changed);
	CREATE INDEX IF NOT EXISTS idx_properties_city ON properties (city);
	CREATE INDEX IF NOT EXISTS idx_properties_county ON properties (county);
	CREATE INDEX IF NOT EXISTS idx_properties_type ON properties (property_type);
	CREATE INDEX IF NOT EXISTS idx_properties_status ON properties (status);

	CREATE TABLE IF NOT EXISTS price_history (
		fingerprint VARCHAR(64) NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL,
		price_ron DOUBLE PRECISION,
		price_eur DOUBLE PRECISION,
		PRIMARY KEY (fingerprint, observed_at)
	);

	CREATE TABLE IF NOT EXISTS change_log (
		id BIGSERIAL PRIMARY KEY,
		fingerprint VARCHAR(64) NOT NULL,
		changes JSONB NOT NULL,
		change_count INTEGER NOT NULL DEFAULT 0,
		changed_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_change_log_fingerprint ON change_log (fingerprint);`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

const propertyColumns = `id, fingerprint, external_source, external_id, external_url,
	title, description, property_type, deal_type, country, county, city, neighborhood, address,
	latitude, longitude, square_meters, room_count, floor,
	price_ron, price_eur, currency,
	previous_price_ron, previous_price_eur, price_change_ron, price_change_eur,
	price_change_percentage, price_last_changed, price_change_count, price_drop_alert,
	highest_price_ron, lowest_price_ron, status, created_at, updated_at`

func propertyFields(p *models.PropertyRecord) []any {
	return []any{
		&p.ID, &p.Fingerprint, &p.ExternalSource, &p.ExternalID, &p.ExternalURL,
		&p.Title, &p.Description, &p.PropertyType, &p.DealType, &p.Country, &p.County, &p.City, &p.Neighborhood, &p.Address,
		&p.Latitude, &p.Longitude, &p.SquareMeters, &p.RoomCount, &p.Floor,
		&p.PriceRON, &p.PriceEUR, &p.Currency,
		&p.PreviousPriceRON, &p.PreviousPriceEUR, &p.PriceChangeRON, &p.PriceChangeEUR,
		&p.PriceChangePercentage, &p.PriceLastChanged, &p.PriceChangeCount, &p.PriceDropAlert,
		&p.HighestPriceRON, &p.LowestPriceRON, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	}
}

// =============================================================================
// Reconciliation
// =============================================================================

// ApplyReconcile runs the plan callback against the current record under
// a row lock and applies the result atomically: record upsert, history
// append, retention pruning and change log in one transaction. Retryable
// contention (insert race on the fingerprint, serialization failure) is
// reported as models.ErrWriteConflict.
func (s *PostgresStore) ApplyReconcile(ctx context.Context, fingerprint string, plan models.PlanFunc) (*models.ReconcilePlan, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := getPropertyForUpdate(ctx, tx, fingerprint)
	if err != nil {
		return nil, err
	}

	applied, err := plan(existing)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		err = insertProperty(ctx, tx, applied.Record)
	} else {
		err = updateProperty(ctx, tx, applied.Record)
	}
	if err != nil {
		return nil, translateWriteErr(err)
	}

	if applied.HistoryEntry != nil {
		if err := appendHistory(ctx, tx, applied.HistoryEntry); err != nil {
			return nil, translateWriteErr(err)
		}
		if err := s.pruneHistoryTx(ctx, tx, fingerprint, applied.HistoryEntry.ObservedAt); err != nil {
			return nil, err
		}
	}

	if applied.ChangeLog != nil {
		if err := insertChangeLog(ctx, tx, applied.ChangeLog); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateWriteErr(err)
	}
	return applied, nil
}

func getPropertyForUpdate(ctx context.Context, tx pgx.Tx, fingerprint string) (*models.PropertyRecord, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE fingerprint = $1 FOR UPDATE`

	var p models.PropertyRecord
	err := tx.QueryRow(ctx, query, fingerprint).Scan(propertyFields(&p)...)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func insertProperty(ctx context.Context, tx pgx.Tx, p *models.PropertyRecord) error {
	query := `
		INSERT INTO properties (` + propertyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.Fingerprint, p.ExternalSource, p.ExternalID, p.ExternalURL,
		p.Title, p.Description, p.PropertyType, p.DealType, p.Country, p.County, p.City, p.Neighborhood, p.Address,
		p.Latitude, p.Longitude, p.SquareMeters, p.RoomCount, p.Floor,
		p.PriceRON, p.PriceEUR, p.Currency,
		p.PreviousPriceRON, p.PreviousPriceEUR, p.PriceChangeRON, p.PriceChangeEUR,
		p.PriceChangePercentage, p.PriceLastChanged, p.PriceChangeCount, p.PriceDropAlert,
		p.HighestPriceRON, p.LowestPriceRON, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func updateProperty(ctx context.Context, tx pgx.Tx, p *models.PropertyRecord) error {
	query := `
		UPDATE properties SET
			external_source = $2, external_id = $3, external_url = $4,
			title = $5, description = $6, property_type = $7, deal_type = $8,
			country = $9, county = $10, city = $11, neighborhood = $12, address = $13,
			latitude = $14, longitude = $15, square_meters = $16, room_count = $17, floor = $18,
			price_ron = $19, price_eur = $20, currency = $21,
			previous_price_ron = $22, previous_price_eur = $23,
			price_change_ron = $24, price_change_eur = $25,
			price_change_percentage = $26, price_last_changed = $27,
			price_change_count = $28, price_drop_alert = $29,
			highest_price_ron = $30, lowest_price_ron = $31,
			status = $32, updated_at = $33
		WHERE fingerprint = $1`

	_, err := tx.Exec(ctx, query,
		p.Fingerprint, p.ExternalSource, p.ExternalID, p.ExternalURL,
		p.Title, p.Description, p.PropertyType, p.DealType,
		p.Country, p.County, p.City, p.Neighborhood, p.Address,
		p.Latitude, p.Longitude, p.SquareMeters, p.RoomCount, p.Floor,
		p.PriceRON, p.PriceEUR, p.Currency,
		p.PreviousPriceRON, p.PreviousPriceEUR,
		p.PriceChangeRON, p.PriceChangeEUR,
		p.PriceChangePercentage, p.PriceLastChanged,
		p.PriceChangeCount, p.PriceDropAlert,
		p.HighestPriceRON, p.LowestPriceRON,
		p.Status, p.UpdatedAt,
	)
	return err
}

// appendHistory inserts the new ledger entry. A duplicate
// (fingerprint, observed_at) key raises a unique violation on purpose:
// swallowing it would commit rotated scalar prices with a ledger whose
// newest entry still holds the old price. The violation rolls the whole
// transaction back and reaches the reconciler as a write conflict.
func appendHistory(ctx context.Context, tx pgx.Tx, e *models.PriceHistoryEntry) error {
	query := `
		INSERT INTO price_history (fingerprint, observed_at, price_ron, price_eur)
		VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query, e.Fingerprint, e.ObservedAt, e.PriceRON, e.PriceEUR)
	return err
}

// pruneHistoryTx bounds one record's ledger after an append. The two
// most recent entries always survive.
func (s *PostgresStore) pruneHistoryTx(ctx context.Context, tx pgx.Tx, fingerprint string, now time.Time) error {
	maxEntries := s.retention.MaxEntries
	if maxEntries < 2 {
		maxEntries = 2
	}
	var cutoff *time.Time
	if s.retention.MaxAge > 0 {
		t := now.Add(-s.retention.MaxAge)
		cutoff = &t
	}

	query := `
		WITH ranked AS (
			SELECT observed_at,
				ROW_NUMBER() OVER (ORDER BY observed_at DESC) AS rn
			FROM price_history
			WHERE fingerprint = $1
		)
		DELETE FROM price_history ph
		USING ranked r
		WHERE ph.fingerprint = $1
			AND ph.observed_at = r.observed_at
			AND r.rn > 2
			AND (r.rn > $2 OR ($3::timestamptz IS NOT NULL AND r.observed_at < $3))`

	_, err := tx.Exec(ctx, query, fingerprint, maxEntries, cutoff)
	return err
}

func insertChangeLog(ctx context.Context, tx pgx.Tx, e *models.ChangeLogEntry) error {
	query := `
		INSERT INTO change_log (fingerprint, changes, change_count, changed_at)
		VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query, e.Fingerprint, e.ChangesJSON(), e.ChangeCount, e.ChangedAt)
	return err
}

// translateWriteErr maps retryable SQL states onto the conflict
// sentinel so the reconciler can re-run the whole operation.
func translateWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001", "40P01":
			return fmt.Errorf("%s: %w", pgErr.Code, models.ErrWriteConflict)
		}
	}
	return err
}

// SetStatus transitions a record's lifecycle status. Returns false when
// the fingerprint is unknown.
func (s *PostgresStore) SetStatus(ctx context.Context, fingerprint string, status models.PropertyStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE properties SET status = $2, updated_at = NOW() WHERE fingerprint = $1`,
		fingerprint, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// =============================================================================
// Reads
// =============================================================================

func (s *PostgresStore) GetProperty(ctx context.Context, fingerprint string) (*models.PropertyRecord, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE fingerprint = $1`

	var p models.PropertyRecord
	err := s.pool.QueryRow(ctx, query, fingerprint).Scan(propertyFields(&p)...)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) GetPriceHistory(ctx context.Context, fingerprint string) ([]models.PriceHistoryEntry, error) {
	query := `
		SELECT fingerprint, observed_at, price_ron, price_eur
		FROM price_history
		WHERE fingerprint = $1
		ORDER BY observed_at`

	rows, err := s.pool.Query(ctx, query, fingerprint)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.PriceHistoryEntry
	for rows.Next() {
		var e models.PriceHistoryEntry
		if err := rows.Scan(&e.Fingerprint, &e.ObservedAt, &e.PriceRON, &e.PriceEUR); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) TopDrops(ctx context.Context, windowDays, limit int) ([]models.PropertyRecord, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE price_change_percentage > 0
			AND price_last_changed >= NOW() - make_interval(days => $1)
		ORDER BY price_change_percentage DESC, price_last_changed DESC, fingerprint
		LIMIT $2`

	return s.queryProperties(ctx, query, windowDays, limit)
}

func (s *PostgresStore) RecentDrops(ctx context.Context, days int, minDropPct float64) ([]models.PropertyRecord, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE price_change_percentage > $2
			AND price_last_changed >= NOW() - make_interval(days => $1)
			AND status = 'active'
		ORDER BY price_change_percentage DESC, price_last_changed DESC, fingerprint`

	return s.queryProperties(ctx, query, days, minDropPct)
}

func (s *PostgresStore) StatsByCity(ctx context.Context) ([]models.CityStats, error) {
	query := `
		SELECT city, property_type, COUNT(*),
			COUNT(*) FILTER (WHERE price_change_percentage > 0),
			COUNT(*) FILTER (WHERE price_change_percentage < 0),
			AVG(price_change_percentage),
			MIN(price_change_percentage),
			MAX(price_change_percentage)
		FROM properties
		WHERE status = 'active' AND price_change_percentage IS NOT NULL
		GROUP BY city, property_type
		ORDER BY city, property_type`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.CityStats
	for rows.Next() {
		var cs models.CityStats
		if err := rows.Scan(&cs.City, &cs.PropertyType, &cs.Count, &cs.Drops, &cs.Increases,
			&cs.AvgChangePct, &cs.MinChangePct, &cs.MaxChangePct); err != nil {
			return nil, err
		}
		stats = append(stats, cs)
	}
	return stats, rows.Err()
}

func (s *PostgresStore) CreationStats(ctx context.Context) (*models.CreationStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '24 hours'),
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '7 days')
		FROM properties`

	var cs models.CreationStats
	if err := s.pool.QueryRow(ctx, query).Scan(&cs.Total, &cs.Last24h, &cs.Last7d); err != nil {
		return nil, err
	}
	return &cs, nil
}

func (s *PostgresStore) ActiveAlerts(ctx context.Context, limit int) ([]models.PropertyRecord, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE price_drop_alert = TRUE AND status = 'active'
		ORDER BY price_last_changed DESC
		LIMIT $1`

	return s.queryProperties(ctx, query, limit)
}

func (s *PostgresStore) RecentRecords(ctx context.Context, limit int) ([]models.PropertyRecord, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		ORDER BY created_at DESC
		LIMIT $1`

	return s.queryProperties(ctx, query, limit)
}

func (s *PostgresStore) queryProperties(ctx context.Context, query string, args ...any) ([]models.PropertyRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.PropertyRecord
	for rows.Next() {
		var p models.PropertyRecord
		if err := rows.Scan(propertyFields(&p)...); err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

// =============================================================================
// Maintenance
// =============================================================================

// ExpireDropAlerts clears alerts whose change has left the alert window.
func (s *PostgresStore) ExpireDropAlerts(ctx context.Context, window time.Duration) (int64, error) {
	cutoff := time.Now().Add(-window)
	tag, err := s.pool.Exec(ctx, `
		UPDATE properties SET price_drop_alert = FALSE
		WHERE price_drop_alert = TRUE
			AND (price_last_changed IS NULL OR price_last_changed < $1)`,
		cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PruneHistory sweeps every ledger against the retention policy. The
// per-record pruning in ApplyReconcile keeps hot records bounded; this
// catches records that stopped receiving observations.
func (s *PostgresStore) PruneHistory(ctx context.Context) (int64, error) {
	maxEntries := s.retention.MaxEntries
	if maxEntries < 2 {
		maxEntries = 2
	}
	var cutoff *time.Time
	if s.retention.MaxAge > 0 {
		t := time.Now().Add(-s.retention.MaxAge)
		cutoff = &t
	}

	query := `
		WITH ranked AS (
			SELECT fingerprint, observed_at,
				ROW_NUMBER() OVER (PARTITION BY fingerprint ORDER BY observed_at DESC) AS rn
			FROM price_history
		)
		DELETE FROM price_history ph
		USING ranked r
		WHERE ph.fingerprint = r.fingerprint
			AND ph.observed_at = r.observed_at
			AND r.rn > 2
			AND (r.rn > $1 OR ($2::timestamptz IS NOT NULL AND r.observed_at < $2))`

	tag, err := s.pool.Exec(ctx, query, maxEntries, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
