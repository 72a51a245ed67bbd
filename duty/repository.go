// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package duty

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jcodagnone/gardecm/registry"
	"github.com/jcodagnone/gardecm/spatial"
)

// Record is a pharmacy on duty for a given day. It is matched when PharmacyID
// is set; unmatched records may carry an approximate point.
type Record struct {
	ID          int64          `json:"id"`
	PharmacyID  *int64         `json:"pharmacy_id,omitempty"`
	Day         time.Time      `json:"day"`
	ScrapedName string         `json:"scraped_name"`
	Quarter     string         `json:"quarter,omitempty"`
	City        string         `json:"city,omitempty"`
	Approx      *spatial.Point `json:"approx,omitempty"`
	RunID       string         `json:"run_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Matched reports whether the record is linked to a registry row.
func (r *Record) Matched() bool {
	return r.PharmacyID != nil
}

// Garde is a matched record joined with its registry row.
type Garde struct {
	Record
	Pharmacy registry.Pharmacy `json:"pharmacy"`
}

// Batch holds everything a run writes for one day. Commit only replaces the
// unmatched rows of Cities, or of every city when Cities is empty.
type Batch struct {
	Day         time.Time
	RunID       string
	Cities      []string
	Relocations []registry.Relocation
	Matched     []Record
	Unmatched   []Record
}

// Repository handles persistence of duty records.
type Repository interface {
	// CreateSchema creates the duty_records table
	CreateSchema(ctx context.Context) error

	// PurgeBefore deletes every record older than day
	PurgeBefore(ctx context.Context, day time.Time) (int64, error)

	// Commit writes a batch in one transaction
	Commit(ctx context.Context, batch Batch) error

	// Count returns the number of records for day
	Count(ctx context.Context, day time.Time) (int, error)

	// ForDate returns every record for day ordered by ID
	ForDate(ctx context.Context, day time.Time) ([]Record, error)

	// Unmatched returns the unmatched records for day ordered by ID
	Unmatched(ctx context.Context, day time.Time) ([]Record, error)

	// Gardes returns the matched records for day joined with the registry,
	// optionally restricted to a city
	Gardes(ctx context.Context, day time.Time, city string) ([]Garde, error)

	// GardesNear returns matched records whose pharmacy may lie within
	// radius of p. Callers still need to check the distance.
	GardesNear(ctx context.Context, day time.Time, p spatial.Point, radius float64) ([]Garde, error)
}

type sqlRepository struct {
	db       *sql.DB
	registry registry.Repository
}

// NewRepository creates a duty repository. Relocations in a batch are applied
// through reg inside the commit transaction.
func NewRepository(db *sql.DB, reg registry.Repository) Repository {
	return &sqlRepository{db: db, registry: reg}
}

// Day truncates t to its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r *sqlRepository) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE SEQUENCE IF NOT EXISTS duty_records_seq START 1;

		CREATE TABLE IF NOT EXISTS duty_records (
			id BIGINT PRIMARY KEY DEFAULT nextval('duty_records_seq'),
			pharmacy_id BIGINT,
			duty_date DATE NOT NULL,
			scraped_name VARCHAR NOT NULL,
			quarter VARCHAR,
			city VARCHAR,
			approx POINT_2D,
			run_id VARCHAR,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(pharmacy_id, duty_date)
		);
	`)

	return err
}

func (r *sqlRepository) PurgeBefore(ctx context.Context, day time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM duty_records WHERE duty_date < CAST(? AS DATE)`,
		Day(day),
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *sqlRepository) Commit(ctx context.Context, batch Batch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	if err := r.commit(ctx, tx, batch); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	return tx.Commit()
}

func (r *sqlRepository) commit(ctx context.Context, tx *sql.Tx, batch Batch) error {
	day := Day(batch.Day)
	now := time.Now()

	if err := r.registry.RelocateTx(ctx, tx, batch.Relocations); err != nil {
		return fmt.Errorf("relocating pharmacies: %w", err)
	}

	deleteUnmatched := `DELETE FROM duty_records WHERE duty_date = CAST(? AS DATE) AND pharmacy_id IS NULL`
	args := []any{day}

	if len(batch.Cities) > 0 {
		deleteUnmatched += ` AND city IN (?` + strings.Repeat(`, ?`, len(batch.Cities)-1) + `)`
		for _, c := range batch.Cities {
			args = append(args, c)
		}
	}

	_, err := tx.ExecContext(ctx, deleteUnmatched, args...)
	if err != nil {
		return fmt.Errorf("deleting unmatched records: %w", err)
	}

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO duty_records(pharmacy_id, duty_date, scraped_name, quarter, city, approx, run_id, created_at)
		VALUES (?, CAST(? AS DATE), ?, ?, ?, NULL, ?, ?)
		ON CONFLICT (pharmacy_id, duty_date) DO UPDATE SET
			scraped_name = excluded.scraped_name,
			quarter = excluded.quarter,
			city = excluded.city,
			run_id = excluded.run_id,
			created_at = excluded.created_at
	`)
	if err != nil {
		return err
	}
	defer upsert.Close()

	for _, rec := range batch.Matched {
		if rec.PharmacyID == nil {
			return fmt.Errorf("matched record %q without pharmacy", rec.ScrapedName)
		}

		_, err := upsert.ExecContext(ctx,
			*rec.PharmacyID, day, rec.ScrapedName,
			nullable(rec.Quarter), nullable(rec.City),
			nullable(batch.RunID), now,
		)
		if err != nil {
			return fmt.Errorf("upserting %q: %w", rec.ScrapedName, err)
		}
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO duty_records(pharmacy_id, duty_date, scraped_name, quarter, city, approx, run_id, created_at)
		VALUES (NULL, CAST(? AS DATE), ?, ?, ?, ST_Point(?, ?), ?, ?)
	`)
	if err != nil {
		return err
	}
	defer insert.Close()

	for _, rec := range batch.Unmatched {
		var lng, lat *float64
		if rec.Approx != nil {
			lng, lat = &rec.Approx.Lng, &rec.Approx.Lat
		}

		_, err := insert.ExecContext(ctx,
			day, rec.ScrapedName,
			nullable(rec.Quarter), nullable(rec.City),
			lng, lat,
			nullable(batch.RunID), now,
		)
		if err != nil {
			return fmt.Errorf("inserting %q: %w", rec.ScrapedName, err)
		}
	}

	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func (r *sqlRepository) Count(ctx context.Context, day time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM duty_records WHERE duty_date = CAST(? AS DATE)`,
		Day(day),
	).Scan(&count)

	return count, err
}

const recordSelect = `
	SELECT d.id, d.pharmacy_id, d.duty_date, d.scraped_name, d.quarter, d.city,
	       d.approx, d.run_id, d.created_at
	FROM duty_records d
`

func (r *sqlRepository) records(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		var (
			rec                  Record
			pharmacyID           sql.NullInt64
			quarter, city, runID sql.NullString
		)

		err := rows.Scan(
			&rec.ID, &pharmacyID, &rec.Day, &rec.ScrapedName, &quarter, &city,
			&rec.Approx, &runID, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if pharmacyID.Valid {
			rec.PharmacyID = &pharmacyID.Int64
		}

		rec.Quarter = quarter.String
		rec.City = city.String
		rec.RunID = runID.String

		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *sqlRepository) ForDate(ctx context.Context, day time.Time) ([]Record, error) {
	return r.records(ctx,
		recordSelect+` WHERE d.duty_date = CAST(? AS DATE) ORDER BY d.id`,
		Day(day),
	)
}

func (r *sqlRepository) Unmatched(ctx context.Context, day time.Time) ([]Record, error) {
	return r.records(ctx,
		recordSelect+` WHERE d.duty_date = CAST(? AS DATE) AND d.pharmacy_id IS NULL ORDER BY d.id`,
		Day(day),
	)
}

const gardeSelect = `
	SELECT d.id, d.pharmacy_id, d.duty_date, d.scraped_name, d.quarter, d.city,
	       d.run_id, d.created_at,
	       p.id, p.name, p.address, p.phone, p.city, p.region, p.point, p.source, p.updated_at
	FROM duty_records d
	JOIN pharmacies p ON p.id = d.pharmacy_id
	WHERE d.duty_date = CAST(? AS DATE)
`

func (r *sqlRepository) gardes(ctx context.Context, query string, args ...any) ([]Garde, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gardes []Garde

	for rows.Next() {
		var (
			g                             Garde
			pharmacyID                    int64
			quarter, city, runID          sql.NullString
			address, phone, pcity, region sql.NullString
		)

		err := rows.Scan(
			&g.ID, &pharmacyID, &g.Day, &g.ScrapedName, &quarter, &city,
			&runID, &g.CreatedAt,
			&g.Pharmacy.ID, &g.Pharmacy.Name, &address, &phone, &pcity, &region,
			&g.Pharmacy.Point, &g.Pharmacy.Source, &g.Pharmacy.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		g.PharmacyID = &pharmacyID
		g.Quarter = quarter.String
		g.City = city.String
		g.RunID = runID.String
		g.Pharmacy.Address = address.String
		g.Pharmacy.Phone = phone.String
		g.Pharmacy.City = pcity.String
		g.Pharmacy.Region = region.String

		gardes = append(gardes, g)
	}

	return gardes, rows.Err()
}

func (r *sqlRepository) Gardes(ctx context.Context, day time.Time, city string) ([]Garde, error) {
	query := gardeSelect
	args := []any{Day(day)}

	if city != "" {
		query += ` AND (p.city ILIKE ? OR d.city ILIKE ?)`

		args = append(args, "%"+city+"%", "%"+city+"%")
	}

	return r.gardes(ctx, query+` ORDER BY p.name, d.id`, args...)
}

func (r *sqlRepository) GardesNear(
	ctx context.Context,
	day time.Time,
	p spatial.Point,
	radius float64,
) ([]Garde, error) {
	res, cells, ok, err := spatial.Covering(p, radius)
	if err != nil {
		return nil, err
	}

	query := gardeSelect
	args := []any{Day(day)}

	if ok {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cells)), ",")
		query += fmt.Sprintf(` AND p.h3_res%d IN (%s)`, res, placeholders)

		for _, c := range cells {
			args = append(args, c)
		}
	}

	return r.gardes(ctx, query+` ORDER BY d.id`, args...)
}
