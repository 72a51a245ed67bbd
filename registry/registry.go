// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry stores the persistent pharmacy registry.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jcodagnone/gardecm/spatial"
)

// Sources of registry rows.
const (
	SourceOSM         = "osm"
	SourceGoogleEarth = "google_earth"
	SourceManual      = "manual"
)

// nearestRadii are tried in order before falling back to a full scan.
var nearestRadii = []float64{2_000, 10_000, 50_000}

// Pharmacy is a registry row.
type Pharmacy struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Address   string        `json:"address,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	City      string        `json:"city,omitempty"`
	Region    string        `json:"region,omitempty"`
	Point     spatial.Point `json:"point"`
	Source    string        `json:"source"`
	UpdatedAt time.Time     `json:"updated_at"`
	H3Res5    int64         `json:"-"`
	H3Res6    int64         `json:"-"`
	H3Res7    int64         `json:"-"`
	H3Res8    int64         `json:"-"`
}

func (p *Pharmacy) computeH3() error {
	cells, err := spatial.CellsOf(p.Point)
	if err != nil {
		return err
	}

	p.H3Res5 = cells.Res5
	p.H3Res6 = cells.Res6
	p.H3Res7 = cells.Res7
	p.H3Res8 = cells.Res8

	return nil
}

// Located is a pharmacy with its distance in meters to a query point.
type Located struct {
	*Pharmacy
	Distance float64 `json:"distance_m"`
}

// Relocation replaces the point and city of a registry row.
type Relocation struct {
	ID    int64
	Point spatial.Point
	City  string
}

// Repository handles persistence of registry rows.
type Repository interface {
	// CreateSchema creates the pharmacies table
	CreateSchema(ctx context.Context) error

	// BulkInsert inserts the rows and assigns their IDs
	BulkInsert(ctx context.Context, pharmacies []*Pharmacy) error

	// All returns every row ordered by ID
	All(ctx context.Context) ([]*Pharmacy, error)

	// Get returns a row by ID, or sql.ErrNoRows
	Get(ctx context.Context, id int64) (*Pharmacy, error)

	// List returns rows whose city contains city, ordered by name
	List(ctx context.Context, city string, limit int) ([]*Pharmacy, error)

	// Count returns the number of rows
	Count(ctx context.Context) (int, error)

	// Nearest returns the row closest to p, or nil when the registry is empty
	Nearest(ctx context.Context, p spatial.Point) (*Located, error)

	// Within returns rows at most radius meters from p, nearest first
	Within(ctx context.Context, p spatial.Point, radius float64) ([]Located, error)

	// Relocate applies relocations in their own transaction
	Relocate(ctx context.Context, relocations []Relocation) error

	// RelocateTx applies relocations inside tx
	RelocateTx(ctx context.Context, tx *sql.Tx, relocations []Relocation) error

	// Rewrite updates the name and city of a row
	Rewrite(ctx context.Context, id int64, name, city string) error

	// DeleteDuplicates removes rows sharing lower(name) and city, keeping the highest ID
	DeleteDuplicates(ctx context.Context) (int64, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlRepository struct {
	db *sql.DB
}

// NewRepository creates a registry repository.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlRepository) CreateSchema(ctx context.Context) error {
	// DuckDB needs to load the spatial extension
	_, err := r.db.ExecContext(ctx, `INSTALL spatial; LOAD spatial;`)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		CREATE SEQUENCE IF NOT EXISTS pharmacies_seq START 1;

		CREATE TABLE IF NOT EXISTS pharmacies (
			id BIGINT PRIMARY KEY DEFAULT nextval('pharmacies_seq'),
			name VARCHAR NOT NULL,
			address VARCHAR,
			phone VARCHAR,
			city VARCHAR,
			region VARCHAR,
			point POINT_2D NOT NULL,
			source VARCHAR NOT NULL DEFAULT 'manual',
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			h3_res5 UBIGINT,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT
		);
	`)

	return err
}

func (r *sqlRepository) BulkInsert(ctx context.Context, pharmacies []*Pharmacy) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pharmacies(
			name,
			address,
			phone,
			city,
			region,
			point,
			source,
			updated_at,
			h3_res5,
			h3_res6,
			h3_res7,
			h3_res8
		)
		VALUES (?, ?, ?, ?, ?, ST_Point(?, ?), ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	if err != nil {
		return errors.Join(err, tx.Rollback())
	}
	defer stmt.Close()

	now := time.Now()

	for _, p := range pharmacies {
		if err := p.Point.Validate(); err != nil {
			return errors.Join(fmt.Errorf("pharmacy %q: %w", p.Name, err), tx.Rollback())
		}

		if err := p.computeH3(); err != nil {
			return errors.Join(err, tx.Rollback())
		}

		if p.Source == "" {
			p.Source = SourceManual
		}

		p.UpdatedAt = now

		err := stmt.QueryRowContext(ctx,
			p.Name,
			nullable(p.Address),
			nullable(p.Phone),
			nullable(p.City),
			nullable(p.Region),
			p.Point.Lng,
			p.Point.Lat,
			p.Source,
			p.UpdatedAt,
			p.H3Res5,
			p.H3Res6,
			p.H3Res7,
			p.H3Res8,
		).Scan(&p.ID)
		if err != nil {
			return errors.Join(fmt.Errorf("inserting pharmacy %q: %w", p.Name, err), tx.Rollback())
		}
	}

	return tx.Commit()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

const baseSelect = `
	SELECT id, name, address, phone, city, region, point, source, updated_at,
	       h3_res5, h3_res6, h3_res7, h3_res8
	FROM pharmacies
`

func (r *sqlRepository) list(ctx context.Context, query string, args ...any) ([]*Pharmacy, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pharmacies []*Pharmacy

	for rows.Next() {
		var (
			p                              Pharmacy
			address, phone, city, region   sql.NullString
			h3Res5, h3Res6, h3Res7, h3Res8 sql.NullInt64
		)

		err := rows.Scan(
			&p.ID, &p.Name, &address, &phone, &city, &region,
			&p.Point, &p.Source, &p.UpdatedAt,
			&h3Res5, &h3Res6, &h3Res7, &h3Res8,
		)
		if err != nil {
			return nil, err
		}

		p.Address = address.String
		p.Phone = phone.String
		p.City = city.String
		p.Region = region.String
		p.H3Res5 = h3Res5.Int64
		p.H3Res6 = h3Res6.Int64
		p.H3Res7 = h3Res7.Int64
		p.H3Res8 = h3Res8.Int64

		pharmacies = append(pharmacies, &p)
	}

	return pharmacies, rows.Err()
}

func (r *sqlRepository) All(ctx context.Context) ([]*Pharmacy, error) {
	return r.list(ctx, baseSelect+` ORDER BY id`)
}

func (r *sqlRepository) Get(ctx context.Context, id int64) (*Pharmacy, error) {
	pharmacies, err := r.list(ctx, baseSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}

	if len(pharmacies) == 0 {
		return nil, sql.ErrNoRows
	}

	return pharmacies[0], nil
}

func (r *sqlRepository) List(ctx context.Context, city string, limit int) ([]*Pharmacy, error) {
	query := baseSelect

	var args []any

	if city != "" {
		query += ` WHERE city ILIKE ?`

		args = append(args, "%"+city+"%")
	}

	query += ` ORDER BY name, id`

	if limit > 0 {
		query += ` LIMIT ?`

		args = append(args, limit)
	}

	return r.list(ctx, query, args...)
}

func (r *sqlRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pharmacies").Scan(&count)

	return count, err
}

// candidates returns the rows that may lie within radius of p, using the
// H3 columns when the radius is small enough.
func (r *sqlRepository) candidates(ctx context.Context, p spatial.Point, radius float64) ([]*Pharmacy, error) {
	res, cells, ok, err := spatial.Covering(p, radius)
	if err != nil {
		return nil, err
	}

	if !ok {
		return r.All(ctx)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cells)), ",")
	args := make([]any, 0, len(cells))

	for _, c := range cells {
		args = append(args, c)
	}

	query := fmt.Sprintf("%s WHERE h3_res%d IN (%s) ORDER BY id", baseSelect, res, placeholders)

	return r.list(ctx, query, args...)
}

func (r *sqlRepository) Within(ctx context.Context, p spatial.Point, radius float64) ([]Located, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	pharmacies, err := r.candidates(ctx, p, radius)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}

	located := make([]Located, 0, len(pharmacies))

	for _, ph := range pharmacies {
		if d := p.HaversineDistance(&ph.Point); d <= radius {
			located = append(located, Located{Pharmacy: ph, Distance: d})
		}
	}

	sort.SliceStable(located, func(i, j int) bool {
		return located[i].Distance < located[j].Distance
	})

	return located, nil
}

func (r *sqlRepository) Nearest(ctx context.Context, p spatial.Point) (*Located, error) {
	for _, radius := range nearestRadii {
		located, err := r.Within(ctx, p, radius)
		if err != nil {
			return nil, err
		}

		if len(located) > 0 {
			return &located[0], nil
		}
	}

	pharmacies, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	var best *Located

	dist := math.Inf(1)

	for _, ph := range pharmacies {
		if d := p.HaversineDistance(&ph.Point); d < dist {
			best, dist = &Located{Pharmacy: ph, Distance: d}, d
		}
	}

	return best, nil
}

func (r *sqlRepository) Relocate(ctx context.Context, relocations []Relocation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := r.RelocateTx(ctx, tx, relocations); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	return tx.Commit()
}

func (r *sqlRepository) RelocateTx(ctx context.Context, tx *sql.Tx, relocations []Relocation) error {
	if len(relocations) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE pharmacies
		SET point = ST_Point(?, ?), city = ?, updated_at = ?,
			h3_res5 = ?, h3_res6 = ?, h3_res7 = ?, h3_res8 = ?
		WHERE id = ?
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()

	for _, rel := range relocations {
		cells, err := spatial.CellsOf(rel.Point)
		if err != nil {
			return err
		}

		_, err = stmt.ExecContext(ctx,
			rel.Point.Lng, rel.Point.Lat, nullable(rel.City), now,
			cells.Res5, cells.Res6, cells.Res7, cells.Res8,
			rel.ID,
		)
		if err != nil {
			return fmt.Errorf("relocating pharmacy %d: %w", rel.ID, err)
		}
	}

	return nil
}

func (r *sqlRepository) Rewrite(ctx context.Context, id int64, name, city string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pharmacies SET name = ?, city = ?, updated_at = ? WHERE id = ?
	`, name, nullable(city), time.Now(), id)

	return err
}

func (r *sqlRepository) DeleteDuplicates(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pharmacies WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY lower(name), coalesce(city, '')
					ORDER BY id DESC
				) AS rn
				FROM pharmacies
			) WHERE rn > 1
		)
	`)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
