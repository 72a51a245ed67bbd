// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
)

// Provider hands out the database connection.
type Provider interface {
	DB(ctx context.Context) (*sql.DB, error)
}

// DuckDBProvider opens a DuckDB file on first use and loads the spatial
// extension. An empty path opens an in-memory database.
type DuckDBProvider struct {
	Path string

	once sync.Once
	db   *sql.DB
	err  error
}

func (p *DuckDBProvider) open(ctx context.Context) (*sql.DB, error) {
	if p.Path != "" {
		if err := os.MkdirAll(filepath.Dir(p.Path), 0o750); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", p.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, `INSTALL spatial; LOAD spatial;`); err != nil {
		db.Close()

		return nil, fmt.Errorf("loading spatial extension: %w", err)
	}

	return db, nil
}

func (p *DuckDBProvider) DB(ctx context.Context) (*sql.DB, error) {
	p.once.Do(func() {
		p.db, p.err = p.open(ctx)
	})

	return p.db, p.err
}

// Close closes the connection if it was opened.
func (p *DuckDBProvider) Close() error {
	if p.db == nil {
		return nil
	}

	return p.db.Close()
}

// StaticProvider returns a connection owned by the caller.
type StaticProvider struct {
	Conn *sql.DB
}

func (p StaticProvider) DB(context.Context) (*sql.DB, error) {
	if p.Conn == nil {
		return nil, fmt.Errorf("no database connection")
	}

	return p.Conn, nil
}
