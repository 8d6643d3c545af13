// Package facets maintains the distinct filter values seen across all
// refreshes. Sets only grow: values missing from later batches are kept.
package facets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bowerhall/monumentd/internal/logger"
	"github.com/bowerhall/monumentd/internal/metrics"
	"github.com/bowerhall/monumentd/internal/monument"
)

var ErrUnknownDimension = errors.New("unknown facet dimension")

type Dimension string

const (
	Province         Dimension = "province"
	MonumentType     Dimension = "monument-type"
	ConstructionType Dimension = "construction-type"
	Classification   Dimension = "classification"
	HistoricalPeriod Dimension = "historical-period"
)

var Dimensions = []Dimension{Province, MonumentType, ConstructionType, Classification, HistoricalPeriod}

func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDimension, s)
}

const schema = `
CREATE TABLE IF NOT EXISTS facets (
    dimension TEXT NOT NULL,
    value TEXT NOT NULL,
    created_at DATETIME DEFAULT (datetime('now')),
    PRIMARY KEY (dimension, value)
);
`

type Index struct {
	db *sql.DB
}

func Open(db *sql.DB) (*Index, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate facets: %w", err)
	}
	return &Index{db: db}, nil
}

// Values returns the set for dim, sorted.
func (x *Index) Values(ctx context.Context, dim Dimension) ([]string, error) {
	if _, err := ParseDimension(string(dim)); err != nil {
		return nil, err
	}

	rows, err := x.db.QueryContext(ctx, `SELECT value FROM facets WHERE dimension = ? ORDER BY value`, string(dim))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", dim, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", dim, err)
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

// Merge adds the values not yet present in dim and returns how many were
// new. Empty strings are ignored.
func (x *Index) Merge(ctx context.Context, dim Dimension, values []string) (int, error) {
	if _, err := ParseDimension(string(dim)); err != nil {
		return 0, err
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO facets (dimension, value) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, v := range values {
		if v == "" {
			continue
		}

		res, err := stmt.ExecContext(ctx, string(dim), v)
		if err != nil {
			return 0, fmt.Errorf("insert %s=%q: %w", dim, v, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	if added > 0 {
		metrics.FacetValuesAdded.WithLabelValues(string(dim)).Add(float64(added))
		logger.Debug("facet values added", "dimension", dim, "count", added)
	}
	return added, nil
}

// MergeBatch merges every dimension extracted from batch. Each dimension is
// applied independently.
func (x *Index) MergeBatch(ctx context.Context, batch []monument.Monument) (int, error) {
	total := 0
	extracted := Extract(batch)

	for _, dim := range Dimensions {
		n, err := x.Merge(ctx, dim, extracted[dim])
		if err != nil {
			return total, err
		}
		total += n
	}

	return total, nil
}

// Extract collects the per-dimension values of a batch, deduplicated in
// first-seen order.
func Extract(batch []monument.Monument) map[Dimension][]string {
	out := make(map[Dimension][]string, len(Dimensions))
	seen := make(map[Dimension]map[string]bool, len(Dimensions))
	for _, d := range Dimensions {
		seen[d] = map[string]bool{}
	}

	add := func(dim Dimension, v string) {
		if v == "" || seen[dim][v] {
			return
		}
		seen[dim][v] = true
		out[dim] = append(out[dim], v)
	}

	for i := range batch {
		m := &batch[i]
		add(Province, m.Province)
		add(MonumentType, m.MonumentType)
		add(Classification, m.Classification)
		for _, v := range m.ConstructionTypes {
			add(ConstructionType, v)
		}
		for _, v := range m.HistoricalPeriods {
			add(HistoricalPeriod, v)
		}
	}

	return out
}
