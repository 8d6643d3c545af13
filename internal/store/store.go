// Package store keeps the durable monuments table and the in-memory
// snapshot that read queries scan.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bowerhall/monumentd/internal/logger"
	"github.com/bowerhall/monumentd/internal/metrics"
	"github.com/bowerhall/monumentd/internal/monument"
)

// ErrSnapshotStale reports a committed batch that readers cannot see yet.
var ErrSnapshotStale = errors.New("monuments committed but snapshot not refreshed")

// snapshot is immutable once published.
type snapshot struct {
	items []monument.Monument
	byID  map[int]int
}

// Store serializes all use of the sqlite handle behind mu. Readers never
// take mu: they load the current snapshot, which is swapped in one step
// after a commit.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// Open creates the monuments table if needed and loads the first
// snapshot.
func Open(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	s.snap.Store(&snapshot{byID: map[int]int{}})

	if err := s.migrate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reload(context.Background()); err != nil {
		return nil, err
	}

	logger.Info("monument store ready", "records", s.Count())
	return s, nil
}

func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate monuments: %w", err)
	}
	return nil
}

// Count returns the number of records in the current snapshot.
func (s *Store) Count() int {
	return len(s.snap.Load().items)
}

// All returns every record of the current snapshot.
func (s *Store) All() []monument.Monument {
	return s.Get(monument.All)
}

// Get scans the current snapshot. Every call sees exactly one committed
// state even if a commit lands mid-scan.
func (s *Store) Get(pred monument.Predicate) []monument.Monument {
	snap := s.snap.Load()

	out := []monument.Monument{}
	for i := range snap.items {
		if pred(&snap.items[i]) {
			out = append(out, snap.items[i])
		}
	}
	return out
}

// ByID looks a record up in the current snapshot.
func (s *Store) ByID(id int) (monument.Monument, bool) {
	snap := s.snap.Load()

	i, ok := snap.byID[id]
	if !ok {
		return monument.Monument{}, false
	}
	return snap.items[i], true
}

// Commit upserts batch by id in one transaction and then publishes a new
// snapshot of the whole table. Rows missing from batch are kept.
//
// If the table cannot be reloaded after the transaction commits, Commit
// returns the upserted count together with ErrSnapshotStale: the rows are
// durable but readers keep the previous snapshot until the next successful
// Commit or Open.
func (s *Store) Commit(ctx context.Context, batch []monument.Monument) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, queryUpsertMonument)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	upserted := 0
	for i := range batch {
		args, err := upsertArgs(&batch[i])
		if err != nil {
			return 0, err
		}

		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("upsert monument %d: %w", batch[i].ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			upserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	// the rows are durable at this point; publish them even if ctx ends now
	if err := s.reload(context.WithoutCancel(ctx)); err != nil {
		logger.Error("snapshot not refreshed after commit", "upserted", upserted, "error", err)
		return upserted, fmt.Errorf("%w: %w", ErrSnapshotStale, err)
	}

	logger.Info("monuments committed", "upserted", upserted, "total", s.Count())
	return upserted, nil
}

// reload must be called with mu held.
func (s *Store) reload(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, querySelectMonuments)
	if err != nil {
		return fmt.Errorf("load monuments: %w", err)
	}
	defer rows.Close()

	next := &snapshot{byID: map[int]int{}}
	for rows.Next() {
		m, err := scanMonument(rows)
		if err != nil {
			return err
		}
		next.byID[m.ID] = len(next.items)
		next.items = append(next.items, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load monuments: %w", err)
	}

	s.snap.Store(next)
	metrics.StoreRecords.Set(float64(len(next.items)))
	return nil
}

func upsertArgs(m *monument.Monument) ([]any, error) {
	constructionTypes, err := json.Marshal(nonNil(m.ConstructionTypes))
	if err != nil {
		return nil, fmt.Errorf("encode construction types %d: %w", m.ID, err)
	}
	periods, err := json.Marshal(nonNil(m.HistoricalPeriods))
	if err != nil {
		return nil, fmt.Errorf("encode historical periods %d: %w", m.ID, err)
	}

	var assetID, lat, lon any
	if m.AssetID != nil {
		assetID = *m.AssetID
	}
	if m.Location != nil {
		lat, lon = m.Location.Latitude, m.Location.Longitude
	}

	return []any{
		m.ID, assetID, m.Name, m.Description, m.Street, m.PostalCode, m.Locality, m.Municipality, m.Province,
		lat, lon, m.MonumentType, string(constructionTypes), m.Classification, string(periods),
		m.HasImage,
	}, nil
}

func scanMonument(rows *sql.Rows) (monument.Monument, error) {
	var m monument.Monument
	var assetID sql.NullInt64
	var lat, lon sql.NullFloat64
	var constructionTypes, periods string

	err := rows.Scan(
		&m.ID, &assetID, &m.Name, &m.Description, &m.Street, &m.PostalCode, &m.Locality, &m.Municipality, &m.Province,
		&lat, &lon, &m.MonumentType, &constructionTypes, &m.Classification, &periods,
		&m.HasImage,
	)
	if err != nil {
		return m, fmt.Errorf("scan monument: %w", err)
	}

	if assetID.Valid {
		v := int(assetID.Int64)
		m.AssetID = &v
	}
	if lat.Valid && lon.Valid {
		m.Location = &monument.Location{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	if err := json.Unmarshal([]byte(constructionTypes), &m.ConstructionTypes); err != nil {
		return m, fmt.Errorf("decode construction types %d: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(periods), &m.HistoricalPeriods); err != nil {
		return m, fmt.Errorf("decode historical periods %d: %w", m.ID, err)
	}

	return m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
