// Package store owns the accumulated posting set: identity-keyed admission
// (dedup), bounded retention, and read-only snapshots for the query engine.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"internwatch/internal/clock"
	"internwatch/internal/model"
)

// Store keeps postings in a SQLite database. The default DSN keeps the whole
// set in memory for the process lifetime; pointing it at a file enables
// persistence without code changes. A single pooled connection enforces the
// single-writer discipline: only Admit mutates, queries only read.
type Store struct {
	db          *sql.DB
	clock       clock.Clock
	maxPostings int
}

// MemoryDSN is the default in-process database.
const MemoryDSN = ":memory:"

const schema = `CREATE TABLE IF NOT EXISTS postings (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	company     TEXT NOT NULL,
	title       TEXT NOT NULL,
	location    TEXT NOT NULL,
	url         TEXT NOT NULL,
	posted_at   INTEGER NOT NULL,
	approx_date INTEGER NOT NULL,
	ingested_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_postings_ingested ON postings(ingested_at);`

// Open opens (or creates) the posting store at dsn and ensures the schema
// exists. maxPostings bounds retention: admissions beyond it evict the oldest
// postings by ingestion time.
func Open(dsn string, maxPostings int, clk clock.Clock) (*Store, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening posting store: %w", err)
	}

	// One connection: an in-memory SQLite database exists per connection,
	// and admission must be serialized anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging posting store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating postings table: %w", err)
	}

	return &Store{db: db, clock: clk, maxPostings: maxPostings}, nil
}

// Admit inserts the candidate postings that are not already present and
// returns them with their ingestion stamp. The whole batch runs in one
// transaction: overlapping poll cycles for the same source cannot both admit
// the same posting, and eviction back under the retention cap happens before
// commit. Already-seen candidates are silently discarded.
func (s *Store) Admit(ctx context.Context, candidates []model.Posting) ([]model.Posting, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("admitting postings: %w", err)
	}
	defer tx.Rollback()

	ingestedAt := s.clock.Now()

	var admitted []model.Posting
	for _, p := range candidates {
		p.IngestedAt = ingestedAt
		if p.PostedAt.IsZero() {
			// Source reported no date; recency falls back to our clock.
			p.PostedAt = ingestedAt
			p.ApproxDate = true
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO postings (id, source, company, title, location, url, posted_at, approx_date, ingested_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			p.ID, p.Source, p.Company, p.Title, p.Location, p.URL,
			p.PostedAt.UnixNano(), boolToInt(p.ApproxDate), p.IngestedAt.UnixNano(),
		)
		if err != nil {
			return nil, fmt.Errorf("admitting posting %s: %w", p.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("admitting posting %s: %w", p.ID, err)
		}
		if n > 0 {
			admitted = append(admitted, p)
		}
	}

	if err := s.evict(ctx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("admitting postings: %w", err)
	}
	return admitted, nil
}

// evict removes the oldest postings by ingestion time (ties by id) until the
// store is back within the retention cap. Caller owns the transaction.
func (s *Store) evict(ctx context.Context, tx *sql.Tx) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM postings`).Scan(&count); err != nil {
		return fmt.Errorf("counting postings: %w", err)
	}
	excess := count - s.maxPostings
	if excess <= 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`DELETE FROM postings WHERE id IN (
			SELECT id FROM postings ORDER BY ingested_at ASC, id ASC LIMIT ?)`,
		excess,
	)
	if err != nil {
		return fmt.Errorf("evicting %d postings: %w", excess, err)
	}
	return nil
}

// Get returns the posting with the given id, if present.
func (s *Store) Get(ctx context.Context, id string) (model.Posting, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, company, title, location, url, posted_at, approx_date, ingested_at
		 FROM postings WHERE id = ?`, id)
	p, err := scanPosting(row)
	if err == sql.ErrNoRows {
		return model.Posting{}, false, nil
	}
	if err != nil {
		return model.Posting{}, false, fmt.Errorf("looking up posting %s: %w", id, err)
	}
	return p, true, nil
}

// Snapshot returns a point-in-time copy of every posting, most recently
// ingested first with ties broken by id. Concurrent admissions neither
// appear nor disappear mid-result: the rows come from a single statement.
func (s *Store) Snapshot(ctx context.Context) ([]model.Posting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, company, title, location, url, posted_at, approx_date, ingested_at
		 FROM postings ORDER BY ingested_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("snapshotting postings: %w", err)
	}
	defer rows.Close()

	var postings []model.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("snapshotting postings: %w", err)
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshotting postings: %w", err)
	}
	return postings, nil
}

// Count returns the number of stored postings.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM postings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting postings: %w", err)
	}
	return count, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPosting(row scanner) (model.Posting, error) {
	var p model.Posting
	var postedAt, ingestedAt int64
	var approx int
	if err := row.Scan(&p.ID, &p.Source, &p.Company, &p.Title, &p.Location, &p.URL,
		&postedAt, &approx, &ingestedAt); err != nil {
		return model.Posting{}, err
	}
	p.PostedAt = nanoTime(postedAt)
	p.IngestedAt = nanoTime(ingestedAt)
	p.ApproxDate = approx != 0
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nanoTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
