package benchmark

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS benchmark_scores (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	contract_type TEXT NOT NULL,
	document_id   TEXT NOT NULL,
	score         REAL NOT NULL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_benchmark_scores_type
	ON benchmark_scores (contract_type);
`

// SQLiteStore is the durable Provider backing the worker. Each benchmarked
// contract's score is appended so the population grows with every run.
type SQLiteStore struct {
	db *sql.DB
}

// OpenStore opens (and if needed initializes) the score database at path.
func OpenStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open score store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize score store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Snapshot reads the contract type's scores into a frozen sorted copy.
func (s *SQLiteStore) Snapshot(ctx context.Context, contractType string) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT score FROM benchmark_scores WHERE contract_type = ?`, contractType)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query population: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scores []float64
	for rows.Next() {
		var score float64
		if err := rows.Scan(&score); err != nil {
			return Snapshot{}, fmt.Errorf("scan population row: %w", err)
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("read population: %w", err)
	}

	sort.Float64s(scores)
	return Snapshot{ContractType: contractType, Scores: scores}, nil
}

// Record appends one benchmarked score.
func (s *SQLiteStore) Record(ctx context.Context, contractType, documentID string, score float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO benchmark_scores (contract_type, document_id, score) VALUES (?, ?, ?)`,
		contractType, documentID, score)
	if err != nil {
		return fmt.Errorf("record score: %w", err)
	}
	return nil
}
