// Package storage persists test node definitions and their status history
// in SQLite, and derives per-transition durations from that history.
package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// NodeRow is a persisted test node definition.
type NodeRow struct {
	ID          int
	TestID      string
	Name        string
	Description string
	Service     string
}

// HistoryRow is a single recorded status transition.
type HistoryRow struct {
	ID        int64
	Node      int
	Status    string
	Data      *string
	CreatedAt int64
}

// ProcessedHistory is a derived (from_status -> to_status) interval, with
// millisecond duration, for one node's consecutive history rows.
type ProcessedHistory struct {
	Node           int
	FromStatus     string
	ToStatus       string
	FromCreatedAt  int64
	ToCreatedAt    int64
	DurationMillis int64
}

// DotRow is a persisted DOT snapshot.
type DotRow struct {
	ID        int64
	Dot       string
	CreatedAt int64
}

// Storage is the persistence interface the runner and workflow depend on.
// All operations are best-effort from the caller's perspective: failures
// are returned so the caller can log-and-continue rather than abort a run.
type Storage interface {
	InsertTestNode(node NodeRow, status string) error
	InsertNodeHistory(status string, nodeID int, data *string) (int64, error)
	InsertDot(dot string) (int64, error)
	GetNodes(ids []int) ([]NodeRow, error)
	GetAllNodes() ([]NodeRow, error)
	GetNodeHistory(nodeID int) ([]HistoryRow, error)
	GetProcessedNodeHistory(nodeID int) ([]ProcessedHistory, error)
	GetAllProcessedNodeHistory() ([]ProcessedHistory, error)
	GetDots() ([]DotRow, error)
	Reset() error
	Close() error
}

// SQLiteStorage implements Storage over a single SQLite database file.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens (creating if necessary) the SQLite database at
// path, sets WAL mode and pool limits, and runs the schema migration.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if path == "" {
		path = "./data/thorust.db"
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?cache=shared&mode=rwc&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Printf("[storage] sqlite storage initialized at %s", path)
	return &SQLiteStorage{db: db, path: path}, nil
}

func (s *SQLiteStorage) InsertTestNode(node NodeRow, status string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO nodes (id, test_id, name, description, service)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET test_id=excluded.test_id, name=excluded.name,
			description=excluded.description, service=excluded.service
	`, node.ID, node.TestID, node.Name, node.Description, node.Service); err != nil {
		return fmt.Errorf("insert node: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO node_history (node, status) VALUES (?, ?)`, node.ID, status); err != nil {
		return fmt.Errorf("insert initial node history: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStorage) InsertNodeHistory(status string, nodeID int, data *string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO node_history (node, status, data) VALUES (?, ?, ?)`, nodeID, status, data)
	if err != nil {
		return 0, fmt.Errorf("insert node history: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStorage) InsertDot(dot string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO graph (dot) VALUES (?)`, dot)
	if err != nil {
		return 0, fmt.Errorf("insert dot: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStorage) GetNodes(ids []int) ([]NodeRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	rows, err := s.db.Query(fmt.Sprintf(`SELECT id, test_id, name, description, service FROM nodes WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("get nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (s *SQLiteStorage) GetAllNodes() ([]NodeRow, error) {
	rows, err := s.db.Query(`SELECT id, test_id, name, description, service FROM nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("get all nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func scanNodes(rows *sql.Rows) ([]NodeRow, error) {
	var out []NodeRow
	for rows.Next() {
		var n NodeRow
		if err := rows.Scan(&n.ID, &n.TestID, &n.Name, &n.Description, &n.Service); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) GetNodeHistory(nodeID int) ([]HistoryRow, error) {
	rows, err := s.db.Query(`SELECT id, node, status, data, created_at FROM node_history WHERE node = ? ORDER BY created_at ASC`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("get node history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.ID, &h.Node, &h.Status, &h.Data, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// processedHistoryQuery pairs each history row with the next-later row for
// the same node via LEAD(), filtering out the final (no-successor) row of
// each node.
const processedHistoryQuery = `
	SELECT node, status, next_status, created_at, next_created_at, (next_created_at - created_at) AS duration_millis
	FROM (
		SELECT
			node,
			status,
			created_at,
			LEAD(status) OVER (PARTITION BY node ORDER BY created_at) AS next_status,
			LEAD(created_at) OVER (PARTITION BY node ORDER BY created_at) AS next_created_at
		FROM node_history
		%s
	)
	WHERE next_status IS NOT NULL
	ORDER BY node, created_at
`

func (s *SQLiteStorage) GetProcessedNodeHistory(nodeID int) ([]ProcessedHistory, error) {
	q := fmt.Sprintf(processedHistoryQuery, "WHERE node = ?")
	rows, err := s.db.Query(q, nodeID)
	if err != nil {
		return nil, fmt.Errorf("get processed node history: %w", err)
	}
	defer rows.Close()
	return scanProcessedHistory(rows)
}

func (s *SQLiteStorage) GetAllProcessedNodeHistory() ([]ProcessedHistory, error) {
	q := fmt.Sprintf(processedHistoryQuery, "")
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("get all processed node history: %w", err)
	}
	defer rows.Close()
	return scanProcessedHistory(rows)
}

func scanProcessedHistory(rows *sql.Rows) ([]ProcessedHistory, error) {
	var out []ProcessedHistory
	for rows.Next() {
		var p ProcessedHistory
		if err := rows.Scan(&p.Node, &p.FromStatus, &p.ToStatus, &p.FromCreatedAt, &p.ToCreatedAt, &p.DurationMillis); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) GetDots() ([]DotRow, error) {
	rows, err := s.db.Query(`SELECT id, dot, created_at FROM graph ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("get dots: %w", err)
	}
	defer rows.Close()

	var out []DotRow
	for rows.Next() {
		var d DotRow
		if err := rows.Scan(&d.ID, &d.Dot, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Reset deletes all persisted history, nodes, and graph snapshots, ready
// for the Workflow to re-seed from a freshly normalized manifest.
func (s *SQLiteStorage) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"node_history", "nodes", "graph"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
