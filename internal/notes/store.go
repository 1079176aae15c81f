// Package notes persists code snippets and sticky notes.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/codenest/codenest/internal/metrics"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Collection names.
const (
	Snippets = "snippets"
	Notes    = "notes"
)

// RecordStore keeps serialized records grouped by collection and owner.
// List returns records newest first.
type RecordStore interface {
	Put(ctx context.Context, collection, owner, id string, created time.Time, data []byte) error
	Get(ctx context.Context, collection, owner, id string) ([]byte, error)
	List(ctx context.Context, collection, owner string) ([][]byte, error)
	Delete(ctx context.Context, collection, owner, id string) error
	Close() error
}

const schema = `CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	owner      TEXT NOT NULL,
	id         TEXT NOT NULL,
	created    BIGINT NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (collection, owner, id)
)`

// SQLStore is a RecordStore on database/sql. The same queries serve
// SQLite and PostgreSQL; only the placeholder style differs.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	return newSQLStore(db, "sqlite3")
}

// OpenPostgres connects to PostgreSQL.
func OpenPostgres(databaseURL string) (*SQLStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return newSQLStore(db, "postgres")
}

// Open selects a backend by name: "sqlite" (default) or "postgres".
func Open(backend, sqlitePath, databaseURL string) (*SQLStore, error) {
	switch backend {
	case "", "sqlite":
		return OpenSQLite(sqlitePath)
	case "postgres":
		if databaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres notes backend")
		}
		return OpenPostgres(databaseURL)
	default:
		return nil, fmt.Errorf("unknown notes backend: %s", backend)
	}
}

func newSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Dialect returns the driver name.
func (s *SQLStore) Dialect() string { return s.dialect }

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// UpdateConnectionMetrics updates the database connection metrics.
func (s *SQLStore) UpdateConnectionMetrics() {
	metrics.SetDBConnectionsOpen(s.db.Stats().OpenConnections)
}

func (s *SQLStore) Put(ctx context.Context, collection, owner, id string, created time.Time, data []byte) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("put_record", time.Since(start)) }()

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO records (collection, owner, id, created, data) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, owner, id) DO UPDATE SET data = excluded.data`),
		collection, owner, id, created.UnixNano(), string(data))
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, collection, owner, id string) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("get_record", time.Since(start)) }()

	var data string
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT data FROM records WHERE collection = ? AND owner = ? AND id = ?`),
		collection, owner, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return []byte(data), nil
}

func (s *SQLStore) List(ctx context.Context, collection, owner string) ([][]byte, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("list_records", time.Since(start)) }()

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT data FROM records WHERE collection = ? AND owner = ?
		 ORDER BY created DESC, id DESC`),
		collection, owner)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, []byte(data))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

func (s *SQLStore) Delete(ctx context.Context, collection, owner, id string) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("delete_record", time.Since(start)) }()

	res, err := s.db.ExecContext(ctx, s.rebind(
		`DELETE FROM records WHERE collection = ? AND owner = ? AND id = ?`),
		collection, owner, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}
