package likecache

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLStore is a SQL-backed Store.
// It works with any database/sql compatible driver (PostgreSQL, MySQL, SQLite).
// Requires a table with schema:
//
//	CREATE TABLE gathersync_likes (
//	    event_id VARCHAR(64) PRIMARY KEY,
//	    data BLOB NOT NULL,
//	    updated_at TIMESTAMP NOT NULL
//	);
//
// InitSchema creates the table with the appropriate types for the dialect.
type SQLStore struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect
	closed    bool
}

// SQLDialect represents the SQL dialect for query generation.
type SQLDialect int

const (
	// DialectPostgreSQL uses PostgreSQL syntax ($1, $2 placeholders).
	DialectPostgreSQL SQLDialect = iota
	// DialectMySQL uses MySQL syntax (? placeholders).
	DialectMySQL
	// DialectSQLite uses SQLite syntax (? placeholders).
	DialectSQLite
)

// SQLStoreOption configures SQLStore behavior.
type SQLStoreOption func(*sqlStoreConfig)

type sqlStoreConfig struct {
	tableName string
	dialect   SQLDialect
}

// WithSQLTableName sets the table name for like state storage.
// Default: "gathersync_likes".
func WithSQLTableName(name string) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.tableName = name
	}
}

// WithSQLDialect sets the SQL dialect for query generation.
// Default: DialectSQLite.
func WithSQLDialect(dialect SQLDialect) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.dialect = dialect
	}
}

// NewSQLStore creates a SQL-backed store.
func NewSQLStore(db *sql.DB, opts ...SQLStoreOption) *SQLStore {
	cfg := &sqlStoreConfig{
		tableName: "gathersync_likes",
		dialect:   DialectSQLite,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &SQLStore{
		db:        db,
		tableName: cfg.tableName,
		dialect:   cfg.dialect,
	}
}

// placeholder returns the placeholder syntax for the dialect.
func (s *SQLStore) placeholder(n int) string {
	switch s.dialect {
	case DialectPostgreSQL:
		return fmt.Sprintf("$%d", n)
	default:
		return "?"
	}
}

// InitSchema creates the storage table if it does not exist.
func (s *SQLStore) InitSchema(ctx context.Context) error {
	blobType := "BLOB"
	if s.dialect == DialectPostgreSQL {
		blobType = "BYTEA"
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			event_id VARCHAR(64) PRIMARY KEY,
			data %s NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`, s.tableName, blobType)

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Load retrieves the blob for an event.
func (s *SQLStore) Load(ctx context.Context, eventID string) ([]byte, error) {
	if s.closed {
		return nil, ErrStoreClosed{}
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE event_id = %s`,
		s.tableName, s.placeholder(1))

	var data []byte
	err := s.db.QueryRowContext(ctx, query, eventID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save upserts the blob for an event.
func (s *SQLStore) Save(ctx context.Context, eventID string, data []byte) error {
	if s.closed {
		return ErrStoreClosed{}
	}

	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (event_id, data, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (event_id) DO UPDATE
			SET data = EXCLUDED.data, updated_at = NOW()`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (event_id, data, updated_at)
			VALUES (?, ?, NOW())
			ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = NOW()`, s.tableName)
	default:
		query = fmt.Sprintf(`
			INSERT INTO %s (event_id, data, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (event_id) DO UPDATE
			SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`, s.tableName)
	}

	_, err := s.db.ExecContext(ctx, query, eventID, data)
	return err
}

// Close marks the store as closed.
// Note: This does not close the underlying *sql.DB,
// as it may be shared with other components.
func (s *SQLStore) Close() error {
	s.closed = true
	return nil
}
