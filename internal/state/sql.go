package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/lib/pq"
)

const defaultTable = "tap_state"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLStore keeps one state row per tap id in a Postgres or SQL Server table.
type SQLStore struct {
	db     *sql.DB
	driver string
	table  string
	tapID  string
}

// NewSQLStore connects with the given database/sql driver ("postgres" or
// "sqlserver") and creates the state table when missing.
func NewSQLStore(ctx context.Context, driver, dsn, table, tapID string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s state backend requires a dsn", driver)
	}
	if table == "" {
		table = defaultTable
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid state table name %q", table)
	}
	if tapID == "" {
		tapID = "tap-fastly"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	s := &SQLStore{db: db, driver: driver, table: table, tapID: tapID}
	if _, err := db.ExecContext(ctx, s.createQuery()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create state table: %w", err)
	}
	return s, nil
}

func (s *SQLStore) createQuery() string {
	if s.driver == "sqlserver" {
		return fmt.Sprintf(`IF OBJECT_ID(N'%[1]s', N'U') IS NULL
		CREATE TABLE %[1]s (
			tap_id NVARCHAR(255) NOT NULL PRIMARY KEY,
			state NVARCHAR(MAX) NOT NULL,
			updated_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()
		)`, s.table)
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		tap_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.table)
}

func (s *SQLStore) selectQuery() string {
	if s.driver == "sqlserver" {
		return fmt.Sprintf("SELECT state FROM %s WHERE tap_id = @p1", s.table)
	}
	return fmt.Sprintf("SELECT state FROM %s WHERE tap_id = $1", s.table)
}

func (s *SQLStore) upsertQuery() string {
	if s.driver == "sqlserver" {
		return fmt.Sprintf(`MERGE %s AS t
		USING (SELECT @p1 AS tap_id, @p2 AS state) AS src
		ON t.tap_id = src.tap_id
		WHEN MATCHED THEN UPDATE SET state = src.state, updated_at = SYSUTCDATETIME()
		WHEN NOT MATCHED THEN INSERT (tap_id, state) VALUES (src.tap_id, src.state);`, s.table)
	}
	return fmt.Sprintf(`INSERT INTO %s (tap_id, state) VALUES ($1, $2)
	ON CONFLICT (tap_id) DO UPDATE SET
		state = EXCLUDED.state,
		updated_at = CURRENT_TIMESTAMP`, s.table)
}

func (s *SQLStore) Load(ctx context.Context) (*Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, s.selectQuery(), s.tapID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query state: %w", err)
	}
	return Decode([]byte(raw))
}

func (s *SQLStore) Save(ctx context.Context, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.upsertQuery(), s.tapID, string(data)); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
