package state

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLStore_DialectQueries(t *testing.T) {
	pg := &SQLStore{driver: "postgres", table: "tap_state"}
	require.Contains(t, pg.selectQuery(), "$1")
	require.Contains(t, pg.upsertQuery(), "ON CONFLICT (tap_id)")
	require.True(t, strings.HasPrefix(pg.createQuery(), "CREATE TABLE IF NOT EXISTS tap_state"))

	ms := &SQLStore{driver: "sqlserver", table: "tap_state"}
	require.Contains(t, ms.selectQuery(), "@p1")
	require.Contains(t, ms.upsertQuery(), "MERGE tap_state")
	require.Contains(t, ms.createQuery(), "OBJECT_ID(N'tap_state'")
}

func TestNewSQLStore_RejectsBadTable(t *testing.T) {
	_, err := NewSQLStore(context.Background(), "postgres", "postgres://localhost/db", "state; DROP TABLE x", "")
	require.ErrorContains(t, err, "invalid state table name")
}
