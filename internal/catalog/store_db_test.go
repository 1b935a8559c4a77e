//go:build integration
// +build integration

package catalog

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
)

// Runs the shared contract against a real database:
//
//	DATABASE_URL=postgres://... go test -tags integration ./internal/catalog/
func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	runStoreContract(t, func(t *testing.T) Store {
		s := NewPostgresStore(db)
		require.NoError(t, s.EnsureSchema(context.Background()))
		require.NoError(t, s.Clear(context.Background()))
		return s
	})
}
