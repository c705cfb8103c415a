package surrealdb

import (
	"context"
	"testing"

	surreal "github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/folio/internal/common"
	tcommon "github.com/bobmcallan/folio/tests/common"
)

// testStore starts the shared SurrealDB container and returns a Store on a
// unique database per test to ensure isolation.
func testStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("SurrealDB container tests skipped in -short mode")
	}

	cfg := tcommon.StartSurrealDB(t).Config(t)
	ctx := context.Background()

	db, err := surreal.New(cfg.Address)
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": cfg.Username,
		"pass": cfg.Password,
	}); err != nil {
		t.Fatalf("sign in to SurrealDB: %v", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		t.Fatalf("select %s/%s: %v", cfg.Namespace, cfg.Database, err)
	}

	t.Cleanup(func() {
		db.Close(context.Background())
	})

	s, err := NewStore(ctx, db, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("define tables: %v", err)
	}
	return s
}
