package store

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/solatis/tagkeeper/internal/core/db"
	"github.com/solatis/tagkeeper/internal/types"
)

// testQueries opens an in-memory sqlite database, migrates it and loads
// the named queries. MaxOpenConns(1) keeps every statement on the one
// connection that holds the in-memory database.
func testQueries(t *testing.T) *db.Queries {
	t.Helper()

	conn, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if err := db.MigrateUp(conn); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	q, err := db.LoadQueries(conn)
	if err != nil {
		t.Fatalf("loading queries: %v", err)
	}
	return q
}

func seedOrganization(t *testing.T, q *db.Queries) types.OrganizationID {
	t.Helper()
	org := types.NewOrganizationID()
	docs := NewDocumentStore(q)
	if err := docs.CreateOrganization(context.Background(), org, "acme"); err != nil {
		t.Fatalf("creating organization: %v", err)
	}
	return org
}

// stepClock returns a clock that advances by one second per call, so every
// row gets a distinct, strictly increasing timestamp.
func stepClock() func() time.Time {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
