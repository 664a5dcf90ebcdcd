package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	_ "modernc.org/sqlite"

	"github.com/JaimeStill/cerebra/pkg/repository"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
)

type item struct {
	ID   int
	Name string
}

func scanItem(s repository.Scanner) (item, error) {
	var it item
	err := s.Scan(&it.ID, &it.Name)
	return it, err
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)"); err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	return db
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, errNotFound},
		{"wrapped no rows", fmt.Errorf("query: %w", sql.ErrNoRows), errNotFound},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, errDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repository.MapError(tt.err, errNotFound, errDuplicate); !errors.Is(got, tt.want) && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("postgres other code passes through", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23503"}
		if got := repository.MapError(pgErr, errNotFound, errDuplicate); got != pgErr {
			t.Errorf("got %v, want original error", got)
		}
	})
}

func TestMapErrorSQLiteUnique(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "INSERT INTO items (name) VALUES ($1)", "a"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	_, err := db.ExecContext(ctx, "INSERT INTO items (name) VALUES ($1)", "a")
	if err == nil {
		t.Fatal("expected unique violation")
	}

	if got := repository.MapError(err, errNotFound, errDuplicate); !errors.Is(got, errDuplicate) {
		t.Errorf("got %v, want %v", got, errDuplicate)
	}
}

func TestQueryHelpers(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	inserted, err := repository.WithTx(ctx, db, func(tx *sql.Tx) (int, error) {
		for _, name := range []string{"alpha", "beta", "gamma"} {
			if _, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES ($1)", name); err != nil {
				return 0, err
			}
		}
		return 3, nil
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
	if inserted != 3 {
		t.Fatalf("inserted: got %d, want 3", inserted)
	}

	one, err := repository.QueryOne(ctx, db, "SELECT id, name FROM items WHERE name = $1", []any{"beta"}, scanItem)
	if err != nil {
		t.Fatalf("QueryOne failed: %v", err)
	}
	if one.Name != "beta" {
		t.Errorf("QueryOne name: got %q, want beta", one.Name)
	}

	many, err := repository.QueryMany(ctx, db, "SELECT id, name FROM items ORDER BY name", nil, scanItem)
	if err != nil {
		t.Fatalf("QueryMany failed: %v", err)
	}
	if len(many) != 3 {
		t.Errorf("QueryMany: got %d rows, want 3", len(many))
	}

	none, err := repository.QueryMany(ctx, db, "SELECT id, name FROM items WHERE name = $1", []any{"missing"}, scanItem)
	if err != nil {
		t.Fatalf("QueryMany failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("QueryMany with no rows should return empty slice, got %v", none)
	}

	if err := repository.ExecExpectOne(ctx, db, "DELETE FROM items WHERE name = $1", "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ExecExpectOne: got %v, want sql.ErrNoRows", err)
	}
}

func TestWithTxRollback(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	_, err := repository.WithTx(ctx, db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES ($1)", "temp"); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected error from WithTx")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("rollback failed: %d rows remain", count)
	}
}

func TestCount(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta", "gamma"} {
		if _, err := db.Exec("INSERT INTO items (name) VALUES ($1)", name); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	n, err := repository.Count(ctx, db, "SELECT COUNT(*) FROM items WHERE name <> $1", []any{"beta"})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("count: got %d, want 2", n)
	}
}
