package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE probes (id INTEGER PRIMARY KEY, path TEXT)`)
	if err != nil {
		db.Close()
		t.Fatalf("failed to create table: %v", err)
	}

	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM probes`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return count
}

func TestWithTx_Success(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO probes (path) VALUES (?)`, "a.ogg"); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT INTO probes (path) VALUES (?)`, "b.ogg")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	if count := countRows(t, db); count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	testErr := errors.New("test error")

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO probes (path) VALUES (?)`, "a.ogg"); err != nil {
			return err
		}
		return testErr // Return error to trigger rollback
	})
	if !errors.Is(err, testErr) {
		t.Fatalf("WithTx should return the error: got %v, want %v", err, testErr)
	}

	if count := countRows(t, db); count != 0 {
		t.Errorf("count = %d, want 0 (rolled back)", count)
	}
}

func TestWithTx_CanceledContext(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("WithTx should fail with a canceled context")
	}
	if called {
		t.Error("fn should not run when the transaction cannot begin")
	}
}

func TestNullInt64(t *testing.T) {
	v := int64(-42)
	tests := []struct {
		name string
		in   *int64
	}{
		{"nil", nil},
		{"value", &v},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NullInt64From(tt.in)
			if n.Valid != (tt.in != nil) {
				t.Fatalf("Valid = %v, want %v", n.Valid, tt.in != nil)
			}
			back := NullInt64ToPtr(n)
			if tt.in == nil {
				if back != nil {
					t.Errorf("expected nil pointer, got %d", *back)
				}
				return
			}
			if back == nil || *back != *tt.in {
				t.Errorf("round trip = %v, want %d", back, *tt.in)
			}
		})
	}
}

func TestNullInt64ToPtr_Zero(t *testing.T) {
	ptr := NullInt64ToPtr(sql.NullInt64{Int64: 0, Valid: true})
	if ptr == nil {
		t.Fatal("expected non-nil pointer for valid zero")
	}
	if *ptr != 0 {
		t.Errorf("*ptr = %d, want 0", *ptr)
	}
}

func TestNullString(t *testing.T) {
	if n := NullStringFrom(""); n.Valid {
		t.Error("empty string should be NULL")
	}
	if got := NullStringValue(NullStringFrom("libVorbis")); got != "libVorbis" {
		t.Errorf("result = %q, want %q", got, "libVorbis")
	}
	if got := NullStringValue(sql.NullString{String: "hello", Valid: false}); got != "" {
		t.Errorf("result = %q, want empty string", got)
	}
}
