package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

type txProbe struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"not null"`
	Note *string
}

func newProbeDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := conn.AutoMigrate(&txProbe{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func countProbes(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := conn.Model(&txProbe{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

func TestTransactionCommits(t *testing.T) {
	conn := newProbeDB(t)

	err := Transaction(context.Background(), conn, time.Second, func(tx *gorm.DB) error {
		if err := tx.Exec(`INSERT INTO tx_probes (id, name) VALUES (?, ?)`, 1, "a").Error; err != nil {
			return err
		}
		return tx.Exec(`INSERT INTO tx_probes (id, name) VALUES (?, ?)`, 2, "b").Error
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := countProbes(t, conn); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	conn := newProbeDB(t)
	boom := errors.New("boom")

	err := Transaction(context.Background(), conn, time.Second, func(tx *gorm.DB) error {
		if err := tx.Exec(`INSERT INTO tx_probes (id, name) VALUES (?, ?)`, 1, "a").Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := countProbes(t, conn); got != 0 {
		t.Fatalf("expected rollback, found %d rows", got)
	}
}

func TestTransactionRollsBackOnPanicAndReleasesConnection(t *testing.T) {
	conn := newProbeDB(t)

	func() {
		defer func() { _ = recover() }()
		_ = Transaction(context.Background(), conn, time.Second, func(tx *gorm.DB) error {
			if err := tx.Exec(`INSERT INTO tx_probes (id, name) VALUES (?, ?)`, 1, "a").Error; err != nil {
				return err
			}
			panic("mid-sequence failure")
		})
	}()

	// the single pooled connection must be usable again
	if got := countProbes(t, conn); got != 0 {
		t.Fatalf("expected rollback after panic, found %d rows", got)
	}
}

func TestNullHelpers(t *testing.T) {
	blank := "   "
	if NullString(nil).Valid || NullString(&blank).Valid {
		t.Fatal("expected omitted and blank strings to be NULL")
	}
	value := " x "
	if got := NullString(&value); !got.Valid || got.String != "x" {
		t.Fatalf("unexpected value %+v", got)
	}
	if NullTime(nil).Valid || NullTime(&time.Time{}).Valid {
		t.Fatal("expected zero time to be NULL")
	}
	if NullFloat(nil).Valid || NullInt(nil).Valid || NullBool(nil).Valid {
		t.Fatal("expected nil numbers to be NULL")
	}
}

func TestOmittedFieldStoredAsNull(t *testing.T) {
	conn := newProbeDB(t)

	if err := conn.Exec(`INSERT INTO tx_probes (id, name, note) VALUES (?, ?, ?)`, 1, "a", NullString(nil)).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	var isNull bool
	if err := conn.Raw(`SELECT note IS NULL FROM tx_probes WHERE id = ?`, 1).Scan(&isNull).Error; err != nil {
		t.Fatalf("select: %v", err)
	}
	if !isNull {
		t.Fatal("expected note to be NULL")
	}
}

func TestIsDuplicateKeyErr(t *testing.T) {
	conn := newProbeDB(t)

	if err := conn.Exec(`INSERT INTO tx_probes (id, name) VALUES (?, ?)`, 1, "a").Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := conn.Exec(`INSERT INTO tx_probes (id, name) VALUES (?, ?)`, 1, "b").Error
	if !IsDuplicateKeyErr(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	if IsDuplicateKeyErr(nil) || IsDuplicateKeyErr(errors.New("other")) {
		t.Fatal("unexpected duplicate classification")
	}
}
