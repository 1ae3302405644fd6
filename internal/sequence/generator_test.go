package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&TicketSequence{}))
	return conn
}

func TestNextIncrementsPerDay(t *testing.T) {
	conn := newTestDB(t)
	gen := New()
	ctx := context.Background()
	day := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	var got []int64
	for i := 0; i < 3; i++ {
		err := db.Transaction(ctx, conn, time.Second, func(tx *gorm.DB) error {
			v, err := gen.Next(ctx, tx, day)
			got = append(got, v)
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)

	var next int64
	err := db.Transaction(ctx, conn, time.Second, func(tx *gorm.DB) error {
		var err error
		next, err = gen.Next(ctx, tx, day.Add(24*time.Hour))
		return err
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, next)
}

func TestNextIsUniqueUnderConcurrency(t *testing.T) {
	conn := newTestDB(t)
	gen := New()
	ctx := context.Background()
	day := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	const workers = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = db.Transaction(ctx, conn, 5*time.Second, func(tx *gorm.DB) error {
				v, err := gen.Next(ctx, tx, day)
				if err != nil {
					return err
				}
				mu.Lock()
				seen[v] = true
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)
	for i := int64(1); i <= workers; i++ {
		assert.True(t, seen[i], "missing value %d", i)
	}
}

func TestRollbackRevertsCounter(t *testing.T) {
	conn := newTestDB(t)
	gen := New()
	ctx := context.Background()
	day := time.Date(2026, 4, 3, 10, 0, 0, 0, time.UTC)

	boom := errors.New("insert failed")
	err := db.Transaction(ctx, conn, time.Second, func(tx *gorm.DB) error {
		if _, err := gen.Next(ctx, tx, day); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var v int64
	err = db.Transaction(ctx, conn, time.Second, func(tx *gorm.DB) error {
		var err error
		v, err = gen.Next(ctx, tx, day)
		return err
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
}
