package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/storage"
)

func summaryRecord(name string, createdAt time.Time) *domain.FactorSummaryRecord {
	return &domain.FactorSummaryRecord{
		FactorName:   name,
		CreatedAt:    createdAt,
		ValidSymbols: 20,
		Summary: domain.FactorSummary{
			ICMean:          0.031,
			ICStd:           0.12,
			ICIR:            0.26,
			ICTStat:         2.4,
			ICPositiveRatio: 0.58,
			ICObservations:  120,
			TMBMeanReturn:   0.012,
			TMBStd:          0.04,
			TMBSharpe:       1.2,
			TMBTStat:        2.1,
			TMBObservations: 120,
			AvgTurnover:     0.35,
		},
	}
}

func TestFactorSummaryStore_InsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFactorSummaryStore(pool)
	ctx := context.Background()

	t0 := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	rec := summaryRecord("MOM_21", t0)
	require.NoError(t, store.Insert(ctx, rec))
	require.NoError(t, store.Insert(ctx, summaryRecord("MOM_21", t0.Add(time.Hour))))

	got, err := store.GetByFactor(ctx, "MOM_21")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt), "newest first")
	assert.InDelta(t, rec.Summary.ICMean, got[1].Summary.ICMean, 1e-12)
	assert.Equal(t, rec.Summary.ICObservations, got[1].Summary.ICObservations)

	// Duplicate (factor_name, created_at)
	err = store.Insert(ctx, summaryRecord("MOM_21", t0))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestFactorSummaryStore_GetLatest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFactorSummaryStore(pool)
	ctx := context.Background()

	t0 := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, summaryRecord("VOL_21", t0)))
	require.NoError(t, store.Insert(ctx, summaryRecord("VOL_21", t0.Add(2*time.Hour))))
	require.NoError(t, store.Insert(ctx, summaryRecord("MOM_21", t0.Add(time.Hour))))

	got, err := store.GetLatest(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "MOM_21", got[0].FactorName)
	assert.Equal(t, "VOL_21", got[1].FactorName)
	assert.True(t, got[1].CreatedAt.Equal(t0.Add(2*time.Hour)))
}

func TestFactorSummaryStore_InvalidInput(t *testing.T) {
	store := NewFactorSummaryStore(nil)
	err := store.Insert(context.Background(), &domain.FactorSummaryRecord{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
