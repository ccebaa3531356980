package sqlstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "obsim.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, CreateSchema(context.Background(), db))
	return db
}

func fixtures() ([]core.Breakdown, []core.AllocationRecord) {
	eff := 81.5
	low := 40.0
	line := int64(7)
	breakdowns := []core.Breakdown{
		{
			LayoutID: 2, LayoutCode: "TEE-2", StyleType: "T-Shirt", TenantID: 1,
			Operations: []core.OperationStep{
				{OperationName: "Set sleeve", MachineName: "Overlock", SequenceNumber: 2},
				{OperationName: "Join shoulder", MachineName: "Overlock", SequenceNumber: 1},
			},
		},
		{
			LayoutID: 1, LayoutCode: "TEE-1", StyleType: "T-Shirt", TenantID: 1,
			Operations: []core.OperationStep{
				{OperationName: "Hem bottom", MachineName: "Flatlock", SequenceNumber: 1},
			},
		},
		{
			LayoutID: 3, LayoutCode: "POLO-3", StyleType: "Polo", TenantID: 1,
			Operations: []core.OperationStep{
				{OperationName: "Attach placket", MachineName: "Single needle", SequenceNumber: 1},
			},
		},
		{
			LayoutID: 4, LayoutCode: "TEE-4", StyleType: "T-Shirt", TenantID: 2,
			Operations: []core.OperationStep{
				{OperationName: "Hem bottom", MachineName: "Flatlock", SequenceNumber: 1},
			},
		},
	}
	allocations := []core.AllocationRecord{
		{LayoutID: 1, AllocationID: 10, AllocationName: "Line A", LineID: &line, HourlyTarget: 120, RunEfficiency: &low},
		{LayoutID: 1, AllocationID: 11, AllocationName: "Line B", HourlyTarget: 90},
		{LayoutID: 2, AllocationID: 12, AllocationName: "Line C", HourlyTarget: 100, RunEfficiency: &eff},
		{LayoutID: 3, AllocationID: 13, AllocationName: "Line D", HourlyTarget: 60},
	}
	return breakdowns, allocations
}

func newSeededStore(t *testing.T, opts ...Option) (*Store, *sql.DB) {
	t.Helper()
	db := openTestDB(t)
	breakdowns, allocations := fixtures()
	require.NoError(t, Seed(context.Background(), db, breakdowns, allocations))

	store, err := New(db, opts...)
	require.NoError(t, err)
	return store, db
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	db := openTestDB(t)
	_, err = New(db, WithRetry(0, time.Millisecond))
	assert.ErrorIs(t, err, storage.ErrInvalidMaxAttempts)

	store, err := New(db, WithLogger(nil), WithBreaker(0, time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), store.tripAfter)
	assert.NoError(t, store.Close(), "borrowed handle is not closed")
	assert.NoError(t, db.Ping())
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.db")
	store, err := Open(context.Background(), "sqlite3", path)
	require.NoError(t, err)
	require.NoError(t, CreateSchema(context.Background(), store.db))
	require.NoError(t, store.Close())

	_, err = Open(context.Background(), "no-such-driver", "")
	assert.Error(t, err)
}

func TestStore_Breakdowns(t *testing.T) {
	store, _ := newSeededStore(t)
	ctx := context.Background()

	got, err := store.Breakdowns(ctx, 1, " T-Shirt ")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].LayoutID)
	assert.Equal(t, "TEE-1", got[0].LayoutCode)
	assert.Equal(t, int64(2), got[1].LayoutID)
	assert.Equal(t, int64(1), got[1].TenantID)
	assert.Equal(t, "T-Shirt", got[1].StyleType)

	ops := got[1].Operations
	require.Len(t, ops, 2)
	assert.Equal(t, "Join shoulder", ops[0].OperationName)
	assert.Equal(t, 1, ops[0].SequenceNumber)
	assert.Equal(t, "Set sleeve", ops[1].OperationName)
	assert.Equal(t, "Overlock", ops[1].MachineName)

	none, err := store.Breakdowns(ctx, 1, "Jacket")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_StyleTypes(t *testing.T) {
	store, _ := newSeededStore(t)

	styles, err := store.StyleTypes(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Polo", "T-Shirt"}, styles)

	styles, err = store.StyleTypes(context.Background(), 42)
	require.NoError(t, err)
	assert.NotNil(t, styles)
	assert.Empty(t, styles)
}

func TestStore_BreakdownByLayoutCode(t *testing.T) {
	store, _ := newSeededStore(t)
	ctx := context.Background()

	b, err := store.BreakdownByLayoutCode(ctx, 1, "POLO-3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), b.LayoutID)
	assert.Equal(t, "Polo", b.StyleType)

	_, err = store.BreakdownByLayoutCode(ctx, 2, "POLO-3")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Allocations(t *testing.T) {
	store, _ := newSeededStore(t)
	ctx := context.Background()

	got, err := store.Allocations(ctx, []int64{1, 3})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, int64(10), got[0].AllocationID)
	require.NotNil(t, got[0].RunEfficiency)
	assert.Equal(t, 40.0, *got[0].RunEfficiency)
	require.NotNil(t, got[0].LineID)
	assert.Equal(t, int64(7), *got[0].LineID)
	assert.Equal(t, 120.0, got[0].HourlyTarget)

	assert.Nil(t, got[1].RunEfficiency)
	assert.Nil(t, got[1].LineID)
	assert.Equal(t, int64(3), got[2].LayoutID)

	empty, err := store.Allocations(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStore_AllocationBreakerOpens(t *testing.T) {
	store, db := newSeededStore(t, WithRetry(1, 0), WithBreaker(1, time.Minute))
	ctx := context.Background()

	require.NoError(t, db.Close())

	_, err := store.Allocations(ctx, []int64{1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrSourceUnavailable)

	_, err = store.Allocations(ctx, []int64{1})
	assert.ErrorIs(t, err, storage.ErrSourceUnavailable)
}

func TestStore_CanceledContext(t *testing.T) {
	store, _ := newSeededStore(t, WithRetry(5, time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := store.Breakdowns(ctx, 1, "T-Shirt")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSeed_InvalidAllocation(t *testing.T) {
	db := openTestDB(t)
	err := Seed(context.Background(), db, nil, []core.AllocationRecord{{AllocationID: 1}})
	assert.ErrorIs(t, err, core.ErrInvalidAllocation)
}
