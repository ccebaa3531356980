package obsim

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/obsim/config"
	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/ingestion"
	"github.com/poiesic/obsim/search"
	"github.com/poiesic/obsim/storage/sqlstore"
)

func shirt(layoutID int64, code string, ops ...string) core.Breakdown {
	b := core.Breakdown{LayoutID: layoutID, LayoutCode: code, StyleType: "Shirt", TenantID: 1}
	for i, op := range ops {
		b.Operations = append(b.Operations, core.OperationStep{
			OperationName:  op,
			MachineName:    "SNLS",
			SequenceNumber: i + 1,
		})
	}
	return b
}

func shirtQuery() search.Request {
	req := search.NewRequest()
	req.TenantID = 1
	req.StyleType = "Shirt"
	req.AllocationData = true
	req.OperationData = []core.OperationStep{
		{OperationName: "Attach collar", MachineName: "SNLS", SequenceNumber: 1},
		{OperationName: "Attach cuff", MachineName: "SNLS", SequenceNumber: 2},
	}
	return req
}

func inMemoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.InMemory = true
	cfg.Storage.BadgerPath = ""
	cfg.Search.PoolSize = 2
	return cfg
}

func TestOpen_Badger(t *testing.T) {
	ctx := context.Background()
	engine, err := Open(ctx, inMemoryConfig())
	require.NoError(t, err)
	defer engine.Close()

	require.NotNil(t, engine.Searcher())
	require.NotNil(t, engine.Store())

	require.NoError(t, engine.Store().PutBreakdowns(ctx,
		shirt(1, "SH-1", "Attach collar", "Attach cuff"),
		shirt(2, "SH-2", "Hem bottom"),
	))
	eff := 0.9
	require.NoError(t, engine.Store().PutAllocations(ctx,
		core.AllocationRecord{LayoutID: 1, AllocationID: 1, AllocationName: "Line 1", HourlyTarget: 60, RunEfficiency: &eff},
	))

	resp, err := engine.Searcher().Search(ctx, shirtQuery())
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "SH-1", resp.Results[0].LayoutCode)
	assert.Equal(t, 100.0, resp.Results[0].TotalSimilarityScore)
	assert.Len(t, resp.Results[0].AllocationData, 1)
	assert.True(t, resp.AllocationData)
}

func TestOpen_BadgerOnFile(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.BadgerPath = filepath.Join(t.TempDir(), "obsim")

	engine, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, engine.Close())
}

func TestOpen_InvalidPath(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
	require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

	cfg := config.Default()
	cfg.Storage.BadgerPath = tmpFile

	engine, err := Open(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, engine)
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "mongo"

	_, err := Open(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = Open(context.Background(), nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestEngine_NewImporter(t *testing.T) {
	ctx := context.Background()
	engine, err := Open(ctx, inMemoryConfig())
	require.NoError(t, err)
	defer engine.Close()

	importer, err := engine.NewImporter(ingestion.WithPoolSize(1))
	require.NoError(t, err)
	defer importer.Release()

	ds := &ingestion.Dataset{Rows: []core.FlatOperationRow{
		{LayoutID: 5, LayoutCode: "SH-5", StyleType: "Shirt", TenantID: 1, OperationName: "Attach collar", MachineName: "SNLS", SequenceNumber: 1},
	}}
	result, err := importer.Import(ctx, "inline", ds, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Breakdowns)

	styles, err := engine.Searcher().StyleTypes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shirt"}, styles)
}

func TestOpen_SQL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "obsim.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	require.NoError(t, sqlstore.CreateSchema(ctx, db))
	require.NoError(t, sqlstore.Seed(ctx, db,
		[]core.Breakdown{
			shirt(1, "SH-1", "Attach collar", "Attach cuff"),
			shirt(2, "SH-2", "Attach collar"),
		},
		[]core.AllocationRecord{{LayoutID: 2, AllocationID: 7, AllocationName: "Line 7", HourlyTarget: 40}},
	))
	require.NoError(t, db.Close())

	cfg := config.Default()
	cfg.Storage.Backend = config.BackendSQL
	cfg.Storage.Driver = "sqlite3"
	cfg.Storage.DSN = path
	cfg.Search.PoolSize = 2

	engine, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer engine.Close()

	assert.Nil(t, engine.Store())
	_, err = engine.NewImporter()
	assert.ErrorIs(t, err, ErrReadOnlyBackend)

	resp, err := engine.Searcher().Search(ctx, shirtQuery())
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "SH-1", resp.Results[0].LayoutCode)
	assert.Len(t, resp.Results[1].AllocationData, 1)
}
