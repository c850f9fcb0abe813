package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testOrder(sourceID string) *RunOrder {
	return &RunOrder{
		SourceID: sourceID,
		Source:   "algorithm:\n  name: demo\n",
		Algorithm: Algorithm{
			Name:       "demo",
			Repository: "org/demo",
			Version:    "v1.0.0",
		},
		Dataset: "dataset-1",
		Status:  OrderStatusCreated,
	}
}

// setRunStart backdates a run so ordering tests do not depend on the
// wall clock between inserts.
func setRunStart(t *testing.T, store *SQLiteStore, runID string, ts time.Time) {
	t.Helper()
	_, err := store.db.Exec(`UPDATE runs SET started_at = ? WHERE id = ?`, ts, runID)
	require.NoError(t, err)
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Close())
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	for _, table := range []string{"run_orders", "runs", "run_sections", "section_logs", "output_files"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s should exist", table)
		rows.Close()
	}
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore()
	ctx := context.Background()

	_, err := store.GetOrder(ctx, "x")
	assert.Error(t, err)
	_, err = store.StartRun(ctx, "x")
	assert.Error(t, err)
	assert.Error(t, store.StartSection(ctx, "x", SectionClone))
}

func TestInsertOrderIfAbsent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ord := testOrder("orders/demo.yaml")
	inserted, err := store.InsertOrderIfAbsent(ctx, ord)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, ord.ID, "insert should assign an id")
	assert.False(t, ord.CreatedAt.IsZero())

	// Same source id again: no-op, existing row untouched.
	dup := testOrder("orders/demo.yaml")
	dup.Algorithm.Version = "v2.0.0"
	inserted, err = store.InsertOrderIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := store.GetOrder(ctx, ord.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v1.0.0", got.Algorithm.Version)
	assert.Equal(t, ord.Source, got.Source)
}

func TestGetOrder_NotFound(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.GetOrder(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListOrders_NewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	older := testOrder("orders/older.yaml")
	older.CreatedAt = base
	newer := testOrder("orders/newer.yaml")
	newer.CreatedAt = base.Add(time.Hour)

	_, err := store.InsertOrderIfAbsent(ctx, older)
	require.NoError(t, err)
	_, err = store.InsertOrderIfAbsent(ctx, newer)
	require.NoError(t, err)

	orders, err := store.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "orders/newer.yaml", orders[0].SourceID)
	assert.Equal(t, "orders/older.yaml", orders[1].SourceID)
}

func TestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ord := testOrder("orders/demo.yaml")
	_, err := store.InsertOrderIfAbsent(ctx, ord)
	require.NoError(t, err)

	runID, err := store.StartRun(ctx, ord.ID)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := store.GetRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Equal(t, ord.ID, run.OrderID)
	assert.Nil(t, run.End)

	require.NoError(t, store.LogWorkspace(ctx, runID, "ws-42"))
	require.NoError(t, store.SetRunStatus(ctx, runID, RunStatusWaitingForData))

	run, err = store.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusWaitingForData, run.Status)
	assert.Equal(t, "ws-42", run.Workspace)
	assert.Nil(t, run.End, "parking must not stamp an end time")

	require.NoError(t, store.EndRun(ctx, runID, RunStatusSuccess))

	run, err = store.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusSuccess, run.Status)
	require.NotNil(t, run.End)
	assert.True(t, run.Status.Terminal())
}

func TestGetRun_NotFound(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.GetRun(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestFindWaitingForData(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ord := testOrder("orders/demo.yaml")
	_, err := store.InsertOrderIfAbsent(ctx, ord)
	require.NoError(t, err)

	run, err := store.FindWaitingForData(ctx, ord.ID)
	require.NoError(t, err)
	assert.Nil(t, run, "no runs yet")

	// A failed attempt does not count as waiting.
	failed, err := store.StartRun(ctx, ord.ID)
	require.NoError(t, err)
	require.NoError(t, store.EndRun(ctx, failed, RunStatusFailure))

	run, err = store.FindWaitingForData(ctx, ord.ID)
	require.NoError(t, err)
	assert.Nil(t, run)

	parked, err := store.StartRun(ctx, ord.ID)
	require.NoError(t, err)
	require.NoError(t, store.LogWorkspace(ctx, parked, "ws-7"))
	require.NoError(t, store.SetRunStatus(ctx, parked, RunStatusWaitingForData))

	run, err = store.FindWaitingForData(ctx, ord.ID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, parked, run.ID)
	assert.Equal(t, "ws-7", run.Workspace)
}

func TestListRuns_NewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	ord := testOrder("orders/demo.yaml")
	_, err := store.InsertOrderIfAbsent(ctx, ord)
	require.NoError(t, err)

	first, err := store.StartRun(ctx, ord.ID)
	require.NoError(t, err)
	setRunStart(t, store, first, base)
	second, err := store.StartRun(ctx, ord.ID)
	require.NoError(t, err)
	setRunStart(t, store, second, base.Add(time.Minute))

	runs, err := store.ListRuns(ctx, ord.ID)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
}

func TestSections(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ord := testOrder("orders/demo.yaml")
	_, err := store.InsertOrderIfAbsent(ctx, ord)
	require.NoError(t, err)
	runID, err := store.StartRun(ctx, ord.ID)
	require.NoError(t, err)

	require.NoError(t, store.StartSection(ctx, runID, SectionClone))
	require.NoError(t, store.AppendLogLine(ctx, runID, SectionClone, "Cloning into 'demo'..."))
	require.NoError(t, store.AppendLogLine(ctx, runID, SectionClone, "done."))
	require.NoError(t, store.EndSection(ctx, runID, SectionClone, SectionStatusSuccess))

	require.NoError(t, store.StartSection(ctx, runID, SectionBuildAlgorithmImage))
	require.NoError(t, store.AppendLogLine(ctx, runID, SectionBuildAlgorithmImage, "Step 1/3"))
	require.NoError(t, store.EndSection(ctx, runID, SectionBuildAlgorithmImage, SectionStatusFailure))

	run, err := store.GetRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, run.Sections, 2)

	clone := run.Sections[SectionClone]
	require.NotNil(t, clone)
	assert.Equal(t, SectionStatusSuccess, clone.Status)
	require.NotNil(t, clone.End)
	require.Len(t, clone.Log, 2)
	assert.Equal(t, "Cloning into 'demo'...", clone.Log[0].Line)
	assert.Equal(t, "done.", clone.Log[1].Line)

	build := run.Sections[SectionBuildAlgorithmImage]
	require.NotNil(t, build)
	assert.Equal(t, SectionStatusFailure, build.Status)
	require.Len(t, build.Log, 1)
}

func TestStartSection_Reentry(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ord := testOrder("orders/demo.yaml")
	_, err := store.InsertOrderIfAbsent(ctx, ord)
	require.NoError(t, err)
	runID, err := store.StartRun(ctx, ord.ID)
	require.NoError(t, err)

	// A resumed run re-enters its data-wait section; the log lines of
	// the earlier probe survive the restart.
	require.NoError(t, store.StartSection(ctx, runID, SectionWaitForData))
	require.NoError(t, store.AppendLogLine(ctx, runID, SectionWaitForData, "first probe"))
	require.NoError(t, store.StartSection(ctx, runID, SectionWaitForData))
	require.NoError(t, store.AppendLogLine(ctx, runID, SectionWaitForData, "second probe"))
	require.NoError(t, store.EndSection(ctx, runID, SectionWaitForData, SectionStatusSuccess))

	run, err := store.GetRun(ctx, runID)
	require.NoError(t, err)
	rec := run.Sections[SectionWaitForData]
	require.NotNil(t, rec)
	require.Len(t, rec.Log, 2)
	assert.Equal(t, "first probe", rec.Log[0].Line)
	assert.Equal(t, "second probe", rec.Log[1].Line)
}

func TestRecordOutputFiles_Replaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ord := testOrder("orders/demo.yaml")
	_, err := store.InsertOrderIfAbsent(ctx, ord)
	require.NoError(t, err)
	runID, err := store.StartRun(ctx, ord.ID)
	require.NoError(t, err)

	require.NoError(t, store.RecordOutputFiles(ctx, runID, []OutputFile{
		{FileName: "stale.txt", FilePath: "stale.txt", FileSize: 1},
	}))
	require.NoError(t, store.RecordOutputFiles(ctx, runID, []OutputFile{
		{FileName: "result.csv", FilePath: "result.csv", FileSize: 128},
		{FileName: "metrics.json", FilePath: "sub/metrics.json", FileSize: 64},
	}))

	run, err := store.GetRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, run.OutputFiles, 2)
	assert.Equal(t, "result.csv", run.OutputFiles[0].FileName)
	assert.Equal(t, "sub/metrics.json", run.OutputFiles[1].FilePath)
	assert.Equal(t, int64(64), run.OutputFiles[1].FileSize)
}

func TestFindEligibleOrderIDs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	insert := func(sourceID string, createdAt time.Time, status OrderStatus) string {
		t.Helper()
		ord := testOrder(sourceID)
		ord.CreatedAt = createdAt
		ord.Status = status
		_, err := store.InsertOrderIfAbsent(ctx, ord)
		require.NoError(t, err)
		return ord.ID
	}

	fresh := insert("orders/fresh.yaml", base, OrderStatusCreated)
	fresher := insert("orders/fresher.yaml", base.Add(time.Hour), OrderStatusCreated)
	waiting := insert("orders/waiting.yaml", base.Add(-time.Hour), OrderStatusCreated)
	running := insert("orders/running.yaml", base.Add(2*time.Hour), OrderStatusCreated)
	finished := insert("orders/finished.yaml", base.Add(3*time.Hour), OrderStatusCreated)
	insert("orders/invalid.yaml", base.Add(4*time.Hour), OrderStatusInvalid)
	retried := insert("orders/retried.yaml", base.Add(-2*time.Hour), OrderStatusCreated)

	// waiting: latest run parked.
	run, err := store.StartRun(ctx, waiting)
	require.NoError(t, err)
	setRunStart(t, store, run, base)
	require.NoError(t, store.SetRunStatus(ctx, run, RunStatusWaitingForData))

	// running: latest run still in flight.
	run, err = store.StartRun(ctx, running)
	require.NoError(t, err)
	setRunStart(t, store, run, base)

	// finished: latest run terminal.
	run, err = store.StartRun(ctx, finished)
	require.NoError(t, err)
	setRunStart(t, store, run, base)
	require.NoError(t, store.EndRun(ctx, run, RunStatusSuccess))

	// retried: older failed attempt, then a parked one.
	run, err = store.StartRun(ctx, retried)
	require.NoError(t, err)
	setRunStart(t, store, run, base)
	require.NoError(t, store.EndRun(ctx, run, RunStatusFailure))
	run, err = store.StartRun(ctx, retried)
	require.NoError(t, err)
	setRunStart(t, store, run, base.Add(time.Minute))
	require.NoError(t, store.SetRunStatus(ctx, run, RunStatusWaitingForData))

	ids, err := store.FindEligibleOrderIDs(ctx, 10)
	require.NoError(t, err)
	// Waiting orders first (newest order first within the group), then
	// orders without runs, newest first. Running, finished and invalid
	// orders never appear.
	assert.Equal(t, []string{waiting, retried, fresher, fresh}, ids)

	ids, err = store.FindEligibleOrderIDs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{waiting, retried}, ids)
}
