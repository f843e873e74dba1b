package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sftprep/internal/testutil"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenMigrates(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	for _, table := range []string{"runs", "stage_runs"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s does not exist", table)
		_ = rows.Close()
	}
}

func TestSQLiteStore_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	ctx := context.Background()
	run, err := store.CreateRun(ctx, "clean", nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer reopened.Close()
	got, err := reopened.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "clean", got.Command)
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		status RunStatus
		errMsg string
	}{
		{name: "completed", status: RunStatusCompleted},
		{name: "failed", status: RunStatusFailed, errMsg: "record 3: missing required field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)

			run, err := store.CreateRun(ctx, "run",
				[]core.Family{core.FamilyWriting, core.FamilyMath},
				[]core.Step{core.StepClean, core.StepSplit})
			require.NoError(t, err)
			assert.NotEmpty(t, run.ID)
			assert.Equal(t, RunStatusRunning, run.Status)

			got, err := store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, []core.Family{core.FamilyWriting, core.FamilyMath}, got.Families)
			assert.Equal(t, []core.Step{core.StepClean, core.StepSplit}, got.Steps)
			assert.Nil(t, got.CompletedAt)
			assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Millisecond)

			require.NoError(t, store.CompleteRun(ctx, run.ID, tt.status, tt.errMsg))
			got, err = store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.errMsg, got.Error)
			require.NotNil(t, got.CompletedAt)
			assert.GreaterOrEqual(t, got.Duration(), time.Duration(0))
		})
	}
}

func TestSQLiteStore_GetRun(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	run, err := store.CreateRun(ctx, "fetch", nil, nil)
	require.NoError(t, err)

	got, err := store.GetRun(ctx, run.ID[:8])
	require.NoError(t, err, "unique prefix resolves")
	assert.Equal(t, run.ID, got.ID)

	_, err = store.GetRun(ctx, "nonexistent-id")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = store.GetRun(ctx, "")
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.ErrorIs(t, store.CompleteRun(ctx, "nonexistent-id", RunStatusCompleted, ""), ErrRunNotFound)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	var ids []string
	for _, cmd := range []string{"fetch", "clean", "split"} {
		run, err := store.CreateRun(ctx, cmd, nil, nil)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID, "newest first")
	assert.Equal(t, ids[1], runs[1].ID)

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStore_StageRuns(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	run, err := store.CreateRun(ctx, "run", []core.Family{core.FamilyMath}, nil)
	require.NoError(t, err)

	done := time.Now().UTC()
	first := &StageRun{
		RunID: run.ID, Family: core.FamilyMath, Step: core.StepClean, Status: RunStatusCompleted,
		RowsIn: 10, RowsOut: 7, Removed: 3, CompletedAt: &done, Details: `{"removed":3}`,
	}
	require.NoError(t, store.RecordStage(ctx, first))
	assert.NotEmpty(t, first.ID)

	second := &StageRun{
		RunID: run.ID, Family: core.FamilyMath, Step: core.StepFormat, Status: RunStatusFailed,
		RowsIn: 7, Error: "missing required field",
	}
	require.NoError(t, store.RecordStage(ctx, second))

	stages, err := store.ListStageRuns(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, core.StepClean, stages[0].Step)
	assert.Equal(t, 7, stages[0].RowsOut)
	assert.Equal(t, 3, stages[0].Removed)
	assert.Equal(t, `{"removed":3}`, stages[0].Details)
	require.NotNil(t, stages[0].CompletedAt)
	assert.Equal(t, RunStatusFailed, stages[1].Status)
	assert.Equal(t, "missing required field", stages[1].Error)
	assert.Nil(t, stages[1].CompletedAt)

	err = store.RecordStage(ctx, &StageRun{RunID: "missing", Family: core.FamilyMath, Step: core.StepClean, Status: RunStatusCompleted})
	assert.Error(t, err, "foreign key to runs is enforced")
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(nil)

	_, err := store.CreateRun(ctx, "x", nil, nil)
	assert.ErrorContains(t, err, "database not opened")
	assert.ErrorContains(t, store.CompleteRun(ctx, "x", RunStatusCompleted, ""), "database not opened")
	_, err = store.ListRuns(ctx, 1)
	assert.ErrorContains(t, err, "database not opened")
	assert.ErrorContains(t, store.RecordStage(ctx, &StageRun{}), "database not opened")
	assert.ErrorContains(t, store.Migrate(), "database not opened")
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_DatabaseErrors(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &SQLiteStore{db: db, logger: testutil.NewTestLogger(t)}

	mock.ExpectExec("INSERT INTO runs").WillReturnError(assert.AnError)
	_, err = store.CreateRun(ctx, "clean", nil, nil)
	assert.ErrorContains(t, err, "failed to create run")

	mock.ExpectQuery("SELECT .* FROM runs").WillReturnError(assert.AnError)
	_, err = store.ListRuns(ctx, 5)
	assert.ErrorContains(t, err, "failed to list runs")

	mock.ExpectQuery("SELECT .* FROM runs").WillReturnRows(
		sqlmock.NewRows([]string{"id", "command", "families", "steps", "status", "started_at", "completed_at", "error"}).
			AddRow("id-1", "clean", "", "", "running", "yesterday", nil, nil))
	_, err = store.ListRuns(ctx, 5)
	assert.ErrorContains(t, err, "invalid timestamp")

	mock.ExpectExec("INSERT INTO stage_runs").WillReturnError(assert.AnError)
	err = store.RecordStage(ctx, &StageRun{RunID: "id-1", Family: core.FamilyMath, Step: core.StepSplit})
	assert.ErrorContains(t, err, "failed to record stage openmath/split")

	mock.ExpectQuery("FROM stage_runs").WillReturnError(assert.AnError)
	_, err = store.ListStageRuns(ctx, "id-1")
	assert.ErrorContains(t, err, "failed to list stage runs")

	assert.NoError(t, mock.ExpectationsWereMet())
}
