package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Driver-level failures must surface to the caller unwrapped in
// meaning: the orchestrator treats any store error as fatal for the
// step that hit it.

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &SQLiteStore{db: db}, mock
}

func TestInsertOrderIfAbsent_ExecError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("disk I/O error")
	mock.ExpectExec("INSERT INTO run_orders").WillReturnError(boom)

	_, err := store.InsertOrderIfAbsent(context.Background(), testOrder("orders/x.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRun_QueryError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("database is locked")
	mock.ExpectQuery("SELECT (.+) FROM runs WHERE id").WillReturnError(boom)

	_, err := store.GetRun(context.Background(), "run-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOutputFiles_RollsBackOnInsertError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("constraint failed")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM output_files").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO output_files").WillReturnError(boom)
	mock.ExpectRollback()

	err := store.RecordOutputFiles(context.Background(), "run-1", []OutputFile{
		{FileName: "a.txt", FilePath: "a.txt", FileSize: 1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
