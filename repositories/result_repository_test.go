package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbaduk/award-system/models"
)

func newResultRepoMock(t *testing.T) (*postgresResultRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &postgresResultRepository{db: db}, mock
}

func resultRow(id, eventID int, winners, awards string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "event_id", "winners", "awards",
		"allocation_locked_at", "allocation_finalized_at",
		"created_at", "updated_at", "deleted_at",
	}).AddRow(id, eventID, []byte(winners), []byte(awards), nil, nil, now, now, nil)
}

func TestResultRepository_GetByIDForUpdate(t *testing.T) {
	repo, mock := newResultRepoMock(t)

	mock.ExpectQuery(`FROM results WHERE id = \$1 AND deleted_at IS NULL FOR UPDATE`).
		WithArgs(1).
		WillReturnRows(resultRow(1, 5, `[{"division":"DAN","external_player_id":"P1","place":1}]`, `[]`))

	result, err := repo.GetByIDForUpdate(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, result.EventID)
	require.Len(t, result.Winners, 1)
	assert.Equal(t, "P1", result.Winners[0].ExternalPlayerID)
	assert.Equal(t, models.AllocationStateInitial, result.AllocationState())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepository_GetByID_missing(t *testing.T) {
	repo, mock := newResultRepoMock(t)

	mock.ExpectQuery(`FROM results WHERE id = \$1`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), nil, 42)
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func TestResultRepository_HasActiveAllocationElsewhere(t *testing.T) {
	repo, mock := newResultRepoMock(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	busy, err := repo.HasActiveAllocationElsewhere(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.True(t, busy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepository_SetAllocationLock(t *testing.T) {
	ctx := context.Background()

	t.Run("acquire", func(t *testing.T) {
		repo, mock := newResultRepoMock(t)
		now := time.Now()

		mock.ExpectExec(`UPDATE results SET allocation_locked_at`).
			WithArgs(&now, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SetAllocationLock(ctx, nil, 1, &now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("release with nil timestamp", func(t *testing.T) {
		repo, mock := newResultRepoMock(t)

		mock.ExpectExec(`UPDATE results SET allocation_locked_at`).
			WithArgs(nil, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SetAllocationLock(ctx, nil, 1, nil))
	})

	t.Run("partial unique index race maps to conflict", func(t *testing.T) {
		repo, mock := newResultRepoMock(t)
		now := time.Now()

		mock.ExpectExec(`UPDATE results SET allocation_locked_at`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "one_active_allocation"})

		err := repo.SetAllocationLock(ctx, nil, 1, &now)
		assert.ErrorIs(t, err, ErrAllocationConflict)
	})

	t.Run("missing result", func(t *testing.T) {
		repo, mock := newResultRepoMock(t)
		now := time.Now()

		mock.ExpectExec(`UPDATE results SET allocation_locked_at`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetAllocationLock(ctx, nil, 42, &now)
		assert.ErrorIs(t, err, ErrResultNotFound)
	})
}

func TestResultRepository_Create_eventConflict(t *testing.T) {
	repo, mock := newResultRepoMock(t)

	mock.ExpectQuery(`INSERT INTO results`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "results_event_id_key"})

	err := repo.Create(context.Background(), &models.Result{EventID: 5})
	assert.ErrorIs(t, err, ErrResultEventConflict)
}

func TestResultRepository_UpdateWinners(t *testing.T) {
	repo, mock := newResultRepoMock(t)

	winners := models.WinnerList{{Division: "DAN", ExternalPlayerID: "P1", Place: 1}}
	mock.ExpectExec(`UPDATE results SET winners`).
		WithArgs(winners, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateWinners(context.Background(), nil, 1, winners))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepository_SoftDelete(t *testing.T) {
	repo, mock := newResultRepoMock(t)

	mock.ExpectExec(`UPDATE results SET deleted_at`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), 1))
}
