package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*postgresAwardRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &postgresAwardRepository{db: db}, mock
}

func awardRows(id, prizeID int, value float64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "prize_id", "owner_player_id", "redeem_code", "value", "created_at", "updated_at",
	}).AddRow(id, prizeID, nil, nil, value, now, now)
}

func TestAwardRepository_GetBestAvailableForPlayer(t *testing.T) {
	ctx := context.Background()

	t.Run("preferred award wins over higher value", func(t *testing.T) {
		repo, mock := newMockDB(t)

		now := time.Now()
		rows := sqlmock.NewRows([]string{
			"id", "prize_id", "owner_player_id", "redeem_code", "value", "created_at", "updated_at",
			"title", "preference_order",
		}).AddRow(10, 100, nil, nil, 25.0, now, now, "Go Book Collection", 1)

		mock.ExpectQuery(`FROM award_preferences ap`).
			WithArgs(101, pq.Array([]int{})).
			WillReturnRows(rows)

		best, err := repo.GetBestAvailableForPlayer(ctx, nil, 101, []int{})
		require.NoError(t, err)
		assert.Equal(t, 10, best.Award.ID)
		assert.Equal(t, "Go Book Collection", best.PrizeTitle)
		assert.True(t, best.FromPreference)
		require.NotNil(t, best.PreferenceOrder)
		assert.Equal(t, 1, *best.PreferenceOrder)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("falls back to most valuable award", func(t *testing.T) {
		repo, mock := newMockDB(t)

		now := time.Now()
		mock.ExpectQuery(`FROM award_preferences ap`).
			WithArgs(101, pq.Array([]int{10})).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		fallback := sqlmock.NewRows([]string{
			"id", "prize_id", "owner_player_id", "redeem_code", "value", "created_at", "updated_at", "title",
		}).AddRow(11, 101, nil, nil, 40.0, now, now, "Tournament Set")

		mock.ExpectQuery(`ORDER BY a.value DESC`).
			WithArgs(pq.Array([]int{10})).
			WillReturnRows(fallback)

		best, err := repo.GetBestAvailableForPlayer(ctx, nil, 101, []int{10})
		require.NoError(t, err)
		assert.Equal(t, 11, best.Award.ID)
		assert.False(t, best.FromPreference)
		assert.Nil(t, best.PreferenceOrder)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pool exhausted", func(t *testing.T) {
		repo, mock := newMockDB(t)

		mock.ExpectQuery(`FROM award_preferences ap`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`ORDER BY a.value DESC`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetBestAvailableForPlayer(ctx, nil, 101, nil)
		assert.ErrorIs(t, err, ErrNoAwardAvailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAwardRepository_AssignOwner(t *testing.T) {
	ctx := context.Background()
	owner := 101

	t.Run("assign", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE awards SET owner_player_id`).
			WithArgs(&owner, 10).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.AssignOwner(ctx, nil, 10, &owner))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown award", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE awards SET owner_player_id`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.AssignOwner(ctx, nil, 999, nil)
		assert.ErrorIs(t, err, ErrAwardNotFound)
	})

	t.Run("unknown owner maps fk violation", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE awards SET owner_player_id`).
			WillReturnError(&pq.Error{Code: "23503", Constraint: "awards_owner_player_id_fkey"})

		err := repo.AssignOwner(ctx, nil, 10, &owner)
		assert.ErrorIs(t, err, ErrAwardInvalidOwner)
	})
}

func TestAwardRepository_AssignOwnerIfAvailable(t *testing.T) {
	ctx := context.Background()
	updatePattern := `UPDATE awards SET owner_player_id = \$1, updated_at = now\(\)\s+WHERE id = \$2 AND owner_player_id IS NULL`

	t.Run("assigns a free unit", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectExec(updatePattern).
			WithArgs(101, 10).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.AssignOwnerIfAvailable(ctx, nil, 10, 101))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owned unit is not stolen", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectExec(updatePattern).
			WithArgs(101, 10).
			WillReturnResult(sqlmock.NewResult(0, 0))

		now := time.Now()
		owner := 777
		rows := sqlmock.NewRows([]string{
			"id", "prize_id", "owner_player_id", "redeem_code", "value", "created_at", "updated_at",
		}).AddRow(10, 100, owner, nil, 50.0, now, now)
		mock.ExpectQuery(`SELECT id, prize_id, owner_player_id`).
			WithArgs(10).
			WillReturnRows(rows)

		err := repo.AssignOwnerIfAvailable(ctx, nil, 10, 101)
		assert.ErrorIs(t, err, ErrAwardAlreadyOwned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing unit", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectExec(updatePattern).
			WithArgs(101, 999).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT id, prize_id, owner_player_id`).
			WithArgs(999).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		err := repo.AssignOwnerIfAvailable(ctx, nil, 999, 101)
		assert.ErrorIs(t, err, ErrAwardNotFound)
	})
}

func TestAwardRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT id, prize_id, owner_player_id`).
			WithArgs(10).
			WillReturnRows(awardRows(10, 100, 25))

		award, err := repo.GetByID(ctx, nil, 10)
		require.NoError(t, err)
		assert.Equal(t, 10, award.ID)
		assert.True(t, award.Available())
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT id, prize_id, owner_player_id`).
			WithArgs(999).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByID(ctx, nil, 999)
		assert.ErrorIs(t, err, ErrAwardNotFound)
	})
}

func TestAwardRepository_DeleteUnassignedByPrize(t *testing.T) {
	repo, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM awards`).
		WithArgs(100, 3).
		WillReturnResult(sqlmock.NewResult(0, 2))

	removed, err := repo.DeleteUnassignedByPrize(context.Background(), nil, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
