package services

import (
	"context"
	"log/slog"
	"sort"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbaduk/award-system/models"
	"github.com/openbaduk/award-system/repositories"
)

type fakePrizeRepo struct {
	prizes    map[int]*models.Prize
	awardRepo *fakeAwardRepo
	nextID    int
}

func newFakePrizeRepo(awardRepo *fakeAwardRepo) *fakePrizeRepo {
	return &fakePrizeRepo{prizes: make(map[int]*models.Prize), awardRepo: awardRepo}
}

func (f *fakePrizeRepo) Create(ctx context.Context, exec repositories.SQLExecutor, prize *models.Prize) error {
	f.nextID++
	prize.ID = f.nextID
	f.prizes[prize.ID] = prize
	return nil
}

func (f *fakePrizeRepo) GetByID(ctx context.Context, id int) (*models.Prize, error) {
	prize, ok := f.prizes[id]
	if !ok {
		return nil, repositories.ErrPrizeNotFound
	}
	copied := *prize
	return &copied, nil
}

func (f *fakePrizeRepo) List(ctx context.Context) ([]models.Prize, error) {
	out := make([]models.Prize, 0, len(f.prizes))
	for _, p := range f.prizes {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePrizeRepo) Update(ctx context.Context, exec repositories.SQLExecutor, prize *models.Prize) error {
	if _, ok := f.prizes[prize.ID]; !ok {
		return repositories.ErrPrizeNotFound
	}
	copied := *prize
	f.prizes[prize.ID] = &copied
	return nil
}

func (f *fakePrizeRepo) UpdatePhotoKey(ctx context.Context, prizeID int, photoKey *string) error {
	prize, ok := f.prizes[prizeID]
	if !ok {
		return repositories.ErrPrizeNotFound
	}
	prize.PhotoKey = photoKey
	return nil
}

func (f *fakePrizeRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if _, ok := f.prizes[id]; !ok {
		return repositories.ErrPrizeNotFound
	}
	delete(f.prizes, id)
	return nil
}

func (f *fakePrizeRepo) CountAssignedAwards(ctx context.Context, exec repositories.SQLExecutor, prizeID int) (int, error) {
	count := 0
	for _, a := range f.awardRepo.awards {
		if a.PrizeID == prizeID && a.OwnerPlayerID != nil {
			count++
		}
	}
	return count, nil
}

func (f *fakePrizeRepo) Count(ctx context.Context) (int, error) {
	return len(f.prizes), nil
}

func newPrizeService(t *testing.T, prizeRepo *fakePrizeRepo, awardRepo *fakeAwardRepo) (PrizeService, sqlmock.Sqlmock) {
	t.Helper()
	dbConn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { dbConn.Close() })

	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewPrizeService(dbConn, prizeRepo, awardRepo, nil, logger), mock
}

func prizeUnits(awardRepo *fakeAwardRepo, prizeID int) []*models.Award {
	units := make([]*models.Award, 0)
	for _, a := range awardRepo.awards {
		if a.PrizeID == prizeID {
			units = append(units, a)
		}
	}
	return units
}

func TestPrizeService_CreatePrize(t *testing.T) {
	ctx := context.Background()

	t.Run("creates one award unit per quantity", func(t *testing.T) {
		awardRepo := newFakeAwardRepo()
		svc, mock := newPrizeService(t, newFakePrizeRepo(awardRepo), awardRepo)
		mock.ExpectBegin()
		mock.ExpectCommit()

		prize, err := svc.CreatePrize(ctx, CreatePrizeInput{
			Title:       "Go Book Collection",
			Value:       25,
			Quantity:    3,
			RedeemCodes: []string{"CODE-1", "", "CODE-3"},
		})
		require.NoError(t, err)

		units := prizeUnits(awardRepo, prize.ID)
		require.Len(t, units, 3)

		withCode := 0
		for _, u := range units {
			assert.Equal(t, float64(25), u.Value)
			assert.True(t, u.Available())
			if u.RedeemCode != nil {
				withCode++
			}
		}
		assert.Equal(t, 2, withCode)
	})

	t.Run("validation", func(t *testing.T) {
		awardRepo := newFakeAwardRepo()
		svc, _ := newPrizeService(t, newFakePrizeRepo(awardRepo), awardRepo)

		_, err := svc.CreatePrize(ctx, CreatePrizeInput{Title: "  ", Value: 1, Quantity: 1})
		assert.ErrorIs(t, err, ErrPrizeTitleRequired)

		_, err = svc.CreatePrize(ctx, CreatePrizeInput{Title: "X", Value: -1, Quantity: 1})
		assert.ErrorIs(t, err, ErrPrizeInvalidValue)

		_, err = svc.CreatePrize(ctx, CreatePrizeInput{Title: "X", Value: 1, Quantity: 0})
		assert.ErrorIs(t, err, ErrPrizeInvalidQuantity)
	})
}

func TestPrizeService_UpdatePrize(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (PrizeService, *fakePrizeRepo, *fakeAwardRepo, sqlmock.Sqlmock) {
		awardRepo := newFakeAwardRepo()
		prizeRepo := newFakePrizeRepo(awardRepo)
		svc, mock := newPrizeService(t, prizeRepo, awardRepo)

		mock.ExpectBegin()
		mock.ExpectCommit()
		_, err := svc.CreatePrize(ctx, CreatePrizeInput{Title: "Board", Value: 50, Quantity: 2})
		require.NoError(t, err)
		return svc, prizeRepo, awardRepo, mock
	}

	t.Run("raising quantity adds units", func(t *testing.T) {
		svc, _, awardRepo, mock := seed(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		prize, err := svc.UpdatePrize(ctx, 1, UpdatePrizeInput{Title: "Board", Value: 50, Quantity: 4})
		require.NoError(t, err)
		assert.Equal(t, 4, prize.Quantity)
		assert.Len(t, prizeUnits(awardRepo, 1), 4)
	})

	t.Run("lowering quantity removes free units only", func(t *testing.T) {
		svc, _, awardRepo, mock := seed(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		prize, err := svc.UpdatePrize(ctx, 1, UpdatePrizeInput{Title: "Board", Value: 50, Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, prize.Quantity)
		assert.Len(t, prizeUnits(awardRepo, 1), 1)
	})

	t.Run("cannot shrink below assigned units", func(t *testing.T) {
		svc, _, awardRepo, mock := seed(t)

		owner := 101
		for _, u := range prizeUnits(awardRepo, 1) {
			u.OwnerPlayerID = &owner
		}

		mock.ExpectBegin()
		mock.ExpectRollback()
		_, err := svc.UpdatePrize(ctx, 1, UpdatePrizeInput{Title: "Board", Value: 50, Quantity: 1})
		assert.ErrorIs(t, err, ErrPrizeInUse)
	})

	t.Run("missing prize", func(t *testing.T) {
		svc, _, _, mock := seed(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := svc.UpdatePrize(ctx, 42, UpdatePrizeInput{Title: "Board", Value: 50, Quantity: 1})
		assert.ErrorIs(t, err, ErrPrizeNotFound)
	})
}

func TestPrizeService_DeletePrize(t *testing.T) {
	ctx := context.Background()

	t.Run("removes prize and free units", func(t *testing.T) {
		awardRepo := newFakeAwardRepo()
		prizeRepo := newFakePrizeRepo(awardRepo)
		svc, mock := newPrizeService(t, prizeRepo, awardRepo)

		mock.ExpectBegin()
		mock.ExpectCommit()
		_, err := svc.CreatePrize(ctx, CreatePrizeInput{Title: "Board", Value: 50, Quantity: 2})
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectCommit()
		require.NoError(t, svc.DeletePrize(ctx, 1))
		assert.Empty(t, prizeRepo.prizes)
		assert.Empty(t, prizeUnits(awardRepo, 1))
	})

	t.Run("blocked while any unit is assigned", func(t *testing.T) {
		awardRepo := newFakeAwardRepo()
		prizeRepo := newFakePrizeRepo(awardRepo)
		svc, mock := newPrizeService(t, prizeRepo, awardRepo)

		mock.ExpectBegin()
		mock.ExpectCommit()
		_, err := svc.CreatePrize(ctx, CreatePrizeInput{Title: "Board", Value: 50, Quantity: 1})
		require.NoError(t, err)

		owner := 101
		for _, u := range prizeUnits(awardRepo, 1) {
			u.OwnerPlayerID = &owner
		}

		mock.ExpectBegin()
		mock.ExpectRollback()
		err = svc.DeletePrize(ctx, 1)
		assert.ErrorIs(t, err, ErrPrizeInUse)
	})
}
