package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbaduk/award-system/models"
)

func TestDashboardService_GetStats(t *testing.T) {
	now := time.Now()
	owner := 101

	awardRepo := newFakeAwardRepo()
	awardRepo.addAward(10, 1, "Board", 50)
	awardRepo.addAward(11, 1, "Board", 50)
	awardRepo.addAward(12, 2, "Book", 20)
	awardRepo.awards[10].OwnerPlayerID = &owner

	prizeRepo := newFakePrizeRepo(awardRepo)
	prizeRepo.prizes[1] = &models.Prize{ID: 1, Title: "Board", Quantity: 2}
	prizeRepo.prizes[2] = &models.Prize{ID: 2, Title: "Book", Quantity: 1}

	playerRepo := newFakePlayerRepo(
		&models.Player{ID: 101, ExternalID: "P1"},
		&models.Player{ID: 102, ExternalID: "P2"},
	)

	resultRepo := newFakeResultRepo(
		&models.Result{ID: 1, EventID: 1, AllocationLockedAt: &now, AllocationFinalizedAt: &now},
		&models.Result{ID: 2, EventID: 2, AllocationLockedAt: &now},
	)

	svc := NewDashboardService(playerRepo, prizeRepo, awardRepo, resultRepo)

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.PlayersTotal)
	assert.Equal(t, 2, stats.PrizesTotal)
	assert.Equal(t, 3, stats.AwardsTotal)
	assert.Equal(t, 1, stats.AwardsAssigned)
	assert.Equal(t, 2, stats.AwardsAvailable)
	assert.Equal(t, 2, stats.ResultsTotal)
	assert.Equal(t, 1, stats.ResultsFinalized)
	require.NotNil(t, stats.ActiveResultID)
	assert.Equal(t, 2, *stats.ActiveResultID)
}
