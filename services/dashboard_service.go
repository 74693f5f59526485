package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/openbaduk/award-system/models"
	"github.com/openbaduk/award-system/repositories"
)

type DashboardService interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
}

type dashboardService struct {
	playerRepo repositories.PlayerRepository
	prizeRepo  repositories.PrizeRepository
	awardRepo  repositories.AwardRepository
	resultRepo repositories.ResultRepository
}

func NewDashboardService(
	playerRepo repositories.PlayerRepository,
	prizeRepo repositories.PrizeRepository,
	awardRepo repositories.AwardRepository,
	resultRepo repositories.ResultRepository,
) DashboardService {
	return &dashboardService{
		playerRepo: playerRepo,
		prizeRepo:  prizeRepo,
		awardRepo:  awardRepo,
		resultRepo: resultRepo,
	}
}

func (s *dashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.PlayersTotal, err = s.playerRepo.Count(gCtx)
		return err
	})
	g.Go(func() (err error) {
		stats.PrizesTotal, err = s.prizeRepo.Count(gCtx)
		return err
	})
	g.Go(func() (err error) {
		stats.AwardsTotal, err = s.awardRepo.CountAll(gCtx)
		return err
	})
	g.Go(func() (err error) {
		stats.AwardsAssigned, err = s.awardRepo.CountAssigned(gCtx)
		return err
	})
	g.Go(func() (err error) {
		stats.ResultsTotal, err = s.resultRepo.CountAll(gCtx)
		return err
	})
	g.Go(func() (err error) {
		stats.ResultsFinalized, err = s.resultRepo.CountFinalized(gCtx)
		return err
	})
	g.Go(func() (err error) {
		stats.ActiveResultID, err = s.resultRepo.ActiveAllocationResultID(gCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, err
	}

	stats.AwardsAvailable = stats.AwardsTotal - stats.AwardsAssigned
	return stats, nil
}
