package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openbaduk/award-system/models"
	"github.com/openbaduk/award-system/repositories"
)

type PreferenceService interface {
	ListPreferences(ctx context.Context, playerID int) ([]models.AwardPreference, error)
	// ReplacePreferences заменяет весь упорядоченный список предпочтений
	// игрока: старые строки удаляются и вставляется новый набор, всё или
	// ничего. Порядок элементов orderedAwardIDs и есть приоритет.
	ReplacePreferences(ctx context.Context, playerID int, orderedAwardIDs []int) ([]models.AwardPreference, error)
}

type preferenceService struct {
	db             *sql.DB
	preferenceRepo repositories.PreferenceRepository
	playerRepo     repositories.PlayerRepository
	awardRepo      repositories.AwardRepository
	logger         *slog.Logger
}

func NewPreferenceService(
	db *sql.DB,
	preferenceRepo repositories.PreferenceRepository,
	playerRepo repositories.PlayerRepository,
	awardRepo repositories.AwardRepository,
	logger *slog.Logger,
) PreferenceService {
	return &preferenceService{
		db:             db,
		preferenceRepo: preferenceRepo,
		playerRepo:     playerRepo,
		awardRepo:      awardRepo,
		logger:         logger,
	}
}

func (s *preferenceService) ListPreferences(ctx context.Context, playerID int) ([]models.AwardPreference, error) {
	if _, err := s.playerRepo.GetByID(ctx, nil, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	prefs, err := s.preferenceRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences for player %d: %w", playerID, err)
	}
	return prefs, nil
}

func (s *preferenceService) ReplacePreferences(ctx context.Context, playerID int, orderedAwardIDs []int) ([]models.AwardPreference, error) {
	if _, err := s.playerRepo.GetByID(ctx, nil, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	seen := make(map[int]struct{}, len(orderedAwardIDs))
	for _, awardID := range orderedAwardIDs {
		if _, dup := seen[awardID]; dup {
			return nil, ErrPreferenceDuplicateAward
		}
		seen[awardID] = struct{}{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	prefs, err := s.preferenceRepo.ReplaceAll(ctx, tx, playerID, orderedAwardIDs)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", slog.Any("error", rbErr), slog.Any("cause", err))
		}
		switch {
		case errors.Is(err, repositories.ErrPreferenceInvalidAward):
			return nil, ErrPreferenceUnknownAward
		case errors.Is(err, repositories.ErrPreferenceDuplicate):
			return nil, ErrPreferenceDuplicateAward
		default:
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return prefs, nil
}
