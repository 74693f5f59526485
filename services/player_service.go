package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openbaduk/award-system/models"
	"github.com/openbaduk/award-system/repositories"
)

type PlayerService interface {
	CreatePlayer(ctx context.Context, input PlayerInput) (*models.Player, error)
	GetPlayerByID(ctx context.Context, id int) (*models.Player, error)
	ListPlayers(ctx context.Context, limit, offset int) ([]models.Player, error)
	UpdatePlayer(ctx context.Context, id int, input PlayerInput) (*models.Player, error)
	// DeletePlayer удаляет игрока вместе с его предпочтениями. Игрок,
	// владеющий наградами, не удаляется.
	DeletePlayer(ctx context.Context, id int) error
}

type PlayerInput struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	ExternalID string `json:"external_id"`
	Rating     *int   `json:"rating"`
}

type playerService struct {
	db             *sql.DB
	playerRepo     repositories.PlayerRepository
	preferenceRepo repositories.PreferenceRepository
	logger         *slog.Logger
}

func NewPlayerService(
	db *sql.DB,
	playerRepo repositories.PlayerRepository,
	preferenceRepo repositories.PreferenceRepository,
	logger *slog.Logger,
) PlayerService {
	return &playerService{
		db:             db,
		playerRepo:     playerRepo,
		preferenceRepo: preferenceRepo,
		logger:         logger,
	}
}

func (s *playerService) validate(input PlayerInput) error {
	switch {
	case strings.TrimSpace(input.FullName) == "":
		return ErrPlayerNameRequired
	case strings.TrimSpace(input.Email) == "":
		return ErrPlayerEmailRequired
	case strings.TrimSpace(input.ExternalID) == "":
		return ErrPlayerExternalIDRequired
	}
	return nil
}

func mapPlayerRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrPlayerNotFound):
		return ErrPlayerNotFound
	case errors.Is(err, repositories.ErrPlayerEmailConflict):
		return ErrPlayerEmailConflict
	case errors.Is(err, repositories.ErrPlayerExternalIDConflict):
		return ErrPlayerExternalIDConflict
	case errors.Is(err, repositories.ErrPlayerInUse):
		return ErrPlayerInUse
	default:
		return err
	}
}

func (s *playerService) CreatePlayer(ctx context.Context, input PlayerInput) (*models.Player, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	player := &models.Player{
		FullName:   strings.TrimSpace(input.FullName),
		Email:      strings.TrimSpace(input.Email),
		ExternalID: strings.TrimSpace(input.ExternalID),
		Rating:     input.Rating,
	}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		return nil, mapPlayerRepoError(err)
	}
	return player, nil
}

func (s *playerService) GetPlayerByID(ctx context.Context, id int) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapPlayerRepoError(err)
	}
	return player, nil
}

func (s *playerService) ListPlayers(ctx context.Context, limit, offset int) ([]models.Player, error) {
	players, err := s.playerRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

func (s *playerService) UpdatePlayer(ctx context.Context, id int, input PlayerInput) (*models.Player, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	player := &models.Player{
		ID:         id,
		FullName:   strings.TrimSpace(input.FullName),
		Email:      strings.TrimSpace(input.Email),
		ExternalID: strings.TrimSpace(input.ExternalID),
		Rating:     input.Rating,
	}
	if err := s.playerRepo.Update(ctx, player); err != nil {
		return nil, mapPlayerRepoError(err)
	}
	return player, nil
}

func (s *playerService) DeletePlayer(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = s.preferenceRepo.DeleteByPlayer(ctx, tx, id)
	if err == nil {
		err = s.playerRepo.Delete(ctx, tx, id)
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", slog.Any("error", rbErr), slog.Any("cause", err))
		}
		return mapPlayerRepoError(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
