package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openbaduk/award-system/models"
	"github.com/openbaduk/award-system/repositories"
)

type ResultService interface {
	CreateResult(ctx context.Context, input CreateResultInput) (*models.Result, error)
	GetResultByID(ctx context.Context, id int) (*models.Result, error)
	ListResults(ctx context.Context, limit, offset int) ([]models.Result, error)
	// ReplaceWinners заменяет список победителей целиком (например, после
	// повторного импорта итогов). Поэлементное редактирование не
	// поддерживается намеренно.
	ReplaceWinners(ctx context.Context, id int, winners []models.Winner) (*models.Result, error)
	DeleteResult(ctx context.Context, id int) error
}

type CreateResultInput struct {
	EventID int             `json:"event_id"`
	Winners []models.Winner `json:"winners"`
}

type resultService struct {
	resultRepo repositories.ResultRepository
	eventRepo  repositories.EventRepository
}

func NewResultService(resultRepo repositories.ResultRepository, eventRepo repositories.EventRepository) ResultService {
	return &resultService{
		resultRepo: resultRepo,
		eventRepo:  eventRepo,
	}
}

func validateWinners(winners []models.Winner) error {
	for _, w := range winners {
		if strings.TrimSpace(w.Division) == "" || strings.TrimSpace(w.ExternalPlayerID) == "" || w.Place <= 0 {
			return ErrWinnerInvalid
		}
	}
	return nil
}

func (s *resultService) CreateResult(ctx context.Context, input CreateResultInput) (*models.Result, error) {
	if err := validateWinners(input.Winners); err != nil {
		return nil, err
	}

	if _, err := s.eventRepo.GetByID(ctx, nil, input.EventID); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	result := &models.Result{
		EventID: input.EventID,
		Winners: input.Winners,
		Awards:  models.ResultAwardList{},
	}
	if result.Winners == nil {
		result.Winners = models.WinnerList{}
	}

	if err := s.resultRepo.Create(ctx, result); err != nil {
		switch {
		case errors.Is(err, repositories.ErrResultEventConflict):
			return nil, ErrResultEventConflict
		case errors.Is(err, repositories.ErrResultInvalidEvent):
			return nil, ErrEventNotFound
		default:
			return nil, fmt.Errorf("failed to create result: %w", err)
		}
	}
	return result, nil
}

func (s *resultService) GetResultByID(ctx context.Context, id int) (*models.Result, error) {
	result, err := s.resultRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrResultNotFound) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result by id %d: %w", id, err)
	}
	return result, nil
}

func (s *resultService) ListResults(ctx context.Context, limit, offset int) ([]models.Result, error) {
	results, err := s.resultRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}

func (s *resultService) ReplaceWinners(ctx context.Context, id int, winners []models.Winner) (*models.Result, error) {
	if err := validateWinners(winners); err != nil {
		return nil, err
	}

	result, err := s.resultRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrResultNotFound) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	// Список победителей финализированного результата менять нельзя:
	// снимок наград перестал бы соответствовать победителям.
	if result.AllocationState() == models.AllocationStateFinalized {
		return nil, ErrAllocationFinalized
	}

	newWinners := models.WinnerList(winners)
	if newWinners == nil {
		newWinners = models.WinnerList{}
	}
	if err := s.resultRepo.UpdateWinners(ctx, nil, id, newWinners); err != nil {
		return nil, err
	}
	result.Winners = newWinners
	return result, nil
}

func (s *resultService) DeleteResult(ctx context.Context, id int) error {
	result, err := s.resultRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrResultNotFound) {
			return ErrResultNotFound
		}
		return err
	}
	// Удалять можно только результат без следов распределения: скрытая
	// строка с меткой блокировки навсегда заняла бы one_active_allocation.
	switch result.AllocationState() {
	case models.AllocationStateFinalized:
		return ErrResultFinalizedDelete
	case models.AllocationStateLocked:
		return ErrResultLockedDelete
	}

	if err := s.resultRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrResultNotFound) {
			return ErrResultNotFound
		}
		return err
	}
	return nil
}
