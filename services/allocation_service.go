package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openbaduk/award-system/models"
	"github.com/openbaduk/award-system/repositories"
)

// Типы событий, которые сервис публикует в live-фид результата.
const (
	EventAllocationLocked    = "ALLOCATION_LOCKED"
	EventAllocationFinalized = "ALLOCATION_FINALIZED"
	EventAllocationCleared   = "ALLOCATION_CLEARED"
)

// AllocationNotifier получает уведомления об изменениях состояния
// распределения (реализуется websocket-хабом).
type AllocationNotifier interface {
	NotifyResult(resultID int, eventType string, payload interface{})
}

// AllocationProposal — ответ операций распределения: предложенные (ещё не
// зафиксированные) назначения и логическое состояние результата.
type AllocationProposal struct {
	Recommendations models.ResultAwardList `json:"recommendations"`
	Locked          bool                   `json:"locked"`
	Finalized       bool                   `json:"finalized"`
}

type AllocationService interface {
	// GetRecommendations захватывает глобальную блокировку распределения для
	// результата и строит предложение победитель→награда. Ничего не
	// назначает: предложение живёт на клиенте до финализации.
	GetRecommendations(ctx context.Context, resultID int) (*AllocationProposal, error)
	// Finalize фиксирует присланный оператором список назначений:
	// снимает прежние назначения, назначает награды игрокам, перезаписывает
	// снимок на результате и ставит метку финализации. Всё в одной транзакции.
	Finalize(ctx context.Context, resultID int, awards []models.ResultAward) (*models.Result, error)
	// Deallocate полностью откатывает распределение результата: освобождает
	// награды, очищает снимок и обе метки времени. Идемпотентна.
	Deallocate(ctx context.Context, resultID int) (*AllocationProposal, error)
}

type allocationService struct {
	db         *sql.DB
	resultRepo repositories.ResultRepository
	awardRepo  repositories.AwardRepository
	playerRepo repositories.PlayerRepository
	eventRepo  repositories.EventRepository
	notifier   AllocationNotifier
	logger     *slog.Logger
}

func NewAllocationService(
	db *sql.DB,
	resultRepo repositories.ResultRepository,
	awardRepo repositories.AwardRepository,
	playerRepo repositories.PlayerRepository,
	eventRepo repositories.EventRepository,
	notifier AllocationNotifier,
	logger *slog.Logger,
) AllocationService {
	return &allocationService{
		db:         db,
		resultRepo: resultRepo,
		awardRepo:  awardRepo,
		playerRepo: playerRepo,
		eventRepo:  eventRepo,
		notifier:   notifier,
		logger:     logger,
	}
}

// runInTx выполняет fn в одной транзакции: откат при ошибке или панике,
// коммит при успехе.
func (s *allocationService) runInTx(ctx context.Context, fn func(tx *sql.Tx) error) (txErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", slog.Any("error", rbErr), slog.Any("cause", txErr))
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()
	txErr = fn(tx)
	return txErr
}

func (s *allocationService) GetRecommendations(ctx context.Context, resultID int) (*AllocationProposal, error) {
	var proposal *AllocationProposal

	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		result, err := s.resultRepo.GetByIDForUpdate(ctx, tx, resultID)
		if err != nil {
			if errors.Is(err, repositories.ErrResultNotFound) {
				return ErrResultNotFound
			}
			return err
		}

		if result.AllocationState() == models.AllocationStateFinalized {
			return ErrAllocationFinalized
		}

		// Проверка и захват блокировки идут в одной транзакции; частичный
		// уникальный индекс one_active_allocation закрывает окно между ними.
		busy, err := s.resultRepo.HasActiveAllocationElsewhere(ctx, tx, resultID)
		if err != nil {
			return err
		}
		if busy {
			return ErrAllocationInProgress
		}

		now := time.Now().UTC()
		if err := s.resultRepo.SetAllocationLock(ctx, tx, resultID, &now); err != nil {
			if errors.Is(err, repositories.ErrAllocationConflict) {
				return ErrAllocationInProgress
			}
			return err
		}

		event, err := s.eventRepo.GetByID(ctx, tx, result.EventID)
		if err != nil {
			if errors.Is(err, repositories.ErrEventNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		recommendations, err := s.recommend(ctx, tx, result, event)
		if err != nil {
			return err
		}

		proposal = &AllocationProposal{
			Recommendations: recommendations,
			Locked:          true,
			Finalized:       false,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(resultID, EventAllocationLocked, proposal)
	return proposal, nil
}

// recommend строит предложение жадным проходом по победителям в объявленном
// порядке: каждый следующий победитель выбирает из пула без наград, уже
// предложенных ранее в этом же проходе. Неизвестный игрок прерывает весь
// проход; нехватка наград — нет (победитель просто пропускается).
func (s *allocationService) recommend(ctx context.Context, tx *sql.Tx, result *models.Result, event *models.Event) (models.ResultAwardList, error) {
	recommendations := make(models.ResultAwardList, 0, len(result.Winners))
	taken := make([]int, 0, len(result.Winners))

	for _, winner := range result.Winners {
		player, err := s.playerRepo.GetByExternalID(ctx, tx, winner.ExternalPlayerID)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return nil, fmt.Errorf("%w: external id %q", ErrWinnerPlayerUnknown, winner.ExternalPlayerID)
			}
			return nil, err
		}

		best, err := s.awardRepo.GetBestAvailableForPlayer(ctx, tx, player.ID, taken)
		if err != nil {
			if errors.Is(err, repositories.ErrNoAwardAvailable) {
				s.logger.Warn("no award left for winner",
					slog.Int("result_id", result.ID),
					slog.String("external_id", winner.ExternalPlayerID),
					slog.String("division", winner.Division),
					slog.Int("place", winner.Place),
				)
				continue
			}
			return nil, err
		}

		kind := models.AllocationKindDefault
		if best.FromPreference {
			kind = models.AllocationKindPreference
		}

		recommendations = append(recommendations, models.ResultAward{
			PlayerID:             player.ID,
			PlayerName:           player.FullName,
			PlayerExternalID:     player.ExternalID,
			Place:                winner.Place,
			Division:             winner.Division,
			PrizeTitle:           best.PrizeTitle,
			AwardID:              best.Award.ID,
			AwardValue:           best.Award.Value,
			AwardRedeemCode:      best.Award.RedeemCode,
			UserEmail:            player.Email,
			AwardAt:              time.Now().UTC(),
			EventTitle:           event.Title,
			AwardPreferenceOrder: best.PreferenceOrder,
			Kind:                 kind,
		})
		taken = append(taken, best.Award.ID)
	}

	return recommendations, nil
}

func (s *allocationService) Finalize(ctx context.Context, resultID int, awards []models.ResultAward) (*models.Result, error) {
	// Записи, у которых оператор явно очистил награду, отбрасываются до
	// каких-либо изменений. Одна награда не может встретиться дважды.
	submitted := make(models.ResultAwardList, 0, len(awards))
	seen := make(map[int]struct{}, len(awards))
	for _, entry := range awards {
		if entry.AwardID == 0 {
			continue
		}
		if _, dup := seen[entry.AwardID]; dup {
			return nil, fmt.Errorf("%w: award %d", ErrDuplicateAwardSubmitted, entry.AwardID)
		}
		seen[entry.AwardID] = struct{}{}
		if entry.Kind == "" {
			entry.Kind = models.AllocationKindOverride
		}
		submitted = append(submitted, entry)
	}
	if len(submitted) == 0 {
		return nil, ErrNoAwardsSubmitted
	}

	var updated *models.Result

	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		result, err := s.resultRepo.GetByIDForUpdate(ctx, tx, resultID)
		if err != nil {
			if errors.Is(err, repositories.ErrResultNotFound) {
				return ErrResultNotFound
			}
			return err
		}

		switch result.AllocationState() {
		case models.AllocationStateInitial:
			return ErrAllocationNotLocked
		case models.AllocationStateFinalized:
			return ErrAllocationFinalized
		}

		// Прежний набор (если был) освобождается перед новым назначением.
		for _, prev := range result.Awards {
			if err := s.awardRepo.AssignOwner(ctx, tx, prev.AwardID, nil); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		for i := range submitted {
			if submitted[i].AwardAt.IsZero() {
				submitted[i].AwardAt = now
			}
			// Назначение только на свободную единицу: награда, уже
			// принадлежащая другому результату, не перехватывается.
			err := s.awardRepo.AssignOwnerIfAvailable(ctx, tx, submitted[i].AwardID, submitted[i].PlayerID)
			if err != nil {
				switch {
				case errors.Is(err, repositories.ErrAwardNotFound):
					return fmt.Errorf("%w: award %d", ErrUnknownAwardSubmitted, submitted[i].AwardID)
				case errors.Is(err, repositories.ErrAwardAlreadyOwned):
					return fmt.Errorf("%w: award %d", ErrAwardAlreadyAssigned, submitted[i].AwardID)
				case errors.Is(err, repositories.ErrAwardInvalidOwner):
					return fmt.Errorf("%w: player %d", ErrUnknownPlayerSubmitted, submitted[i].PlayerID)
				}
				return err
			}
		}

		if err := s.resultRepo.UpdateAwards(ctx, tx, resultID, submitted); err != nil {
			return err
		}
		if err := s.resultRepo.SetAllocationFinalized(ctx, tx, resultID, &now); err != nil {
			return err
		}

		result.Awards = submitted
		result.AllocationFinalizedAt = &now
		updated = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("allocation finalized",
		slog.Int("result_id", resultID),
		slog.Int("awards", len(updated.Awards)),
	)
	s.notify(resultID, EventAllocationFinalized, updated)
	return updated, nil
}

func (s *allocationService) Deallocate(ctx context.Context, resultID int) (*AllocationProposal, error) {
	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		result, err := s.resultRepo.GetByIDForUpdate(ctx, tx, resultID)
		if err != nil {
			if errors.Is(err, repositories.ErrResultNotFound) {
				return ErrResultNotFound
			}
			return err
		}

		for _, entry := range result.Awards {
			if err := s.awardRepo.AssignOwner(ctx, tx, entry.AwardID, nil); err != nil {
				return err
			}
		}

		if err := s.resultRepo.UpdateAwards(ctx, tx, resultID, models.ResultAwardList{}); err != nil {
			return err
		}
		if err := s.resultRepo.SetAllocationLock(ctx, tx, resultID, nil); err != nil {
			return err
		}
		return s.resultRepo.SetAllocationFinalized(ctx, tx, resultID, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("allocation cleared", slog.Int("result_id", resultID))
	s.notify(resultID, EventAllocationCleared, nil)

	return &AllocationProposal{
		Recommendations: models.ResultAwardList{},
		Locked:          false,
		Finalized:       false,
	}, nil
}

func (s *allocationService) notify(resultID int, eventType string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyResult(resultID, eventType, payload)
}
