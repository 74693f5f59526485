package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/openbaduk/award-system/models"
	"github.com/openbaduk/award-system/repositories"
	"github.com/openbaduk/award-system/storage"
)

type PrizeService interface {
	// CreatePrize создаёт приз и по одной единице награды на каждую штуку в
	// той же транзакции.
	CreatePrize(ctx context.Context, input CreatePrizeInput) (*models.Prize, error)
	GetPrizeByID(ctx context.Context, id int) (*models.Prize, error)
	ListPrizes(ctx context.Context) ([]models.Prize, error)
	// UpdatePrize меняет атрибуты приза и выравнивает число свободных
	// единиц под новое количество. Назначенные единицы не трогаются.
	UpdatePrize(ctx context.Context, id int, input UpdatePrizeInput) (*models.Prize, error)
	DeletePrize(ctx context.Context, id int) error
	UploadPhoto(ctx context.Context, prizeID int, contentType string, photo io.Reader) (*models.Prize, error)
}

type CreatePrizeInput struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Value       float64  `json:"value"`
	Quantity    int      `json:"quantity"`
	RedeemCodes []string `json:"redeem_codes"`
}

type UpdatePrizeInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Value       float64 `json:"value"`
	Quantity    int     `json:"quantity"`
}

type prizeService struct {
	db        *sql.DB
	prizeRepo repositories.PrizeRepository
	awardRepo repositories.AwardRepository
	uploader  storage.FileUploader
	logger    *slog.Logger
}

func NewPrizeService(
	db *sql.DB,
	prizeRepo repositories.PrizeRepository,
	awardRepo repositories.AwardRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) PrizeService {
	return &prizeService{
		db:        db,
		prizeRepo: prizeRepo,
		awardRepo: awardRepo,
		uploader:  uploader,
		logger:    logger,
	}
}

func (s *prizeService) validate(title string, value float64, quantity int) error {
	if strings.TrimSpace(title) == "" {
		return ErrPrizeTitleRequired
	}
	if value < 0 {
		return ErrPrizeInvalidValue
	}
	if quantity <= 0 {
		return ErrPrizeInvalidQuantity
	}
	return nil
}

func (s *prizeService) runInTx(ctx context.Context, fn func(tx *sql.Tx) error) (txErr error) {
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

func (s *prizeService) CreatePrize(ctx context.Context, input CreatePrizeInput) (*models.Prize, error) {
	if err := s.validate(input.Title, input.Value, input.Quantity); err != nil {
		return nil, err
	}

	prize := &models.Prize{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Value:       input.Value,
		Quantity:    input.Quantity,
	}

	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		if err := s.prizeRepo.Create(ctx, tx, prize); err != nil {
			return fmt.Errorf("failed to create prize: %w", err)
		}

		units := make([]*models.Award, 0, prize.Quantity)
		for i := 0; i < prize.Quantity; i++ {
			unit := &models.Award{
				PrizeID: prize.ID,
				Value:   prize.Value,
			}
			if i < len(input.RedeemCodes) && input.RedeemCodes[i] != "" {
				code := input.RedeemCodes[i]
				unit.RedeemCode = &code
			}
			units = append(units, unit)
		}
		return s.awardRepo.CreateBatch(ctx, tx, units)
	})
	if err != nil {
		return nil, err
	}
	return prize, nil
}

func (s *prizeService) GetPrizeByID(ctx context.Context, id int) (*models.Prize, error) {
	prize, err := s.prizeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPrizeNotFound) {
			return nil, ErrPrizeNotFound
		}
		return nil, fmt.Errorf("failed to get prize by id %d: %w", id, err)
	}
	s.fillPhotoURL(prize)
	return prize, nil
}

func (s *prizeService) ListPrizes(ctx context.Context) ([]models.Prize, error) {
	prizes, err := s.prizeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list prizes: %w", err)
	}
	for i := range prizes {
		s.fillPhotoURL(&prizes[i])
	}
	return prizes, nil
}

func (s *prizeService) UpdatePrize(ctx context.Context, id int, input UpdatePrizeInput) (*models.Prize, error) {
	if err := s.validate(input.Title, input.Value, input.Quantity); err != nil {
		return nil, err
	}

	var prize *models.Prize

	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		current, err := s.prizeRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrPrizeNotFound) {
				return ErrPrizeNotFound
			}
			return err
		}

		assigned, err := s.prizeRepo.CountAssignedAwards(ctx, tx, id)
		if err != nil {
			return err
		}
		if input.Quantity < assigned {
			return ErrPrizeInUse
		}

		current.Title = strings.TrimSpace(input.Title)
		current.Description = input.Description
		current.Value = input.Value

		switch {
		case input.Quantity > current.Quantity:
			extra := make([]*models.Award, 0, input.Quantity-current.Quantity)
			for i := current.Quantity; i < input.Quantity; i++ {
				extra = append(extra, &models.Award{PrizeID: id, Value: input.Value})
			}
			if err := s.awardRepo.CreateBatch(ctx, tx, extra); err != nil {
				return err
			}
		case input.Quantity < current.Quantity:
			toRemove := current.Quantity - input.Quantity
			removed, err := s.awardRepo.DeleteUnassignedByPrize(ctx, tx, id, toRemove)
			if err != nil {
				return err
			}
			if removed < toRemove {
				return ErrPrizeInUse
			}
		}

		current.Quantity = input.Quantity
		if err := s.prizeRepo.Update(ctx, tx, current); err != nil {
			if errors.Is(err, repositories.ErrPrizeNotFound) {
				return ErrPrizeNotFound
			}
			return err
		}
		prize = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fillPhotoURL(prize)
	return prize, nil
}

func (s *prizeService) DeletePrize(ctx context.Context, id int) error {
	var photoKey *string

	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		prize, err := s.prizeRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrPrizeNotFound) {
				return ErrPrizeNotFound
			}
			return err
		}
		photoKey = prize.PhotoKey

		assigned, err := s.prizeRepo.CountAssignedAwards(ctx, tx, id)
		if err != nil {
			return err
		}
		if assigned > 0 {
			return ErrPrizeInUse
		}

		if _, err := s.awardRepo.DeleteUnassignedByPrize(ctx, tx, id, prize.Quantity); err != nil {
			return err
		}
		if err := s.prizeRepo.Delete(ctx, tx, id); err != nil {
			switch {
			case errors.Is(err, repositories.ErrPrizeNotFound):
				return ErrPrizeNotFound
			case errors.Is(err, repositories.ErrPrizeInUse):
				return ErrPrizeInUse
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if photoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *photoKey); err != nil {
			s.logger.Warn("failed to delete prize photo", slog.String("key", *photoKey), slog.Any("error", err))
		}
	}
	return nil
}

func (s *prizeService) UploadPhoto(ctx context.Context, prizeID int, contentType string, photo io.Reader) (*models.Prize, error) {
	if s.uploader == nil {
		return nil, errors.New("photo storage is not configured")
	}

	prize, err := s.prizeRepo.GetByID(ctx, prizeID)
	if err != nil {
		if errors.Is(err, repositories.ErrPrizeNotFound) {
			return nil, ErrPrizeNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("prizes/%d/photo", prizeID)
	uploaded, err := s.uploader.Upload(ctx, key, contentType, photo)
	if err != nil {
		return nil, fmt.Errorf("failed to upload prize photo: %w", err)
	}

	if err := s.prizeRepo.UpdatePhotoKey(ctx, prizeID, &uploaded.Key); err != nil {
		return nil, err
	}
	prize.PhotoKey = &uploaded.Key
	s.fillPhotoURL(prize)
	return prize, nil
}

func (s *prizeService) fillPhotoURL(prize *models.Prize) {
	if prize == nil || prize.PhotoKey == nil || s.uploader == nil {
		return
	}
	url := s.uploader.GetPublicURL(*prize.PhotoKey)
	if url != "" {
		prize.PhotoURL = &url
	}
}
