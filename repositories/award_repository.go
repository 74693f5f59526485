package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/openbaduk/award-system/models"
)

var (
	ErrAwardNotFound     = errors.New("award not found")
	ErrAwardInvalidPrize = errors.New("invalid prize reference")
	ErrAwardInvalidOwner = errors.New("invalid owner player reference")
	ErrAwardAlreadyOwned = errors.New("award already has an owner")
	ErrAwardReferenced   = errors.New("award is referenced and cannot be deleted")
	ErrNoAwardAvailable  = errors.New("no award available")
)

// BestAvailableAward is the outcome of the two-phase best-available lookup:
// the award itself, its prize title for snapshots, and whether it came from
// the player's preference list.
type BestAvailableAward struct {
	Award           models.Award
	PrizeTitle      string
	FromPreference  bool
	PreferenceOrder *int
}

type AwardRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Award, error)
	ListByPrize(ctx context.Context, prizeID int) ([]models.Award, error)
	CreateBatch(ctx context.Context, exec SQLExecutor, awards []*models.Award) error
	DeleteUnassignedByPrize(ctx context.Context, exec SQLExecutor, prizeID int, limit int) (int, error)
	AssignOwner(ctx context.Context, exec SQLExecutor, awardID int, ownerPlayerID *int) error
	AssignOwnerIfAvailable(ctx context.Context, exec SQLExecutor, awardID int, ownerPlayerID int) error
	GetBestAvailableForPlayer(ctx context.Context, exec SQLExecutor, playerID int, excludedAwardIDs []int) (*BestAvailableAward, error)
	CountAll(ctx context.Context) (int, error)
	CountAssigned(ctx context.Context) (int, error)
}

type postgresAwardRepository struct {
	db *sql.DB
}

func NewPostgresAwardRepository(db *sql.DB) AwardRepository {
	return &postgresAwardRepository{db: db}
}

func (r *postgresAwardRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAwardRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Award, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, prize_id, owner_player_id, redeem_code, value, created_at, updated_at
		FROM awards
		WHERE id = $1`

	a := &models.Award{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.PrizeID, &a.OwnerPlayerID, &a.RedeemCode, &a.Value, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAwardNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *postgresAwardRepository) ListByPrize(ctx context.Context, prizeID int) ([]models.Award, error) {
	query := `
		SELECT id, prize_id, owner_player_id, redeem_code, value, created_at, updated_at
		FROM awards
		WHERE prize_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, prizeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	awards := make([]models.Award, 0)
	for rows.Next() {
		var a models.Award
		if scanErr := rows.Scan(
			&a.ID, &a.PrizeID, &a.OwnerPlayerID, &a.RedeemCode, &a.Value, &a.CreatedAt, &a.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		awards = append(awards, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return awards, nil
}

func (r *postgresAwardRepository) CreateBatch(ctx context.Context, exec SQLExecutor, awards []*models.Award) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO awards (prize_id, redeem_code, value)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	for _, a := range awards {
		err := executor.QueryRowContext(ctx, query, a.PrizeID, a.RedeemCode, a.Value).
			Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return r.handleAwardError(err)
		}
	}
	return nil
}

// DeleteUnassignedByPrize removes up to limit free units of the prize and
// returns how many rows were actually deleted. Assigned units are never
// touched.
func (r *postgresAwardRepository) DeleteUnassignedByPrize(ctx context.Context, exec SQLExecutor, prizeID int, limit int) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		DELETE FROM awards
		WHERE id IN (
			SELECT id FROM awards
			WHERE prize_id = $1 AND owner_player_id IS NULL
			ORDER BY id DESC
			LIMIT $2
		)`

	result, err := executor.ExecContext(ctx, query, prizeID, limit)
	if err != nil {
		return 0, r.handleAwardError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(affected), nil
}

func (r *postgresAwardRepository) AssignOwner(ctx context.Context, exec SQLExecutor, awardID int, ownerPlayerID *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE awards SET owner_player_id = $1, updated_at = now() WHERE id = $2`

	result, err := executor.ExecContext(ctx, query, ownerPlayerID, awardID)
	if err != nil {
		return r.handleAwardError(err)
	}
	return checkAffectedRows(result, ErrAwardNotFound)
}

// AssignOwnerIfAvailable sets the owner only when the unit is currently free.
// Zero affected rows mean the award either does not exist or is already
// owned; the follow-up read tells the two apart.
func (r *postgresAwardRepository) AssignOwnerIfAvailable(ctx context.Context, exec SQLExecutor, awardID int, ownerPlayerID int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE awards SET owner_player_id = $1, updated_at = now()
		WHERE id = $2 AND owner_player_id IS NULL`

	result, err := executor.ExecContext(ctx, query, ownerPlayerID, awardID)
	if err != nil {
		return r.handleAwardError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, exec, awardID); err != nil {
			return err
		}
		return ErrAwardAlreadyOwned
	}
	return nil
}

// GetBestAvailableForPlayer implements the two-phase lookup: first the most
// preferred still-available award from the player's preference list, then the
// most valuable available award as a fallback. Both phases skip awards in
// excludedAwardIDs (already handed out earlier in the same recommendation
// pass). Returns ErrNoAwardAvailable when both phases come up empty.
func (r *postgresAwardRepository) GetBestAvailableForPlayer(ctx context.Context, exec SQLExecutor, playerID int, excludedAwardIDs []int) (*BestAvailableAward, error) {
	executor := r.getExecutor(exec)
	excluded := pq.Array(excludedAwardIDs)

	preferredQuery := `
		SELECT a.id, a.prize_id, a.owner_player_id, a.redeem_code, a.value, a.created_at, a.updated_at,
		       p.title, ap.preference_order
		FROM award_preferences ap
		JOIN awards a ON a.id = ap.award_id
		JOIN prizes p ON p.id = a.prize_id
		WHERE ap.player_id = $1
		  AND a.owner_player_id IS NULL
		  AND a.id <> ALL ($2)
		ORDER BY ap.preference_order
		LIMIT 1`

	best := &BestAvailableAward{}
	var prefOrder int
	err := executor.QueryRowContext(ctx, preferredQuery, playerID, excluded).Scan(
		&best.Award.ID, &best.Award.PrizeID, &best.Award.OwnerPlayerID, &best.Award.RedeemCode,
		&best.Award.Value, &best.Award.CreatedAt, &best.Award.UpdatedAt,
		&best.PrizeTitle, &prefOrder,
	)
	if err == nil {
		best.FromPreference = true
		best.PreferenceOrder = &prefOrder
		return best, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	fallbackQuery := `
		SELECT a.id, a.prize_id, a.owner_player_id, a.redeem_code, a.value, a.created_at, a.updated_at,
		       p.title
		FROM awards a
		JOIN prizes p ON p.id = a.prize_id
		WHERE a.owner_player_id IS NULL
		  AND a.id <> ALL ($1)
		ORDER BY a.value DESC, a.id
		LIMIT 1`

	err = executor.QueryRowContext(ctx, fallbackQuery, excluded).Scan(
		&best.Award.ID, &best.Award.PrizeID, &best.Award.OwnerPlayerID, &best.Award.RedeemCode,
		&best.Award.Value, &best.Award.CreatedAt, &best.Award.UpdatedAt,
		&best.PrizeTitle,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoAwardAvailable
		}
		return nil, err
	}
	return best, nil
}

func (r *postgresAwardRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM awards`).Scan(&count)
	return count, err
}

func (r *postgresAwardRepository) CountAssigned(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM awards WHERE owner_player_id IS NOT NULL`).Scan(&count)
	return count, err
}

func (r *postgresAwardRepository) handleAwardError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "awards_prize_id_fkey":
				return ErrAwardInvalidPrize
			case "awards_owner_player_id_fkey":
				return ErrAwardInvalidOwner
			default:
				return ErrAwardReferenced
			}
		}
	}
	return err
}
