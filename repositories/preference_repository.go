package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/openbaduk/award-system/models"
)

var (
	ErrPreferenceInvalidPlayer = errors.New("invalid player reference for preference")
	ErrPreferenceInvalidAward  = errors.New("invalid award reference for preference")
	ErrPreferenceDuplicate     = errors.New("duplicate award in preference list")
)

type PreferenceRepository interface {
	ListByPlayer(ctx context.Context, playerID int) ([]models.AwardPreference, error)
	ReplaceAll(ctx context.Context, exec SQLExecutor, playerID int, orderedAwardIDs []int) ([]models.AwardPreference, error)
	DeleteByPlayer(ctx context.Context, exec SQLExecutor, playerID int) error
}

type postgresPreferenceRepository struct {
	db *sql.DB
}

func NewPostgresPreferenceRepository(db *sql.DB) PreferenceRepository {
	return &postgresPreferenceRepository{db: db}
}

func (r *postgresPreferenceRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPreferenceRepository) ListByPlayer(ctx context.Context, playerID int) ([]models.AwardPreference, error) {
	query := `
		SELECT id, player_id, award_id, preference_order, created_at
		FROM award_preferences
		WHERE player_id = $1
		ORDER BY preference_order`

	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := make([]models.AwardPreference, 0)
	for rows.Next() {
		var p models.AwardPreference
		if scanErr := rows.Scan(&p.ID, &p.PlayerID, &p.AwardID, &p.PreferenceOrder, &p.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		prefs = append(prefs, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return prefs, nil
}

// ReplaceAll deletes every preference row of the player and inserts the new
// ordered set. Must run on a transaction executor so the replacement is
// all-or-nothing; preference_order is assigned from list position (1-based).
func (r *postgresPreferenceRepository) ReplaceAll(ctx context.Context, exec SQLExecutor, playerID int, orderedAwardIDs []int) ([]models.AwardPreference, error) {
	executor := r.getExecutor(exec)

	if _, err := executor.ExecContext(ctx, `DELETE FROM award_preferences WHERE player_id = $1`, playerID); err != nil {
		return nil, err
	}

	insertQuery := `
		INSERT INTO award_preferences (player_id, award_id, preference_order)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	prefs := make([]models.AwardPreference, 0, len(orderedAwardIDs))
	for i, awardID := range orderedAwardIDs {
		p := models.AwardPreference{
			PlayerID:        playerID,
			AwardID:         awardID,
			PreferenceOrder: i + 1,
		}
		err := executor.QueryRowContext(ctx, insertQuery, p.PlayerID, p.AwardID, p.PreferenceOrder).
			Scan(&p.ID, &p.CreatedAt)
		if err != nil {
			return nil, r.handlePreferenceError(err)
		}
		prefs = append(prefs, p)
	}
	return prefs, nil
}

func (r *postgresPreferenceRepository) DeleteByPlayer(ctx context.Context, exec SQLExecutor, playerID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM award_preferences WHERE player_id = $1`, playerID)
	return err
}

func (r *postgresPreferenceRepository) handlePreferenceError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrPreferenceDuplicate
		case "23503":
			switch pqErr.Constraint {
			case "award_preferences_player_id_fkey":
				return ErrPreferenceInvalidPlayer
			case "award_preferences_award_id_fkey":
				return ErrPreferenceInvalidAward
			}
		}
	}
	return err
}
