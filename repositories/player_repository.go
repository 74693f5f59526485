package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/openbaduk/award-system/models"
)

var (
	ErrPlayerNotFound           = errors.New("player not found")
	ErrPlayerEmailConflict      = errors.New("player email already in use")
	ErrPlayerExternalIDConflict = errors.New("player external id already in use")
	ErrPlayerInUse              = errors.New("player is referenced and cannot be deleted")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error)
	GetByExternalID(ctx context.Context, exec SQLExecutor, externalID string) (*models.Player, error)
	List(ctx context.Context, limit, offset int) ([]models.Player, error)
	Update(ctx context.Context, player *models.Player) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	Count(ctx context.Context) (int, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerRepository) Create(ctx context.Context, p *models.Player) error {
	query := `
		INSERT INTO players (full_name, email, external_id, rating)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, p.FullName, p.Email, p.ExternalID, p.Rating).
		Scan(&p.ID, &p.CreatedAt)
	return r.handlePlayerError(err)
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, full_name, email, external_id, rating, created_at
		FROM players
		WHERE id = $1`

	return r.scanPlayer(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresPlayerRepository) GetByExternalID(ctx context.Context, exec SQLExecutor, externalID string) (*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, full_name, email, external_id, rating, created_at
		FROM players
		WHERE external_id = $1`

	return r.scanPlayer(executor.QueryRowContext(ctx, query, externalID))
}

func (r *postgresPlayerRepository) scanPlayer(row *sql.Row) (*models.Player, error) {
	p := &models.Player{}
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.ExternalID, &p.Rating, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresPlayerRepository) List(ctx context.Context, limit, offset int) ([]models.Player, error) {
	query := `
		SELECT id, full_name, email, external_id, rating, created_at
		FROM players
		ORDER BY full_name`

	args := []interface{}{}
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $1`
	}
	if offset > 0 {
		if len(args) == 1 {
			query += ` OFFSET $2`
		} else {
			query += ` OFFSET $1`
		}
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		var p models.Player
		if scanErr := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.ExternalID, &p.Rating, &p.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *postgresPlayerRepository) Update(ctx context.Context, p *models.Player) error {
	query := `
		UPDATE players SET
			full_name = $1,
			email = $2,
			external_id = $3,
			rating = $4
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query, p.FullName, p.Email, p.ExternalID, p.Rating, p.ID)
	if err != nil {
		return r.handlePlayerError(err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return r.handlePlayerError(err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM players`).Scan(&count)
	return count, err
}

func (r *postgresPlayerRepository) handlePlayerError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			switch pqErr.Constraint {
			case "players_email_key":
				return ErrPlayerEmailConflict
			case "players_external_id_key":
				return ErrPlayerExternalIDConflict
			}
		case "23503":
			// Awards still owned by the player block deletion.
			return ErrPlayerInUse
		}
	}
	return err
}
