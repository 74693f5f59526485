package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/openbaduk/award-system/models"
)

var (
	ErrPrizeNotFound = errors.New("prize not found")
	ErrPrizeInUse    = errors.New("prize has assigned or referenced awards")
)

type PrizeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, prize *models.Prize) error
	GetByID(ctx context.Context, id int) (*models.Prize, error)
	List(ctx context.Context) ([]models.Prize, error)
	Update(ctx context.Context, exec SQLExecutor, prize *models.Prize) error
	UpdatePhotoKey(ctx context.Context, prizeID int, photoKey *string) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	CountAssignedAwards(ctx context.Context, exec SQLExecutor, prizeID int) (int, error)
	Count(ctx context.Context) (int, error)
}

type postgresPrizeRepository struct {
	db *sql.DB
}

func NewPostgresPrizeRepository(db *sql.DB) PrizeRepository {
	return &postgresPrizeRepository{db: db}
}

func (r *postgresPrizeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPrizeRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Prize) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO prizes (title, description, value, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, p.Title, p.Description, p.Value, p.Quantity).
		Scan(&p.ID, &p.CreatedAt)
	return err
}

func (r *postgresPrizeRepository) GetByID(ctx context.Context, id int) (*models.Prize, error) {
	query := `
		SELECT id, title, description, value, quantity, photo_key, created_at
		FROM prizes
		WHERE id = $1`

	p := &models.Prize{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.Value, &p.Quantity, &p.PhotoKey, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPrizeNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresPrizeRepository) List(ctx context.Context) ([]models.Prize, error) {
	query := `
		SELECT id, title, description, value, quantity, photo_key, created_at
		FROM prizes
		ORDER BY value DESC, title`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prizes := make([]models.Prize, 0)
	for rows.Next() {
		var p models.Prize
		if scanErr := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Value, &p.Quantity, &p.PhotoKey, &p.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		prizes = append(prizes, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return prizes, nil
}

func (r *postgresPrizeRepository) Update(ctx context.Context, exec SQLExecutor, p *models.Prize) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE prizes SET
			title = $1,
			description = $2,
			value = $3,
			quantity = $4
		WHERE id = $5`

	result, err := executor.ExecContext(ctx, query, p.Title, p.Description, p.Value, p.Quantity, p.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPrizeNotFound)
}

func (r *postgresPrizeRepository) UpdatePhotoKey(ctx context.Context, prizeID int, photoKey *string) error {
	query := `UPDATE prizes SET photo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, photoKey, prizeID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPrizeNotFound)
}

func (r *postgresPrizeRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM prizes WHERE id = $1`, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrPrizeInUse
		}
		return err
	}
	return checkAffectedRows(result, ErrPrizeNotFound)
}

func (r *postgresPrizeRepository) CountAssignedAwards(ctx context.Context, exec SQLExecutor, prizeID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT count(*) FROM awards WHERE prize_id = $1 AND owner_player_id IS NOT NULL`, prizeID).Scan(&count)
	return count, err
}

func (r *postgresPrizeRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM prizes`).Scan(&count)
	return count, err
}
