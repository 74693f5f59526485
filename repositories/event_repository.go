package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/openbaduk/award-system/models"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEventInUse    = errors.New("event has a result and cannot be deleted")
)

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id int) error
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEventRepository) Create(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO events (title, location, starts_at, ends_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query, e.Title, e.Location, e.StartsAt, e.EndsAt).
		Scan(&e.ID, &e.CreatedAt)
}

func (r *postgresEventRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, title, location, starts_at, ends_at, created_at
		FROM events
		WHERE id = $1`

	e := &models.Event{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Location, &e.StartsAt, &e.EndsAt, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *postgresEventRepository) List(ctx context.Context) ([]models.Event, error) {
	query := `
		SELECT id, title, location, starts_at, ends_at, created_at
		FROM events
		ORDER BY starts_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var e models.Event
		if scanErr := rows.Scan(&e.ID, &e.Title, &e.Location, &e.StartsAt, &e.EndsAt, &e.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *postgresEventRepository) Update(ctx context.Context, e *models.Event) error {
	query := `
		UPDATE events SET
			title = $1,
			location = $2,
			starts_at = $3,
			ends_at = $4
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query, e.Title, e.Location, e.StartsAt, e.EndsAt, e.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrEventInUse
		}
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}
