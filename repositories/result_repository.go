package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/openbaduk/award-system/models"
)

var (
	ErrResultNotFound      = errors.New("result not found")
	ErrResultEventConflict = errors.New("result already exists for this event")
	ErrResultInvalidEvent  = errors.New("invalid event reference")
	// ErrAllocationConflict maps the one_active_allocation partial unique
	// index: another result committed a lock first.
	ErrAllocationConflict = errors.New("another result is already mid-allocation")
)

const resultColumns = `id, event_id, winners, awards, allocation_locked_at, allocation_finalized_at, created_at, updated_at, deleted_at`

type ResultRepository interface {
	Create(ctx context.Context, result *models.Result) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Result, error)
	// GetByIDForUpdate reads the result row with SELECT ... FOR UPDATE so the
	// caller's transaction holds the row lock for the rest of the operation.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Result, error)
	List(ctx context.Context, limit, offset int) ([]models.Result, error)
	// HasActiveAllocationElsewhere reports whether any other, non-deleted
	// result is locked but not finalized.
	HasActiveAllocationElsewhere(ctx context.Context, exec SQLExecutor, excludeResultID int) (bool, error)
	ActiveAllocationResultID(ctx context.Context) (*int, error)
	SetAllocationLock(ctx context.Context, exec SQLExecutor, id int, lockedAt *time.Time) error
	SetAllocationFinalized(ctx context.Context, exec SQLExecutor, id int, finalizedAt *time.Time) error
	UpdateWinners(ctx context.Context, exec SQLExecutor, id int, winners models.WinnerList) error
	UpdateAwards(ctx context.Context, exec SQLExecutor, id int, awards models.ResultAwardList) error
	SoftDelete(ctx context.Context, id int) error
	CountAll(ctx context.Context) (int, error)
	CountFinalized(ctx context.Context) (int, error)
}

type postgresResultRepository struct {
	db *sql.DB
}

func NewPostgresResultRepository(db *sql.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

func (r *postgresResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresResultRepository) Create(ctx context.Context, result *models.Result) error {
	query := `
		INSERT INTO results (event_id, winners, awards)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, result.EventID, result.Winners, result.Awards).
		Scan(&result.ID, &result.CreatedAt, &result.UpdatedAt)
	return r.handleResultError(err)
}

func (r *postgresResultRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Result, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + resultColumns + ` FROM results WHERE id = $1 AND deleted_at IS NULL`
	return r.scanResult(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresResultRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Result, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + resultColumns + ` FROM results WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	return r.scanResult(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresResultRepository) scanResult(row *sql.Row) (*models.Result, error) {
	result := &models.Result{}
	err := row.Scan(
		&result.ID, &result.EventID, &result.Winners, &result.Awards,
		&result.AllocationLockedAt, &result.AllocationFinalizedAt,
		&result.CreatedAt, &result.UpdatedAt, &result.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return result, nil
}

func (r *postgresResultRepository) List(ctx context.Context, limit, offset int) ([]models.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE deleted_at IS NULL ORDER BY created_at DESC`

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

	results := make([]models.Result, 0)
	for rows.Next() {
		var res models.Result
		if scanErr := rows.Scan(
			&res.ID, &res.EventID, &res.Winners, &res.Awards,
			&res.AllocationLockedAt, &res.AllocationFinalizedAt,
			&res.CreatedAt, &res.UpdatedAt, &res.DeletedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		results = append(results, res)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *postgresResultRepository) HasActiveAllocationElsewhere(ctx context.Context, exec SQLExecutor, excludeResultID int) (bool, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT EXISTS (
			SELECT 1 FROM results
			WHERE id <> $1
			  AND deleted_at IS NULL
			  AND allocation_locked_at IS NOT NULL
			  AND allocation_finalized_at IS NULL
		)`

	var exists bool
	if err := executor.QueryRowContext(ctx, query, excludeResultID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresResultRepository) ActiveAllocationResultID(ctx context.Context) (*int, error) {
	query := `
		SELECT id FROM results
		WHERE deleted_at IS NULL
		  AND allocation_locked_at IS NOT NULL
		  AND allocation_finalized_at IS NULL
		LIMIT 1`

	var id int
	err := r.db.QueryRowContext(ctx, query).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

func (r *postgresResultRepository) SetAllocationLock(ctx context.Context, exec SQLExecutor, id int, lockedAt *time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE results SET allocation_locked_at = $1, updated_at = now() WHERE id = $2 AND deleted_at IS NULL`

	result, err := executor.ExecContext(ctx, query, lockedAt, id)
	if err != nil {
		return r.handleResultError(err)
	}
	return checkAffectedRows(result, ErrResultNotFound)
}

func (r *postgresResultRepository) SetAllocationFinalized(ctx context.Context, exec SQLExecutor, id int, finalizedAt *time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE results SET allocation_finalized_at = $1, updated_at = now() WHERE id = $2 AND deleted_at IS NULL`

	result, err := executor.ExecContext(ctx, query, finalizedAt, id)
	if err != nil {
		return r.handleResultError(err)
	}
	return checkAffectedRows(result, ErrResultNotFound)
}

func (r *postgresResultRepository) UpdateWinners(ctx context.Context, exec SQLExecutor, id int, winners models.WinnerList) error {
	executor := r.getExecutor(exec)
	query := `UPDATE results SET winners = $1, updated_at = now() WHERE id = $2 AND deleted_at IS NULL`

	result, err := executor.ExecContext(ctx, query, winners, id)
	if err != nil {
		return r.handleResultError(err)
	}
	return checkAffectedRows(result, ErrResultNotFound)
}

func (r *postgresResultRepository) UpdateAwards(ctx context.Context, exec SQLExecutor, id int, awards models.ResultAwardList) error {
	executor := r.getExecutor(exec)
	query := `UPDATE results SET awards = $1, updated_at = now() WHERE id = $2 AND deleted_at IS NULL`

	result, err := executor.ExecContext(ctx, query, awards, id)
	if err != nil {
		return r.handleResultError(err)
	}
	return checkAffectedRows(result, ErrResultNotFound)
}

func (r *postgresResultRepository) SoftDelete(ctx context.Context, id int) error {
	query := `UPDATE results SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrResultNotFound)
}

func (r *postgresResultRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM results WHERE deleted_at IS NULL`).Scan(&count)
	return count, err
}

func (r *postgresResultRepository) CountFinalized(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM results WHERE deleted_at IS NULL AND allocation_finalized_at IS NOT NULL`).Scan(&count)
	return count, err
}

func (r *postgresResultRepository) handleResultError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			switch pqErr.Constraint {
			case "results_event_id_key":
				return ErrResultEventConflict
			case "one_active_allocation":
				return ErrAllocationConflict
			}
		case "23503":
			if pqErr.Constraint == "results_event_id_fkey" {
				return ErrResultInvalidEvent
			}
		}
	}
	return err
}
