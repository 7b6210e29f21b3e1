package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/model-gateway/internal/domain"
)

// ModelRepository encapsulates model persistence. Owner-scoped calls treat a
// model owned by someone else exactly like a missing one.
type ModelRepository interface {
	Create(ctx context.Context, model *domain.Model) error
	GetForOwner(ctx context.Context, id, ownerID int64) (*domain.Model, error)
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Model, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Model, error)
	UpdateForOwner(ctx context.Context, model *domain.Model) error
	DeleteForOwner(ctx context.Context, id, ownerID int64) error
}

type modelRepository struct {
	pool *pgxpool.Pool
}

// NewModelRepository instantiates repository.
func NewModelRepository(pool *pgxpool.Pool) ModelRepository {
	return &modelRepository{pool: pool}
}

func (r *modelRepository) Create(ctx context.Context, model *domain.Model) error {
	const query = `
        INSERT INTO models (user_id, detail)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, model.UserID, model.Detail).
		Scan(&model.ID, &model.CreatedAt, &model.UpdatedAt)
}

func (r *modelRepository) GetForOwner(ctx context.Context, id, ownerID int64) (*domain.Model, error) {
	const query = `
        SELECT id, user_id, detail, created_at, updated_at
        FROM models WHERE id=$1 AND user_id=$2`

	var model domain.Model
	if err := r.pool.QueryRow(ctx, query, id, ownerID).Scan(
		&model.ID,
		&model.UserID,
		&model.Detail,
		&model.CreatedAt,
		&model.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &model, nil
}

func (r *modelRepository) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Model, error) {
	const query = `
        SELECT id, user_id, detail, created_at, updated_at
        FROM models WHERE user_id=$1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`
	return r.list(ctx, query, ownerID, limit, offset)
}

func (r *modelRepository) ListRecent(ctx context.Context, limit int) ([]domain.Model, error) {
	const query = `
        SELECT id, user_id, detail, created_at, updated_at
        FROM models
        ORDER BY created_at DESC, id DESC
        LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *modelRepository) UpdateForOwner(ctx context.Context, model *domain.Model) error {
	const query = `
        UPDATE models SET detail=$1, updated_at=NOW()
        WHERE id=$2 AND user_id=$3
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query, model.Detail, model.ID, model.UserID).
		Scan(&model.CreatedAt, &model.UpdatedAt)
}

func (r *modelRepository) DeleteForOwner(ctx context.Context, id, ownerID int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM models WHERE id=$1 AND user_id=$2`, id, ownerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *modelRepository) list(ctx context.Context, query string, args ...any) ([]domain.Model, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []domain.Model
	for rows.Next() {
		var model domain.Model
		if err := rows.Scan(
			&model.ID,
			&model.UserID,
			&model.Detail,
			&model.CreatedAt,
			&model.UpdatedAt,
		); err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	return models, rows.Err()
}
