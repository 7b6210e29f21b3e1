package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/model-gateway/internal/domain"
	"github.com/spec-kit/model-gateway/internal/repository"
	apperrors "github.com/spec-kit/model-gateway/pkg/util/errorutil"
)

const (
	defaultPageSize  = 20
	maxPageSize      = 100
	maxPage          = 10000
	maxDetailLength  = 4096
	defaultRecentCap = 50
)

// ModelService manages user-owned models.
type ModelService struct {
	models repository.ModelRepository
}

// NewModelService constructs the service.
func NewModelService(models repository.ModelRepository) *ModelService {
	return &ModelService{models: models}
}

// Create stores a model owned by ownerID.
func (s *ModelService) Create(ctx context.Context, ownerID int64, detail string) (*domain.Model, error) {
	detail, err := validateDetail(detail)
	if err != nil {
		return nil, err
	}
	model := &domain.Model{UserID: ownerID, Detail: detail}
	if err := s.models.Create(ctx, model); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return model, nil
}

// Get returns one of the owner's models.
func (s *ModelService) Get(ctx context.Context, ownerID, id int64) (*domain.Model, error) {
	model, err := s.models.GetForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, mapModelError(err, id)
	}
	return model, nil
}

// List pages through the owner's models, newest first.
func (s *ModelService) List(ctx context.Context, ownerID int64, page, pageSize int) ([]domain.Model, error) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		return nil, apperrors.NewValidationError("page out of range", map[string]any{"max_page": maxPage})
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	models, err := s.models.ListByOwner(ctx, ownerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return models, nil
}

// Recent lists the latest models across all owners.
func (s *ModelService) Recent(ctx context.Context, limit int) ([]domain.Model, error) {
	if limit <= 0 || limit > defaultRecentCap {
		limit = defaultRecentCap
	}
	models, err := s.models.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return models, nil
}

// Update replaces the detail of one of the owner's models.
func (s *ModelService) Update(ctx context.Context, ownerID, id int64, detail string) (*domain.Model, error) {
	detail, err := validateDetail(detail)
	if err != nil {
		return nil, err
	}
	model := &domain.Model{ID: id, UserID: ownerID, Detail: detail}
	if err := s.models.UpdateForOwner(ctx, model); err != nil {
		return nil, mapModelError(err, id)
	}
	return model, nil
}

// Delete removes one of the owner's models.
func (s *ModelService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.models.DeleteForOwner(ctx, id, ownerID); err != nil {
		return mapModelError(err, id)
	}
	return nil
}

func validateDetail(detail string) (string, error) {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return "", apperrors.NewValidationError("detail required", nil)
	}
	if len(detail) > maxDetailLength {
		return "", apperrors.NewValidationError("detail too long", map[string]any{"max_length": maxDetailLength})
	}
	return detail, nil
}

func mapModelError(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("model", map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}
