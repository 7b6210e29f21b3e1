package dto

import (
	"time"

	"github.com/spec-kit/model-gateway/internal/domain"
)

// ModelRequest payload for create and update.
type ModelRequest struct {
	Detail string `json:"detail"`
}

// ModelListQuery captures paging parameters.
type ModelListQuery struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

// ModelResponse describes a stored model.
type ModelResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewModelResponse maps a domain model.
func NewModelResponse(m *domain.Model) ModelResponse {
	return ModelResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		Detail:    m.Detail,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// NewModelResponses maps a slice of domain models.
func NewModelResponses(models []domain.Model) []ModelResponse {
	out := make([]ModelResponse, 0, len(models))
	for i := range models {
		out = append(out, NewModelResponse(&models[i]))
	}
	return out
}
