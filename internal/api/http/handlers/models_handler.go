package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/model-gateway/internal/api/dto"
	"github.com/spec-kit/model-gateway/internal/auth"
	"github.com/spec-kit/model-gateway/internal/domain"
	"github.com/spec-kit/model-gateway/internal/service"
	apperrors "github.com/spec-kit/model-gateway/pkg/util/errorutil"
)

// ModelsHandler exposes model CRUD scoped to the caller.
type ModelsHandler struct {
	models *service.ModelService
}

// NewModelsHandler constructs handler.
func NewModelsHandler(models *service.ModelService) *ModelsHandler {
	return &ModelsHandler{models: models}
}

// Create handles POST /models.
func (h *ModelsHandler) Create(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.ModelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	model, err := h.models.Create(c.UserContext(), identity.SubjectID, req.Detail)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewModelResponse(model)})
}

// List handles GET /models.
func (h *ModelsHandler) List(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var query dto.ModelListQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	models, err := h.models.List(c.UserContext(), identity.SubjectID, query.Page, query.PageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewModelResponses(models)})
}

// Recent handles GET /models/recent.
func (h *ModelsHandler) Recent(c *fiber.Ctx) error {
	models, err := h.models.Recent(c.UserContext(), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewModelResponses(models)})
}

// Get handles GET /models/:id.
func (h *ModelsHandler) Get(c *fiber.Ctx) error {
	identity, id, err := callerAndModelID(c)
	if err != nil {
		return err
	}
	model, err := h.models.Get(c.UserContext(), identity.SubjectID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewModelResponse(model)})
}

// Update handles PATCH /models/:id.
func (h *ModelsHandler) Update(c *fiber.Ctx) error {
	identity, id, err := callerAndModelID(c)
	if err != nil {
		return err
	}
	var req dto.ModelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	model, err := h.models.Update(c.UserContext(), identity.SubjectID, id, req.Detail)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewModelResponse(model)})
}

// Delete handles DELETE /models/:id.
func (h *ModelsHandler) Delete(c *fiber.Ctx) error {
	identity, id, err := callerAndModelID(c)
	if err != nil {
		return err
	}
	if err := h.models.Delete(c.UserContext(), identity.SubjectID, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func callerIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("unauthorized")
	}
	return identity, nil
}

func callerAndModelID(c *fiber.Ctx) (domain.Identity, int64, error) {
	identity, err := callerIdentity(c)
	if err != nil {
		return domain.Identity{}, 0, err
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return domain.Identity{}, 0, apperrors.NewValidationError("invalid model id", map[string]any{"id": c.Params("id")})
	}
	return identity, int64(id), nil
}
