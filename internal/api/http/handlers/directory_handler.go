package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// DirectoryHandler exposes the category tree and agent-category routing.
type DirectoryHandler struct {
	categories repository.CategoryRepository
	users      repository.UserRepository
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(categories repository.CategoryRepository, users repository.UserRepository) *DirectoryHandler {
	return &DirectoryHandler{categories: categories, users: users}
}

// ListCategories GET /categories.
func (h *DirectoryHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.categories.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categories})
}

// AssignAgentCategory PUT /agents/:id/categories/:categoryId. Admin only.
// Re-assigning an existing pair succeeds as a no-op.
func (h *DirectoryHandler) AssignAgentCategory(c *fiber.Ctx) error {
	agentID := c.Params("id")
	categoryID := c.Params("categoryId")

	agent, err := h.users.GetByID(c.Context(), agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agent", map[string]any{"id": agentID})
		}
		return err
	}
	if agent.Role != domain.RoleAgent {
		return apperrors.NewValidationError("target is not an agent", map[string]any{"id": agentID})
	}
	if _, err := h.categories.GetByID(c.Context(), categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("category", map[string]any{"id": categoryID})
		}
		return err
	}

	if err := h.users.AssignCategory(c.Context(), agentID, categoryID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"agent_id": agentID, "category_id": categoryID}})
}
