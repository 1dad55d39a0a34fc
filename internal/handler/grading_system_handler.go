package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/middleware"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/service"
	"github.com/noah-isme/gema-school-api/internal/utils"
)

// GradingSystemHandler exposes grading system configuration endpoints.
type GradingSystemHandler struct {
	service service.GradingSystemService
	logger  zerolog.Logger
}

// NewGradingSystemHandler constructs the handler.
func NewGradingSystemHandler(service service.GradingSystemService, logger zerolog.Logger) *GradingSystemHandler {
	return &GradingSystemHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_system_handler").Logger(),
	}
}

// Register attaches grading system routes. Reads and grade lookups are open
// to staff; changes require an administrator.
func (h *GradingSystemHandler) Register(router fiber.Router) {
	staff := middleware.RequireRole(models.StaffRoles...)
	admin := middleware.RequireRole(models.AdminRoles...)

	router.Get("", staff, h.list)
	router.Post("", admin, h.create)
	router.Post("/builtin/resolve", staff, h.resolveBuiltin)
	router.Get("/:id", staff, h.get)
	router.Put("/:id", admin, h.update)
	router.Delete("/:id", admin, h.delete)
	router.Post("/:id/default", admin, h.setDefault)
	router.Post("/:id/resolve", staff, h.resolve)
}

func (h *GradingSystemHandler) list(c *fiber.Ctx) error {
	actor := activityActorFromContext(c)
	schoolID, err := parseQueryUint(c, "school_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid school id")
	}
	if schoolID == 0 {
		schoolID = actor.SchoolID
	}
	if schoolID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "school_id is required")
	}

	systems, err := h.service.List(c.UserContext(), actor, schoolID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list grading systems")
	}
	return utils.SendSuccess(c, "grading systems", systems)
}

func (h *GradingSystemHandler) create(c *fiber.Ctx) error {
	var payload dto.GradingSystemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	if payload.SchoolID == 0 {
		payload.SchoolID = actor.SchoolID
	}

	system, err := h.service.Create(c.UserContext(), actor, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to create grading system")
	}
	return utils.Created(c, "grading system created", system)
}

func (h *GradingSystemHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	system, err := h.service.Get(c.UserContext(), activityActorFromContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load grading system")
	}
	return utils.SendSuccess(c, "grading system", system)
}

func (h *GradingSystemHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.GradingSystemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	if payload.SchoolID == 0 {
		payload.SchoolID = actor.SchoolID
	}

	system, err := h.service.Update(c.UserContext(), actor, id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update grading system")
	}
	return utils.SendSuccess(c, "grading system updated", system)
}

func (h *GradingSystemHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.UserContext(), activityActorFromContext(c), id); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete grading system")
	}
	return utils.SendSuccess(c, "grading system deleted", nil)
}

func (h *GradingSystemHandler) setDefault(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	system, err := h.service.SetDefault(c.UserContext(), activityActorFromContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to set default grading system")
	}
	return utils.SendSuccess(c, "default grading system updated", system)
}

func (h *GradingSystemHandler) resolve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	return h.resolveWith(c, id)
}

func (h *GradingSystemHandler) resolveBuiltin(c *fiber.Ctx) error {
	return h.resolveWith(c, 0)
}

func (h *GradingSystemHandler) resolveWith(c *fiber.Ctx, id uint) error {
	var payload dto.GradeResolveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Resolve(c.UserContext(), activityActorFromContext(c), id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to resolve grade")
	}
	return utils.SendSuccess(c, "grade resolved", result)
}
