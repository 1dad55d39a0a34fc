package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/service"
	"github.com/noah-isme/gema-school-api/internal/utils"
)

// AssessmentHandler handles score entry.
type AssessmentHandler struct {
	service service.AssessmentService
	logger  zerolog.Logger
}

// NewAssessmentHandler constructs the handler.
func NewAssessmentHandler(service service.AssessmentService, logger zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assessment_handler").Logger(),
	}
}

// Register wires assessment routes.
func (h *AssessmentHandler) Register(router fiber.Router) {
	router.Post("", h.record)
	router.Post("/sheet", h.recordSheet)
	router.Delete("/:id", h.delete)
}

func (h *AssessmentHandler) record(c *fiber.Ctx) error {
	var payload dto.AssessmentScoreRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assessment, err := h.service.Record(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to record assessment")
	}
	return utils.SendSuccess(c, "assessment recorded", assessment)
}

func (h *AssessmentHandler) recordSheet(c *fiber.Ctx) error {
	var payload dto.AssessmentSheetRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	sheet, err := h.service.RecordSheet(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to record score sheet")
	}
	return utils.SendSuccess(c, "score sheet recorded", sheet)
}

func (h *AssessmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.UserContext(), activityActorFromContext(c), id); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete assessment")
	}
	return utils.SendSuccess(c, "assessment deleted", nil)
}
