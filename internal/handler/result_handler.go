package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-school-api/internal/middleware"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/service"
	"github.com/noah-isme/gema-school-api/internal/utils"
)

// ResultHandler serves computed class sheets and student report cards.
type ResultHandler struct {
	service service.ResultService
	logger  zerolog.Logger
}

// NewResultHandler constructs the handler.
func NewResultHandler(service service.ResultService, logger zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		service: service,
		logger:  logger.With().Str("component", "result_handler").Logger(),
	}
}

// Register wires result routes. Parents and students reach report cards
// only; the service decides which students they may see.
func (h *ResultHandler) Register(router fiber.Router) {
	router.Get("/classes/:classId", middleware.RequireRole(models.StaffRoles...), h.classResults)
	router.Get("/students/:studentId", middleware.RequireRole(models.AllRoles...), h.studentReport)
}

func (h *ResultHandler) classResults(c *fiber.Ctx) error {
	query, err := parseResultQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	results, err := h.service.ClassResults(c.UserContext(), activityActorFromContext(c), query)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to compute class results")
	}
	return utils.OK(c, results, "class results", results.Summary)
}

func (h *ResultHandler) studentReport(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	termID, err := parseQueryUint(c, "term_id")
	if err != nil || termID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "term_id is required")
	}

	report, err := h.service.StudentReport(c.UserContext(), activityActorFromContext(c), studentID, termID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to build student report")
	}
	return utils.SendSuccess(c, "student report", report)
}
