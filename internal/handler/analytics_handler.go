package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-school-api/internal/service"
	"github.com/noah-isme/gema-school-api/internal/utils"
)

// AnalyticsHandler exposes term analytics for school administrators.
type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  zerolog.Logger
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(service service.AnalyticsService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// Register wires analytics routes.
func (h *AnalyticsHandler) Register(router fiber.Router) {
	router.Get("/terms/:termId", h.term)
}

func (h *AnalyticsHandler) term(c *fiber.Ctx) error {
	termID, err := parseUintParam(c, "termId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	analytics, err := h.service.TermAnalytics(c.UserContext(), activityActorFromContext(c), termID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to compute analytics")
	}
	return utils.SendSuccess(c, "term analytics", analytics)
}
