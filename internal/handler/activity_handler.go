package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/service"
	"github.com/noah-isme/gema-school-api/internal/utils"
)

// ActivityHandler exposes the audit trail of grading changes.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if page <= 0 {
		page = 1
	}

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	if pageSize <= 0 {
		pageSize = 25
	} else if pageSize > 200 {
		pageSize = 200
	}

	actorID, err := parseQueryUint(c, "actor_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid actor id")
	}
	schoolID, err := parseQueryUint(c, "school_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid school id")
	}
	termID, err := parseQueryUint(c, "term_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid term id")
	}
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "since must be an RFC3339 timestamp")
		}
	}

	req := dto.ActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		SchoolID:   schoolID,
		TermID:     termID,
		ActorID:    actorID,
		Since:      since,
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
	}

	response, err := h.service.List(c.UserContext(), activityActorFromContext(c), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list activity logs")
	}
	return utils.OK(c, response.Items, "activity logs", response.Pagination)
}
