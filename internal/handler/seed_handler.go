package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/service"
	"github.com/noah-isme/gema-school-api/internal/utils"
)

// SeedHandler exposes tooling endpoints for loading school rosters.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/roster", h.roster)
}

func (h *SeedHandler) roster(c *fiber.Ctx) error {
	token := c.Get("X-Seed-Token")
	var payload dto.RosterSeedRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	seeded, err := h.service.SeedRoster(c.UserContext(), token, payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSeedDisabled):
			return utils.SendError(c, fiber.StatusForbidden, "seeding disabled")
		case errors.Is(err, service.ErrSeedUnauthorized):
			return utils.SendError(c, fiber.StatusForbidden, "invalid token")
		default:
			return sendServiceError(c, h.logger, err, "seed operation failed")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "roster seeded", seeded)
}
