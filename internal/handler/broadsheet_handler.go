package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-school-api/internal/service"
	"github.com/noah-isme/gema-school-api/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BroadsheetHandler handles spreadsheet export and import of class results.
type BroadsheetHandler struct {
	service service.BroadsheetService
	logger  zerolog.Logger
}

// NewBroadsheetHandler constructs the handler.
func NewBroadsheetHandler(service service.BroadsheetService, logger zerolog.Logger) *BroadsheetHandler {
	return &BroadsheetHandler{
		service: service,
		logger:  logger.With().Str("component", "broadsheet_handler").Logger(),
	}
}

// Register wires broadsheet routes.
func (h *BroadsheetHandler) Register(router fiber.Router) {
	router.Get("/classes/:classId", h.export)
	router.Post("/classes/:classId/import", h.importSheet)
}

// export uploads the workbook to file storage and returns its URL, or streams
// it back when download=true.
func (h *BroadsheetHandler) export(c *fiber.Ctx) error {
	query, err := parseResultQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if !c.QueryBool("download") {
		return h.publish(c, query)
	}

	file, err := h.service.Export(c.UserContext(), activityActorFromContext(c), query)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to export broadsheet")
	}

	return utils.Attachment(c, file.FileName, xlsxContentType, file.Content)
}

func (h *BroadsheetHandler) publish(c *fiber.Ctx, query service.ClassResultQuery) error {
	published, err := h.service.Publish(c.UserContext(), activityActorFromContext(c), query)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to publish broadsheet")
	}
	return utils.Created(c, "broadsheet published", published)
}

func (h *BroadsheetHandler) importSheet(c *fiber.Ctx) error {
	query, err := parseResultQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	header, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	file, err := header.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read file")
	}
	defer file.Close()

	imported, err := h.service.Import(c.UserContext(), activityActorFromContext(c), query, file)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to import broadsheet")
	}
	return utils.SendSuccess(c, "broadsheet imported", imported)
}
