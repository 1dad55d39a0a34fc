package utils

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// APIResponse is the JSON envelope returned by every endpoint except file
// downloads.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Details interface{} `json:"details,omitempty"`
	Message string      `json:"message"`
}

// SendSuccess sends a 200 envelope.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// Created sends a 201 envelope for newly stored resources.
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusCreated, message, data)
}

// SendSuccessWithStatus sends a success envelope using status, 200 when zero.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: messageOr(message, "success"),
	})
}

// OK sends a 200 envelope with list pagination or a result summary as meta.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
		Message: messageOr(message, "success"),
	})
}

// Attachment streams content as a named file download.
func Attachment(c *fiber.Ctx, fileName, contentType string, content []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Status(fiber.StatusOK).Send(content)
}

// SendError sends an error envelope without details.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail sends an error envelope carrying machine readable details, such as
// validation failures or rejected spreadsheet rows.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Details: details,
		Message: messageOr(message, "error"),
	})
}

func messageOr(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
