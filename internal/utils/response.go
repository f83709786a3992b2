package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every endpoint responds with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SendSuccess sends a 200 response.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus sends a success payload using the provided HTTP status code.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(APIResponse{Success: true, Data: data, Message: defaultMessage(message, "success")})
}

// OK sends a 200 response carrying paging or other metadata next to the data.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return c.Status(fiber.StatusOK).JSON(APIResponse{Success: true, Data: data, Meta: meta, Message: defaultMessage(message, "success")})
}

// SendError sends an error JSON response with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail sends an error response with optional structured details, such as validation problems.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return c.Status(status).JSON(APIResponse{Success: false, Message: defaultMessage(message, "error"), Details: details})
}

func defaultMessage(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
