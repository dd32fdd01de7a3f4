package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-command-bot/pkg/log"
)

type Response struct {
	Status  bool        `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func messageOrStatusText(code int, message string) string {
	if strings.TrimSpace(message) == "" {
		return http.StatusText(code)
	}
	return message
}

func logSuccess(c *fiber.Ctx, code int, message string) {
	log.Print(c).Info(fmt.Sprintf("%d %v", code, message))
}

func logError(c *fiber.Ctx, code int, message string) {
	if code >= http.StatusInternalServerError {
		log.Print(c).Error(fmt.Sprintf("%d %v", code, message))
		return
	}
	log.Print(c).Warn(fmt.Sprintf("%d %v", code, message))
}

func respond(c *fiber.Ctx, code int, message string, data interface{}) error {
	response := Response{
		Status:  true,
		Code:    code,
		Message: messageOrStatusText(code, message),
		Data:    data,
	}
	logSuccess(c, response.Code, response.Message)
	return c.Status(response.Code).JSON(response)
}

func respondError(c *fiber.Ctx, code int, message string) error {
	message = messageOrStatusText(code, message)
	response := Response{
		Status:  false,
		Code:    code,
		Message: message,
		Error:   message,
	}
	logError(c, response.Code, response.Message)
	return c.Status(response.Code).JSON(response)
}

func ResponseSuccess(c *fiber.Ctx, message string) error {
	return respond(c, http.StatusOK, message, nil)
}

func ResponseSuccessWithData(c *fiber.Ctx, message string, data interface{}) error {
	return respond(c, http.StatusOK, message, data)
}

// ResponsePNG writes raw PNG bytes, uncached since QR codes rotate.
func ResponsePNG(c *fiber.Ctx, png []byte) error {
	logSuccess(c, http.StatusOK, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("png")
	return c.Status(http.StatusOK).Send(png)
}

func ResponseNoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

func ResponseNotFound(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusNotFound, message)
}

func ResponseUnauthorized(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusUnauthorized, message)
}

func ResponseServiceUnavailable(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusServiceUnavailable, message)
}

func ResponseInternalError(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusInternalServerError, message)
}
