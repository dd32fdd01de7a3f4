package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(secret string) *fiber.App {
	app := fiber.New()
	app.Get("/qr", AdminAuth(secret), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		code   int
	}{
		{"open without secret", "", "", fiber.StatusOK},
		{"missing header", "s3cret", "", fiber.StatusUnauthorized},
		{"wrong secret", "s3cret", "guess", fiber.StatusUnauthorized},
		{"valid secret", "s3cret", "s3cret", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/qr", nil)
			if tt.header != "" {
				req.Header.Set(AdminSecretHeader, tt.header)
			}
			res, err := newApp(tt.secret).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, res.StatusCode)
		})
	}
}
