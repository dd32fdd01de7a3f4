package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: HttpErrorHandler})
	app.Use(HttpRequestID())
	app.Use(RecoveryMiddleware())
	app.Use(HttpRealIP())
	return app
}

func decode(t *testing.T, body io.Reader) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "", NormalizeBaseURL(""))
	assert.Equal(t, "", NormalizeBaseURL("/"))
	assert.Equal(t, "/api", NormalizeBaseURL("api/"))
	assert.Equal(t, "/api", NormalizeBaseURL(" /api/ "))
}

func TestResponseEnvelope(t *testing.T) {
	app := newTestApp()
	app.Get("/ok", func(c *fiber.Ctx) error {
		return ResponseSuccessWithData(c, "", fiber.Map{"a": 1})
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return ResponseNotFound(c, "nothing here")
	})

	res, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	body := decode(t, res.Body)
	assert.True(t, body.Status)
	assert.Equal(t, "OK", body.Message)
	assert.NotNil(t, body.Data)

	res, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
	body = decode(t, res.Body)
	assert.False(t, body.Status)
	assert.Equal(t, "nothing here", body.Error)
}

func TestRequestIDIsGeneratedOrEchoed(t *testing.T) {
	app := newTestApp()
	app.Get("/", func(c *fiber.Ctx) error { return ResponseSuccess(c, "") })

	res, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Len(t, res.Header.Get(RequestIDHeader), 36)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", res.Header.Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	app := newTestApp()
	app.Get("/boom", func(c *fiber.Ctx) error { panic("kaboom") })

	res, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "kaboom", decode(t, res.Body).Message)
}

func TestHttpErrorHandler(t *testing.T) {
	app := newTestApp()
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("plain failure") })

	res, err := app.Test(httptest.NewRequest("GET", "/teapot", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, res.StatusCode)
	assert.Equal(t, "short and stout", decode(t, res.Body).Message)

	res, err = app.Test(httptest.NewRequest("GET", "/plain", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, res.StatusCode)

	res, err = app.Test(httptest.NewRequest("GET", "/unknown", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
}

func TestHttpCacheInMemorySkipsListedPaths(t *testing.T) {
	app := newTestApp()
	app.Use(HttpCacheInMemory(60, "/live"))
	hits := map[string]int{}
	handler := func(c *fiber.Ctx) error {
		hits[utils.CopyString(c.Path())]++
		return ResponseSuccess(c, "")
	}
	app.Get("/cached", handler)
	app.Get("/live", handler)

	for i := 0; i < 3; i++ {
		_, err := app.Test(httptest.NewRequest("GET", "/cached", nil))
		require.NoError(t, err)
		_, err = app.Test(httptest.NewRequest("GET", "/live", nil))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, hits["/cached"])
	assert.Equal(t, 3, hits["/live"])
}
