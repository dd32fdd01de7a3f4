package status

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdbrns/go-whatsapp-command-bot/internal/lifecycle"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/router"
)

type stubSource struct {
	state     lifecycle.State
	identity  string
	connected bool
	qr        string
}

func (s stubSource) State() lifecycle.State { return s.state }
func (s stubSource) MaskedIdentity() string { return s.identity }
func (s stubSource) Generation() uint64     { return 3 }
func (s stubSource) Restarts() int          { return 2 }
func (s stubSource) Connected() bool        { return s.connected }
func (s stubSource) Registered() bool       { return s.identity != "" }
func (s stubSource) LatestQR() string       { return s.qr }

func newApp(source Source) *fiber.App {
	h := New("TestBot", source)
	app := fiber.New(fiber.Config{ErrorHandler: router.HttpErrorHandler})
	app.Get("/status", h.Status)
	app.Get("/qr", h.QR)
	return app
}

func TestStatusReport(t *testing.T) {
	app := newApp(stubSource{state: lifecycle.StateOpen, identity: "62812345xxxx", connected: true})

	res, err := app.Test(httptest.NewRequest("GET", "/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var body struct {
		Status bool   `json:"status"`
		Data   Report `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.True(t, body.Status)
	assert.Equal(t, "TestBot", body.Data.Bot)
	assert.Equal(t, lifecycle.StateOpen, body.Data.State)
	assert.Equal(t, "62812345xxxx", body.Data.Identity)
	assert.True(t, body.Data.Connected)
	assert.True(t, body.Data.Registered)
	assert.Equal(t, uint64(3), body.Data.Generation)
	assert.Equal(t, 2, body.Data.Restarts)
	assert.False(t, body.Data.PendingQR)
	assert.NotEmpty(t, body.Data.WAVersion)
}

func TestQRWithoutPendingCode(t *testing.T) {
	app := newApp(stubSource{state: lifecycle.StateOpen})

	res, err := app.Test(httptest.NewRequest("GET", "/qr", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
}

func TestQRRendersPNG(t *testing.T) {
	app := newApp(stubSource{state: lifecycle.StateConnecting, qr: "2@abc,def,ghi"})

	res, err := app.Test(httptest.NewRequest("GET", "/qr", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, "no-store", res.Header.Get(fiber.HeaderCacheControl))
}
