// Package status exposes the bot's connection state over HTTP.
package status

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-command-bot/internal/lifecycle"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/router"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/whatsapp"
)

// Source is the read-only view of the lifecycle the handlers report on.
type Source interface {
	State() lifecycle.State
	MaskedIdentity() string
	Generation() uint64
	Restarts() int
	Connected() bool
	Registered() bool
	LatestQR() string
}

type Report struct {
	Bot        string          `json:"bot"`
	State      lifecycle.State `json:"state"`
	Identity   string          `json:"identity,omitempty"`
	Connected  bool            `json:"connected"`
	Registered bool            `json:"registered"`
	Generation uint64          `json:"generation"`
	Restarts   int             `json:"restarts"`
	WAVersion  string          `json:"wa_version"`
	PendingQR  bool            `json:"pending_qr"`
}

type Handler struct {
	botName string
	source  Source
}

func New(botName string, source Source) *Handler {
	return &Handler{botName: botName, source: source}
}

// Status reports the connection state of the live session.
func (h *Handler) Status(c *fiber.Ctx) error {
	report := Report{
		Bot:        h.botName,
		State:      h.source.State(),
		Identity:   h.source.MaskedIdentity(),
		Connected:  h.source.Connected(),
		Registered: h.source.Registered(),
		Generation: h.source.Generation(),
		Restarts:   h.source.Restarts(),
		WAVersion:  whatsapp.WAVersionString(whatsapp.GetWAVersionRefreshStatus().CurrentVersion),
		PendingQR:  h.source.LatestQR() != "",
	}
	return router.ResponseSuccessWithData(c, "", report)
}

// QR serves the pending pairing QR code as a PNG.
func (h *Handler) QR(c *fiber.Ctx) error {
	code := h.source.LatestQR()
	if code == "" {
		return router.ResponseNotFound(c, "No QR code pending")
	}

	png, err := whatsapp.EncodeQRPNG(code, 256)
	if err != nil {
		return router.ResponseInternalError(c, "Failed to encode QR code")
	}
	return router.ResponsePNG(c, png)
}
