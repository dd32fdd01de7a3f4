package whatsapp

import (
	"io"

	"github.com/mdp/qrterminal/v3"
	qrCode "github.com/skip2/go-qrcode"
)

// RenderQR prints the pairing code as a compact half-block QR on w.
func RenderQR(w io.Writer, code string) {
	qrterminal.GenerateHalfBlock(code, qrterminal.L, w)
}

func EncodeQRPNG(code string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrCode.Encode(code, qrCode.Medium, size)
}
