package lifecycle

import (
	"fmt"
	"io"
	"sync"

	"github.com/gdbrns/go-whatsapp-command-bot/pkg/whatsapp"
)

// Display shows pairing material to the operator.
type Display interface {
	ShowQR(code string)
	ShowPairingCode(code string)
}

// TerminalDisplay renders QR codes and pairing codes on a terminal.
type TerminalDisplay struct {
	mu      sync.Mutex
	w       io.Writer
	botName string
}

func NewTerminalDisplay(w io.Writer, botName string) *TerminalDisplay {
	return &TerminalDisplay{w: w, botName: botName}
}

func (d *TerminalDisplay) ShowQR(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fmt.Fprintf(d.w, "\n================= %s =================\n", d.botName)
	fmt.Fprint(d.w, "Scan this QR with WhatsApp (Linked Devices):\n\n")
	whatsapp.RenderQR(d.w, code)
	fmt.Fprint(d.w, "\nIf QR expires, a new one will appear.\n")
}

func (d *TerminalDisplay) ShowPairingCode(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fmt.Fprintf(d.w, "\nYour 8-digit pairing code: %s\n\n", code)
}
