package log

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
		DisableColors:   false,
		ForceColors:     true,
	}
	return l
}

// SetLevel changes the level of the shared logger, unknown names keep the current level
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return
	}
	logger.SetLevel(lvl)
}

// Logger exposes the shared logger, mainly so tests can redirect its output
func Logger() *logrus.Logger {
	return logger
}

func Print(c *fiber.Ctx) *logrus.Entry {
	if c == nil {
		return logger.WithFields(logrus.Fields{})
	}

	remoteIP := c.IP()
	if v := c.Locals("remote_ip"); v != nil {
		if ip, ok := v.(string); ok && ip != "" {
			remoteIP = ip
		}
	}
	return logger.WithFields(logrus.Fields{
		"remote_ip":  remoteIP,
		"method":     c.Method(),
		"uri":        c.OriginalURL(),
		"request_id": c.Locals("request_id"),
	})
}

// Session returns an entry tagged with the bot component emitting it
func Session(component string) *logrus.Entry {
	return logger.WithField("component", component)
}

// WhatsApp adapts the shared logger to whatsmeow's logger interface
func WhatsApp(module string, level string) waLog.Logger {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.WarnLevel
	}
	return &waLogger{entry: logger.WithField("module", module), level: lvl}
}

type waLogger struct {
	entry *logrus.Entry
	level logrus.Level
}

func (w *waLogger) logf(lvl logrus.Level, msg string, args ...interface{}) {
	if lvl > w.level {
		return
	}
	w.entry.Log(lvl, fmt.Sprintf(msg, args...))
}

func (w *waLogger) Errorf(msg string, args ...interface{}) { w.logf(logrus.ErrorLevel, msg, args...) }
func (w *waLogger) Warnf(msg string, args ...interface{})  { w.logf(logrus.WarnLevel, msg, args...) }
func (w *waLogger) Infof(msg string, args ...interface{})  { w.logf(logrus.InfoLevel, msg, args...) }
func (w *waLogger) Debugf(msg string, args ...interface{}) { w.logf(logrus.DebugLevel, msg, args...) }

func (w *waLogger) Sub(module string) waLog.Logger {
	current, _ := w.entry.Data["module"].(string)
	if current != "" {
		module = current + "/" + module
	}
	return &waLogger{entry: w.entry.WithField("module", module), level: w.level}
}
