package router

import (
	"strings"

	"github.com/gdbrns/go-whatsapp-command-bot/pkg/env"
)

var BaseURL, CORSOrigin string
var CacheTTLSeconds int

func init() {
	// HTTP_BASE_URL: empty by default (no prefix)
	BaseURL = NormalizeBaseURL(env.GetEnvStringOrDefault("HTTP_BASE_URL", ""))

	// HTTP_CORS_ORIGIN: default "*" (allow all)
	CORSOrigin = env.GetEnvStringOrDefault("HTTP_CORS_ORIGIN", "*")

	// HTTP_CACHE_TTL_SECONDS: default 1, the status page is polled
	CacheTTLSeconds = env.GetEnvIntOrDefault("HTTP_CACHE_TTL_SECONDS", 1)
}

// NormalizeBaseURL turns "api/", "/api" or "/api/" into "/api", and "/" into "".
func NormalizeBaseURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	return "/" + strings.TrimLeft(base, "/")
}
