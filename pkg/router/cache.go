package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
)

// HttpCacheInMemory caches GET responses for ttl seconds, except for paths in skip.
func HttpCacheInMemory(ttl int, skip ...string) fiber.Handler {
	if ttl <= 0 {
		ttl = 1
	}
	return cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			if c.Method() != fiber.MethodGet {
				return true
			}
			for _, path := range skip {
				if c.Path() == path {
					return true
				}
			}
			return false
		},
		Expiration: time.Duration(ttl) * time.Second,
	})
}
