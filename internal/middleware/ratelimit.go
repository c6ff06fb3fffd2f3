package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimit limits each client IP to perMinute requests per calendar minute.
// Counters live in Redis so the limit holds across API instances. If Redis is
// unavailable the request is let through.
func RateLimit(rdb *redis.Client, perMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || perMinute <= 0 {
			return c.Next()
		}

		ctx := c.UserContext()
		now := time.Now()
		window := now.Unix() / 60
		key := RateLimitKey(ClientIP(c), window)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn().Err(err).Msg("Rate limit counter unavailable")
			return c.Next()
		}
		if count == 1 {
			rdb.Expire(ctx, key, 2*time.Minute)
		}

		reset := (window + 1) * 60
		c.Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

		if count > int64(perMinute) {
			retryAfter := reset - now.Unix()
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests per minute",
				"limit":       perMinute,
				"retry_after": retryAfter,
			})
		}

		c.Set("X-RateLimit-Remaining", strconv.FormatInt(int64(perMinute)-count, 10))
		return c.Next()
	}
}

// RateLimitKey is the counter key of ip for one minute window
func RateLimitKey(ip string, window int64) string {
	return fmt.Sprintf("rl:ip:%s:minute:%d", ip, window)
}

// ClientIP prefers the proxy-provided client address
func ClientIP(c *fiber.Ctx) string {
	if ip := c.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	return c.IP()
}
