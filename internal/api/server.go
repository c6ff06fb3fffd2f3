package api

import (
	"errors"
	"time"

	"github.com/ferrywatch/ferries_core/internal/middleware"
	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/ferrywatch/ferries_core/internal/preferences"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewApp builds the HTTP server. rdb may be nil, which disables rate limiting
// and the Redis health check.
func NewApp(h *Handlers, rdb *redis.Client, rateLimitPerMin int) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Ferries API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	app.Get("/health", h.Health)

	v1 := app.Group("/v1")
	v1.Get("/terminals", h.Terminals)
	v1.Get("/terminals/:id/destinations", h.Destinations)
	v1.Get("/sailings", middleware.RateLimit(rdb, rateLimitPerMin), h.Sailings)

	profiles := v1.Group("/profiles/:profile")
	profiles.Get("/last-route", h.requireProfile, h.GetLastRoute)
	profiles.Put("/last-route", h.requireProfile, h.PutLastRoute)
	profiles.Delete("/last-route", h.requireProfile, h.DeleteLastRoute)
	profiles.Get("/favorites/routes", h.requireProfile, h.FavoriteRoutes)
	profiles.Post("/favorites/routes/toggle", h.requireProfile, h.ToggleFavoriteRoute)
	profiles.Get("/favorites/sailings", h.requireProfile, h.FavoriteSailings)
	profiles.Post("/favorites/sailings/toggle", h.requireProfile, h.ToggleFavoriteSailing)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	return app
}

// ErrorHandler maps domain errors onto HTTP status codes
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	case errors.Is(err, models.ErrRouteNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, preferences.ErrInvalidDepartureTime):
		code = fiber.StatusBadRequest
	case models.IsUpstreamError(err):
		code = fiber.StatusBadGateway
	case errors.Is(err, preferences.ErrUnsupportedVersion):
		code = fiber.StatusConflict
	}

	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
