package api

import (
	"context"
	"strings"
	"time"

	"github.com/ferrywatch/ferries_core/internal/cache"
	"github.com/ferrywatch/ferries_core/internal/db"
	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/ferrywatch/ferries_core/internal/preferences"
	"github.com/ferrywatch/ferries_core/internal/sailings"
	"github.com/ferrywatch/ferries_core/internal/schedule"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// PreferencesFunc scopes the preference store to a profile
type PreferencesFunc func(profile string) *preferences.Preferences

// Handlers serves the HTTP API
type Handlers struct {
	service     *sailings.Service
	preferences PreferencesFunc
	redis       *redis.Client
	pool        *pgxpool.Pool
}

// NewHandlers creates the API handlers. rdb and pool are only used for health checks and may be nil.
func NewHandlers(service *sailings.Service, prefs PreferencesFunc, rdb *redis.Client, pool *pgxpool.Pool) *Handlers {
	return &Handlers{
		service:     service,
		preferences: prefs,
		redis:       rdb,
		pool:        pool,
	}
}

// SailingView is a sailing with its state at response time
type SailingView struct {
	models.Sailing
	DepartureClock string               `json:"departure_clock"`
	Status         models.SailingStatus `json:"status"`
	Progress       float64              `json:"progress"`
	Position       *Position            `json:"position,omitempty"`
	Favorite       bool                 `json:"favorite"`
}

// Position is the estimated vessel position while en route
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SailingsResponse is the response of GET /v1/sailings
type SailingsResponse struct {
	From     models.Terminal `json:"from"`
	To       models.Terminal `json:"to"`
	Route    string          `json:"route"`
	Sailings []SailingView   `json:"sailings"`
	Total    int             `json:"total"`
	AsOf     time.Time       `json:"as_of"`
}

// Health handles the /health endpoint
func (h *Handlers) Health(c *fiber.Ctx) error {
	redisStatus := "disabled"
	dbStatus := "disabled"
	status := "healthy"
	httpStatus := fiber.StatusOK

	if h.pool != nil {
		dbStatus = "ok"
		if err := db.HealthCheck(c.UserContext(), h.pool); err != nil {
			dbStatus = err.Error()
			status = "unhealthy"
			httpStatus = fiber.StatusServiceUnavailable
		}
	}

	if h.redis != nil {
		redisStatus = "ok"
		if err := cache.HealthCheck(c.UserContext(), h.redis); err != nil {
			redisStatus = err.Error()
			status = "unhealthy"
			httpStatus = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}

// Terminals handles GET /v1/terminals
func (h *Handlers) Terminals(c *fiber.Ctx) error {
	list := h.service.Terminals()
	return c.JSON(fiber.Map{
		"terminals": list,
		"total":     len(list),
	})
}

// Destinations handles GET /v1/terminals/:id/destinations
func (h *Handlers) Destinations(c *fiber.Ctx) error {
	id := strings.ToUpper(c.Params("id"))
	terminal, ok := h.service.Registry().Lookup(id)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown terminal: "+id)
	}

	dests := h.service.Destinations(id)
	return c.JSON(fiber.Map{
		"terminal":     terminal,
		"destinations": dests,
		"total":        len(dests),
	})
}

// Sailings handles GET /v1/sailings?from=TSA&to=SWB[&profile=alice]
func (h *Handlers) Sailings(c *fiber.Ctx) error {
	from := strings.ToUpper(c.Query("from"))
	to := strings.ToUpper(c.Query("to"))
	if from == "" || to == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required parameters: from and to")
	}

	profile := c.Query("profile")
	if profile != "" && !validProfile(profile) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid profile")
	}

	ctx := c.UserContext()
	list, err := h.service.Sailings(ctx, from, to)
	if err != nil {
		return err
	}

	favorites := map[string]bool{}
	if profile != "" {
		if favorites, err = h.preferences(profile).MarkFavorites(ctx, list); err != nil {
			return err
		}
	}

	registry := h.service.Registry()
	now := h.service.Now()
	loc := h.service.Location()

	views := make([]SailingView, 0, len(list))
	for _, s := range list {
		progress, status := schedule.ProgressOf(s, now)
		view := SailingView{
			Sailing:        s,
			DepartureClock: s.DepartureClock(loc),
			Status:         status,
			Progress:       progress,
			Favorite:       favorites[s.ID],
		}
		if lat, lon, ok := schedule.EstimatePosition(s, registry, now); ok {
			view.Position = &Position{Lat: lat, Lon: lon}
		}
		views = append(views, view)
	}

	fromTerminal, _ := registry.Lookup(from)
	toTerminal, _ := registry.Lookup(to)

	return c.JSON(SailingsResponse{
		From:     fromTerminal,
		To:       toTerminal,
		Route:    registry.RouteName(from, to),
		Sailings: views,
		Total:    len(views),
		AsOf:     now,
	})
}

func (h *Handlers) profilePreferences(c *fiber.Ctx) (*preferences.Preferences, context.Context) {
	return h.preferences(c.Params("profile")), c.UserContext()
}
