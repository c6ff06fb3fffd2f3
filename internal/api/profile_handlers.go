package api

import (
	"regexp"
	"strings"

	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/gofiber/fiber/v2"
)

var profilePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validProfile(profile string) bool {
	return profilePattern.MatchString(profile)
}

// RouteRequest is the body of route-keyed profile endpoints
type RouteRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func parseRoute(c *fiber.Ctx) (RouteRequest, error) {
	var req RouteRequest
	if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.From = strings.ToUpper(req.From)
	req.To = strings.ToUpper(req.To)
	if req.From == "" || req.To == "" {
		return req, fiber.NewError(fiber.StatusBadRequest, "missing required fields: from and to")
	}
	return req, nil
}

func (h *Handlers) requireProfile(c *fiber.Ctx) error {
	if !validProfile(c.Params("profile")) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid profile")
	}
	return c.Next()
}

// GetLastRoute handles GET /v1/profiles/:profile/last-route
func (h *Handlers) GetLastRoute(c *fiber.Ctx) error {
	prefs, ctx := h.profilePreferences(c)

	dep, arr, ok, err := prefs.LastRoute(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no last route")
	}

	return c.JSON(fiber.Map{
		"from":  dep,
		"to":    arr,
		"route": h.service.Registry().RouteName(dep.ID, arr.ID),
	})
}

// PutLastRoute handles PUT /v1/profiles/:profile/last-route
func (h *Handlers) PutLastRoute(c *fiber.Ctx) error {
	req, err := parseRoute(c)
	if err != nil {
		return err
	}

	prefs, ctx := h.profilePreferences(c)
	if err := prefs.SaveLastRoute(ctx, req.From, req.To); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteLastRoute handles DELETE /v1/profiles/:profile/last-route
func (h *Handlers) DeleteLastRoute(c *fiber.Ctx) error {
	prefs, ctx := h.profilePreferences(c)
	if err := prefs.ClearLastRoute(ctx); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// FavoriteRoutes handles GET /v1/profiles/:profile/favorites/routes
func (h *Handlers) FavoriteRoutes(c *fiber.Ctx) error {
	prefs, ctx := h.profilePreferences(c)

	routes, err := prefs.FavoriteRoutes(ctx)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"routes": routes,
		"total":  len(routes),
	})
}

// ToggleFavoriteRoute handles POST /v1/profiles/:profile/favorites/routes/toggle
func (h *Handlers) ToggleFavoriteRoute(c *fiber.Ctx) error {
	req, err := parseRoute(c)
	if err != nil {
		return err
	}

	prefs, ctx := h.profilePreferences(c)
	favorite, err := prefs.ToggleFavoriteRoute(ctx, req.From, req.To)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"from":     req.From,
		"to":       req.To,
		"favorite": favorite,
	})
}

// FavoriteSailings handles GET /v1/profiles/:profile/favorites/sailings
func (h *Handlers) FavoriteSailings(c *fiber.Ctx) error {
	prefs, ctx := h.profilePreferences(c)

	favs, err := prefs.FavoriteSailings(ctx)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"sailings": favs,
		"total":    len(favs),
	})
}

// ToggleFavoriteSailing handles POST /v1/profiles/:profile/favorites/sailings/toggle
func (h *Handlers) ToggleFavoriteSailing(c *fiber.Ctx) error {
	var fav models.FavoriteSailing
	if err := c.BodyParser(&fav); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	fav.ID = ""
	fav.DepartureTerminalID = strings.ToUpper(fav.DepartureTerminalID)
	fav.ArrivalTerminalID = strings.ToUpper(fav.ArrivalTerminalID)
	if fav.DepartureTerminalID == "" || fav.ArrivalTerminalID == "" || fav.ScheduledDepartureTime == "" {
		return fiber.NewError(fiber.StatusBadRequest,
			"missing required fields: departure_terminal_id, arrival_terminal_id and scheduled_departure_time")
	}
	if fav.VesselName == "" {
		fav.VesselName = models.UnknownVessel
	}

	prefs, ctx := h.profilePreferences(c)
	favorite, err := prefs.ToggleFavoriteSailing(ctx, fav)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"sailing":  fav,
		"favorite": favorite,
	})
}
