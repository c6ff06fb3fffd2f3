package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ferrywatch/ferries_core/internal/bootstrap"
	"github.com/ferrywatch/ferries_core/internal/config"
	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/ferrywatch/ferries_core/internal/schedule"
	"github.com/ferrywatch/ferries_core/internal/tracker"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// BuildFunc creates the dependencies of a command
type BuildFunc func(ctx context.Context, cfg *config.Config) (*bootstrap.Deps, error)

// NewApp returns the ferries command line application writing to out
func NewApp(build BuildFunc, out io.Writer) *cli.App {
	return &cli.App{
		Name:      "ferries",
		Usage:     "BC Ferries sailings and capacity",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profile",
				Value:   "default",
				Usage:   "preference profile",
				EnvVars: []string{"FERRIES_PROFILE"},
			},
		},
		Commands: []*cli.Command{
			terminalsCommand(build),
			sailingsCommand(build),
			favoritesCommand(build),
			lastRouteCommand(build),
		},
	}
}

func withDeps(build BuildFunc, action func(c *cli.Context, deps *bootstrap.Deps) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		deps, err := build(c.Context, cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		return action(c, deps)
	}
}

func terminalsCommand(build BuildFunc) *cli.Command {
	return &cli.Command{
		Name:  "terminals",
		Usage: "List terminals, or the destinations of one terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from",
				Usage: "only list destinations reachable from this terminal",
			},
		},
		Action: withDeps(build, func(c *cli.Context, deps *bootstrap.Deps) error {
			list := deps.Service.Terminals()
			if from := strings.ToUpper(c.String("from")); from != "" {
				if _, ok := deps.Registry.Lookup(from); !ok {
					return fmt.Errorf("unknown terminal: %s", from)
				}
				list = deps.Service.Destinations(from)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDESTINATIONS")
			for _, t := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, strings.Join(deps.Registry.ValidDestinations(t.ID), ","))
			}
			return w.Flush()
		}),
	}
}

func sailingsCommand(build BuildFunc) *cli.Command {
	return &cli.Command{
		Name:  "sailings",
		Usage: "Show the sailings of a route",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "departure terminal", Required: true},
			&cli.StringFlag{Name: "to", Usage: "arrival terminal", Required: true},
			&cli.BoolFlag{Name: "watch", Usage: "keep refreshing the sailing states"},
			&cli.DurationFlag{Name: "interval", Usage: "refresh interval when watching (default from config)"},
			&cli.BoolFlag{Name: "remember", Value: true, Usage: "save the route as the profile's last route"},
		},
		Action: withDeps(build, func(c *cli.Context, deps *bootstrap.Deps) error {
			from := strings.ToUpper(c.String("from"))
			to := strings.ToUpper(c.String("to"))
			prefs := deps.Preferences(c.String("profile"))

			list, err := deps.Service.Sailings(c.Context, from, to)
			if err != nil {
				return err
			}

			if c.Bool("remember") {
				if err := prefs.SaveLastRoute(c.Context, from, to); err != nil {
					log.Warn().Err(err).Msg("Failed to save last route")
				}
			}

			favorites, err := prefs.MarkFavorites(c.Context, list)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, deps.Registry.RouteName(from, to))
			if err := printSailings(c.App.Writer, list, favorites, deps.Service.Now(), deps.Location); err != nil {
				return err
			}

			if !c.Bool("watch") {
				return nil
			}

			interval := c.Duration("interval")
			if interval <= 0 {
				interval = deps.Config.RefreshInterval
			}
			return watch(c, deps, from, to, list, interval)
		}),
	}
}

func watch(c *cli.Context, deps *bootstrap.Deps, from, to string, list []models.Sailing, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr := tracker.New()
	now := deps.Service.Now()
	for _, s := range list {
		if _, status := schedule.ProgressOf(s, now); status != models.StatusCompleted {
			tr.Start(s)
		}
	}

	log.Info().Int("sailings", tr.Len()).Dur("interval", interval).Msg("Watching sailings")

	err := tr.Run(ctx, interval, func(states []models.ActivityState) {
		printStates(c.App.Writer, states)

		fresh, err := deps.Service.Sailings(ctx, from, to)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to refresh sailings")
			return
		}
		tr.Sync(fresh)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printSailings(out io.Writer, list []models.Sailing, favorites map[string]bool, now time.Time, loc *time.Location) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tDEPARTS\tARRIVES\tVESSEL\tCAR DECK\tSTATUS")
	for _, s := range list {
		_, status := schedule.ProgressOf(s, now)
		star := ""
		if favorites[s.ID] {
			star = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
			star,
			s.ScheduledDeparture.In(loc).Format("Mon 15:04"),
			s.ScheduledArrival.In(loc).Format(models.ClockLayout),
			s.VesselName,
			s.PercentageFull,
			status,
		)
	}
	return w.Flush()
}

func printStates(out io.Writer, states []models.ActivityState) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "-- %s\n", time.Now().Format(time.Kitchen))
	for _, s := range states {
		fmt.Fprintf(w, "%s\t%s\t%3.0f%%\t%d%% full\n", s.SailingID, s.CurrentStatus, s.Progress*100, s.PercentageFull)
	}
	w.Flush()
}

func favoritesCommand(build BuildFunc) *cli.Command {
	return &cli.Command{
		Name:  "favorites",
		Usage: "Manage favorite routes and sailings",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List favorite routes and sailings",
				Action: withDeps(build, func(c *cli.Context, deps *bootstrap.Deps) error {
					prefs := deps.Preferences(c.String("profile"))

					routes, err := prefs.FavoriteRoutes(c.Context)
					if err != nil {
						return err
					}
					sailings, err := prefs.FavoriteSailings(c.Context)
					if err != nil {
						return err
					}

					w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ROUTES")
					for _, r := range routes {
						fmt.Fprintf(w, "%s\t%s-%s\n", r.Name, r.DepartureTerminalID, r.ArrivalTerminalID)
					}
					fmt.Fprintln(w, "SAILINGS")
					for _, s := range sailings {
						fmt.Fprintf(w, "%s\t%s\t%s\n", deps.Registry.RouteName(s.DepartureTerminalID, s.ArrivalTerminalID), s.ScheduledDepartureTime, s.VesselName)
					}
					return w.Flush()
				}),
			},
			{
				Name:  "toggle-route",
				Usage: "Add or remove a favorite route",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Required: true},
					&cli.StringFlag{Name: "to", Required: true},
				},
				Action: withDeps(build, func(c *cli.Context, deps *bootstrap.Deps) error {
					from := strings.ToUpper(c.String("from"))
					to := strings.ToUpper(c.String("to"))

					on, err := deps.Preferences(c.String("profile")).ToggleFavoriteRoute(c.Context, from, to)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s: favorite=%t\n", deps.Registry.RouteName(from, to), on)
					return nil
				}),
			},
			{
				Name:  "toggle-sailing",
				Usage: "Add or remove a favorite daily sailing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Required: true},
					&cli.StringFlag{Name: "to", Required: true},
					&cli.StringFlag{Name: "time", Usage: "departure time as HH:mm", Required: true},
					&cli.StringFlag{Name: "vessel", Value: models.UnknownVessel},
				},
				Action: withDeps(build, func(c *cli.Context, deps *bootstrap.Deps) error {
					fav := models.FavoriteSailing{
						DepartureTerminalID:    strings.ToUpper(c.String("from")),
						ArrivalTerminalID:      strings.ToUpper(c.String("to")),
						ScheduledDepartureTime: c.String("time"),
						VesselName:             c.String("vessel"),
					}

					on, err := deps.Preferences(c.String("profile")).ToggleFavoriteSailing(c.Context, fav)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s %s: favorite=%t\n", fav.ScheduledDepartureTime, fav.VesselName, on)
					return nil
				}),
			},
		},
	}
}

func lastRouteCommand(build BuildFunc) *cli.Command {
	return &cli.Command{
		Name:  "last-route",
		Usage: "Show or clear the last viewed route",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "clear", Usage: "forget the last route"},
		},
		Action: withDeps(build, func(c *cli.Context, deps *bootstrap.Deps) error {
			prefs := deps.Preferences(c.String("profile"))

			if c.Bool("clear") {
				return prefs.ClearLastRoute(c.Context)
			}

			dep, arr, ok, err := prefs.LastRoute(c.Context)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(c.App.Writer, "no last route")
				return nil
			}
			fmt.Fprintf(c.App.Writer, "%s (%s -> %s)\n", deps.Registry.RouteName(dep.ID, arr.ID), dep.ID, arr.ID)
			return nil
		}),
	}
}
