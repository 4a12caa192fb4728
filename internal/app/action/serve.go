package action

import (
	"context"
	"log/slog"
	"time"

	"github.com/kelindar/event"
	"github.com/outpost-game/outpost/internal/app/logger/logging"
	"github.com/outpost-game/outpost/internal/console"
	"github.com/outpost-game/outpost/internal/game"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func ServeCommand(version string) *cli.Command {
	cmd := &cli.Command{
		Name:        "serve",
		Description: "Start the console server with the game loop",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "console-addr",
				Value: defaultConsoleAddr,
				Usage: "Bind address for the console server",
			},
			&cli.StringFlag{
				Name:  "console-public-addr",
				Value: defaultPublicConsoleAddr,
				Usage: "Public address of the console server",
			},
			&cli.StringSliceFlag{
				Name:  "cors-origin",
				Usage: "Allowed CORS origins",
			},
			&cli.StringFlag{
				Name:  "secret-key",
				Usage: "Secret used to sign login tokens",
			},
			&cli.StringFlag{
				Name:  "database-type",
				Value: defaultDatabaseType,
				Usage: "Database type (memory, sqlite)",
			},
			&cli.StringFlag{
				Name:  "sqlite-path",
				Value: defaultDatabasePath,
				Usage: "Path to sqlite database file",
			},
			&cli.FloatFlag{
				Name:  "base-range",
				Value: 500,
				Usage: "Radius in meters within which a player occupies a base",
			},
			&cli.FloatFlag{
				Name:  "base-income",
				Value: 10,
				Usage: "Income per tick for occupying an active base",
			},
			&cli.FloatFlag{
				Name:  "income-increase-per-investment",
				Value: 2,
				Usage: "Income added per investment placed on the base",
			},
			&cli.FloatFlag{
				Name:  "income-multiplier-per-active-user",
				Value: 0.1,
				Usage: "Crowding bonus per occupant beyond the first",
			},
			&cli.DurationFlag{
				Name:  "reconcile-interval",
				Value: time.Second,
				Usage: "Period of the proximity reconciliation loop",
			},
			&cli.DurationFlag{
				Name:  "broadcast-interval",
				Value: time.Second,
				Usage: "Period of the state broadcast loop",
			},
			&cli.FloatFlag{
				Name:  "max-distance-between-bases",
				Value: 200,
				Usage: "Minimum distance in meters between two bases",
			},
			&cli.FloatFlag{
				Name:  "initial-base-price",
				Value: 100,
				Usage: "Price step for each additional base",
			},
			&cli.FloatFlag{
				Name:  "initial-investment-price",
				Value: 50,
				Usage: "Price of one investment",
			},
		},
	}

	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		db, err := selectDatabaseType(c)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				slog.Error("Failed to close database", logging.Error(err))
			}
		}()

		co, err := selectConsoleOptions(c, version)
		if err != nil {
			return err
		}
		con := console.NewConsole(db, co...)

		start, stop := con.Handlers()

		group, groupContext := errgroup.WithContext(ctx)
		group.Go(func() error {
			return con.Graceful(groupContext, start, stop)
		})
		group.Go(func() error {
			// Audit trail of activation episodes.
			unsubscribe := []context.CancelFunc{
				event.Subscribe(con.Game.Events, func(e game.BaseActivated) {
					slog.Info("Audit: base activated",
						logging.BaseID(e.BaseID),
						"baseName", e.BaseName,
						"ownerId", e.OwnerID,
						"occupants", e.Occupants)
				}),
				event.Subscribe(con.Game.Events, func(e game.BaseDeactivated) {
					slog.Info("Audit: base deactivated",
						logging.BaseID(e.BaseID),
						"baseName", e.BaseName,
						"ownerId", e.OwnerID)
				}),
			}
			<-groupContext.Done()
			for _, cancel := range unsubscribe {
				cancel()
			}
			return nil
		})

		return group.Wait()
	}

	return cmd
}
