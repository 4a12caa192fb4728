package action

import (
	"fmt"
	"log/slog"

	"github.com/outpost-game/outpost/internal/app/logger/logging"
	"github.com/outpost-game/outpost/internal/console"
	"github.com/outpost-game/outpost/internal/console/database"
	"github.com/outpost-game/outpost/internal/game"
	"github.com/urfave/cli/v3"
)

func selectDatabaseType(c *cli.Command) (db *database.SQLite, err error) {
	switch c.String("database-type") {
	case "memory":
		db, err = database.NewMemory()
		if err != nil {
			return nil, err
		}
	case "sqlite":
		db, err = database.NewLocal(c.String("sqlite-path"))
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown database type: %q", c.String("database-type"))
	}

	if err := database.Seed(db.Write); err != nil {
		slog.Warn("Seed queries failed", logging.Error(err))
	}

	return db, nil
}

func selectConsoleOptions(c *cli.Command, version string) ([]console.Option, error) {
	var options []console.Option

	options = append(options, console.WithVersion(version))

	consoleBindAddr := c.String("console-addr")
	consolePublicAddr := fallbackString(c.String("console-public-addr"), fmt.Sprintf("http://%s", consoleBindAddr))
	options = append(options, console.WithConsoleAddr(consoleBindAddr, consolePublicAddr))

	if origins := c.StringSlice("cors-origin"); len(origins) > 0 {
		options = append(options, console.WithCORSAllowedOrigins(origins))
	}
	if secret := c.String("secret-key"); secret != "" {
		options = append(options, console.WithSecretKey([]byte(secret)))
	}

	options = append(options,
		console.WithGameSettings(selectGameSettings(c)),
		console.WithPlacementRules(
			c.Float("max-distance-between-bases"),
			c.Float("initial-base-price"),
			c.Float("initial-investment-price"),
		),
	)

	return options, nil
}

func selectGameSettings(c *cli.Command) game.Settings {
	settings := game.DefaultSettings()
	settings.BaseRange = c.Float("base-range")
	settings.BaseIncome = c.Float("base-income")
	settings.IncomeIncreasePerInvestment = c.Float("income-increase-per-investment")
	settings.IncomeMultiplierPerActiveUser = c.Float("income-multiplier-per-active-user")
	settings.ReconcileInterval = c.Duration("reconcile-interval")
	settings.BroadcastInterval = c.Duration("broadcast-interval")
	return settings
}

func fallbackString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
