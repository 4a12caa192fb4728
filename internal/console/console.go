// Package console is the HTTP face of the server: the REST API for users,
// bases and investments, the game websocket endpoint and the operational
// routes. The real-time rules live in internal/game; this package wires them
// to the network and the database.
package console

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/outpost-game/outpost/internal/app/logger/logging"
	"github.com/outpost-game/outpost/internal/console/database"
	"github.com/outpost-game/outpost/internal/game"
	"github.com/outpost-game/outpost/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func init() {
	metrics.InitConsole()
	metrics.InitGame()
}

type Console struct {
	Config *Config
	DB     *database.SQLite
	Game   *game.Game
}

func NewConsole(db *database.SQLite, opts ...Option) *Console {
	config := DefaultConfig()
	for _, fn := range opts {
		if err := fn(config); err != nil {
			panic("failed to initialize config: " + err.Error())
		}
	}

	return &Console{
		Config: config,
		DB:     db,
		Game:   game.NewGame(db.Write, config.GameSettings),
	}
}

type Option func(*Config) error

type Config struct {
	ConsoleBindAddr    string
	ConsolePublicAddr  string
	CORSAllowedOrigins []string
	Version            string

	// SecretKey signs the login tokens.
	SecretKey []byte

	GameSettings game.Settings

	// Placement and pricing rules of the REST API.
	MaxDistanceBetweenBases float64
	InitialBasePrice        float64
	InitialInvestmentPrice  float64
}

func DefaultConfig() *Config {
	return &Config{
		ConsoleBindAddr:         "localhost:2137",
		ConsolePublicAddr:       "http://localhost:2137",
		CORSAllowedOrigins:      []string{"*"},
		Version:                 "dev",
		SecretKey:               []byte("insecure-dev-secret"),
		GameSettings:            game.DefaultSettings(),
		MaxDistanceBetweenBases: 200,
		InitialBasePrice:        100,
		InitialInvestmentPrice:  50,
	}
}

func WithConsoleAddr(bindAddr, publicAddr string) Option {
	return func(c *Config) error {
		c.ConsoleBindAddr = bindAddr
		c.ConsolePublicAddr = publicAddr
		return nil
	}
}

// TODO: For production replace it with the deployed frontend origin
func WithCORSAllowedOrigins(allowedOrigins []string) Option {
	return func(c *Config) error {
		c.CORSAllowedOrigins = allowedOrigins
		return nil
	}
}

func WithVersion(version string) Option {
	return func(c *Config) error {
		c.Version = version
		return nil
	}
}

func WithSecretKey(secretKey []byte) Option {
	return func(c *Config) error {
		if len(secretKey) == 0 {
			return errors.New("empty secret key")
		}
		c.SecretKey = secretKey
		return nil
	}
}

func WithGameSettings(settings game.Settings) Option {
	return func(c *Config) error {
		c.GameSettings = settings
		return nil
	}
}

func WithPlacementRules(maxDistanceBetweenBases, initialBasePrice, initialInvestmentPrice float64) Option {
	return func(c *Config) error {
		c.MaxDistanceBetweenBases = maxDistanceBetweenBases
		c.InitialBasePrice = initialBasePrice
		c.InitialInvestmentPrice = initialInvestmentPrice
		return nil
	}
}

func (c *Console) HttpRouter() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Throttle(100))

	{ // Set up meta routes (readiness, liveness, metrics etc.)
		mux.Get("/_health", func(w http.ResponseWriter, r *http.Request) {
			if err := c.DB.Ping(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				renderJSON(w, r, map[string]string{
					"status":    "ERROR",
					"component": "database",
					"error":     err.Error(),
				})
				return
			}

			w.WriteHeader(http.StatusOK)
			renderJSON(w, r, map[string]string{"status": "OK"})
		})
		mux.Get("/_metrics", promhttp.Handler().ServeHTTP)
	}

	{ // Set up the REST routes
		api := chi.NewRouter()
		api.Use(middleware.Timeout(5 * time.Second))
		api.Use(cors.New(cors.Options{
			AllowedOrigins:   c.Config.CORSAllowedOrigins,
			AllowCredentials: false,
			Debug:            false,
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPatch,
				http.MethodDelete,
			},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			ExposedHeaders: []string{"Link"},
			MaxAge:         7200,
		}).Handler)
		api.Use(requireJSON)

		api.Post("/users", c.handleCreateUser)
		api.Post("/users/login", c.handleLogin)
		api.Get("/users", c.handleListUsers)
		api.Get("/users/{userId}", c.handleGetUser)

		api.Get("/bases", c.handleListBases)
		api.Get("/bases/{baseId}", c.handleGetBase)
		api.Get("/bases/{baseId}/investments", c.handleListInvestments)
		api.Get("/bases/{baseId}/investments/{investmentId}", c.handleGetInvestment)

		api.Group(func(protected chi.Router) {
			protected.Use(c.requireAuth)

			protected.Patch("/users/{userId}", c.handleUpdateUser)
			protected.Delete("/users/{userId}", c.handleDeleteUser)

			protected.Post("/bases", c.handleCreateBase)
			protected.Patch("/bases/{baseId}", c.handleUpdateBase)
			protected.Delete("/bases/{baseId}", c.handleDeleteBase)

			protected.Post("/bases/{baseId}/investments", c.handleCreateInvestment)
			protected.Delete("/bases/{baseId}/investments/{investmentId}", c.handleDeleteInvestment)
		})

		mux.Mount("/api", api)
	}

	{ // Set up the game (websocket) routes
		ws := chi.NewRouter()
		ws.Use(middleware.Timeout(24 * time.Hour))
		ws.Mount("/", http.HandlerFunc(c.HandleWebSocket))

		mux.Mount("/game", ws)
	}

	return mux
}

func (c *Console) Handlers() (start GracefulFunc, shutdown GracefulFunc) {
	httpServer := &http.Server{
		Addr:         c.Config.ConsoleBindAddr,
		Handler:      h2c.NewHandler(c.HttpRouter(), &http2.Server{}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	start = func(ctx context.Context) error {
		slog.Info("Configured console server", "addr", c.Config.ConsoleBindAddr)

		go c.Game.Run(ctx)

		return httpServer.ListenAndServe()
	}

	shutdown = func(ctx context.Context) error {
		slog.Info("Started shutting down the console server")

		c.Game.Stop()

		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("Failed shutting down the console server", logging.Error(err))
			return err
		}
		slog.Info("Successfully shut down the console server")
		return nil
	}

	return start, shutdown
}

type GracefulFunc func(context.Context) error

func (c *Console) Graceful(ctx context.Context, start GracefulFunc, shutdown GracefulFunc) error {
	var (
		stopChan = make(chan os.Signal, 1)
		errChan  = make(chan error, 1)
	)

	// Set up the graceful shutdown handler (traps SIGINT and SIGTERM)
	go func() {
		signal.Notify(stopChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-stopChan:
		case <-ctx.Done():
		}

		timer, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := shutdown(timer); err != nil {
			errChan <- err
			return
		}

		errChan <- nil
	}()

	// Start the server
	if err := start(ctx); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-errChan
}
