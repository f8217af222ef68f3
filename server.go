package main

import (
	"context"
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"marketplace-backend/config"
	"marketplace-backend/controllers"
	"marketplace-backend/middlewares"
	"marketplace-backend/routes"
)

// newServer builds the fiber app with global middleware and all routes.
func newServer(cfg *config.Config, h *controllers.Controller, db *gorm.DB, log zerolog.Logger) *fiber.App {
	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler:          middlewares.NewErrorHandler(log),
		BodyLimit:             cfg.HTTP.BodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middlewares.RequestLogger(log))

	// ---- CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.Origins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	// ---- Global rate limiter (applies to all routes)
	if cfg.RateLimit.Max > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.Max,
			Expiration: cfg.RateLimit.Window,
		}))
	}

	routes.Register(app, h, db, log)
	return app
}

func startServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, app *fiber.App, cfg *config.Config, log zerolog.Logger) {
	addr := ":" + strconv.Itoa(cfg.HTTP.Port)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			go func() {
				if err := app.Listener(ln); err != nil {
					log.Error().Err(err).Msg("http server stopped")
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			log.Info().Str("addr", addr).Msg("API server started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("shutting down http server")
			return app.ShutdownWithContext(ctx)
		},
	})
}
