// Command pawmate runs the PawMate API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	app "github.com/pawmate/pawmate/internal/app"
	"github.com/pawmate/pawmate/internal/app/httpapi"
	"github.com/pawmate/pawmate/internal/app/storage/postgres"
	"github.com/pawmate/pawmate/internal/config"
	"github.com/pawmate/pawmate/internal/platform/blob"
	"github.com/pawmate/pawmate/internal/platform/database"
	"github.com/pawmate/pawmate/internal/platform/migrations"
	"github.com/pawmate/pawmate/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.ConfigPathEnv), "path to a YAML config file")
	flag.Parse()

	// A local .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "pawmate: load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pawmate: %v\n", err)
		os.Exit(1)
	}

	fxApp := fx.New(
		fx.Supply(cfg),
		fx.StopTimeout(cfg.Server.ShutdownTimeout),
		fx.Provide(
			newLogger,
			openDatabase,
			newStores,
			newBlobStore,
			newApplication,
			newHTTPServer,
		),
		fx.WithLogger(func(log *logger.Logger) fxevent.Logger {
			return &fxLogger{log: log.Component("fx")}
		}),
		fx.Invoke(func(*http.Server) {}),
	)
	if err := fxApp.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "pawmate: %v\n", err)
		os.Exit(1)
	}
	fxApp.Run()
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(cfg.Logging)
}

// openDatabase returns nil when no DSN is configured; the server then keeps
// everything in memory.
func openDatabase(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) (*sqlx.DB, error) {
	if cfg.Database.DSN == "" {
		log.Warn("no database configured; using in-memory storage")
		return nil, nil
	}
	ctx := context.Background()
	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, cfg.Database.DSN); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		log.Info("database migrations applied")
	}
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return db.Close() }})
	return db, nil
}

func newStores(db *sqlx.DB) app.Stores {
	if db == nil {
		return app.Stores{}
	}
	return app.StoresFrom(postgres.New(db))
}

func newBlobStore(cfg *config.Config) (blob.Store, error) {
	return blob.New(context.Background(), cfg.Media)
}

func newApplication(lc fx.Lifecycle, cfg *config.Config, stores app.Stores, blobs blob.Store, log *logger.Logger) (*app.Application, error) {
	application, err := app.New(context.Background(), *cfg, stores, blobs, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: application.Start,
		OnStop:  application.Stop,
	})
	return application, nil
}

func newHTTPServer(lc fx.Lifecycle, cfg *config.Config, application *app.Application, db *sqlx.DB, log *logger.Logger) (*http.Server, error) {
	opts := httpapi.Options{
		AuditLogPath:   cfg.Server.AuditLogPath,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}
	if db != nil {
		opts.DB = db
	}
	handler, err := httpapi.NewHandler(application, opts, log.Component("http"))
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.WithField("addr", srv.Addr).Info("http server listening")
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.WithError(err).Error("http server exited")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("http server shutting down")
			return srv.Shutdown(ctx)
		},
	})
	return srv, nil
}
