// Package app initializes and runs the repository daemon: it opens the
// database, wires the blob backend, bootstraps the repository tree and
// drives the text extraction queue until shutdown.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/avasilyev/docbase/internal/blob"
	"github.com/avasilyev/docbase/internal/config"
	"github.com/avasilyev/docbase/internal/dbx"
	"github.com/avasilyev/docbase/internal/logging"
	"github.com/avasilyev/docbase/internal/security"
	"github.com/avasilyev/docbase/internal/services"
	"github.com/avasilyev/docbase/internal/store"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	service *services.Service
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, dialect, err := store.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := newBlobStore(ctx, c, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	svc := services.New(services.Config{
		DB:        db,
		Dialect:   dialect,
		Blobs:     blobs,
		Roles:     security.StaticResolver{},
		Extractor: services.PlainTextExtractor{},
		Logger:    logger,

		DefaultQuotaBytes: c.DefaultQuotaBytes,
	})
	if err := svc.Bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap error: %w", err)
	}

	return &App{config: c, logger: logger, db: db, service: svc}, nil
}

// Service exposes the repository orchestrator to embedding surfaces.
func (app *App) Service() *services.Service {
	return app.service
}

func newBlobStore(ctx context.Context, c *config.Config, db *sql.DB, dialect dbx.Dialect) (blob.Store, error) {
	switch c.BlobBackend {
	case "fs":
		return blob.NewFSStore(c.DataDir)
	case "db":
		return blob.NewDBStore(db, dialect), nil
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			RootUser:     c.S3RootUser,
			RootPassword: c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unsupported blob backend: %q", c.BlobBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runExtractionLoop drains the text extraction queue on a fixed interval
// until the context is cancelled.
func (app *App) runExtractionLoop(ctx context.Context) {
	ticker := time.NewTicker(app.config.ExtractionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, err := app.service.ProcessExtractionQueue(ctx, app.config.ExtractionBatch)
			if err != nil {
				app.logger.Error(ctx, "extraction queue run failed", "error", err)
				continue
			}
			if processed > 0 {
				app.logger.Info(ctx, "extraction queue run finished", "processed", processed)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runExtractionLoop(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
}
