// Package server wires the storage backends, the endpoint registry and the
// HTTP server together, and runs them until the process is told to stop.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/docstore/internal/buildinfo"
	"github.com/dmitrijs2005/docstore/internal/logging"
	"github.com/dmitrijs2005/docstore/internal/server/auth"
	"github.com/dmitrijs2005/docstore/internal/server/blobstore"
	"github.com/dmitrijs2005/docstore/internal/server/config"
	"github.com/dmitrijs2005/docstore/internal/server/endpoints"
	"github.com/dmitrijs2005/docstore/internal/server/gc"
	"github.com/dmitrijs2005/docstore/internal/server/httpapi"
	"github.com/dmitrijs2005/docstore/internal/server/ingest"
	"github.com/dmitrijs2005/docstore/internal/server/objectstore"
	"github.com/dmitrijs2005/docstore/internal/server/repositories/repomanager"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	cache    *objectstore.DigestCache
	store    *objectstore.Store
	registry *endpoints.Registry
	server   *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(logging.Options{
		Level:      c.LogLevel,
		File:       c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAgeDays: c.LogMaxAgeDays,
	})
	app := &App{config: c, logger: logger}
	ready := false
	defer func() {
		if !ready {
			app.close(ctx)
		}
	}()

	var err error
	app.repos, err = openRepositories(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("metadata init error: %w", err)
	}
	if err := app.repos.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := openBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	opts := []objectstore.Option{objectstore.WithLogger(logger)}
	if c.CacheSizeMB > 0 {
		app.cache, err = objectstore.NewDigestCache(ctx, c.CacheTTL, c.CacheSizeMB)
		if err != nil {
			return nil, fmt.Errorf("cache init error: %w", err)
		}
		opts = append(opts, objectstore.WithCache(app.cache))
	}
	app.store = objectstore.New(app.repos.Objects(), blobs, opts...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app.registry, err = endpoints.NewRegistry(ctx, c.Endpoints, app.store, logger, ingest.NewMetrics(reg))
	if err != nil {
		return nil, err
	}
	if len(app.registry.Endpoints()) == 0 {
		logger.Warn(ctx, "no endpoints configured")
	}

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.RouterOptions{
		Registry:   app.registry,
		Handlers:   httpapi.NewHandlers(app.store, auth.OwnerPolicy{}, c.BaseURI, logger),
		SecretKey:  []byte(c.SecretKey),
		Prometheus: reg,
		Logger:     logger,
	})
	app.server = httpapi.NewServer(c.HTTPAddr, router, c.ShutdownTimeout, logger)

	ready = true
	return app, nil
}

// Backend constructors, replaceable in tests. Each returns a nil interface
// on failure.
var (
	openPostgres = func(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
		m, err := repomanager.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	openBolt = func(path string) (repomanager.RepositoryManager, error) {
		m, err := repomanager.OpenBolt(path)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	newS3Store = func(ctx context.Context, opts blobstore.S3Options) (blobstore.Store, error) {
		s, err := blobstore.NewS3Store(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
)

func openRepositories(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	switch c.MetadataBackend {
	case "postgres":
		return openPostgres(ctx, c.DatabaseDSN)
	case "bolt":
		return openBolt(c.BoltPath)
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", c.MetadataBackend)
	}
}

func openBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	switch c.BlobBackend {
	case "s3":
		return newS3Store(ctx, blobstore.S3Options{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	case "fs":
		s, err := blobstore.NewFSStore(c.FSDir, c.FSCompress)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startCollector(ctx context.Context) {
	seen := make(map[string]bool)
	var buckets []string
	for _, ep := range app.registry.Endpoints() {
		if !seen[ep.Policy.Bucket] {
			seen[ep.Policy.Bucket] = true
			buckets = append(buckets, ep.Policy.Bucket)
		}
	}

	c := gc.NewCollector(app.store, app.repos, buckets, gc.Policy{
		Grace:     app.config.GCGrace,
		Retention: app.config.GCRetention,
		BatchSize: app.config.GCBatchSize,
	}, app.logger)
	app.logger.Info(ctx, "Starting collector", "interval", app.config.GCInterval, "buckets", buckets)
	c.RunPeriodically(ctx, app.config.GCInterval)
}

// Run blocks until ctx is cancelled, a termination signal arrives or the
// HTTP server fails. Backends are closed before it returns.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", buildinfo.Version, "commit", buildinfo.Commit)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GCEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startCollector(ctx)
		}()
	}

	wg.Wait()

	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Warn(ctx, "closing cache", "error", err)
		}
	}
	if app.repos != nil {
		if err := app.repos.Close(); err != nil {
			app.logger.Warn(ctx, "closing metadata store", "error", err)
		}
	}
}
