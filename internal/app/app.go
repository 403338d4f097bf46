package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/arborsync/arbor/internal/analyzer"
	"github.com/arborsync/arbor/internal/config"
	"github.com/arborsync/arbor/internal/httpserver"
	"github.com/arborsync/arbor/internal/httpserver/deps"
	"github.com/arborsync/arbor/internal/importer"
	"github.com/arborsync/arbor/internal/logger"
	"github.com/arborsync/arbor/internal/metadata"
	"github.com/arborsync/arbor/internal/provider"
	"github.com/arborsync/arbor/internal/redis"
	"github.com/arborsync/arbor/internal/scheduler"
	"github.com/arborsync/arbor/internal/sources/forest"
	"github.com/arborsync/arbor/internal/store"
	memorystore "github.com/arborsync/arbor/internal/store/memory"
	redisstore "github.com/arborsync/arbor/internal/store/redis"
	"github.com/arborsync/arbor/internal/tree"
	"github.com/arborsync/arbor/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	treeSvc     *tree.Service
	meta        *metadata.Store
	sched       *scheduler.Scheduler
	maintenance *scheduler.Maintenance
	engine      *importer.Engine
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Pick the durable store: Redis when configured, in-memory otherwise.
	var st store.Store
	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("Redis initialized successfully")
		redisClient = client
		st = redisstore.NewStore(client)
	} else {
		loggerClient.Info("no Redis configured, using in-memory store")
		st = memorystore.New()
	}

	// The native forest. Deployments without a real browser forest boot an
	// in-memory one, optionally seeded from a YAML file.
	prov := provider.NewMemoryProvider("Bookmarks Bar", "Other Bookmarks")
	if cfg.ForestFile != "" {
		loggerClient.Info("seeding forest from file",
			logger.String("file", cfg.ForestFile))
		seedForest(cfg.ForestFile, prov, loggerClient)
	}

	meta := metadata.New(st, loggerClient, cfg.FlushDebounce)
	if err := meta.Load(context.Background()); err != nil {
		loggerClient.Errorf("Failed to load metadata: %v", err)
		os.Exit(1)
	}

	treeSvc := tree.New(prov, st, meta, loggerClient, cfg.RootTitle)
	if err := treeSvc.Initialize(context.Background()); err != nil {
		loggerClient.Errorf("Failed to initialize tree service: %v", err)
		os.Exit(1)
	}

	sched := scheduler.New(st, loggerClient, scheduler.DefaultResolution)

	engine := importer.New(treeSvc, meta, prov, st, sched, loggerClient, importer.Options{
		ChunkSize: cfg.ImportChunkSize,
		Source:    "api",
	})

	maintenance := scheduler.NewMaintenance(st, treeSvc, meta, loggerClient)

	sched.Register(importer.ContinueAlarm, func(ctx context.Context) {
		if err := engine.ContinueBatch(ctx, nil); err != nil {
			loggerClient.Warn("batch continuation failed", logger.Error(err))
		}
	})
	sched.Register(scheduler.MaintenanceAlarm, maintenance.Sweep)

	fetcher := analyzer.NewFetcher(cfg.FetchTimeout)
	enricher := analyzer.NewEnricher(treeSvc, meta, analyzer.NewHeuristic(), fetcher, loggerClient)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		Tree:         treeSvc,
		Meta:         meta,
		Importer:     engine,
		Enricher:     enricher,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		treeSvc:     treeSvc,
		meta:        meta,
		sched:       sched,
		maintenance: maintenance,
		engine:      engine,
	}
}

// seedForest is best effort: a broken seed file leaves the forest empty
// rather than aborting startup.
func seedForest(file string, prov *provider.MemoryProvider, log logger.Logger) {
	cfg, err := forest.NewLoader(file).Load()
	if err != nil {
		log.Warn("failed to load forest seed", logger.Error(err))
		return
	}
	created, err := forest.NewSeeder(prov).Seed(context.Background(), cfg)
	if err != nil {
		log.Warn("forest seeding incomplete", logger.Error(err))
	}
	log.Info("forest seeded", logger.Int("nodes", created))
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Arbor v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Arbor %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Arm the periodic maintenance sweep and start the alarm runner. A
	// pending batch-import alarm persisted by a previous run fires here too.
	if err := a.sched.Create(ctx, scheduler.MaintenanceAlarm, a.cfg.MaintenanceCron, a.cfg.MaintenanceCron); err != nil {
		return fmt.Errorf("failed to arm maintenance alarm: %w", err)
	}
	// A crash inside a chunk leaves an in-progress job with no alarm;
	// re-arm it before the runner starts.
	if err := a.engine.ResumePending(ctx); err != nil {
		a.logger.Warn("failed to resume pending import", logger.Error(err))
	}
	a.sched.Start(ctx)
	a.logger.Info("scheduler started",
		logger.Duration("maintenance_interval", a.cfg.MaintenanceCron))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.sched.Stop()
	a.treeSvc.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Push any debounced metadata out before the store goes away.
	if err := a.meta.Flush(shutdownCtx); err != nil {
		a.logger.Warnf("failed to flush metadata on shutdown: %v", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Arbor stopped cleanly")
	return nil
}
