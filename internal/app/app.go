package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marktrabit/internal/auth"
	"github.com/MrSnakeDoc/marktrabit/internal/bookmarks"
	"github.com/MrSnakeDoc/marktrabit/internal/config"
	"github.com/MrSnakeDoc/marktrabit/internal/dashboard"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
	"github.com/MrSnakeDoc/marktrabit/internal/redis"
	"github.com/MrSnakeDoc/marktrabit/internal/scheduler"
	"github.com/MrSnakeDoc/marktrabit/internal/session"
	"github.com/MrSnakeDoc/marktrabit/internal/store/memory"
	"github.com/MrSnakeDoc/marktrabit/internal/store/postgres"
	redisstore "github.com/MrSnakeDoc/marktrabit/internal/store/redis"
	"github.com/MrSnakeDoc/marktrabit/internal/supabase"
	"github.com/MrSnakeDoc/marktrabit/internal/telemetry"
	"github.com/MrSnakeDoc/marktrabit/internal/version"
)

// localStore keeps sessions, flows and view states.
type localStore interface {
	session.Store
	dashboard.ViewStore
}

type App struct {
	cfg             *config.Config
	logger          logger.Logger
	server          *httpserver.Server
	redisClient     *goredis.Client
	pgPool          *pgxpool.Pool
	sweeper         *scheduler.SessionSweeper
	gc              *scheduler.GarbageCollector // nil when Redis expires keys itself
	shutdownTracing telemetry.ShutdownFunc
}

// New wires every component from cfg. Failures to reach a configured
// dependency are fatal here rather than at first use.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: loggerClient}
	defer func() {
		if err != nil {
			a.closeClients()
		}
	}()

	a.shutdownTracing, err = telemetry.InitTracing(ctx, version.Name, version.Version, cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	metrics := telemetry.NewMetrics()

	sb := supabase.New(supabase.Options{
		BaseURL: cfg.SupabaseURL,
		AnonKey: cfg.SupabaseAnonKey,
		Timeout: cfg.RemoteTimeout,
		Traced:  cfg.OTLPEndpoint != "",
	})

	checks := []deps.Check{{Name: "identity", Critical: true, Ping: sb.Health}}

	// Local state: Redis when configured, memory otherwise
	var (
		store  localStore
		broker session.Broker
	)
	if cfg.UseRedis() {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		a.redisClient, err = redis.New(ctx, redis.OptionsFromConfig(cfg), loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		rs := redisstore.NewStore(a.redisClient)
		store = rs
		broker = redisstore.NewBroker(a.redisClient, loggerClient)
		checks = append(checks, deps.Check{Name: "redis", Critical: true, Ping: rs.Ping})
		loggerClient.Info("Redis initialized successfully")
	} else {
		loggerClient.Warn("MARKTRABIT_REDIS_ADDR is empty, sessions are kept in memory (single instance only)")
		ms := memory.NewStore()
		store = ms
		broker = session.NewMemoryBroker()
		a.gc = scheduler.NewGarbageCollector(ms, loggerClient, scheduler.DefaultGCInterval)
	}

	backend, err := a.bookmarkBackend(ctx, sb, &checks)
	if err != nil {
		return nil, err
	}
	repo := bookmarks.NewService(backend, cfg.RemoteTimeout, loggerClient, metrics)

	manager := session.NewManager(sb, store, broker, loggerClient, session.Options{
		SessionTTL:     cfg.SessionTTL,
		FlowTTL:        cfg.FlowTTL,
		RefreshSkew:    cfg.RefreshSkew,
		RefreshTimeout: cfg.RemoteTimeout,
	})
	gate := auth.NewGate(manager, loggerClient, auth.CookieOptions{
		Secure: cfg.CookieSecure,
		MaxAge: cfg.SessionTTL,
	})
	controller := dashboard.NewController(repo, manager, store, loggerClient, dashboard.Options{
		ViewTTL: cfg.SessionTTL,
	})
	a.sweeper = scheduler.NewSessionSweeper(manager, metrics, loggerClient, cfg.SessionSweepInterval)

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimit:       cfg.RateLimit,
		PublicURL:       cfg.PublicURL,
		OAuthProvider:   cfg.OAuthProvider,
		FlowTTL:         cfg.FlowTTL,
		CallbackTimeout: cfg.CallbackTimeout,
		Gate:            gate,
		SignIn:          manager,
		Dashboard:       controller,
		Bookmarks:       repo,
		Metrics:         metrics,
		Checks:          checks,
		Presence:        Presence(cfg),
	}

	a.server = httpserver.New(cfg, loggerClient, d)
	return a, nil
}

// bookmarkBackend builds the storage selected by MARKTRABIT_BACKEND.
func (a *App) bookmarkBackend(ctx context.Context, sb *supabase.Client, checks *[]deps.Check) (bookmarks.Repository, error) {
	switch a.cfg.Backend {
	case config.BackendPostgres:
		pool, err := postgres.Open(ctx, a.cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.pgPool = pool
		if err := postgres.Migrate(ctx, pool); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		pg := postgres.NewBookmarks(pool)
		*checks = append(*checks, deps.Check{Name: "postgres", Critical: true, Ping: pg.Ping})
		a.logger.Info("bookmarks stored in postgres")
		return pg, nil

	case config.BackendMemory:
		a.logger.Warn("bookmarks stored in memory, they are lost on restart")
		return memory.NewBookmarks(), nil

	default:
		return supabase.NewBookmarks(sb, func(row map[string]any, err error) {
			a.logger.Warn("skipping malformed bookmark row",
				logger.String("id", fmt.Sprint(row["id"])),
				logger.Error(err))
		}), nil
	}
}

// Presence reports which settings are configured, for the debug page.
func Presence(cfg *config.Config) deps.Presence {
	return deps.Presence{
		"supabase_url":      cfg.SupabaseURL != "",
		"supabase_anon_key": cfg.SupabaseAnonKey != "",
		"public_url":        cfg.PublicURL != "",
		"redis":             cfg.UseRedis(),
		"database_dsn":      cfg.DatabaseDSN != "",
		"otlp_endpoint":     cfg.OTLPEndpoint != "",
		"allowed_cidrs":     len(cfg.AllowedCIDRS) > 0,
		"cookie_secure":     cfg.CookieSecure,
	}
}

// Run serves until ctx is cancelled or the server fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("🚀 Starting %s %s on %s", version.Name, version.Version, a.cfg.ListenAddr)
	a.logger.Info(version.String(),
		logger.String("backend", a.cfg.Backend),
		logger.Bool("redis", a.cfg.UseRedis()))

	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session sweeper: %w", err)
	}
	a.logger.Info("session sweeper started",
		logger.Duration("interval", a.cfg.SessionSweepInterval))

	if a.gc != nil {
		if err := a.gc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start garbage collector: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.sweeper.Stop()
	if a.gc != nil {
		a.gc.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to stop server: %w", err))
	}
	if err := a.shutdownTracing(shutdownCtx); err != nil {
		a.logger.Warn("failed to flush traces", logger.Error(err))
	}
	a.closeClients()

	if runErr == nil {
		a.logger.Info("✅ marktrabit stopped cleanly")
	}
	return runErr
}

func (a *App) closeClients() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
		a.redisClient = nil
	}
	if a.pgPool != nil {
		a.pgPool.Close()
		a.pgPool = nil
	}
}
