package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/netfailover/internal/core/domain"
	"github.com/vietddude/netfailover/internal/core/worker"
	"github.com/vietddude/netfailover/internal/failover"
	"github.com/vietddude/netfailover/internal/health"
	redisclient "github.com/vietddude/netfailover/internal/infra/redis"
	"github.com/vietddude/netfailover/internal/infra/storage/postgres"
	"github.com/vietddude/netfailover/internal/netif"
)

// History reads journaled attempts back.
type History interface {
	Recent(ctx context.Context, n int) ([]domain.Attempt, error)
	Execution(ctx context.Context, id string) ([]domain.Attempt, error)
}

// App wires the interface poller, the failover client, the attempt journals
// and the health server, and manages their lifecycle.
type App struct {
	cfg          Config
	poller       *netif.Poller
	failover     *failover.Failover
	healthMon    *health.Monitor
	healthServer *health.Server
	pruner       *worker.Pruner
	db           *postgres.DB
	redisClient  *redisclient.Client
	history      History
	log          *slog.Logger
}

// NewApp creates a new App with all dependencies initialized. Journal
// backends that fail to connect are skipped with a warning.
func NewApp(ctx context.Context, cfg Config) (*App, error) {
	log := slog.Default().With("component", "app")
	a := &App{cfg: cfg, log: log}

	lister := cfg.Lister
	if lister == nil {
		lister = netif.HostLister{}
	}
	a.poller = netif.NewPoller(lister, cfg.Monitor, slog.Default())

	journals := failover.MultiJournal{}
	if cfg.Journal != nil {
		journals = append(journals, cfg.Journal)
	}

	if cfg.Redis.Enabled() {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Redis journal disabled", "error", err)
		} else {
			a.redisClient = client
			j := redisclient.NewAttemptJournal(client, cfg.Redis.MaxEntries, slog.Default())
			journals = append(journals, j)
			a.history = j
			log.Info("Using Redis attempt journal")
		}
	}

	if cfg.Database.Enabled() {
		db, err := a.openDatabase(ctx)
		if err != nil {
			log.Warn("PostgreSQL journal disabled", "error", err)
		} else {
			a.db = db
			repo := postgres.NewAttemptRepo(db, slog.Default())
			journals = append(journals, repo)
			a.pruner = worker.NewPruner(cfg.Database.Retention, repo, slog.Default())
			if a.history == nil {
				a.history = postgresHistory{repo}
			}
			log.Info("Using PostgreSQL attempt journal")
		}
	}

	opts := failover.Options{
		Priority:  cfg.Priority,
		Resolver:  cfg.Resolver,
		Source:    a.poller,
		Transport: cfg.Transport,
		Logger:    slog.Default(),
	}
	if len(journals) > 0 {
		opts.Journal = journals
	}
	f, err := failover.New(opts)
	if err != nil {
		a.closeBackends()
		return nil, fmt.Errorf("failed to init failover: %w", err)
	}
	a.failover = f

	a.healthMon = health.NewMonitor(f.Registry(), 2*time.Second)
	if a.redisClient != nil {
		a.healthMon.AddDependency("redis", a.redisClient)
	}
	if a.db != nil {
		a.healthMon.AddDependency("postgres", a.db)
	}
	if cfg.Port > 0 {
		a.healthServer = health.NewServer(a.healthMon, cfg.Port)
	}

	return a, nil
}

func (a *App) openDatabase(ctx context.Context) (*postgres.DB, error) {
	db, err := postgres.NewDB(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Run polls host interfaces and serves health endpoints until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.poller.Run(ctx)
	})

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	if a.pruner != nil {
		g.Go(func() error {
			a.pruner.Start(ctx)
			return nil
		})
	}

	if a.healthServer != nil {
		g.Go(func() error {
			a.log.Info("Health server listening", "port", a.cfg.Port)
			if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("health server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return a.healthServer.Stop(shutdownCtx)
		})
	}

	return g.Wait()
}

func (a *App) Failover() *failover.Failover { return a.failover }

func (a *App) Poller() *netif.Poller { return a.poller }

func (a *App) Monitor() *health.Monitor { return a.healthMon }

// History returns the attempt history backend, preferring Redis. It is nil
// when no backend is configured.
func (a *App) History() History { return a.history }

// Close stops the failover client and closes journal backends.
func (a *App) Close() error {
	a.log.Info("Stopping app")
	err := a.failover.Close()
	a.closeBackends()
	return err
}

func (a *App) closeBackends() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
}

// postgresHistory adapts AttemptRepo to History.
type postgresHistory struct {
	repo *postgres.AttemptRepo
}

func (h postgresHistory) Recent(ctx context.Context, n int) ([]domain.Attempt, error) {
	return h.repo.Recent(ctx, n)
}

func (h postgresHistory) Execution(ctx context.Context, id string) ([]domain.Attempt, error) {
	return h.repo.ListByExecution(ctx, id)
}
