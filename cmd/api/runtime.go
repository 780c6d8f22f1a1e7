package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/reparafacil/repair-service/internal/cache"
	"github.com/reparafacil/repair-service/internal/config"
	"github.com/reparafacil/repair-service/internal/events"
	"github.com/reparafacil/repair-service/internal/observability"
	"github.com/reparafacil/repair-service/internal/persistence"
	"github.com/reparafacil/repair-service/internal/repository"
	"github.com/reparafacil/repair-service/internal/service"
)

// runtime holds the process-wide collaborators shared by every subcommand.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	pg      *persistence.Postgres
	redis   *persistence.Redis
	metrics *observability.Metrics

	tickets repository.TicketRepository
	users   repository.UserRepository
	history repository.TicketHistoryRepository

	lifecycle  *service.LifecycleService
	query      *service.QueryService
	historySvc *service.HistoryService
	auth       *service.AuthService
	userSvc    *service.UserService
	seed       *service.SeedService
}

func loadRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(zap.String("service", cfg.App.Name), zap.String("version", cfg.App.Version))

	rt := &runtime{cfg: cfg, logger: logger}
	if err := rt.openStores(ctx); err != nil {
		rt.close()
		return nil, err
	}
	rt.buildServices()
	return rt, nil
}

func (rt *runtime) openStores(ctx context.Context) error {
	switch rt.cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, rt.cfg.Postgres, rt.logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		rt.pg = pg
		rt.tickets = repository.NewTicketRepository(pg.PoolHandle())
		rt.users = repository.NewUserRepository(pg.PoolHandle())
		rt.history = repository.NewTicketHistoryRepository(pg.PoolHandle())
	default:
		rt.logger.Warn("using in-memory store; data is lost on exit")
		rt.tickets = repository.NewMemoryTicketRepository()
		rt.users = repository.NewMemoryUserRepository()
		rt.history = repository.NewMemoryTicketHistoryRepository()
	}
	rt.redis = persistence.NewRedis(rt.cfg.Redis, rt.logger)
	return nil
}

func (rt *runtime) buildServices() {
	dispatcher := events.NewInMemoryDispatcher(rt.logger)
	rt.metrics = observability.NewMetrics()
	rt.metrics.Subscribe(dispatcher)

	var statsCache service.StatisticsCache
	if rt.redis.Client != nil {
		c := cache.NewStatisticsCache(rt.redis.Client, rt.cfg.Redis.StatsTTL(), rt.logger)
		c.Subscribe(dispatcher)
		statsCache = c
	}

	rt.historySvc = service.NewHistoryService(service.HistoryDependencies{
		HistoryRepo: rt.history,
		TicketRepo:  rt.tickets,
		Logger:      rt.logger,
	})
	rt.historySvc.Subscribe(dispatcher)

	rt.lifecycle = service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo: rt.tickets,
		Dispatcher: dispatcher,
		Logger:     rt.logger,
	})
	rt.query = service.NewQueryService(service.QueryDependencies{
		TicketRepo: rt.tickets,
		StatsCache: statsCache,
		Logger:     rt.logger,
	})
	rt.auth = service.NewAuthService(rt.cfg.Auth, service.AuthDependencies{
		UserRepo: rt.users,
		Logger:   rt.logger,
	})
	rt.userSvc = service.NewUserService(service.UserDependencies{
		UserRepo:    rt.users,
		AuthService: rt.auth,
		Logger:      rt.logger,
	})
	rt.seed = service.NewSeedService(service.SeedDependencies{
		UserRepo:    rt.users,
		AuthService: rt.auth,
		Lifecycle:   rt.lifecycle,
		Logger:      rt.logger,
	})
}

func (rt *runtime) migrate(ctx context.Context, dir string) ([]string, error) {
	if rt.pg == nil {
		return nil, nil
	}
	return persistence.RunMigrations(ctx, rt.pg.PoolHandle(), dir, rt.logger)
}

func (rt *runtime) close() {
	rt.redis.Close()
	rt.pg.Close()
	_ = rt.logger.Sync()
}
