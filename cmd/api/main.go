package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	httptransport "github.com/fieldops/maintenance-desk/internal/api/http"
	"github.com/fieldops/maintenance-desk/internal/api/http/handlers"
	"github.com/fieldops/maintenance-desk/internal/auth"
	"github.com/fieldops/maintenance-desk/internal/config"
	"github.com/fieldops/maintenance-desk/internal/events"
	"github.com/fieldops/maintenance-desk/internal/observability"
	"github.com/fieldops/maintenance-desk/internal/persistence"
	"github.com/fieldops/maintenance-desk/internal/repository"
	"github.com/fieldops/maintenance-desk/internal/repository/memory"
	"github.com/fieldops/maintenance-desk/internal/service"
	"github.com/fieldops/maintenance-desk/internal/worker"
	"github.com/fieldops/maintenance-desk/internal/workflow"
)

type repositories struct {
	users         repository.UserRepository
	sites         repository.SiteRepository
	assets        repository.AssetRepository
	tickets       repository.TicketRepository
	activities    repository.ActivityRepository
	rmas          repository.RMARepository
	registrations repository.RegistrationRepository
}

func postgresRepositories(pool *pgxpool.Pool) repositories {
	return repositories{
		users:         repository.NewUserRepository(pool),
		sites:         repository.NewSiteRepository(pool),
		assets:        repository.NewAssetRepository(pool),
		tickets:       repository.NewTicketRepository(pool),
		activities:    repository.NewActivityRepository(pool),
		rmas:          repository.NewRMARepository(pool),
		registrations: repository.NewRegistrationRepository(pool),
	}
}

func memoryRepositories() repositories {
	return repositories{
		users:         memory.NewUserRepository(),
		sites:         memory.NewSiteRepository(),
		assets:        memory.NewAssetRepository(),
		tickets:       memory.NewTicketRepository(),
		activities:    memory.NewActivityRepository(),
		rmas:          memory.NewRMARepository(),
		registrations: memory.NewRegistrationRepository(),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	repos := memoryRepositories()
	if pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = postgresRepositories(pool)
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		numbers  repository.NumberGenerator = memory.NewNumberGenerator()
		sessions repository.SessionStore    = memory.NewSessionStore(time.Now)
	)
	switch {
	case pool != nil:
		numbers = repository.NewPostgresNumberGenerator(pool)
	case redis.Available():
		numbers = repository.NewRedisNumberGenerator(redis.Client, numbers, logger)
	}
	if redis.Available() {
		sessions = repository.NewRedisSessionStore(redis.Client)
	}

	cipher, err := auth.NewCredentialCipher(cfg.Assets.CredentialSecret)
	if err != nil {
		logger.Fatal("failed to init credential cipher", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger, metrics)
	slaPolicy := workflow.NewSLAPolicy(cfg.SLA.ResponseMinutes, cfg.SLA.RestoreMinutes, cfg.SLA.AtRiskPercent)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: repos.users,
		Sessions: sessions,
		Logger:   logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   repos.users,
		SiteRepo:   repos.sites,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	siteService := service.NewSiteService(repos.sites, nil)
	assetService := service.NewAssetService(service.AssetDependencies{
		AssetRepo:  repos.assets,
		SiteRepo:   repos.sites,
		Cipher:     cipher,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   repos.tickets,
		ActivityRepo: repos.activities,
		AssetRepo:    repos.assets,
		SiteRepo:     repos.sites,
		UserRepo:     repos.users,
		Numbers:      numbers,
		Dispatcher:   dispatcher,
		SLAPolicy:    slaPolicy,
		Metrics:      metrics,
		Logger:       logger,
	})
	rmaService := service.NewRMAService(service.RMADependencies{
		RMARepo:      repos.rmas,
		TicketRepo:   repos.tickets,
		AssetRepo:    repos.assets,
		SiteRepo:     repos.sites,
		ActivityRepo: repos.activities,
		Numbers:      numbers,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	registrationService := service.NewRegistrationService(service.RegistrationDependencies{
		RegistrationRepo: repos.registrations,
		UserRepo:         repos.users,
		BcryptCost:       cfg.Auth.BcryptCost,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification, nil)

	if cfg.Bootstrap.AdminEmail != "" {
		if _, err := userService.EnsureBootstrapAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			logger.Fatal("failed to bootstrap admin", zap.Error(err))
		}
	}

	hub := events.NewLiveHub()
	workers := &worker.Workers{
		Notifications: notificationService,
		Live:          events.NewLiveRelay(redis.Client, cfg.Live.Channel, hub, logger),
		Logger:        logger,
	}
	if len(cfg.Kafka.Brokers) > 0 {
		workers.Kafka = events.NewKafkaRelay(cfg.Kafka)
	}
	workers.Start(ctx, dispatcher)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	timeout := time.Duration(cfg.App.RequestTimeoutSeconds) * time.Second
	httptransport.RegisterMiddlewares(app, logger, metrics, timeout)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		RMA:            handlers.NewRMAHandler(rmaService),
		Assets:         handlers.NewAssetsHandler(assetService),
		Sites:          handlers.NewSitesHandler(siteService),
		Users:          handlers.NewUsersHandler(userService),
		Registrations:  handlers.NewRegistrationsHandler(registrationService),
		Live:           handlers.NewLiveHandler(hub, logger),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.users),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	workers.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
