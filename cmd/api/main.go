package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/config"
	authHandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	billingHandler "github.com/jwalitptl/clinic-api/internal/handler/billing"
	clinicHandler "github.com/jwalitptl/clinic-api/internal/handler/clinic"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/clinic-api/internal/handler/patient"
	queueHandler "github.com/jwalitptl/clinic-api/internal/handler/queue"
	visitHandler "github.com/jwalitptl/clinic-api/internal/handler/visit"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/repository/seed"
	"github.com/jwalitptl/clinic-api/internal/router"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/internal/service/billing"
	clinicService "github.com/jwalitptl/clinic-api/internal/service/clinic"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	patientService "github.com/jwalitptl/clinic-api/internal/service/patient"
	"github.com/jwalitptl/clinic-api/internal/service/queue"
	"github.com/jwalitptl/clinic-api/internal/service/visit"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/messaging/local"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})

	loc, err := cfg.Location()
	if err != nil {
		log.Warn("falling back to host timezone", "error", err.Error())
	}
	clock := func() time.Time { return time.Now().In(loc) }

	if cfg.JWT.Secret == config.DefaultJWTSecret {
		log.Warn("using the default JWT secret; set CLINIC_JWT_SECRET outside local runs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal(err, "failed to open store")
	}
	defer store.Close()

	hasher := security.NewBcrypt(cfg.JWT.BcryptCost)
	if cfg.Store.Seed {
		clinic := model.ClinicInfo{Name: cfg.Clinic.Name, Address: cfg.Clinic.Address, Phone: cfg.Clinic.Phone}
		if err := seed.Seed(ctx, store, hasher, cfg.Store.SeedPassword, clinic); err != nil {
			log.Fatal(err, "failed to seed store")
		}
	}

	broker, err := openBroker(ctx, cfg, log)
	if err != nil {
		log.Fatal(err, "failed to connect to message broker")
	}
	defer broker.Close()

	m := metrics.NewMetrics("clinic", prometheus.DefaultRegisterer)
	v := validator.New()
	calc := billing.NewCalculator(cfg.Billing.ConsultationFee, cfg.Billing.FeeLabel)
	events := event.NewService(broker, cfg.Outbox.Channel)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	visitSvc := visit.NewService(store, calc, events, v, m, log, visit.Config{
		RegularPrefix:   cfg.Queue.RegularPrefix,
		EmergencyPrefix: cfg.Queue.EmergencyPrefix,
		NumberWidth:     cfg.Queue.NumberWidth,
		Clock:           clock,
	})
	queueSvc := queue.NewService(store, calc, cfg.Cache.LabelTTL, m, clock)
	billingSvc := billing.NewService(store, calc, events, v, m, log, clock)
	patientSvc := patientService.NewService(store)
	clinicSvc := clinicService.NewService(store, v, log, clinicService.Config{
		Defaults: model.ClinicInfo{
			Name:    cfg.Clinic.Name,
			Address: cfg.Clinic.Address,
			Phone:   cfg.Clinic.Phone,
			Email:   cfg.Clinic.Email,
		},
		ProfileTTL: cfg.Cache.ClinicTTL,
		Weekdays:   cfg.Queue.Weekdays,
		Clock:      clock,
	})
	authSvc := authService.NewService(store.Users(), jwtSvc, hasher, v, log)

	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(log, m, router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		RequestTimeout:   cfg.Server.RequestTimeout,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins: cfg.Security.AllowedOrigins,
			AllowMethods: cfg.Security.AllowedMethods,
			AllowHeaders: cfg.Security.AllowedHeaders,
		},
		ReleaseMode: cfg.Log.Level != "debug",
	},
		health.NewHandler(store, prometheus.DefaultGatherer),
		authHandler.NewHandler(authSvc, authMiddleware),
		visitHandler.NewHandler(visitSvc, authMiddleware),
		queueHandler.NewHandler(queueSvc, events, authMiddleware),
		billingHandler.NewHandler(billingSvc, authMiddleware),
		patientHandler.NewHandler(patientSvc, authMiddleware),
		clinicHandler.NewHandler(clinicSvc, authMiddleware),
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	var wg sync.WaitGroup
	if cfg.Outbox.Enabled {
		processor := worker.NewOutboxProcessor(store.Outbox(), broker, cfg.Outbox.ToWorkerConfig(), log, m)
		cleanup := worker.NewOutboxCleanupWorker(store.Outbox(), cfg.Outbox.Retention, time.Hour, log)
		wg.Add(2)
		go func() { defer wg.Done(); processor.Start(ctx) }()
		go func() { defer wg.Done(); cleanup.Start(ctx) }()
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}
	wg.Wait()

	log.Info("server exited properly")
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.Store, error) {
	if cfg.Store.Driver == "memory" {
		log.Info("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	store := postgres.NewStore(db)
	if cfg.Database.Migrate {
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return store, nil
}

// openBroker uses Redis when enabled so that several API replicas and the
// standalone worker share one event stream.
func openBroker(ctx context.Context, cfg *config.Config, log *logger.Logger) (messaging.Broker, error) {
	if !cfg.Redis.Enabled {
		return local.NewBroker(), nil
	}
	return redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), &log.ZL)
}
