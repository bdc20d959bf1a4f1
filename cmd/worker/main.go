// Package main - точка входа для фоновых процессов (Worker) Edulight.
//
// Worker отвечает за периодические задачи:
// - Досчёт устаревших сводок прогресса (каждые несколько минут)
// - Ночной полный пересчёт прогресса всех записей
//
// Сводки считаются лениво и по событиям, поэтому Worker - это страховка:
// он подбирает то, что API не успел или не смог пересчитать.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/edulight/edulight-backend/config"

	// Domain layer
	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"

	// Infrastructure layer
	"github.com/edulight/edulight-backend/internal/infrastructure/messaging"
	"github.com/edulight/edulight-backend/internal/infrastructure/persistence/postgres"
	"github.com/edulight/edulight-backend/internal/infrastructure/persistence/redis"
	"github.com/edulight/edulight-backend/internal/infrastructure/scheduler"
	"github.com/edulight/edulight-backend/internal/infrastructure/scheduler/jobs"
	"github.com/edulight/edulight-backend/internal/infrastructure/service"
	"github.com/edulight/edulight-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	rollback := flag.Bool("rollback-last-migration", false,
		"откатить последнюю миграцию схемы и выйти")
	flag.Parse()

	ctx := context.Background()

	if err := run(ctx, *rollback); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run инициализирует зависимости и запускает планировщик.
func run(ctx context.Context, rollbackMigration bool) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Edulight worker",
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	timeutil.SetLocation(cfg.App.Location)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to PostgreSQL...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, postgres.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ (Worker также должен иметь актуальную схему)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if rollbackMigration {
		if err := migrator.RollbackLast(ctx); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		log.Info("last migration rolled back")
		return nil
	}
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	// Worker в основном публикует: события пересчёта уходят через Redis
	// к API-инстансам, чтобы те обновляли свои проекции.
	log.Info("initializing event bus...")

	localBusCfg := messaging.DefaultInMemoryEventBusConfig()
	localBusCfg.Logger = log

	var eventBus shared.EventBus
	var closeEventBus func() error
	if cfg.Features.IsEnabled(config.FeatureEventsRedisBus, nil) && redisCache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSubClient(redisCache),
			LocalBusConfig: localBusCfg,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis event bus: %w", err)
		}
		eventBus = redisBus
		closeEventBus = redisBus.Close
		log.Info("using Redis event bus", "feature", config.FeatureEventsRedisBus)
	} else {
		localBus := messaging.NewInMemoryEventBus(localBusCfg)
		eventBus = localBus
		closeEventBus = localBus.Close
	}
	defer func() {
		log.Info("closing event bus...")
		_ = closeEventBus()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. РЕПОЗИТОРИИ И АГРЕГАТОР ПРОГРЕССА
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	lessonRepo := postgres.NewLessonRepository(dbConn)
	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn)
	completionRepo := postgres.NewCompletionRepository(dbConn)
	summaryRepo := postgres.NewSummaryRepository(dbConn)

	aggregator := progress.NewAggregator(
		completionRepo,
		summaryRepo,
		lessonRepo,
		progress.DefaultAggregatorConfig(),
	)

	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureProgressSummaryCache, nil) {
		guardedCache := service.NewGuardedSummaryCache(redis.NewSummaryCache(redisCache), log)
		aggregator = aggregator.WithCache(guardedCache)
		log.Info("summary cache enabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ПЛАНИРОВЩИК И ДЖОБЫ
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Scheduler.Enabled {
		// Редкий режим: инстанс поднимают только ради миграций.
		log.Warn("scheduler is disabled, worker will stay idle")
	}

	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:   log,
		Timezone: cfg.App.Location,
	})

	if cfg.Scheduler.Enabled {
		refreshJob := jobs.NewRefreshStaleSummariesJob(
			summaryRepo,
			aggregator,
			eventBus,
			log,
			jobs.RefreshStaleSummariesConfig{Timeout: cfg.Scheduler.JobTimeout},
		)
		refreshSchedule := scheduler.NewIntervalSchedule(cfg.Scheduler.RefreshStaleInterval).
			WithJitter(cfg.Scheduler.RefreshStaleInterval / 10)
		if err := sched.Register(refreshJob, refreshSchedule); err != nil {
			return fmt.Errorf("failed to register refresh job: %w", err)
		}

		recomputeJob := jobs.NewRecomputeAllProgressJob(
			enrollmentRepo,
			aggregator,
			eventBus,
			log,
			jobs.RecomputeAllProgressConfig{Timeout: cfg.Scheduler.JobTimeout},
		)
		// Cron-выражение, если задано, перекрывает время HH:MM.
		var nightly scheduler.Schedule
		if cfg.Scheduler.RecomputeCron != "" {
			nightly, err = scheduler.NewCronSchedule(cfg.Scheduler.RecomputeCron, cfg.App.Location)
			if err != nil {
				return fmt.Errorf("invalid recompute cron expression: %w", err)
			}
		} else {
			nightly = scheduler.NewDailySchedule(cfg.Scheduler.RecomputeHour, cfg.Scheduler.RecomputeMinute, cfg.App.Location)
		}
		if err := sched.Register(recomputeJob, nightly); err != nil {
			return fmt.Errorf("failed to register recompute job: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		log.Info("scheduler started",
			"refresh_interval", cfg.Scheduler.RefreshStaleInterval.String(),
			"nightly_recompute", nightly.String(),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Edulight worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	if cfg.Scheduler.Enabled {
		if err := sched.Stop(); err != nil {
			log.Error("scheduler stop failed", "error", err)
		}
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug || cfg.Observability.LogLevel == "debug" {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
