// Package main - точка входа для HTTP API сервера Edulight.
//
// API обслуживает обе стороны платформы:
// - Студенты: дашборд прогресса, запись на курсы, отметки уроков
// - Преподаватели: управление каталогом, обзор курса со статистикой
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries/Event Handlers)
// - Infrastructure: PostgreSQL, Redis, event bus, проекции
// - Interface: REST API endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/edulight/edulight-backend/config"

	// Application layer
	"github.com/edulight/edulight-backend/internal/application/command"
	"github.com/edulight/edulight-backend/internal/application/eventhandler"
	"github.com/edulight/edulight-backend/internal/application/query"

	// Domain layer
	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"

	// Infrastructure layer
	"github.com/edulight/edulight-backend/internal/infrastructure/messaging"
	"github.com/edulight/edulight-backend/internal/infrastructure/persistence/postgres"
	"github.com/edulight/edulight-backend/internal/infrastructure/persistence/projections"
	"github.com/edulight/edulight-backend/internal/infrastructure/persistence/redis"
	"github.com/edulight/edulight-backend/internal/infrastructure/service"

	// Interface layer
	httpserver "github.com/edulight/edulight-backend/internal/interface/http"
	"github.com/edulight/edulight-backend/internal/interface/http/handlers"

	// Packages
	"github.com/edulight/edulight-backend/pkg/logger"
	"github.com/edulight/edulight-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx := context.Background()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run инициализирует все зависимости и запускает сервер.
// Выделено в отдельную функцию, чтобы defer-ы отрабатывали до os.Exit.
func run(ctx context.Context) error {
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
	log.Info("starting Edulight API server",
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// Все "последняя активность N назад" и ночные джобы считаются
	// в таймзоне платформы.
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
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
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
			// Redis - это ускорение, не источник истины. Без него API
			// работает, просто медленнее.
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
	studentRepo := postgres.NewStudentRepository(dbConn)
	courseRepo := postgres.NewCourseRepository(dbConn)
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

	// Кеш сводок за circuit breaker-ом: деградация Redis не должна
	// ронять дашборды.
	var guardedCache *service.GuardedSummaryCache
	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureProgressSummaryCache, nil) {
		guardedCache = service.NewGuardedSummaryCache(redis.NewSummaryCache(redisCache), log)
		aggregator = aggregator.WithCache(guardedCache)
		log.Info("summary cache enabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ПРОЕКЦИИ И ОБРАБОТЧИКИ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event handlers...")

	progressView := projections.NewCourseProgressView()

	completionCfg := eventhandler.DefaultCompletionRecordedConfig()
	completionCfg.EagerRecompute = cfg.Features.IsEnabled(config.FeatureProgressEagerRecompute, nil)

	onCompletion := eventhandler.NewOnCompletionRecordedHandler(aggregator, eventBus, log, completionCfg)
	onLifecycle := eventhandler.NewOnLessonLifecycleHandler(aggregator, eventBus, log)
	onSummary := eventhandler.NewOnSummaryChangedHandler(progressView, log)

	// Обработчики подключаются через диспетчер: recovery, логирование,
	// метрики, ретраи и DLQ для упавших событий.
	dispatcherCfg := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherCfg.Logger = log
	dispatcher := messaging.NewDispatcher(dispatcherCfg)
	for _, mw := range messaging.DefaultMiddleware(log, dispatcher.Metrics()) {
		dispatcher.Use(mw)
	}

	registrations := []struct {
		eventType shared.EventType
		name      string
		handler   shared.EventHandler
	}{
		{shared.EventLessonCompleted, "on_completion_recorded", onCompletion.Handle},
		{shared.EventLessonUncompleted, "on_completion_recorded", onCompletion.Handle},
		{shared.EventLessonPublished, "on_lesson_lifecycle", onLifecycle.Handle},
		{shared.EventLessonUnpublished, "on_lesson_lifecycle", onLifecycle.Handle},
		{shared.EventLessonDeleted, "on_lesson_lifecycle", onLifecycle.Handle},
	}
	for _, reg := range registrations {
		if err := dispatcher.Register(reg.eventType, reg.name, reg.handler); err != nil {
			return fmt.Errorf("failed to register handler %s: %w", reg.name, err)
		}
	}

	// Проекция обновляется синхронно: следующий запрос обзора курса
	// уже должен видеть пересчитанную сводку.
	for _, eventType := range []shared.EventType{
		shared.EventSummaryRecomputed,
		shared.EventSummaryInvalidated,
	} {
		if err := dispatcher.RegisterSync(eventType, "course_progress_view", onSummary.Handle); err != nil {
			return fmt.Errorf("failed to register projection handler: %w", err)
		}
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start event dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping event dispatcher...")
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. COMMAND / QUERY HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application handlers...")

	setCompletionHandler := command.NewSetCompletionHandler(studentRepo, lessonRepo, completionRepo, eventBus)
	importHandler := command.NewImportCompletionsHandler(setCompletionHandler)
	createStudentHandler := command.NewCreateStudentHandler(studentRepo, eventBus)
	enrollHandler := command.NewEnrollStudentHandler(studentRepo, courseRepo, enrollmentRepo, aggregator, eventBus)
	catalogHandler := command.NewManageCatalogHandler(courseRepo, lessonRepo, eventBus)

	overviewReader := &courseProgressReader{view: progressView, fallback: summaryRepo}

	dashboardHandler := query.NewGetDashboardProgressHandler(studentRepo, enrollmentRepo, courseRepo, aggregator)
	overviewHandler := query.NewGetCourseOverviewHandler(courseRepo, lessonRepo, enrollmentRepo, studentRepo, completionRepo, overviewReader)
	completionsHandler := query.NewGetCompletionsHandler(studentRepo, courseRepo, lessonRepo, completionRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}
	if guardedCache != nil {
		healthChecker.AddCheck("cache_breaker", handlers.NewBreakerCheck("redis-cache", guardedCache.Breaker()))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpCfg.EnableCORS = cfg.HTTP.EnableCORS
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.APIKeys = cfg.HTTP.APIKeys
	httpCfg.EnableMetrics = cfg.Observability.MetricsEnabled

	loggerOpts := logger.DefaultOptions()
	loggerOpts.Level = logger.ParseLevel(cfg.Observability.LogLevel)

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		GetDashboardProgressHandler: dashboardHandler,
		GetCourseOverviewHandler:    overviewHandler,
		GetCompletionsHandler:       completionsHandler,
		SetCompletionHandler:        setCompletionHandler,
		ImportCompletionsHandler:    importHandler,
		CreateStudentHandler:        createStudentHandler,
		EnrollStudentHandler:        enrollHandler,
		ManageCatalogHandler:        catalogHandler,
		Features:                    cfg.Features,
		Logger:                      logger.New(loggerOpts),
		HealthChecker:               healthChecker,
	})

	errCh := server.StartAsync()
	log.Info("Edulight API server is running",
		"address", httpCfg.Address(),
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Error("http server shutdown failed", "error", err)
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
		Level: parseLogLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
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

// parseLogLevel переводит строковый уровень в slog.Level.
func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ADAPTERS
// ══════════════════════════════════════════════════════════════════════════════

// courseProgressReader отдаёт сводки курса из in-memory проекции
// и ходит в Postgres, пока проекция для курса ещё не прогрета.
// Прочитанное из Postgres сразу кладётся в проекцию.
type courseProgressReader struct {
	view     *projections.CourseProgressView
	fallback query.CourseProgressReader
}

func (r *courseProgressReader) GetByCourse(ctx context.Context, courseID string) ([]*progress.CourseProgressSummary, error) {
	summaries, err := r.view.GetByCourse(ctx, courseID)
	if err == nil && len(summaries) > 0 {
		return summaries, nil
	}

	summaries, err = r.fallback.GetByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(summaries) > 0 {
		_ = r.view.RebuildCourse(courseID, summaries)
	}
	return summaries, nil
}

// _ гарантирует соответствие интерфейсу на этапе компиляции.
var _ query.CourseProgressReader = (*courseProgressReader)(nil)
