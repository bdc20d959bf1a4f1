// Package scheduler запускает фоновые джобы Edulight по расписанию:
// периодическое обновление устаревших сводок прогресса и ночной
// полный пересчёт.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrNilJob возвращается при регистрации nil-джобы.
	ErrNilJob = fmt.Errorf("job cannot be nil")

	// ErrNilSchedule возвращается при регистрации джобы без расписания.
	ErrNilSchedule = fmt.Errorf("schedule cannot be nil")

	// ErrJobAlreadyExists возвращается при повторной регистрации имени.
	ErrJobAlreadyExists = fmt.Errorf("job already exists")

	// ErrSchedulerAlreadyRunning возвращается при повторном Start.
	ErrSchedulerAlreadyRunning = fmt.Errorf("scheduler is already running")

	// ErrSchedulerNotRunning возвращается при Stop без Start.
	ErrSchedulerNotRunning = fmt.Errorf("scheduler is not running")
)

// Job - единица фоновой работы.
type Job interface {
	// Name возвращает уникальное имя джобы.
	Name() string

	// Run выполняет джобу. Контекст отменяется при остановке планировщика.
	Run(ctx context.Context) error

	// Description возвращает человеко-читаемое описание.
	Description() string
}

// Schedule определяет, когда джоба должна запускаться.
type Schedule interface {
	// Next возвращает следующий момент запуска после t.
	Next(t time.Time) time.Time

	// String возвращает человеко-читаемое представление расписания.
	String() string
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler хранит зарегистрированные джобы и запускает их по расписанию.
type Scheduler struct {
	mu sync.RWMutex

	logger   *slog.Logger
	timezone *time.Location

	jobs      map[string]*scheduledJob
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
}

// scheduledJob - джоба вместе с её расписанием и счётчиками запусков.
type scheduledJob struct {
	job       Job
	schedule  Schedule
	lastRun   time.Time
	nextRun   time.Time
	runCount  int64
	failCount int64
}

// SchedulerConfig содержит настройки планировщика.
type SchedulerConfig struct {
	// Logger для структурированных логов.
	Logger *slog.Logger

	// Timezone для расчёта расписаний (по умолчанию UTC).
	// Ночной пересчёт должен идти ночью по местному времени, не по UTC.
	Timezone *time.Location
}

// NewScheduler создаёт новый планировщик.
func NewScheduler(config SchedulerConfig) *Scheduler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}

	return &Scheduler{
		logger:   config.Logger,
		timezone: config.Timezone,
		jobs:     make(map[string]*scheduledJob),
	}
}

// Register добавляет джобу с расписанием.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	now := time.Now().In(s.timezone)
	sj := &scheduledJob{
		job:      job,
		schedule: schedule,
		nextRun:  schedule.Next(now),
	}

	s.jobs[name] = sj

	s.logger.Info("job registered",
		"job", name,
		"description", job.Description(),
		"schedule", schedule.String(),
		"next_run", sj.nextRun.Format(time.RFC3339),
	)

	return nil
}

// Start запускает цикл планировщика.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs_count", len(s.jobs))

	s.wg.Add(1)
	go s.runLoop()

	return nil
}

// Stop останавливает планировщик, дождавшись выполняющихся джоб.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.RLock()
	for name, sj := range s.jobs {
		s.logger.Info("job totals",
			"job", name,
			"runs", sj.runCount,
			"failures", sj.failCount,
		)
	}
	s.mu.RUnlock()

	s.logger.Info("scheduler stopped",
		"uptime", time.Since(s.startedAt).String(),
	)

	return nil
}

// IsRunning сообщает, запущен ли планировщик.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER LOOP
// ══════════════════════════════════════════════════════════════════════════════

// runLoop раз в секунду проверяет, не подошло ли время какой-то джобы.
func (s *Scheduler) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.checkAndRunJobs()
		}
	}
}

// checkAndRunJobs запускает джобы, чьё время подошло.
func (s *Scheduler) checkAndRunJobs() {
	now := time.Now().In(s.timezone)

	s.mu.RLock()
	jobsToRun := make([]*scheduledJob, 0)
	for _, sj := range s.jobs {
		if !sj.nextRun.IsZero() && now.After(sj.nextRun) {
			jobsToRun = append(jobsToRun, sj)
		}
	}
	s.mu.RUnlock()

	for _, sj := range jobsToRun {
		s.wg.Add(1)
		go s.runJob(sj)
	}
}

// runJob выполняет одну джобу и обновляет её счётчики.
func (s *Scheduler) runJob(sj *scheduledJob) {
	defer s.wg.Done()

	jobName := sj.job.Name()
	startedAt := time.Now()

	s.logger.Info("job started", "job", jobName)

	// nextRun сдвигается до запуска: долгая джоба не должна
	// откладывать собственный следующий запуск.
	s.mu.Lock()
	sj.lastRun = startedAt
	sj.nextRun = sj.schedule.Next(startedAt.In(s.timezone))
	sj.runCount++
	s.mu.Unlock()

	err := sj.job.Run(s.ctx)
	duration := time.Since(startedAt)

	if err != nil {
		s.mu.Lock()
		sj.failCount++
		s.mu.Unlock()

		s.logger.Error("job failed",
			"job", jobName,
			"duration", duration.String(),
			"error", err,
		)
		return
	}

	s.logger.Info("job completed",
		"job", jobName,
		"duration", duration.String(),
	)
}
