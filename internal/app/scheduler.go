package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Freeeeeet/club_league/internal/lock"
	"github.com/Freeeeeet/club_league/internal/service"
)

// ErrUnknownJob задачи с таким именем нет
var ErrUnknownJob = errors.New("unknown background job")

// Названия фоновых задач
const (
	JobExpiration  = "expiration"
	JobAutoConfirm = "auto-confirm"
)

// Job фоновая задача, повторяемая с интервалом
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (service.SweepReport, error)
}

// Locker межпроцессная аренда задачи; nil - задачи выполняются без неё
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (*lock.Lease, error)
}

// Scheduler управляет фоновыми задачами. Один запуск задачи одновременно:
// внутри процесса через singleflight, между процессами через Locker.
type Scheduler struct {
	jobs     map[string]Job
	order    []string
	locker   Locker
	leaseTTL time.Duration
	group    singleflight.Group
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(locker Locker, leaseTTL time.Duration, logger *zap.Logger, jobs ...Job) *Scheduler {
	s := &Scheduler{
		jobs:     make(map[string]Job, len(jobs)),
		locker:   locker,
		leaseTTL: leaseTTL,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
	for _, j := range jobs {
		s.jobs[j.Name] = j
		s.order = append(s.order, j.Name)
	}
	return s
}

// SweepJobs задачи истечения матчей и автоподтверждения результатов
func SweepJobs(matches *service.MatchService, expirationEvery, autoConfirmEvery time.Duration) []Job {
	return []Job{
		{Name: JobExpiration, Interval: expirationEvery, Run: matches.ExpireOverdueMatches},
		{Name: JobAutoConfirm, Interval: autoConfirmEvery, Run: matches.AutoConfirmResults},
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Strings("jobs", s.order))

	for _, name := range s.order {
		job := s.jobs[name]
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, job)
		}()
	}
}

// Stop останавливает фоновые задачи и ждёт текущие запуски
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	// Первый запуск сразу при старте
	s.tick(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx, job)
		case <-s.stopChan:
			s.logger.Info("Background job stopped", zap.String("job", job.Name))
			return
		case <-ctx.Done():
			s.logger.Info("Background job cancelled", zap.String("job", job.Name))
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, job Job) {
	_, err := s.run(ctx, job)
	switch {
	case err == nil:
	case errors.Is(err, lock.ErrNotAcquired):
		s.logger.Debug("Background job is running elsewhere", zap.String("job", job.Name))
	default:
		s.logger.Error("Background job failed", zap.String("job", job.Name), zap.Error(err))
	}
}

// RunNow запускает задачу вне расписания. Если она уже идёт в этом процессе,
// возвращается результат текущего запуска.
func (s *Scheduler) RunNow(ctx context.Context, name string) (service.SweepReport, error) {
	job, ok := s.jobs[name]
	if !ok {
		return service.SweepReport{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, job)
}

func (s *Scheduler) run(ctx context.Context, job Job) (service.SweepReport, error) {
	v, err, _ := s.group.Do(job.Name, func() (any, error) {
		if s.locker != nil {
			lease, err := s.locker.Acquire(ctx, job.Name, s.leaseTTL)
			if err != nil {
				return service.SweepReport{}, err
			}
			defer func() {
				if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
					s.logger.Warn("Failed to release job lease", zap.String("job", job.Name), zap.Error(err))
				}
			}()
		}

		started := time.Now()
		report, err := job.Run(ctx)
		if err != nil {
			return report, err
		}
		s.logger.Debug("Background job finished",
			zap.String("job", job.Name),
			zap.Duration("took", time.Since(started)))
		return report, nil
	})
	report, _ := v.(service.SweepReport)
	return report, err
}
