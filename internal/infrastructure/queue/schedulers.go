package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"restaurant-backoffice/internal/config"
	"restaurant-backoffice/internal/shared"
	"restaurant-backoffice/pkg/logger"
)

// taskRegistrar is the part of *asynq.Scheduler used to register jobs
type taskRegistrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

type Scheduler struct {
	scheduler *asynq.Scheduler
	registrar taskRegistrar
	jobConfig config.QueueConfig
}

// NewScheduler creates an asynq scheduler whose cron specs are evaluated
// in loc (the outlet time zone).
func NewScheduler(redisOpt asynq.RedisConnOpt, jobConfig config.QueueConfig, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: loc,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		registrar: scheduler,
		jobConfig: jobConfig,
	}
}

// RegisterJobs registers every periodic job
func (s *Scheduler) RegisterJobs() error {
	if err := s.registerDeactivateExpiredPromotionsJob(); err != nil {
		return err
	}

	return nil
}

// ================================================
// JOB: Deactivate Expired Promotions (daily by default)
// ================================================
// The evaluation path already rejects promotions past their end date;
// this job keeps the stored status in line for the admin list.
func (s *Scheduler) registerDeactivateExpiredPromotionsJob() error {
	task := asynq.NewTask(shared.TypePromotionDeactivateExpired, nil)

	_, err := s.registrar.Register(
		s.jobConfig.DeactivateExpiredCron,
		task,
		asynq.Queue(shared.QueuePromotion),
		asynq.MaxRetry(2),
		asynq.Timeout(5*time.Minute),
		asynq.Unique(time.Hour),
	)
	if err != nil {
		logger.Error("Failed to register DeactivateExpiredPromotions job", err)
		return err
	}

	logger.Info("Registered DeactivateExpiredPromotions", map[string]interface{}{
		"cron": s.jobConfig.DeactivateExpiredCron,
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
