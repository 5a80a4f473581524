package worker

import (
	"context"
	"log/slog"
	"time"

	"tenantauth/config"
	"tenantauth/internal/delivery"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// TaskServerParams holds dependencies for the task server, injected by Fx.
type TaskServerParams struct {
	fx.In

	Lc               fx.Lifecycle
	Cfg              *config.Config
	Logger           *slog.Logger
	CleanupProcessor *CleanupProcessor
}

// taskServer consumes the queue and, when enabled, schedules the periodic cleanup.
type taskServer struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// RedisClientOpt maps the Redis configuration onto asynq's connection options.
func RedisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewTaskServer builds the asynq server and registers the cleanup cron entry.
func NewTaskServer(params TaskServerParams) (delivery.Delivery, error) {
	redisOpt := RedisClientOpt(params.Cfg.Redis)
	cleanupCfg := params.Cfg.Cleanup

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cleanupCfg.Concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
		Logger:   newAsynqLogger(params.Logger),
		LogLevel: asynq.WarnLevel,
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeTokenCleanup, params.CleanupProcessor)

	var scheduler *asynq.Scheduler
	if cleanupCfg.Enabled {
		scheduler = asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
			Location: time.UTC,
			Logger:   newAsynqLogger(params.Logger),
			LogLevel: asynq.WarnLevel,
		})
		if _, err := scheduler.Register(cleanupCfg.Schedule, NewTokenCleanupTask()); err != nil {
			return nil, errors.Wrapf(err, "invalid cleanup schedule %q", cleanupCfg.Schedule)
		}
	}

	s := &taskServer{
		server:    srv,
		mux:       mux,
		scheduler: scheduler,
		logger:    params.Logger,
	}

	params.Lc.Append(fx.Hook{
		OnStop: s.stop,
	})

	return s, nil
}

// Serve starts the processor and the scheduler and returns; OnStop drains both.
func (s *taskServer) Serve(_ context.Context) error {
	s.logger.Info("Starting task server", slog.Bool("scheduler", s.scheduler != nil))
	if err := s.server.Start(s.mux); err != nil {
		return errors.Wrap(err, "failed to start task server")
	}
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			s.server.Shutdown()

			return errors.Wrap(err, "failed to start task scheduler")
		}
	}

	return nil
}

func (s *taskServer) stop(_ context.Context) error {
	s.logger.Info("Shutting down task server")
	if s.scheduler != nil {
		s.scheduler.Shutdown()
	}
	s.server.Shutdown()

	return nil
}
