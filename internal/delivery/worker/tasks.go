package worker

import (
	"context"
	"log/slog"
	"time"

	"tenantauth/internal/infra/metrics"
	"tenantauth/internal/usecase"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	// QueueDefault is the only queue the worker consumes.
	QueueDefault = "default"

	// TaskTypeTokenCleanup purges expired refresh tokens and revoked-token rows.
	TaskTypeTokenCleanup = "tokens:cleanup"

	cleanupTaskTimeout = 10 * time.Minute
)

// NewTokenCleanupTask builds the payload-free cleanup task.
func NewTokenCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeTokenCleanup, nil,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(1),
		asynq.Timeout(cleanupTaskTimeout),
	)
}

// CleanupProcessorParams holds dependencies for CleanupProcessor, injected by Fx.
type CleanupProcessorParams struct {
	fx.In

	CleanupUC usecase.CleanupUsecase
	Metrics   *metrics.Metrics `optional:"true"`
	Logger    *slog.Logger
}

// CleanupProcessor handles TaskTypeTokenCleanup.
type CleanupProcessor struct {
	cleanupUC usecase.CleanupUsecase
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewCleanupProcessor is the constructor for CleanupProcessor
func NewCleanupProcessor(params CleanupProcessorParams) *CleanupProcessor {
	return &CleanupProcessor{
		cleanupUC: params.CleanupUC,
		metrics:   params.Metrics,
		logger:    params.Logger,
	}
}

// ProcessTask implements asynq.Handler.
func (p *CleanupProcessor) ProcessTask(ctx context.Context, task *asynq.Task) error {
	tracker := p.metrics.TrackCleanup()
	logger := p.logger.With(slog.String("task", task.Type()))

	result, err := p.cleanupUC.PurgeExpiredTokens(ctx)
	if err != nil {
		logger.Error("Token cleanup failed", slog.Any("error", err))

		return tracker.End(errors.Wrap(err, "token cleanup"))
	}

	logger.Info("Token cleanup finished",
		slog.Int64("refresh_tokens_deleted", result.RefreshTokens),
		slog.Int64("revoked_tokens_deleted", result.RevokedTokens),
	)

	return tracker.End(nil)
}
