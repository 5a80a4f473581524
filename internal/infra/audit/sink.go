// Package audit persists security events without putting the database on the request path.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	deliverycontext "tenantauth/internal/delivery/context"
	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/domain/service"
	"tenantauth/internal/infra/metrics"

	"go.uber.org/fx"
)

const (
	defaultBufferSize = 1024
	writeTimeout      = 5 * time.Second
)

// DropCounter is told about every event the sink could not queue.
type DropCounter interface {
	AuditDropped()
}

// Sink is a buffered, fire-and-forget AuditSink. A single goroutine writes queued
// events; Record never blocks and drops events once the buffer is full.
type Sink struct {
	repo    repository.AuditLogRepository
	logger  *slog.Logger
	dropped DropCounter

	events   chan entity.AuditEvent
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// Params holds dependencies for the audit sink, injected by Fx.
type Params struct {
	fx.In
	fx.Lifecycle

	Repo    repository.AuditLogRepository
	Metrics *metrics.Metrics `optional:"true"`
	Logger  *slog.Logger
}

// NewSink creates the sink and ties its writer goroutine to the application lifecycle.
func NewSink(params Params) service.AuditSink {
	sink := newSink(params.Repo, params.Logger, params.Metrics, defaultBufferSize)

	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			sink.Start()

			return nil
		},
		OnStop: sink.Stop,
	})

	return sink
}

func newSink(repo repository.AuditLogRepository, logger *slog.Logger, dropped DropCounter, size int) *Sink {
	if size <= 0 {
		size = defaultBufferSize
	}

	return &Sink{
		repo:    repo,
		logger:  logger.With(slog.String("component", "audit")),
		dropped: dropped,
		events:  make(chan entity.AuditEvent, size),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Record queues the event. The request ID is taken from ctx when the event does not carry one.
func (s *Sink) Record(ctx context.Context, event entity.AuditEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.Client.RequestID == "" {
		event.Client.RequestID = deliverycontext.GetRequestIDFromContext(ctx)
	}

	select {
	case <-s.done:
		s.drop(ctx, event, "sink stopped")
	default:
		select {
		case s.events <- event:
		default:
			s.drop(ctx, event, "buffer full")
		}
	}
}

func (s *Sink) drop(ctx context.Context, event entity.AuditEvent, reason string) {
	if s.dropped != nil {
		s.dropped.AuditDropped()
	}
	deliverycontext.GetLoggerOrDefault(ctx, s.logger).Warn("Audit event dropped",
		slog.String("action", string(event.Action)),
		slog.String("reason", reason),
	)
}

// Start launches the writer goroutine.
func (s *Sink) Start() {
	go s.run()
}

// Stop stops accepting events, flushes what is queued and waits for the writer or ctx.
func (s *Sink) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })

	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		s.logger.Warn("Audit sink stopped before flushing", slog.Int("pending", len(s.events)))

		return ctx.Err()
	}
}

func (s *Sink) run() {
	defer close(s.stopped)

	for {
		select {
		case event := <-s.events:
			s.write(event)
		case <-s.done:
			for {
				select {
				case event := <-s.events:
					s.write(event)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) write(event entity.AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, &event); err != nil {
		s.logger.Warn("Failed to write audit event",
			slog.String("action", string(event.Action)),
			slog.String("request_id", event.Client.RequestID),
			slog.Any("error", err),
		)
	}
}
