package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lorrc/ticket-monitor/internal/core/domain"
	apperrors "github.com/lorrc/ticket-monitor/internal/core/errors"
	"github.com/lorrc/ticket-monitor/internal/core/ports"
	"github.com/lorrc/ticket-monitor/internal/infrastructure/logging"
)

// MonitorService owns the run state of the background poll loop and
// guarantees at most one loop goroutine is alive at a time.
type MonitorService struct {
	runner      ports.CycleRunner
	interval    time.Duration
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger

	// mu serialises Start and Stop and guards cancel and done. It is never
	// held while waiting on a loop to exit. running is only written under mu
	// but Status reads it without locking.
	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ ports.MonitorService = (*MonitorService)(nil)

// NewMonitorService creates a new monitor service. broadcaster may be nil.
func NewMonitorService(
	runner ports.CycleRunner,
	interval time.Duration,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) *MonitorService {
	return &MonitorService{
		runner:      runner,
		interval:    interval,
		broadcaster: broadcaster,
		logger:      logger.With("component", "monitor"),
	}
}

// Start launches the poll loop. The loop is detached from ctx; only Stop or
// Shutdown end it. If a previous loop was cancelled but has not exited yet,
// Start waits for it, giving up with ctx's error if ctx ends first.
func (s *MonitorService) Start(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.running.Load() {
			s.mu.Unlock()
			return apperrors.ErrAlreadyRunning
		}

		prev := s.done
		if prev == nil || isClosed(prev) {
			s.launch()
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()

		select {
		case <-prev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	logging.LoggerFromContext(ctx, s.logger).Info("ticket monitoring started", "polling_interval", s.interval.String())
	s.publish(domain.EventMonitorStarted)
	return nil
}

// launch starts a new loop goroutine. s.mu must be held.
func (s *MonitorService) launch() {
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.cancel = cancel
	s.done = done
	s.running.Store(true)

	go s.run(loopCtx, done)
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (s *MonitorService) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			logging.LogPanic(ctx, s.logger, r)
		}
	}()

	if err := s.runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("poll loop exited", "error", err)
	}
}

// Stop cancels the poll loop and waits for it to exit or for ctx to expire.
// The monitor reports not running as soon as the loop is cancelled; a Start
// issued while the old loop is still winding down waits for it.
func (s *MonitorService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return apperrors.ErrNotRunning
	}

	s.running.Store(false)
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("poll loop still stopping", "error", ctx.Err())
		return ctx.Err()
	}

	logging.LoggerFromContext(ctx, s.logger).Info("ticket monitoring stopped")
	s.publish(domain.EventMonitorStopped)
	return nil
}

// Status reports the current run state. LastCheck is the time of the call.
// It never blocks on Start or Stop.
func (s *MonitorService) Status() domain.MonitorStatus {
	return domain.MonitorStatus{
		IsMonitoring:    s.running.Load(),
		LastCheck:       time.Now().UTC(),
		PollingInterval: s.interval,
	}
}

// Shutdown stops the loop if it is running.
func (s *MonitorService) Shutdown(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil && !errors.Is(err, apperrors.ErrNotRunning) {
		return err
	}
	return nil
}

func (s *MonitorService) publish(eventType domain.EventType) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(domain.Event{Type: eventType}); err != nil {
		s.logger.Warn("failed to broadcast event", "event_type", eventType, "error", err)
	}
}
