package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/logger"
	"github.com/arborsync/arbor/internal/store"
)

// DefaultResolution is how often the runner checks for due alarms.
const DefaultResolution = 250 * time.Millisecond

// HandlerFunc is a named callback fired when its alarm comes due.
type HandlerFunc func(ctx context.Context)

// Scheduler fires named callbacks at persisted times. Fire times live in
// the durable store, so a one-shot alarm armed before a crash still fires
// after the process comes back; handlers are re-registered at startup.
type Scheduler struct {
	store      store.Store
	log        logger.Logger
	resolution time.Duration

	mu       sync.Mutex
	handlers map[string]HandlerFunc

	stopCh chan struct{}
}

// New creates a scheduler. A zero resolution falls back to the default.
func New(st store.Store, log logger.Logger, resolution time.Duration) *Scheduler {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &Scheduler{
		store:      st,
		log:        log,
		resolution: resolution,
		handlers:   make(map[string]HandlerFunc),
		stopCh:     make(chan struct{}),
	}
}

// Register binds a handler to an alarm name. Alarms without a registered
// handler stay persisted and are skipped until one appears.
func (s *Scheduler) Register(name string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

// Create arms a named alarm: first fire after delay, then every period if
// period is non-zero. Re-creating an existing name overwrites it.
func (s *Scheduler) Create(ctx context.Context, name string, delay, period time.Duration) error {
	alarm := &domain.Alarm{
		Name:     name,
		NextFire: time.Now().Add(delay),
		Period:   period,
	}
	if err := s.store.SaveAlarm(ctx, alarm); err != nil {
		return fmt.Errorf("failed to arm alarm %s: %w", name, err)
	}
	return nil
}

// Get returns the persisted alarm, or nil when not armed.
func (s *Scheduler) Get(ctx context.Context, name string) (*domain.Alarm, error) {
	return s.store.Alarm(ctx, name)
}

// Clear disarms a named alarm.
func (s *Scheduler) Clear(ctx context.Context, name string) error {
	return s.store.DeleteAlarm(ctx, name)
}

// Start begins the runner loop.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.resolution)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.fireDue(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the runner.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

// fireDue runs every due alarm inline. One-shot alarms are disarmed before
// their handler runs so a handler re-arming the same name is not clobbered.
func (s *Scheduler) fireDue(ctx context.Context) {
	alarms, err := s.store.Alarms(ctx)
	if err != nil {
		s.log.Warn("failed to list alarms", logger.Error(err))
		return
	}

	now := time.Now()
	for _, alarm := range alarms {
		if alarm.NextFire.After(now) {
			continue
		}

		s.mu.Lock()
		h := s.handlers[alarm.Name]
		s.mu.Unlock()
		if h == nil {
			continue
		}

		if alarm.Period > 0 {
			alarm.NextFire = now.Add(alarm.Period)
			if err := s.store.SaveAlarm(ctx, alarm); err != nil {
				s.log.Warn("failed to re-arm periodic alarm",
					logger.String("alarm", alarm.Name),
					logger.Error(err))
			}
		} else {
			if err := s.store.DeleteAlarm(ctx, alarm.Name); err != nil {
				s.log.Warn("failed to disarm alarm",
					logger.String("alarm", alarm.Name),
					logger.Error(err))
			}
		}

		s.log.Debug("alarm fired", logger.String("alarm", alarm.Name))
		h(ctx)
	}
}
