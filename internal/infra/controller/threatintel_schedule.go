package controller

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/wellqio/api/pkg/logger"
)

// SyncEnqueuer schedules one background threat intel sync run.
type SyncEnqueuer interface {
	EnqueueThreatIntelSync(ctx context.Context) error
}

// ThreatIntelScheduler enqueues feed syncs on a cron schedule. The actual
// fetch and upsert happen in the background worker; the scheduler only
// produces the task, so several API replicas scheduling concurrently
// collapse into asynq's queue.
type ThreatIntelScheduler struct {
	cron     *cron.Cron
	enqueuer SyncEnqueuer
	schedule string
	logger   *logger.Logger
}

// NewThreatIntelScheduler creates a scheduler for the given cron
// expression (standard five-field format).
func NewThreatIntelScheduler(enqueuer SyncEnqueuer, schedule string, log *logger.Logger) (*ThreatIntelScheduler, error) {
	s := &ThreatIntelScheduler{
		cron:     cron.New(),
		enqueuer: enqueuer,
		schedule: schedule,
		logger:   log.With("component", "threatintel_scheduler"),
	}

	if _, err := s.cron.AddFunc(schedule, s.trigger); err != nil {
		return nil, fmt.Errorf("parse sync schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins firing the schedule.
func (s *ThreatIntelScheduler) Start() {
	s.logger.Info("threat intel sync scheduled", "schedule", s.schedule)
	s.cron.Start()
}

// Stop halts the schedule and waits for an in-flight trigger.
func (s *ThreatIntelScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *ThreatIntelScheduler) trigger() {
	if err := s.enqueuer.EnqueueThreatIntelSync(context.Background()); err != nil {
		s.logger.Error("enqueue threat intel sync", "error", err)
		return
	}
	s.logger.Info("threat intel sync enqueued")
}
