package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/socket-link/kore/internal/port/meetingstore"
)

// MeetingScheduler polls for meetings whose scheduled time has passed and
// starts them through the orchestrator. Because the due-meeting query
// filters on Scheduled status, a meeting started by an earlier poll (or a
// direct StartMeeting call) is never returned again, so repeated polling
// cannot double-start.
type MeetingScheduler struct {
	meetings meetingstore.Store
	orch     *MeetingOrchestrator
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewMeetingScheduler creates the scheduler with the given poll interval.
func NewMeetingScheduler(meetings meetingstore.Store, orch *MeetingOrchestrator, interval time.Duration) *MeetingScheduler {
	return &MeetingScheduler{
		meetings: meetings,
		orch:     orch,
		interval: interval,
		now:      time.Now,
	}
}

// Start launches the polling loop. Calling Start while already running is a
// no-op. The loop stops when ctx is canceled or Stop is called.
func (s *MeetingScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		// Meetings overdue across a restart start on the first poll, not
		// one interval later.
		s.poll(loopCtx)

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.poll(loopCtx)
			}
		}
	}()

	slog.Info("meeting scheduler started", "interval", s.interval)
}

// Stop cancels the polling loop. Calling Stop when not running, or more
// than once, is a no-op.
func (s *MeetingScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	slog.Info("meeting scheduler stopped")
}

// Running reports whether the polling loop is active.
func (s *MeetingScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *MeetingScheduler) poll(ctx context.Context) {
	started, err := s.CheckAndStartMeetings(ctx)
	if err != nil {
		slog.Warn("scheduler poll failed", "error", err)
		return
	}
	if started > 0 {
		slog.Info("scheduler started due meetings", "count", started)
	}
}

// CheckAndStartMeetings runs one poll cycle: it queries for due meetings
// still in Scheduled status and starts each through the orchestrator,
// sequentially in query order. A failure to start one meeting is logged and
// skipped so it cannot block the rest of the batch. Returns the number of
// meetings successfully started.
func (s *MeetingScheduler) CheckAndStartMeetings(ctx context.Context) (int, error) {
	due, err := s.meetings.ScheduledBefore(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}

	started := 0
	for i := range due {
		if _, err := s.orch.StartMeeting(ctx, due[i].ID); err != nil {
			slog.Warn("scheduler failed to start meeting", "meeting_id", due[i].ID, "error", err)
			continue
		}
		started++
	}
	return started, nil
}
