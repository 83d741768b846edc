package moderation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/safronx/sentinel/internal/metrics"
	"github.com/safronx/sentinel/internal/roles"
	"github.com/safronx/sentinel/internal/telegram"
)

// Unrestrictor is the single platform call the scheduler needs.
type Unrestrictor interface {
	RestrictChatMember(ctx context.Context, chatID, userID int64, perms telegram.ChatPermissions, until time.Time) error
}

// SchedulerConfig holds scheduler timing. Zero values fall back to the
// defaults: a 10 second scan interval, shortened to 5 seconds after a
// failed scan until the next clean one.
type SchedulerConfig struct {
	Interval      time.Duration
	RetryInterval time.Duration
	Clock         func() time.Time
}

// Scheduler is the background loop that reverses expired mutes. One
// logical worker; per-record failures are isolated and retried on the
// next scan.
type Scheduler struct {
	store Store
	api   Unrestrictor
	audit AuditSink

	interval      time.Duration
	retryInterval time.Duration
	clock         func() time.Time

	degraded bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a mute-expiry scheduler.
func NewScheduler(store Store, api Unrestrictor, audit AuditSink, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if audit == nil {
		audit = NopAudit{}
	}
	return &Scheduler{
		store:         store,
		api:           api,
		audit:         audit,
		interval:      cfg.Interval,
		retryInterval: cfg.RetryInterval,
		clock:         cfg.Clock,
		stopCh:        make(chan struct{}),
	}
}

// Start begins scanning in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop shuts the scheduler down and waits for the loop to exit.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("scheduler: mute expiry loop started")

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler: context cancelled, stopping")
			return
		case <-s.stopCh:
			log.Info().Msg("scheduler: stop requested")
			return
		case <-timer.C:
		}

		timer.Reset(s.nextDelay(s.ScanOnce(ctx)))
	}
}

// nextDelay picks the wait until the next scan: the retry interval after
// a failed scan, the normal interval again once a scan comes back clean.
func (s *Scheduler) nextDelay(scanErr error) time.Duration {
	if scanErr != nil {
		// Scan-level failure (store unavailable): back off to the
		// shorter interval and retry the whole scan.
		metrics.SchedulerScanErrorsTotal.Inc()
		log.Warn().Err(scanErr).Msg("scheduler: scan failed")
		s.degraded = true
		metrics.SchedulerDegraded.Set(1)
		return s.retryInterval
	}
	if s.degraded {
		s.degraded = false
		metrics.SchedulerDegraded.Set(0)
	}
	return s.interval
}

// ScanOnce runs one expiry cycle: list the mutes whose expiry has
// passed, reverse each, and remove the reversed ones from the store.
// A failed reversal leaves its record in place for the next scan and
// never aborts the rest of the batch. The returned error covers only
// the scan itself.
func (s *Scheduler) ScanOnce(ctx context.Context) error {
	now := s.clock()
	expired, err := s.store.ListExpiredMutes(ctx, now)
	if err != nil {
		return err
	}

	for _, rec := range expired {
		if err := s.api.RestrictChatMember(ctx, rec.ChatID, rec.UserID, UnmutedPermissions, time.Time{}); err != nil {
			log.Warn().Err(err).
				Int64("chat", rec.ChatID).
				Int64("user", rec.UserID).
				Msg("scheduler: failed to reverse expired mute, will retry")
			continue
		}

		if err := s.store.DeleteMute(ctx, rec.ChatID, rec.UserID); err != nil {
			log.Warn().Err(err).
				Int64("chat", rec.ChatID).
				Int64("user", rec.UserID).
				Msg("scheduler: failed to remove expired mute record")
			continue
		}

		metrics.MuteExpiriesTotal.Inc()
		s.audit.Record(ctx, roles.ActionUnmute, 0, rec.ChatID, rec.UserID, "expired")
		log.Info().Int64("chat", rec.ChatID).Int64("user", rec.UserID).Msg("scheduler: mute expired and reversed")
	}

	return nil
}
