package service

import (
	"context"
	"time"

	"flashmeet/internal/crash"
	"flashmeet/internal/lifecycle"
	"flashmeet/internal/logger"
	"flashmeet/internal/models"
)

// StartReconciler launches the three periodic jobs that keep persisted
// status authoritative: window-opener, window-closer and garbage
// collector. The jobs run on independent tickers and never
// synchronize; every write they issue is idempotent, so overlapping
// ticks are harmless. A failed run is logged and abandoned — the next
// tick re-evaluates the same time predicates and is therefore the
// retry.
func StartReconciler(ctx context.Context) {
	cfg := globalConfig.Reconciler

	crash.SafeGoroutine("window-opener", func() {
		runPeriodic(ctx, cfg.OpenerInterval, RunWindowOpener)
	})
	crash.SafeGoroutine("window-closer", func() {
		runPeriodic(ctx, cfg.ExpirerInterval, RunWindowCloser)
	})
	crash.SafeGoroutine("garbage-collector", func() {
		runPeriodic(ctx, cfg.CleanupInterval, RunGarbageCollector)
	})

	logger.Infof("Reconciler started: opener %v, closer %v, collector %v",
		cfg.OpenerInterval, cfg.ExpirerInterval, cfg.CleanupInterval)
}

func runPeriodic(ctx context.Context, interval time.Duration, job func(time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			func() {
				defer crash.RecoverWithStack("reconciler-job")
				job(timeNow())
			}()
		}
	}
}

// RunWindowOpener transitions active meetups whose chat window has
// begun into chatOpen. The scan is pre-filtered by the largest open
// offset, then each record is re-checked against its own category
// window.
func RunWindowOpener(now time.Time) {
	candidates, err := meetupRepo.FindOpenCandidates(now)
	if err != nil {
		logger.Warningf("Window-opener scan failed: %v", err)
		return
	}

	opened := 0
	for _, m := range candidates {
		if !lifecycle.ShouldBeOpen(m.MeetingTime, m.Category, now) {
			continue
		}
		applied, err := meetupRepo.UpdateStatusIf(m.ID, models.StatusActive, models.StatusChatOpen)
		if err != nil {
			logger.Warningf("Failed to open chat for meetup %s: %v", m.ID, err)
			continue
		}
		if !applied {
			// another writer got there first
			continue
		}
		opened++
		logger.Infof("Opening chat room for meetup %s (%d participants)", m.ID, m.ParticipantCount())

		if notifyQueue != nil {
			if err := notifyQueue.EnqueueChatOpenNotify(m.ID); err != nil {
				logger.Warningf("Failed to enqueue fan-out for meetup %s: %v", m.ID, err)
			}
		}
	}

	if opened > 0 {
		logger.Infof("Window-opener completed: %d meetups opened", opened)
	}
}

// RunWindowCloser transitions chat-open meetups past their close
// offset into expired.
func RunWindowCloser(now time.Time) {
	candidates, err := meetupRepo.FindExpireCandidates(now)
	if err != nil {
		logger.Warningf("Window-closer scan failed: %v", err)
		return
	}

	expired := 0
	for _, m := range candidates {
		if !lifecycle.IsExpired(m.MeetingTime, m.Category, now) {
			continue
		}
		applied, err := meetupRepo.UpdateStatusIf(m.ID, models.StatusChatOpen, models.StatusExpired)
		if err != nil {
			logger.Warningf("Failed to expire meetup %s: %v", m.ID, err)
			continue
		}
		if applied {
			expired++
		}
	}

	if expired > 0 {
		logger.Infof("Window-closer completed: %d meetups expired", expired)
	}
}

// RunGarbageCollector hard-deletes meetups far enough past their
// meeting time, together with their chat logs. Messages go first so a
// crash mid-sequence can never leave a parentless message visible
// longer than one collector cycle; the surviving meetup row is
// re-discovered on the next tick. It then sweeps chat logs whose
// meetup was deleted out of band (report threshold, creator delete):
// those have no row left for the time-predicate scan to find.
func RunGarbageCollector(now time.Time) {
	candidates, err := meetupRepo.FindCleanupCandidates(now)
	if err != nil {
		logger.Warningf("Garbage-collector scan failed: %v", err)
		return
	}

	collected := 0
	for _, m := range candidates {
		msgCount, err := messageRepo.DeleteByMeetup(m.ID)
		if err != nil {
			logger.Warningf("Failed to delete messages for meetup %s: %v", m.ID, err)
			continue
		}
		deleted, err := meetupRepo.DeleteByID(m.ID)
		if err != nil {
			logger.Warningf("Failed to delete meetup %s: %v", m.ID, err)
			continue
		}
		if deleted {
			collected++
			logger.Infof("Collected meetup %s (%d messages)", m.ID, msgCount)
		}
	}

	orphans, err := messageRepo.ListOrphanMeetupIDs()
	if err != nil {
		logger.Warningf("Orphan scan failed: %v", err)
		return
	}
	for _, id := range orphans {
		msgCount, err := messageRepo.DeleteByMeetup(id)
		if err != nil {
			logger.Warningf("Failed to delete orphaned messages for meetup %s: %v", id, err)
			continue
		}
		logger.Infof("Collected %d orphaned messages for meetup %s", msgCount, id)
	}

	if collected > 0 || len(orphans) > 0 {
		logger.Infof("Garbage collection completed: %d meetups, %d orphaned logs", collected, len(orphans))
	}
}
