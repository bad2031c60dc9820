package store

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpiryScanner periodically sweeps IN_PROGRESS sessions past their
// expiresAt and marks them EXPIRED (spec.md §5 "Session expiry"). It is
// the only background actor in the service; everything else is
// request-driven.
type ExpiryScanner struct {
	db       *DB
	interval time.Duration
	cron     *cron.Cron
}

// NewExpiryScanner builds a scanner that fires every interval using
// cron's "@every" descriptor, matching the teacher's preference for a
// library-driven scheduler over a hand-rolled time.Ticker loop.
func NewExpiryScanner(db *DB, interval time.Duration) *ExpiryScanner {
	return &ExpiryScanner{
		db:       db,
		interval: interval,
		cron:     cron.New(),
	}
}

// Start registers the scan job and launches the cron scheduler. It
// returns once the job is registered; the scheduler itself runs on its
// own goroutine until ctx is cancelled.
func (s *ExpiryScanner) Start(ctx context.Context) error {
	spec := "@every " + s.interval.String()
	_, err := s.cron.AddFunc(spec, func() {
		count, err := s.db.ExpireStaleSessions(ctx, time.Now())
		if err != nil {
			log.Printf("expiry scan failed: %v", err)
			return
		}
		if count > 0 {
			log.Printf("expired %d stale sessions", count)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()

	go func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}()
	return nil
}
