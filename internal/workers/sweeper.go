package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// SweepFunc removes whatever expired at or before now and reports how many items went.
type SweepFunc func(now time.Time) int

// Sweeper runs a SweepFunc on a fixed interval until its context is cancelled. It backs the
// in-memory drag session store and the per-team rate limiter, neither of which expire on their own.
type Sweeper struct {
	Name     string
	Sweep    SweepFunc
	Interval time.Duration // default: 1 minute
	Log      *logrus.Entry

	// OnSwept is called after each run that removed something, if set.
	OnSwept func(n int)

	now func() time.Time
}

// Start begins the sweep loop. It blocks; run it in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.Log == nil {
		s.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	log := s.Log.WithField("worker", s.Name)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	log.Infof("sweeper started (interval=%s)", s.Interval)

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(log)
		}
	}
}

func (s *Sweeper) runOnce(log *logrus.Entry) int {
	if s.Sweep == nil {
		return 0
	}
	n := s.Sweep(s.now())
	if n > 0 {
		log.Debugf("swept %d expired items", n)
		if s.OnSwept != nil {
			s.OnSwept(n)
		}
	}
	return n
}
