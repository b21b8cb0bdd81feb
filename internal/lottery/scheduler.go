package lottery

import (
	"context" // Job context
	"errors"  // Sentinel comparison
	"time"    // Job timeout

	"github.com/robfig/cron/v3"  // Cron scheduling
	"github.com/sirupsen/logrus" // Logging
)

// NewScheduler returns a stopped cron runner that settles a round on spec.
// Rounds only run against a winning draw an administrator has created
func NewScheduler(spec string, svc *Service, log logrus.FieldLogger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute) // Bound each run
		defer cancel()
		svc.scheduledRound(ctx, log)
	})
	if err != nil {
		return nil, err // Bad cron spec
	}
	return c, nil
}

// scheduledRound runs one round and logs the outcome
func (s *Service) scheduledRound(ctx context.Context, log logrus.FieldLogger) {
	round, err := s.RunRound(ctx)
	switch {
	case errors.Is(err, ErrNoWinningDraw), errors.Is(err, ErrNoEntries):
		log.WithError(err).Info("Scheduled round skipped") // Nothing to settle yet
	case err != nil:
		log.WithError(err).Error("Scheduled round failed")
	default:
		log.WithFields(logrus.Fields{
			"round":   round.Number,       // Settled round
			"entries": round.Entries,      // Draws played
			"winners": len(round.Winners), // Winning draws
		}).Info("Scheduled round settled")
	}
}
