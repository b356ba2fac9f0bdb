package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"spyroom/internal/models"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// MessagesRepository defines what the scheduler needs from the message store.
type MessagesRepository interface {
	NextRelease(ctx context.Context) (*time.Time, error)
	ClaimDueMessages(ctx context.Context, limit int32) ([]models.Message, error)
}

// Scheduler releases messages whose visibility delay has elapsed. It sleeps
// until the earliest pending visible_after, claims everything due, and goes
// back to sleep. Timers here only trigger recomputation — visibility itself
// is always derived from stored instants, never from which timer fired.
type Scheduler struct {
	repo       MessagesRepository
	batchSize  int32
	clock      Clock
	wakeCh     chan struct{}
	instanceID string
}

// NewScheduler creates a release scheduler.
func NewScheduler(repo MessagesRepository, batchSize int32) *Scheduler {
	return &Scheduler{
		repo:       repo,
		batchSize:  batchSize,
		clock:      clockwork.NewRealClock(),
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8], // short ID for logging
	}
}

// Wake nudges the scheduler to re-read the next deadline, used after a send
// in case the new message is due sooner than whatever we are sleeping on.
func (s *Scheduler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Run loops until ctx is done, sleeping until the next release instant and
// claiming due messages.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Str("instance", s.instanceID).Msg("release scheduler started")

	timer := s.clock.NewTimer(0)
	defer timer.Stop()

	const idlePollDuration = 5 * time.Second
	retryCount := 0
	const maxRetries = 3

	for {
		select {
		case <-s.wakeCh:
			log.Debug().Str("instance", s.instanceID).Msg("drained wake channel")
		default:
		}

		next, err := s.repo.NextRelease(ctx)
		if err != nil {
			retryCount++
			if retryCount <= maxRetries {
				log.Error().
					Err(err).
					Int("retry", retryCount).
					Str("instance", s.instanceID).
					Msg("error fetching next release, retrying")
				timer.Reset(time.Second * time.Duration(retryCount))
				select {
				case <-timer.Chan():
					continue
				case <-ctx.Done():
					return nil
				}
			}
			log.Error().Err(err).Str("instance", s.instanceID).Msg("error fetching next release after retries")
			return err
		}
		retryCount = 0

		if next == nil {
			timer.Reset(idlePollDuration)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				log.Info().Str("instance", s.instanceID).Msg("shutdown during idle")
				return nil
			case <-s.wakeCh:
				log.Debug().Str("instance", s.instanceID).Msg("woken up from idle")
				continue
			}
		}

		wait := next.Sub(s.clock.Now())
		if wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.Chan():
			case <-ctx.Done():
				log.Info().Str("instance", s.instanceID).Msg("shutdown during wait")
				return nil
			case <-s.wakeCh:
				log.Debug().Str("instance", s.instanceID).Msg("woken up early, new sooner release")
				continue
			}
		}

		released, err := s.repo.ClaimDueMessages(ctx, s.batchSize)
		if err != nil {
			log.Error().Err(err).Str("instance", s.instanceID).Msg("error claiming due messages")
			timer.Reset(time.Second)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if len(released) > 0 {
			log.Info().
				Int("count", len(released)).
				Str("instance", s.instanceID).
				Msg("released due messages")
		}
	}
}
