package session

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically drops expired sessions from a MemoryStore.
// Redis enforces expiry natively, so only the in-memory backend needs one.
type Sweeper struct {
	store  *MemoryStore
	cron   *cron.Cron
	logger *zap.Logger
}

// NewSweeper creates a sweeper on the given cron schedule
// (e.g. "@every 1m").
func NewSweeper(store *MemoryStore, schedule string, logger *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{
		store:  store,
		cron:   cron.New(),
		logger: logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins sweeping in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	if dropped := s.store.Sweep(); dropped > 0 {
		s.logger.Info("swept expired sessions", zap.Int("dropped", dropped))
	}
}
