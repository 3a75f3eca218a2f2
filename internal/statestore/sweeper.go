package statestore

import (
	"context"
	"time"

	"github.com/hanzoai/oauth-proxy/internal/log"
)

// Sweeper periodically evicts expired pending authorizations so abandoned
// flows do not grow the store without bound.
type Sweeper struct {
	store    Store
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewSweeper creates a sweeper over store running every interval.
func NewSweeper(store Store, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the sweep loop in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	log.LogInfoWithFields("statestore", "Starting pending-authorization sweeper", map[string]any{
		"interval": s.interval.String(),
	})

	go s.run(ctx)
}

// Stop gracefully stops the sweep loop and waits for it to finish.
func (s *Sweeper) Stop() {
	close(s.stopChan)
	<-s.doneChan
	log.LogInfoWithFields("statestore", "Pending-authorization sweeper stopped", nil)
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			// Final sweep on shutdown
			s.sweep()
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep() {
	if count := s.store.Sweep(); count > 0 {
		log.LogInfoWithFields("statestore", "Evicted expired pending authorizations", map[string]any{
			"count": count,
		})
	}
}
