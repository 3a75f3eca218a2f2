package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweeperEvictsExpiredEntries(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	store.Put("stale", Entry{Provider: "github", CreatedAt: time.Now().Add(-2 * time.Minute)})

	sweeper := NewSweeper(store, 10*time.Millisecond)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	assert.Eventually(t, func() bool {
		return store.Len() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSweeperStopTerminates(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	sweeper := NewSweeper(store, time.Hour)
	sweeper.Start(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
