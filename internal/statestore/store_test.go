package statestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeIfValidConsumesOnce(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	store.Put("state-1", Entry{Redirect: "http://x/done", Provider: "github"})

	entry, err := store.TakeIfValid("state-1", "github")
	require.NoError(t, err)
	assert.Equal(t, "http://x/done", entry.Redirect)

	// A replayed callback with the same state must fail
	_, err = store.TakeIfValid("state-1", "github")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTakeIfValidUnknownState(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)

	_, err := store.TakeIfValid("never-stored", "github")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTakeIfValidProviderMismatchDoesNotConsume(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	store.Put("state-1", Entry{Redirect: "http://x/done", Provider: "gitlab"})

	_, err := store.TakeIfValid("state-1", "github")
	assert.ErrorIs(t, err, ErrProviderMismatch)

	// The gitlab flow is still intact
	entry, err := store.TakeIfValid("state-1", "gitlab")
	require.NoError(t, err)
	assert.Equal(t, "gitlab", entry.Provider)
}

func TestTakeIfValidLogicalExpiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)

	now := time.Now()
	store.now = func() time.Time { return now }
	store.Put("state-1", Entry{Redirect: "http://x/done", Provider: "github"})

	// Aged past the TTL, the entry is unreachable even though no sweep ran
	store.now = func() time.Time { return now.Add(11 * time.Minute) }
	_, err := store.TakeIfValid("state-1", "github")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, store.Len())
}

func TestSweep(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)

	now := time.Now()
	store.now = func() time.Time { return now }
	store.Put("old", Entry{Provider: "github", CreatedAt: now.Add(-11 * time.Minute)})
	store.Put("fresh", Entry{Provider: "github", CreatedAt: now.Add(-1 * time.Minute)})

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, err := store.TakeIfValid("fresh", "github")
	assert.NoError(t, err)
}
