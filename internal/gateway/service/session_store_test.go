package service

import (
	"testing"
	"time"

	"golang-analyst-gateway/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(timeout time.Duration) *SessionStore {
	return NewSessionStore(timeout, logger.NewNop())
}

func TestSessionStoreGetOrCreate(t *testing.T) {
	store := newTestStore(time.Hour)

	s1 := store.GetOrCreate("abc")
	require.NotNil(t, s1)
	assert.Equal(t, "abc", s1.SessionID)

	s2 := store.GetOrCreate("abc")
	assert.Same(t, s1, s2)
}

func TestSessionStoreGeneratesOpaqueID(t *testing.T) {
	store := newTestStore(time.Hour)

	s := store.GetOrCreate("")
	assert.Len(t, s.SessionID, 16)

	other := store.GetOrCreate("")
	assert.NotEqual(t, s.SessionID, other.SessionID)
}

func TestSessionStoreExpiredSessionIsReplaced(t *testing.T) {
	store := newTestStore(time.Hour)
	current := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	s1 := store.GetOrCreate("abc")
	s1.Warnings = 2

	current = current.Add(2 * time.Hour)
	s2 := store.GetOrCreate("abc")
	assert.NotSame(t, s1, s2)
	assert.Zero(t, s2.Warnings)
}

func TestSessionStoreClearKeepsBlockState(t *testing.T) {
	store := newTestStore(time.Hour)

	store.GetOrCreate("abc")
	store.AppendHistory("abc", "hi", "hello")
	store.RecordWarning("abc", 1, 10*time.Minute)

	require.True(t, store.Clear("abc"))

	s := store.GetOrCreate("abc")
	assert.Empty(t, s.History)
	assert.Zero(t, s.MessageCount)
	assert.Equal(t, 1, s.Warnings)
	assert.True(t, s.IsBlocked(time.Now()))
}

func TestSessionStoreClearUnknownSession(t *testing.T) {
	store := newTestStore(time.Hour)
	assert.False(t, store.Clear("missing"))
}

func TestSessionStoreRecordWarningEscalatesToBlock(t *testing.T) {
	store := newTestStore(time.Hour)
	store.GetOrCreate("abc")

	warnings, blocked := store.RecordWarning("abc", 3, 10*time.Minute)
	assert.Equal(t, 1, warnings)
	assert.False(t, blocked)

	warnings, blocked = store.RecordWarning("abc", 3, 10*time.Minute)
	assert.Equal(t, 2, warnings)
	assert.False(t, blocked)

	warnings, blocked = store.RecordWarning("abc", 3, 10*time.Minute)
	assert.Equal(t, 3, warnings)
	assert.True(t, blocked)

	s := store.GetOrCreate("abc")
	assert.True(t, s.IsBlocked(time.Now()))
	assert.False(t, s.IsBlocked(time.Now().Add(11*time.Minute)))
}

func TestSessionStoreHistoryWindow(t *testing.T) {
	store := newTestStore(time.Hour)
	store.GetOrCreate("abc")

	for i := 0; i < 5; i++ {
		store.AppendHistory("abc", "q", "a")
	}

	window := store.HistoryWindow("abc", 6)
	require.Len(t, window, 6)
	assert.Equal(t, "user", window[0].Role)
	assert.Equal(t, "assistant", window[5].Role)

	assert.Nil(t, store.HistoryWindow("missing", 6))
}

func TestSessionStoreSweepExpired(t *testing.T) {
	store := newTestStore(time.Hour)
	current := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.GetOrCreate("old")
	current = current.Add(2 * time.Hour)
	store.GetOrCreate("fresh")

	removed := store.SweepExpired()
	assert.Equal(t, 1, removed)
	assert.Nil(t, store.Info("old"))
	assert.NotNil(t, store.Info("fresh"))
}

func TestSessionStoreInfo(t *testing.T) {
	store := newTestStore(time.Hour)
	store.GetOrCreate("abc")
	store.AppendHistory("abc", "q", "a")

	info := store.Info("abc")
	require.NotNil(t, info)
	assert.Equal(t, "abc", info.SessionID)
	assert.Equal(t, 1, info.MessageCount)
	assert.False(t, info.IsBlocked)

	assert.Nil(t, store.Info("missing"))
}
