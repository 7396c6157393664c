package matchmaking

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamasit07/four-in-a-row/internal/domain"
	"github.com/iamasit07/four-in-a-row/internal/service/game"
)

func newTestMatchmaker(t *testing.T) (*Matchmaker, *game.Registry, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	logger := log.New(io.Discard)
	registry := game.NewRegistry(game.DefaultSettings(), game.Dependencies{
		Clock:  clock,
		Logger: logger,
	})
	return New(registry, logger), registry, clock
}

func TestSecondJoinerCompletesWaitingSession(t *testing.T) {
	mm, registry, _ := newTestMatchmaker(t)

	first, slot, err := mm.Join("alice-conn", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.Slot1, slot)
	assert.Equal(t, 1, mm.Waiting())
	assert.Equal(t, domain.StatusAwaitingOpponent, first.Status())

	second, slot, err := mm.Join("bob-conn", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.Slot2, slot)
	assert.Same(t, first, second)
	assert.Equal(t, 0, mm.Waiting())
	assert.Equal(t, domain.StatusPlaying, first.Status())

	got, slot, err := registry.Lookup("bob-conn")
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, domain.Slot2, slot)
}

func TestThirdJoinerOpensNewSession(t *testing.T) {
	mm, registry, _ := newTestMatchmaker(t)

	a, _, err := mm.Join("alice-conn", "alice")
	require.NoError(t, err)
	_, _, err = mm.Join("bob-conn", "bob")
	require.NoError(t, err)

	c, slot, err := mm.Join("carol-conn", "carol")
	require.NoError(t, err)
	assert.Equal(t, domain.Slot1, slot)
	assert.NotEqual(t, a.ID(), c.ID())
	assert.Equal(t, 1, mm.Waiting())
	assert.Equal(t, 2, registry.Count())

	d, slot, err := mm.Join("dave-conn", "dave")
	require.NoError(t, err)
	assert.Equal(t, domain.Slot2, slot)
	assert.Same(t, c, d)
}

func TestBotSeatingLeavesQueue(t *testing.T) {
	mm, _, clock := newTestMatchmaker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, _, err := mm.Join("alice-conn", "alice")
	require.NoError(t, err)
	require.Equal(t, 1, mm.Waiting())

	clock.Advance(10 * time.Second).MustWait(ctx)

	assert.Equal(t, domain.StatusPlaying, s.Status())
	assert.Equal(t, domain.DefaultBotName, s.Snapshot().Player2)
	assert.Equal(t, 0, mm.Waiting())

	other, slot, err := mm.Join("bob-conn", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.Slot1, slot)
	assert.NotEqual(t, s.ID(), other.ID())
}

func TestDisconnectedWaitingPlayerStillGetsBot(t *testing.T) {
	mm, registry, clock := newTestMatchmaker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, _, err := mm.Join("alice-conn", "alice")
	require.NoError(t, err)

	registry.NotifyDisconnect("alice-conn")
	assert.Equal(t, domain.StatusAwaitingOpponent, s.Status())
	assert.Equal(t, 1, mm.Waiting())

	clock.Advance(10 * time.Second).MustWait(ctx)
	assert.Equal(t, domain.StatusPlaying, s.Status())
	assert.Equal(t, 0, mm.Waiting())

	clock.Advance(20 * time.Second).MustWait(ctx)
	snap := s.Snapshot()
	assert.Equal(t, domain.StatusFinished, snap.Status)
	assert.Equal(t, domain.Slot2, snap.Winner)
	assert.Equal(t, domain.ReasonOpponentDisconnected, snap.Reason)
}

func TestJoinSkipsStaleQueueEntries(t *testing.T) {
	mm, registry, _ := newTestMatchmaker(t)

	stale, _, err := mm.Join("alice-conn", "alice")
	require.NoError(t, err)
	registry.Remove(stale.ID())
	require.Equal(t, 1, mm.Waiting())

	s, slot, err := mm.Join("bob-conn", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.Slot1, slot)
	assert.NotEqual(t, stale.ID(), s.ID())
	assert.Equal(t, 1, mm.Waiting())
}

func TestJoinRejectsSeatedConnection(t *testing.T) {
	mm, _, _ := newTestMatchmaker(t)

	s, _, err := mm.Join("alice-conn", "alice")
	require.NoError(t, err)

	_, _, err = mm.Join("alice-conn", "alice")
	assert.ErrorIs(t, err, domain.ErrAlreadyJoined)
	assert.Equal(t, 1, mm.Waiting())

	_, _, err = mm.Join("bob-conn", "bob")
	require.NoError(t, err)
	require.True(t, s.EndGame(domain.SlotNone, true, domain.ReasonDraw))

	next, slot, err := mm.Join("alice-conn", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.Slot1, slot)
	assert.NotEqual(t, s.ID(), next.ID())
}

func TestNormalizeUsername(t *testing.T) {
	name, err := NormalizeUsername("  zoë  ")
	require.NoError(t, err)
	assert.Equal(t, "zoë", name)

	_, err = NormalizeUsername("   ")
	assert.ErrorIs(t, err, domain.ErrUsernameRequired)

	_, err = NormalizeUsername(strings.Repeat("é", MaxUsernameLength))
	assert.NoError(t, err)

	_, err = NormalizeUsername(strings.Repeat("x", MaxUsernameLength+1))
	assert.ErrorIs(t, err, domain.ErrUsernameTooLong)
}

func TestJoinValidatesBeforeQueueing(t *testing.T) {
	mm, registry, _ := newTestMatchmaker(t)

	_, _, err := mm.Join("alice-conn", "")
	assert.ErrorIs(t, err, domain.ErrUsernameRequired)
	assert.Equal(t, 0, mm.Waiting())
	assert.Equal(t, 0, registry.Count())
}
