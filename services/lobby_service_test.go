package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newLobbyFixture() (*LobbyService, *BattleService, *fakeStore) {
	store := newFakeStore()
	battles := NewBattleService(store)
	return NewLobbyService(battles), battles, store
}

func TestJoinReturnsQueuePosition(t *testing.T) {
	lobby, _, _ := newLobbyFixture()

	pos, err := lobby.Join("alice", &recordingSink{})
	require.NoError(t, err)
	require.Equal(t, 1, pos)

	pos, err = lobby.Join("bob", &recordingSink{})
	require.NoError(t, err)
	require.Equal(t, 2, pos)
}

func TestJoinRejectsDuplicateWallet(t *testing.T) {
	lobby, _, _ := newLobbyFixture()

	_, err := lobby.Join("alice", &recordingSink{})
	require.NoError(t, err)

	_, err = lobby.Join("alice", &recordingSink{})
	require.ErrorIs(t, err, ErrAlreadyQueued)
	require.Equal(t, 1, lobby.Len())
}

func TestJoinRejectsPlayerAlreadyInBattle(t *testing.T) {
	lobby, battles, _ := newLobbyFixture()

	_, err := battles.CreateBattle("alice", "bob")
	require.NoError(t, err)

	_, err = lobby.Join("alice", &recordingSink{})
	require.ErrorIs(t, err, ErrAlreadyInBattle)
}

func TestLeaveIsNoOpWhenAbsent(t *testing.T) {
	lobby, _, _ := newLobbyFixture()

	require.False(t, lobby.Leave("ghost"))

	_, err := lobby.Join("alice", &recordingSink{})
	require.NoError(t, err)
	require.True(t, lobby.Leave("alice"))
	require.False(t, lobby.Leave("alice"))
	require.Equal(t, 0, lobby.Len())
}

func TestHandleDisconnectRemovesSinkEntries(t *testing.T) {
	lobby, _, _ := newLobbyFixture()
	sink := &recordingSink{}

	_, err := lobby.Join("alice", sink)
	require.NoError(t, err)
	_, err = lobby.Join("bob", &recordingSink{})
	require.NoError(t, err)

	lobby.HandleDisconnect(sink)
	require.Equal(t, 1, lobby.Len())

	// Idempotent
	lobby.HandleDisconnect(sink)
	require.Equal(t, 1, lobby.Len())
}

func TestHandleJoinQueueEmitsPositionOrError(t *testing.T) {
	lobby, _, _ := newLobbyFixture()
	sink := &recordingSink{}

	lobby.HandleJoinQueue("alice", sink)
	env, ok := sink.Last()
	require.True(t, ok)
	require.Equal(t, EventQueueJoined, env.Event)
	require.Equal(t, QueueJoinedEvent{Position: 1}, env.Data)

	lobby.HandleJoinQueue("alice", sink)
	env, ok = sink.Last()
	require.True(t, ok)
	require.Equal(t, EventError, env.Event)
}

func TestTickPairsOldestFirst(t *testing.T) {
	lobby, battles, _ := newLobbyFixture()
	sinks := map[string]*recordingSink{}
	for _, wallet := range []string{"a", "b", "c", "d", "e"} {
		sinks[wallet] = &recordingSink{}
		_, err := lobby.Join(wallet, sinks[wallet])
		require.NoError(t, err)
	}

	lobby.Tick()

	// a+b and c+d matched, e still waiting
	require.Equal(t, 1, lobby.Len())
	for _, wallet := range []string{"a", "b", "c", "d"} {
		env, ok := sinks[wallet].Last()
		require.True(t, ok, "expected battleFound for %s", wallet)
		require.Equal(t, EventBattleFound, env.Event)
	}
	require.Empty(t, sinks["e"].Events())

	foundA := sinks["a"].Events()[0].Data.(BattleFoundEvent)
	foundB := sinks["b"].Events()[0].Data.(BattleFoundEvent)
	require.Equal(t, foundA.BattleID, foundB.BattleID)
	require.Equal(t, "b", foundA.Opponent)
	require.Equal(t, "a", foundB.Opponent)

	foundC := sinks["c"].Events()[0].Data.(BattleFoundEvent)
	require.NotEqual(t, foundA.BattleID, foundC.BattleID)
	require.Equal(t, "d", foundC.Opponent)

	require.True(t, battles.IsPlayerInBattle("a"))
	require.True(t, battles.IsPlayerInBattle("d"))
	require.False(t, battles.IsPlayerInBattle("e"))
}

func TestTickReinsertsFailedPairAtFront(t *testing.T) {
	lobby, _, store := newLobbyFixture()
	store.setCreateErr(errors.New("db down"))

	sinkA := &recordingSink{}
	sinkB := &recordingSink{}
	_, err := lobby.Join("a", sinkA)
	require.NoError(t, err)
	_, err = lobby.Join("b", sinkB)
	require.NoError(t, err)

	lobby.Tick()

	require.Equal(t, 2, lobby.Len())
	env, ok := sinkA.Last()
	require.True(t, ok)
	require.Equal(t, EventError, env.Event)
	env, ok = sinkB.Last()
	require.True(t, ok)
	require.Equal(t, EventError, env.Event)

	// Recovered store pairs the same two, in their original order.
	store.setCreateErr(nil)
	lobby.Tick()

	require.Equal(t, 0, lobby.Len())
	foundA, ok := sinkA.Last()
	require.True(t, ok)
	require.Equal(t, EventBattleFound, foundA.Event)
	require.Equal(t, "b", foundA.Data.(BattleFoundEvent).Opponent)
}

func TestJoinRejectedWhilePairingInProgress(t *testing.T) {
	store := newFakeStore()
	hooked := &hookStore{fakeStore: store}
	battles := NewBattleService(hooked)
	lobby := NewLobbyService(battles)

	_, err := lobby.Join("a", &recordingSink{})
	require.NoError(t, err)
	_, err = lobby.Join("b", &recordingSink{})
	require.NoError(t, err)

	// A join racing the in-flight pairing must be rejected: the player is
	// out of the queue but not yet in a session.
	hooked.onCreate = func() {
		_, err := lobby.Join("a", &recordingSink{})
		require.ErrorIs(t, err, ErrAlreadyQueued)
	}

	lobby.Tick()

	require.Equal(t, 0, lobby.Len())
	require.True(t, battles.IsPlayerInBattle("a"))
	require.False(t, lobby.Leave("a"))

	// Pairing done: a fresh join is rejected for being in a battle now.
	_, err = lobby.Join("a", &recordingSink{})
	require.ErrorIs(t, err, ErrAlreadyInBattle)
}

func TestFailedPairingNeverDuplicatesQueueEntry(t *testing.T) {
	store := newFakeStore()
	store.setCreateErr(errors.New("db down"))
	hooked := &hookStore{fakeStore: store}
	battles := NewBattleService(hooked)
	lobby := NewLobbyService(battles)

	_, err := lobby.Join("a", &recordingSink{})
	require.NoError(t, err)
	_, err = lobby.Join("b", &recordingSink{})
	require.NoError(t, err)

	// A player reacting to the failure by rejoining mid-tick must not end
	// up queued twice once the pair is reinserted.
	hooked.onCreate = func() {
		_, err := lobby.Join("a", &recordingSink{})
		require.ErrorIs(t, err, ErrAlreadyQueued)
	}

	lobby.Tick()

	require.Equal(t, 2, lobby.Len())
	require.True(t, lobby.Leave("a"))
	require.False(t, lobby.Leave("a"))
}

func TestTickKeepsPairingAfterFailure(t *testing.T) {
	lobby, _, store := newLobbyFixture()
	store.setCreateErr(errors.New("db down"))

	sinks := map[string]*recordingSink{}
	for _, wallet := range []string{"a", "b", "c", "d"} {
		sinks[wallet] = &recordingSink{}
		_, err := lobby.Join(wallet, sinks[wallet])
		require.NoError(t, err)
	}

	lobby.Tick()

	// Both pairs attempted and reinserted at the front in order.
	require.Equal(t, 4, lobby.Len())
	for _, wallet := range []string{"a", "b", "c", "d"} {
		require.Equal(t, 1, sinks[wallet].Count(EventError), "wallet %s", wallet)
	}

	store.setCreateErr(nil)
	lobby.Tick()
	require.Equal(t, 0, lobby.Len())
	require.Equal(t, "b", sinks["a"].Events()[1].Data.(BattleFoundEvent).Opponent)
	require.Equal(t, "d", sinks["c"].Events()[1].Data.(BattleFoundEvent).Opponent)
}
