package workers

import (
	"errors"
	"sync"
	"testing"

	"card-battle-service/models"
	"card-battle-service/services"

	"github.com/stretchr/testify/require"
)

// flakyStore fails FinalizeBattleRecord until failures runs out.
type flakyStore struct {
	mu        sync.Mutex
	failures  int
	finalized []string
}

func (f *flakyStore) PlayerHand(string) ([]models.Card, error) { return nil, nil }

func (f *flakyStore) CreateBattleRecord(string, string, string) error { return nil }

func (f *flakyStore) MarkBattleInProgress(string) error { return nil }

func (f *flakyStore) SetBattleArchiveURL(string, string) error { return nil }

func (f *flakyStore) FinalizeBattleRecord(battleID string, _ *string, _ int, _ string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("db down")
	}
	f.finalized = append(f.finalized, battleID)
	return nil
}

func (f *flakyStore) finalizedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.finalized))
	copy(out, f.finalized)
	return out
}

func outcome(battleID string) services.MatchOutcome {
	winner := "alice"
	return services.MatchOutcome{
		BattleID:     battleID,
		WinnerWallet: &winner,
		Player1:      "alice",
		Player2:      "bob",
		TurnCount:    4,
		Status:       models.BattleStatusCompleted,
	}
}

func TestRetryPendingDrainsQueueOnSuccess(t *testing.T) {
	store := &flakyStore{}
	worker := NewFinalizeWorker(store)

	worker.Enqueue(outcome("battle-1"))
	worker.Enqueue(outcome("battle-2"))
	require.Equal(t, 2, worker.Pending())

	worker.retryPending()

	require.Equal(t, 0, worker.Pending())
	require.Equal(t, []string{"battle-1", "battle-2"}, store.finalizedIDs())
}

func TestRetryPendingKeepsFailedOutcomes(t *testing.T) {
	store := &flakyStore{failures: 1}
	worker := NewFinalizeWorker(store)

	worker.Enqueue(outcome("battle-1"))
	worker.Enqueue(outcome("battle-2"))

	// First pass: battle-1 hits the failure, battle-2 lands.
	worker.retryPending()
	require.Equal(t, 1, worker.Pending())
	require.Equal(t, []string{"battle-2"}, store.finalizedIDs())

	// Next pass retries the leftover.
	worker.retryPending()
	require.Equal(t, 0, worker.Pending())
	require.Equal(t, []string{"battle-2", "battle-1"}, store.finalizedIDs())
}

func TestRetryPendingNoopWhenEmpty(t *testing.T) {
	worker := NewFinalizeWorker(&flakyStore{})
	worker.retryPending()
	require.Equal(t, 0, worker.Pending())
}
