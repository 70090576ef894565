package workers

import (
	"context"
	"log"
	"sync"
	"time"

	"card-battle-service/services"
)

// FinalizeWorker retries battle outcome writes that failed at completion
// time. Live gameplay is authoritative; the durable record is allowed to
// lag and catches up here.
type FinalizeWorker struct {
	store services.BattleStore

	mu      sync.Mutex
	pending []services.MatchOutcome
}

func NewFinalizeWorker(store services.BattleStore) *FinalizeWorker {
	return &FinalizeWorker{store: store}
}

// Enqueue implements services.FinalizeQueue. Never blocks the caller.
func (w *FinalizeWorker) Enqueue(outcome services.MatchOutcome) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, outcome)
}

// Pending reports how many outcomes still await a durable write.
func (w *FinalizeWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Run retries pending finalizations on a fixed interval until ctx is done.
func (w *FinalizeWorker) Run(ctx context.Context, retryInterval time.Duration) {
	log.Println("Starting battle finalize retry worker...")

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Finalize retry worker stopped.")
			return
		case <-ticker.C:
			w.retryPending()
		}
	}
}

func (w *FinalizeWorker) retryPending() {
	w.mu.Lock()
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	log.Printf("Retrying %d pending battle finalization(s)...", len(batch))

	var failed []services.MatchOutcome
	for _, outcome := range batch {
		err := w.store.FinalizeBattleRecord(
			outcome.BattleID,
			outcome.WinnerWallet,
			outcome.TurnCount,
			outcome.FinalStateJSON(),
			outcome.Status,
		)
		if err != nil {
			log.Printf("❌ Finalization retry failed for battle %s: %v", outcome.BattleID, err)
			failed = append(failed, outcome)
			continue
		}
		log.Printf("✅ Finalized battle %s on retry", outcome.BattleID)
	}

	if len(failed) > 0 {
		w.mu.Lock()
		w.pending = append(failed, w.pending...)
		w.mu.Unlock()
	}
}
