package services

import (
	"sync"

	"card-battle-service/models"
)

// recordingSink captures every envelope pushed to one player so tests can
// assert exact event sequences without a live socket.
type recordingSink struct {
	mu     sync.Mutex
	events []Envelope
}

func (s *recordingSink) Send(env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, env)
}

func (s *recordingSink) Events() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.events))
	for i, env := range s.events {
		names[i] = env.Event
	}
	return names
}

func (s *recordingSink) Last() (Envelope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return Envelope{}, false
	}
	return s.events[len(s.events)-1], true
}

func (s *recordingSink) Count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, env := range s.events {
		if env.Event == event {
			n++
		}
	}
	return n
}

type finalizeCall struct {
	battleID   string
	winner     *string
	turnCount  int
	finalState string
	status     string
}

// fakeStore is an in-memory BattleStore. Wallet addresses double as player
// ids; error fields force boundary failures.
type fakeStore struct {
	mu sync.Mutex

	hands map[string][]models.Card

	createErr   error
	handErr     error
	finalizeErr error

	created    []string
	inProgress []string
	finalized  []finalizeCall
	archived   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hands:    make(map[string][]models.Card),
		archived: make(map[string]string),
	}
}

func (f *fakeStore) PlayerHand(walletAddress string) ([]models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handErr != nil {
		return nil, f.handErr
	}
	return f.hands[walletAddress], nil
}

func (f *fakeStore) CreateBattleRecord(battleID, player1Wallet, player2Wallet string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, battleID)
	return nil
}

func (f *fakeStore) MarkBattleInProgress(battleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inProgress = append(f.inProgress, battleID)
	return nil
}

func (f *fakeStore) FinalizeBattleRecord(battleID string, winnerWallet *string, turnCount int, finalStateJSON string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return f.finalizeErr
	}
	f.finalized = append(f.finalized, finalizeCall{
		battleID:   battleID,
		winner:     winnerWallet,
		turnCount:  turnCount,
		finalState: finalStateJSON,
		status:     status,
	})
	return nil
}

func (f *fakeStore) SetBattleArchiveURL(battleID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived[battleID] = url
	return nil
}

func (f *fakeStore) finalizedCalls() []finalizeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]finalizeCall, len(f.finalized))
	copy(out, f.finalized)
	return out
}

func (f *fakeStore) setFinalizeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalizeErr = err
}

func (f *fakeStore) setCreateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

// hookStore wraps fakeStore with callbacks that fire while a store call is
// in flight, for exercising reentrant and ordering paths.
type hookStore struct {
	*fakeStore
	onCreate   func()
	onFinalize func()
}

func (h *hookStore) CreateBattleRecord(battleID, player1Wallet, player2Wallet string) error {
	if h.onCreate != nil {
		h.onCreate()
	}
	return h.fakeStore.CreateBattleRecord(battleID, player1Wallet, player2Wallet)
}

func (h *hookStore) FinalizeBattleRecord(battleID string, winnerWallet *string, turnCount int, finalStateJSON string, status string) error {
	if h.onFinalize != nil {
		h.onFinalize()
	}
	return h.fakeStore.FinalizeBattleRecord(battleID, winnerWallet, turnCount, finalStateJSON, status)
}

func card(id, owner string, power int) models.Card {
	return models.Card{ID: id, OwnerID: owner, Name: id, Power: power}
}

// capturingQueue records outcomes handed off for finalization retry.
type capturingQueue struct {
	mu       sync.Mutex
	outcomes []MatchOutcome
}

func (q *capturingQueue) Enqueue(outcome MatchOutcome) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.outcomes = append(q.outcomes, outcome)
}

func (q *capturingQueue) all() []MatchOutcome {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]MatchOutcome, len(q.outcomes))
	copy(out, q.outcomes)
	return out
}
