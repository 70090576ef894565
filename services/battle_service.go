package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"card-battle-service/models"

	"github.com/google/uuid"
)

// FinalizeQueue accepts outcomes whose persistence write failed, for
// asynchronous retry. Gameplay never blocks on it.
type FinalizeQueue interface {
	Enqueue(MatchOutcome)
}

// Archiver uploads a finished battle's snapshot and returns its public URL.
type Archiver interface {
	ArchiveBattle(outcome MatchOutcome) (string, error)
}

// BattleService owns the registry of live battle sessions. Sessions are
// created here at pairing time and removed exactly once, on their terminal
// transition or by the abandonment sweep.
type BattleService struct {
	mu       sync.RWMutex
	sessions map[string]*BattleSession

	store BattleStore

	// Optional collaborators, wired in main.
	FinalizeQueue FinalizeQueue
	Archiver      Archiver
}

func NewBattleService(store BattleStore) *BattleService {
	return &BattleService{
		sessions: make(map[string]*BattleSession),
		store:    store,
	}
}

// CreateBattle loads both hands, persists the battle record and registers a
// live session in WAITING_PLAYERS with the first-queued player to move.
// Nothing is retained when the persistence boundary fails.
func (s *BattleService) CreateBattle(player1Wallet, player2Wallet string) (string, error) {
	hand1, err := s.store.PlayerHand(player1Wallet)
	if err != nil {
		return "", fmt.Errorf("load hand for %s: %w", player1Wallet, err)
	}
	hand2, err := s.store.PlayerHand(player2Wallet)
	if err != nil {
		return "", fmt.Errorf("load hand for %s: %w", player2Wallet, err)
	}

	battleID := uuid.NewString()
	if err := s.store.CreateBattleRecord(battleID, player1Wallet, player2Wallet); err != nil {
		return "", err
	}

	session := newBattleSession(battleID, player1Wallet, player2Wallet, map[string][]models.Card{
		player1Wallet: hand1,
		player2Wallet: hand2,
	})

	s.mu.Lock()
	s.sessions[battleID] = session
	s.mu.Unlock()

	return battleID, nil
}

// Session looks up a live session by battle id.
func (s *BattleService) Session(battleID string) (*BattleSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[battleID]
	if !ok {
		return nil, ErrBattleNotFound
	}
	return session, nil
}

// IsPlayerInBattle reports whether the wallet participates in any live session.
func (s *BattleService) IsPlayerInBattle(wallet string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.Player1 == wallet || session.Player2 == wallet {
			return true
		}
	}
	return false
}

func (s *BattleService) remove(battleID string) {
	s.mu.Lock()
	delete(s.sessions, battleID)
	s.mu.Unlock()
}

// HandleJoinBattle binds a connection to its participant slot and, when the
// second slot fills, marks the persisted record in progress.
func (s *BattleService) HandleJoinBattle(wallet, battleID string, sink EventSink) {
	session, err := s.Session(battleID)
	if err != nil {
		sink.Send(errorEnvelope(err.Error()))
		return
	}
	started, err := session.Join(wallet, sink)
	if err != nil {
		sink.Send(errorEnvelope(err.Error()))
		return
	}
	if started {
		if err := s.store.MarkBattleInProgress(battleID); err != nil {
			log.Printf("⚠️ battle %s: failed to mark in progress: %v", battleID, err)
		}
	}
}

func (s *BattleService) HandlePlaceCard(wallet, battleID, cardID string, lane int, sink EventSink) {
	session, err := s.Session(battleID)
	if err != nil {
		sink.Send(errorEnvelope(err.Error()))
		return
	}
	if err := session.PlaceCard(wallet, cardID, lane); err != nil {
		sink.Send(errorEnvelope(err.Error()))
	}
}

func (s *BattleService) HandleAttackCard(wallet, battleID, attackingCardID, targetCardID string, fromLane, toLane int, sink EventSink) {
	session, err := s.Session(battleID)
	if err != nil {
		sink.Send(errorEnvelope(err.Error()))
		return
	}
	outcome, err := session.AttackCard(wallet, attackingCardID, targetCardID, fromLane, toLane)
	if err != nil {
		sink.Send(errorEnvelope(err.Error()))
		return
	}
	if outcome != nil {
		s.completeBattle(session, outcome)
	}
}

func (s *BattleService) HandleMoveCard(wallet, battleID, cardID string, fromLane, toLane int, sink EventSink) {
	session, err := s.Session(battleID)
	if err != nil {
		sink.Send(errorEnvelope(err.Error()))
		return
	}
	if err := session.MoveCard(wallet, cardID, fromLane, toLane); err != nil {
		sink.Send(errorEnvelope(err.Error()))
	}
}

func (s *BattleService) HandleEndTurn(wallet, battleID string, sink EventSink) {
	session, err := s.Session(battleID)
	if err != nil {
		sink.Send(errorEnvelope(err.Error()))
		return
	}
	if err := session.EndTurn(wallet); err != nil {
		sink.Send(errorEnvelope(err.Error()))
	}
}

// completeBattle runs the terminal sequence: deliver battleEnd to both
// players, tear the session down, then persist the outcome. The live
// result is authoritative; a slow or failed write never holds up the
// terminal event, and a failed write is queued for retry.
func (s *BattleService) completeBattle(session *BattleSession, outcome *MatchOutcome) {
	session.Broadcast(Envelope{Event: EventBattleEnd, Data: BattleEndEvent{
		WinnerID:   outcome.WinnerWallet,
		FinalState: outcome.FinalState,
	}})

	s.remove(outcome.BattleID)

	s.finalize(outcome)

	if s.Archiver != nil {
		go s.archive(*outcome)
	}
}

func (s *BattleService) finalize(outcome *MatchOutcome) {
	err := s.store.FinalizeBattleRecord(
		outcome.BattleID,
		outcome.WinnerWallet,
		outcome.TurnCount,
		outcome.FinalStateJSON(),
		outcome.Status,
	)
	if err == nil {
		return
	}
	log.Printf("❌ battle %s: finalization failed, queued for retry: %v", outcome.BattleID, err)
	if s.FinalizeQueue != nil {
		s.FinalizeQueue.Enqueue(*outcome)
	}
}

func (s *BattleService) archive(outcome MatchOutcome) {
	url, err := s.Archiver.ArchiveBattle(outcome)
	if err != nil {
		log.Printf("⚠️ battle %s: replay archive upload failed: %v", outcome.BattleID, err)
		return
	}
	if err := s.store.SetBattleArchiveURL(outcome.BattleID, url); err != nil {
		log.Printf("⚠️ battle %s: failed to save archive url: %v", outcome.BattleID, err)
	}
}

// ReapAbandoned finalizes sessions that have been idle past the timeout
// with neither participant connected. Run periodically by the scheduler.
func (s *BattleService) ReapAbandoned(idleTimeout time.Duration, connections *ConnectionRegistry) {
	s.mu.RLock()
	stale := make([]*BattleSession, 0)
	for _, session := range s.sessions {
		if time.Since(session.LastAction()) < idleTimeout {
			continue
		}
		if _, ok := connections.Lookup(session.Player1); ok {
			continue
		}
		if _, ok := connections.Lookup(session.Player2); ok {
			continue
		}
		stale = append(stale, session)
	}
	s.mu.RUnlock()

	for _, session := range stale {
		outcome := session.ForceComplete(models.BattleStatusAbandoned, nil)
		if outcome == nil {
			continue
		}
		log.Printf("🧹 reaping abandoned battle %s (%s vs %s)", session.ID, session.Player1, session.Player2)
		s.finalize(outcome)
		s.remove(session.ID)
	}
}
