package services

import (
	"sync"
	"time"

	"card-battle-service/models"
)

const (
	minLane = 1
	maxLane = 3
)

// PlacedCard is a card sitting in a lane. CurrentPower never exceeds
// InitialPower and is floored at zero; a card at zero is removed.
type PlacedCard struct {
	CardID       string
	Name         string
	InitialPower int
	CurrentPower int
}

// MatchOutcome is produced exactly once per session, at the transition
// into the terminal state, and handed to the persistence boundary.
type MatchOutcome struct {
	BattleID     string
	WinnerWallet *string // nil on a draw or abandonment
	Player1      string
	Player2      string
	TurnCount    int
	Status       string
	FinalState   LaneSnapshot
}

// FinalStateJSON renders the final lane snapshot for persistence.
func (o MatchOutcome) FinalStateJSON() string {
	return marshalFinalState(o.FinalState)
}

// BattleSession is the authoritative state machine for one live battle.
// All mutating operations serialize on the session mutex; distinct
// sessions run concurrently.
type BattleSession struct {
	mu sync.Mutex

	ID      string
	Player1 string // wallet address, first in queue, takes the first turn
	Player2 string

	status      string
	currentTurn string
	turnCount   int

	// lane index 1..3 -> ordered cards, one map per side
	lanesPlayer1 map[int][]*PlacedCard
	lanesPlayer2 map[int][]*PlacedCard

	// unplaced hand per participant, consumed by PlaceCard
	hands map[string]map[string]models.Card

	sinks map[string]EventSink

	createdAt    time.Time
	lastActionAt time.Time
}

func newBattleSession(id, player1, player2 string, hands map[string][]models.Card) *BattleSession {
	s := &BattleSession{
		ID:           id,
		Player1:      player1,
		Player2:      player2,
		status:       models.BattleStatusWaitingPlayers,
		currentTurn:  player1,
		lanesPlayer1: emptyLanes(),
		lanesPlayer2: emptyLanes(),
		hands:        make(map[string]map[string]models.Card, 2),
		sinks:        make(map[string]EventSink, 2),
		createdAt:    time.Now(),
		lastActionAt: time.Now(),
	}
	for wallet, cards := range hands {
		hand := make(map[string]models.Card, len(cards))
		for _, card := range cards {
			hand[card.ID] = card
		}
		s.hands[wallet] = hand
	}
	return s
}

func emptyLanes() map[int][]*PlacedCard {
	lanes := make(map[int][]*PlacedCard, maxLane)
	for i := minLane; i <= maxLane; i++ {
		lanes[i] = nil
	}
	return lanes
}

// Join binds a connection to a participant slot. Rebinding the same player
// is allowed (reconnect). Once both slots are bound the battle starts and
// battleStart plus the opening turnUpdate are broadcast. The returned flag
// reports whether this join started the battle.
func (s *BattleSession) Join(wallet string, sink EventSink) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if wallet != s.Player1 && wallet != s.Player2 {
		return false, ErrBattleNotFound
	}
	if s.status == models.BattleStatusCompleted || s.status == models.BattleStatusAbandoned {
		return false, ErrBattleOver
	}

	s.sinks[wallet] = sink
	s.lastActionAt = time.Now()

	if s.status == models.BattleStatusWaitingPlayers && len(s.sinks) == 2 {
		s.status = models.BattleStatusInProgress
		s.broadcast(Envelope{Event: EventBattleStart, Data: BattleStartEvent{FirstTurn: s.currentTurn}})
		s.broadcast(Envelope{Event: EventTurnUpdate, Data: TurnUpdateEvent{CurrentTurn: s.currentTurn, TurnCount: s.turnCount}})
		return true, nil
	}
	return false, nil
}

// PlaceCard moves a card from the caller's hand into a lane on the
// caller's side. Placement does not end the turn.
func (s *BattleSession) PlaceCard(wallet, cardID string, lane int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTurn(wallet); err != nil {
		return err
	}
	if lane < minLane || lane > maxLane {
		return ErrInvalidLane
	}

	hand := s.hands[wallet]
	card, owned := hand[cardID]
	if !owned {
		return ErrCardOwnership
	}
	delete(hand, cardID)

	placed := &PlacedCard{
		CardID:       card.ID,
		Name:         card.Name,
		InitialPower: card.Power,
		CurrentPower: card.Power,
	}
	lanes := s.lanesFor(wallet)
	lanes[lane] = append(lanes[lane], placed)
	s.lastActionAt = time.Now()

	s.broadcast(Envelope{Event: EventCardPlaced, Data: CardPlacedEvent{
		LaneNumber: lane,
		Side:       s.sideOf(wallet),
		Card:       snapshotCard(placed),
	}})
	return nil
}

// AttackCard applies the attacker's current power as damage to a card on
// the opposing side. A target reduced to zero is removed, after which the
// win condition is evaluated; a terminal result is returned as a non-nil
// MatchOutcome.
func (s *BattleSession) AttackCard(wallet, attackingCardID, targetCardID string, fromLane, toLane int) (*MatchOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTurn(wallet); err != nil {
		return nil, err
	}
	if fromLane < minLane || fromLane > maxLane || toLane < minLane || toLane > maxLane {
		return nil, ErrInvalidLane
	}

	attacker := findCard(s.lanesFor(wallet)[fromLane], attackingCardID)
	if attacker == nil {
		return nil, ErrCardNotFound
	}
	opponent := s.opponentOf(wallet)
	targetLanes := s.lanesFor(opponent)
	target := findCard(targetLanes[toLane], targetCardID)
	if target == nil {
		return nil, ErrCardNotFound
	}

	damage := attacker.CurrentPower
	target.CurrentPower -= damage
	if target.CurrentPower < 0 {
		target.CurrentPower = 0
	}
	s.lastActionAt = time.Now()

	s.broadcast(Envelope{Event: EventAttackResult, Data: AttackResultEvent{
		FromLane:      fromLane,
		ToLane:        toLane,
		AttackingCard: snapshotCard(attacker),
		TargetCard:    snapshotCard(target),
		Damage:        damage,
	}})

	if target.CurrentPower > 0 {
		return nil, nil
	}

	targetLanes[toLane] = removeCard(targetLanes[toLane], targetCardID)
	s.broadcast(Envelope{Event: EventCardDefeated, Data: CardDefeatedEvent{
		LaneNumber: toLane,
		CardID:     targetCardID,
	}})

	return s.evaluateWin(), nil
}

// MoveCard relocates one of the caller's cards between lanes. Relocation
// only: no damage is applied and the card is neither duplicated nor
// destroyed.
func (s *BattleSession) MoveCard(wallet, cardID string, fromLane, toLane int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTurn(wallet); err != nil {
		return err
	}
	if fromLane < minLane || fromLane > maxLane || toLane < minLane || toLane > maxLane {
		return ErrInvalidLane
	}

	lanes := s.lanesFor(wallet)
	card := findCard(lanes[fromLane], cardID)
	if card == nil {
		return ErrCardNotFound
	}
	lanes[fromLane] = removeCard(lanes[fromLane], cardID)
	lanes[toLane] = append(lanes[toLane], card)
	s.lastActionAt = time.Now()

	s.broadcast(Envelope{Event: EventCardMoved, Data: CardMovedEvent{
		CardID:   cardID,
		FromLane: fromLane,
		ToLane:   toLane,
	}})
	return nil
}

// EndTurn passes control to the other participant.
func (s *BattleSession) EndTurn(wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTurn(wallet); err != nil {
		return err
	}

	if s.currentTurn == s.Player1 {
		s.currentTurn = s.Player2
	} else {
		s.currentTurn = s.Player1
	}
	s.turnCount++
	s.lastActionAt = time.Now()

	s.broadcast(Envelope{Event: EventTurnUpdate, Data: TurnUpdateEvent{
		CurrentTurn: s.currentTurn,
		TurnCount:   s.turnCount,
	}})
	return nil
}

// ForceComplete marks the session terminal outside normal win evaluation
// (abandonment sweep). Returns nil when the session already completed, so
// completion stays at-most-once.
func (s *BattleSession) ForceComplete(status string, winnerWallet *string) *MatchOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == models.BattleStatusCompleted || s.status == models.BattleStatusAbandoned {
		return nil
	}
	s.status = status
	return s.outcome(status, winnerWallet)
}

// Broadcast delivers an envelope to both bound connections.
func (s *BattleSession) Broadcast(env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcast(env)
}

// Snapshot returns a copy of the current lane state.
func (s *BattleSession) Snapshot() LaneSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *BattleSession) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *BattleSession) CurrentTurn() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTurn
}

func (s *BattleSession) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnCount
}

// LastAction reports when the session last committed a mutation; used by
// the idle-session reaper.
func (s *BattleSession) LastAction() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActionAt
}

func (s *BattleSession) checkTurn(wallet string) error {
	switch s.status {
	case models.BattleStatusCompleted, models.BattleStatusAbandoned:
		return ErrBattleOver
	case models.BattleStatusWaitingPlayers:
		return ErrBattleNotStarted
	}
	if wallet != s.Player1 && wallet != s.Player2 {
		return ErrBattleNotFound
	}
	if wallet != s.currentTurn {
		return ErrNotYourTurn
	}
	return nil
}

// evaluateWin runs after a card removal. A side is empty when all three of
// its lanes hold no cards; exactly one empty side loses. Both sides empty
// at once is a draw.
func (s *BattleSession) evaluateWin() *MatchOutcome {
	player1Empty := sideEmpty(s.lanesPlayer1)
	player2Empty := sideEmpty(s.lanesPlayer2)

	switch {
	case !player1Empty && !player2Empty:
		return nil
	case player1Empty && player2Empty:
		s.status = models.BattleStatusCompleted
		return s.outcome(models.BattleStatusCompleted, nil)
	case player1Empty:
		s.status = models.BattleStatusCompleted
		winner := s.Player2
		return s.outcome(models.BattleStatusCompleted, &winner)
	default:
		s.status = models.BattleStatusCompleted
		winner := s.Player1
		return s.outcome(models.BattleStatusCompleted, &winner)
	}
}

func (s *BattleSession) outcome(status string, winnerWallet *string) *MatchOutcome {
	return &MatchOutcome{
		BattleID:     s.ID,
		WinnerWallet: winnerWallet,
		Player1:      s.Player1,
		Player2:      s.Player2,
		TurnCount:    s.turnCount,
		Status:       status,
		FinalState:   s.snapshot(),
	}
}

func (s *BattleSession) broadcast(env Envelope) {
	for _, sink := range s.sinks {
		sink.Send(env)
	}
}

func (s *BattleSession) snapshot() LaneSnapshot {
	return LaneSnapshot{
		LanePlayer1: snapshotLanes(s.lanesPlayer1),
		LanePlayer2: snapshotLanes(s.lanesPlayer2),
	}
}

func (s *BattleSession) sideOf(wallet string) string {
	if wallet == s.Player1 {
		return SidePlayer1
	}
	return SidePlayer2
}

func (s *BattleSession) opponentOf(wallet string) string {
	if wallet == s.Player1 {
		return s.Player2
	}
	return s.Player1
}

func (s *BattleSession) lanesFor(wallet string) map[int][]*PlacedCard {
	if wallet == s.Player1 {
		return s.lanesPlayer1
	}
	return s.lanesPlayer2
}

func sideEmpty(lanes map[int][]*PlacedCard) bool {
	for _, cards := range lanes {
		if len(cards) > 0 {
			return false
		}
	}
	return true
}

func findCard(cards []*PlacedCard, cardID string) *PlacedCard {
	for _, card := range cards {
		if card.CardID == cardID {
			return card
		}
	}
	return nil
}

func removeCard(cards []*PlacedCard, cardID string) []*PlacedCard {
	out := cards[:0]
	for _, card := range cards {
		if card.CardID != cardID {
			out = append(out, card)
		}
	}
	return out
}

func snapshotCard(card *PlacedCard) CardSnapshot {
	return CardSnapshot{
		ID:           card.CardID,
		Name:         card.Name,
		InitialPower: card.InitialPower,
		CurrentPower: card.CurrentPower,
	}
}

func snapshotLanes(lanes map[int][]*PlacedCard) map[int][]CardSnapshot {
	out := make(map[int][]CardSnapshot, len(lanes))
	for lane, cards := range lanes {
		snaps := make([]CardSnapshot, 0, len(cards))
		for _, card := range cards {
			snaps = append(snaps, snapshotCard(card))
		}
		out[lane] = snaps
	}
	return out
}
