package services

import (
	"encoding/json"
	"log"
)

// Inbound action names the server understands.
const (
	ActionJoinQueue  = "joinQueue"
	ActionLeaveQueue = "leaveQueue"
	ActionJoinBattle = "joinBattle"
	ActionPlaceCard  = "placeCard"
	ActionAttackCard = "attackCard"
	ActionMoveCard   = "moveCard"
	ActionEndTurn    = "endTurn"
)

// Outbound event names pushed to clients.
const (
	EventQueueJoined  = "queueJoined"
	EventQueueLeft    = "queueLeft"
	EventBattleFound  = "battleFound"
	EventBattleStart  = "battleStart"
	EventTurnUpdate   = "turnUpdate"
	EventCardPlaced   = "cardPlaced"
	EventCardMoved    = "cardMoved"
	EventAttackResult = "attackResult"
	EventCardDefeated = "cardDefeated"
	EventBattleEnd    = "battleEnd"
	EventError        = "error"
)

// Side labels used in lane snapshots and placement events.
const (
	SidePlayer1 = "player1"
	SidePlayer2 = "player2"
)

// Action is a single inbound client message.
type Action struct {
	Action          string `json:"action"`
	WalletAddress   string `json:"walletAddress"`
	BattleID        string `json:"battleId,omitempty"`
	CardID          string `json:"cardId,omitempty"`
	AttackingCardID string `json:"attackingCardId,omitempty"`
	TargetCardID    string `json:"targetCardId,omitempty"`
	LaneNumber      int    `json:"laneNumber,omitempty"`
	FromLane        int    `json:"fromLane,omitempty"`
	ToLane          int    `json:"toLane,omitempty"`
}

// Envelope wraps every outbound message in a consistent format.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// EventSink delivers envelopes to a single player's connection.
// The WebSocket client implements it with a buffered send channel;
// tests implement it with a recording sink.
type EventSink interface {
	Send(Envelope)
}

// CardSnapshot is the client-facing view of a placed card.
type CardSnapshot struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	InitialPower int    `json:"initialPower"`
	CurrentPower int    `json:"currentPower"`
}

// LaneSnapshot is the full lane state of one battle, keyed by lane index 1..3.
type LaneSnapshot struct {
	LanePlayer1 map[int][]CardSnapshot `json:"lanePlayer1"`
	LanePlayer2 map[int][]CardSnapshot `json:"lanePlayer2"`
}

type QueueJoinedEvent struct {
	Position int `json:"queuePosition"`
}

type QueueLeftEvent struct{}

type BattleFoundEvent struct {
	BattleID string `json:"battleId"`
	Opponent string `json:"opponent"`
}

type BattleStartEvent struct {
	FirstTurn string `json:"firstTurn"`
}

type TurnUpdateEvent struct {
	CurrentTurn string `json:"currentTurn"`
	TurnCount   int    `json:"turnCount"`
}

type CardPlacedEvent struct {
	LaneNumber int          `json:"laneNumber"`
	Side       string       `json:"side"`
	Card       CardSnapshot `json:"card"`
}

type CardMovedEvent struct {
	CardID   string `json:"cardId"`
	FromLane int    `json:"fromLane"`
	ToLane   int    `json:"toLane"`
}

type AttackResultEvent struct {
	FromLane      int          `json:"fromLane"`
	ToLane        int          `json:"toLane"`
	AttackingCard CardSnapshot `json:"attackingCard"`
	TargetCard    CardSnapshot `json:"targetCard"`
	Damage        int          `json:"damage"`
}

type CardDefeatedEvent struct {
	LaneNumber int    `json:"laneNumber"`
	CardID     string `json:"cardId"`
}

type BattleEndEvent struct {
	WinnerID   *string      `json:"winner"` // nil on a draw
	FinalState LaneSnapshot `json:"finalState"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

func errorEnvelope(message string) Envelope {
	return Envelope{Event: EventError, Data: ErrorEvent{Message: message}}
}

func marshalFinalState(state LaneSnapshot) string {
	b, err := json.Marshal(state)
	if err != nil {
		log.Printf("⚠️ failed to marshal final state: %v", err)
		return ""
	}
	return string(b)
}
