package services

import (
	"log"
	"sync"
	"time"
)

// QueuedPlayer is one waiting entry in the matchmaking queue. Owned
// exclusively by the LobbyService until paired or removed.
type QueuedPlayer struct {
	Wallet   string
	Sink     EventSink
	Rating   int
	QueuedAt time.Time
}

// LobbyService holds the FIFO matchmaking queue. The whole waiting list is
// serialized under one mutex: pairing removes two entries atomically with
// respect to concurrent joins and leaves. Players dequeued by a running
// tick stay reserved in `pairing` until battleFound or reinsertion, so a
// concurrent join can never duplicate them.
type LobbyService struct {
	mu      sync.Mutex
	queue   []*QueuedPlayer
	pairing map[string]bool

	battles *BattleService
}

func NewLobbyService(battles *BattleService) *LobbyService {
	return &LobbyService{
		pairing: make(map[string]bool),
		battles: battles,
	}
}

// Join appends a waiting player and returns the 1-based queue position.
func (l *LobbyService) Join(wallet string, sink EventSink) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pairing[wallet] {
		return 0, ErrAlreadyQueued
	}
	for _, entry := range l.queue {
		if entry.Wallet == wallet {
			return 0, ErrAlreadyQueued
		}
	}
	if l.battles.IsPlayerInBattle(wallet) {
		return 0, ErrAlreadyInBattle
	}

	l.queue = append(l.queue, &QueuedPlayer{
		Wallet:   wallet,
		Sink:     sink,
		QueuedAt: time.Now(),
	})
	return len(l.queue), nil
}

// Leave removes the first queue entry for the wallet. Reports whether an
// entry was removed; absence is not an error.
func (l *LobbyService) Leave(wallet string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, entry := range l.queue {
		if entry.Wallet == wallet {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return true
		}
	}
	return false
}

// HandleDisconnect removes any queue entry bound to the sink. Idempotent.
func (l *LobbyService) HandleDisconnect(sink EventSink) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.queue[:0]
	for _, entry := range l.queue {
		if entry.Sink != sink {
			kept = append(kept, entry)
		}
	}
	l.queue = kept
}

// Len reports the current queue depth.
func (l *LobbyService) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// HandleJoinQueue is the action entry point: queue the player and answer
// with queueJoined, or with an error event on rejection.
func (l *LobbyService) HandleJoinQueue(wallet string, sink EventSink) {
	position, err := l.Join(wallet, sink)
	if err != nil {
		sink.Send(errorEnvelope(err.Error()))
		return
	}
	sink.Send(Envelope{Event: EventQueueJoined, Data: QueueJoinedEvent{Position: position}})
}

// HandleLeaveQueue removes the player and confirms with queueLeft when an
// entry actually existed.
func (l *LobbyService) HandleLeaveQueue(wallet string, sink EventSink) {
	if l.Leave(wallet) {
		sink.Send(Envelope{Event: EventQueueLeft, Data: QueueLeftEvent{}})
	}
}

// Tick pairs the two oldest waiting players while at least two remain and
// asks the battle service to open a session for each pair. A pair whose
// session creation fails goes back to the FRONT of the queue in its
// original relative order, and the tick keeps pairing the rest. Dequeued
// players count as queued (the pairing set) until their battleFound or
// reinsertion, and reinsertion skips anyone who landed in a battle since.
func (l *LobbyService) Tick() {
	var failed []*QueuedPlayer

	for {
		l.mu.Lock()
		if len(l.queue) < 2 {
			l.mu.Unlock()
			break
		}
		player1 := l.queue[0]
		player2 := l.queue[1]
		l.queue = l.queue[2:]
		l.pairing[player1.Wallet] = true
		l.pairing[player2.Wallet] = true
		l.mu.Unlock()

		battleID, err := l.battles.CreateBattle(player1.Wallet, player2.Wallet)
		if err != nil {
			log.Printf("❌ matchmaking: failed to create battle for %s vs %s: %v", player1.Wallet, player2.Wallet, err)
			failed = append(failed, player1, player2)
			player1.Sink.Send(errorEnvelope("failed to create battle"))
			player2.Sink.Send(errorEnvelope("failed to create battle"))
			continue
		}

		l.mu.Lock()
		delete(l.pairing, player1.Wallet)
		delete(l.pairing, player2.Wallet)
		l.mu.Unlock()

		log.Printf("⚔️ matched %s vs %s (battle %s)", player1.Wallet, player2.Wallet, battleID)
		player1.Sink.Send(Envelope{Event: EventBattleFound, Data: BattleFoundEvent{BattleID: battleID, Opponent: player2.Wallet}})
		player2.Sink.Send(Envelope{Event: EventBattleFound, Data: BattleFoundEvent{BattleID: battleID, Opponent: player1.Wallet}})
	}

	if len(failed) > 0 {
		l.mu.Lock()
		kept := failed[:0]
		for _, entry := range failed {
			delete(l.pairing, entry.Wallet)
			if l.battles.IsPlayerInBattle(entry.Wallet) {
				continue
			}
			kept = append(kept, entry)
		}
		l.queue = append(kept, l.queue...)
		l.mu.Unlock()
	}
}
