// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartBattleSchedulers runs the two periodic jobs of the engine: the
// matchmaking tick and the abandoned-session sweep. The returned scheduler
// is shut down by main on exit.
func StartBattleSchedulers(lobby *LobbyService, battles *BattleService, connections *ConnectionRegistry,
	matchmakingInterval, idleTimeout time.Duration) gocron.Scheduler {

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(matchmakingInterval),
		gocron.NewTask(lobby.Tick),
	)

	// Sweep once a minute; sessions idle past idleTimeout with no live
	// connection are finalized as ABANDONED.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			battles.ReapAbandoned(idleTimeout, connections)
		}),
	)

	log.Printf("✅ Matchmaking tick every %s, abandonment sweep every 1m (idle timeout %s)", matchmakingInterval, idleTimeout)
	return sched
}
