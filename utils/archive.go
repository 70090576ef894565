// utils/archive.go
package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"card-battle-service/services"

	"github.com/gosimple/slug"
)

// BattleArchiver uploads finished battle snapshots to R2 so clients can
// fetch replays without hitting the database. Implements services.Archiver.
type BattleArchiver struct{}

type battleArchive struct {
	BattleID   string                `json:"battle_id"`
	Player1    string                `json:"player1"`
	Player2    string                `json:"player2"`
	Winner     *string               `json:"winner"`
	TurnCount  int                   `json:"turn_count"`
	Status     string                `json:"status"`
	FinalState services.LaneSnapshot `json:"final_state"`
	ArchivedAt time.Time             `json:"archived_at"`
}

func (BattleArchiver) ArchiveBattle(outcome services.MatchOutcome) (string, error) {
	payload, err := json.Marshal(battleArchive{
		BattleID:   outcome.BattleID,
		Player1:    outcome.Player1,
		Player2:    outcome.Player2,
		Winner:     outcome.WinnerWallet,
		TurnCount:  outcome.TurnCount,
		Status:     outcome.Status,
		FinalState: outcome.FinalState,
		ArchivedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal battle archive: %w", err)
	}

	key := ArchiveKey(outcome.Player1, outcome.Player2, outcome.BattleID)
	return UploadBytesToR2(key, payload, "application/json")
}

// ArchiveKey builds a readable R2 object key for a battle replay.
func ArchiveKey(player1, player2, battleID string) string {
	return fmt.Sprintf("battles/%s-vs-%s-%s.json", slug.Make(player1), slug.Make(player2), battleID)
}
