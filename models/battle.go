package models

const (
	BattleStatusPending        = "PENDING"
	BattleStatusWaitingPlayers = "WAITING_PLAYERS"
	BattleStatusSetupPhase     = "SETUP_PHASE"
	BattleStatusInProgress     = "IN_PROGRESS"
	BattleStatusCompleted      = "COMPLETED"
	BattleStatusAbandoned      = "ABANDONED"
)

// Battle records a single PvP battle session
type Battle struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	Player1ID string `gorm:"index;not null" json:"player1_id"`
	Player2ID string `gorm:"index;not null" json:"player2_id"`

	Status   string  `json:"status" gorm:"type:varchar(20);default:'PENDING'"`
	WinnerID *string `gorm:"index" json:"winner_id,omitempty"` // nil = draw or abandoned

	// Battle outcome
	TurnCount      int    `json:"turn_count" gorm:"default:0"`
	FinalStateJSON string `json:"final_state_json,omitempty" gorm:"type:text"`
	ArchiveURL     string `json:"archive_url,omitempty"` // replay snapshot on R2

	Timestamps
}
