package services

import "card-battle-service/models"

// BattleStore is the narrow persistence boundary the battle engine talks
// to. Identity resolution (wallet address -> player record) happens behind
// this interface; the live engine only handles wallet addresses.
type BattleStore interface {
	// PlayerHand returns the owned cards a player can place in a battle.
	PlayerHand(walletAddress string) ([]models.Card, error)

	// CreateBattleRecord persists a new battle in PENDING status.
	CreateBattleRecord(battleID, player1Wallet, player2Wallet string) error

	// MarkBattleInProgress records that both players joined.
	MarkBattleInProgress(battleID string) error

	// FinalizeBattleRecord writes the terminal status, winner (nil for a
	// draw or abandonment) and final lane snapshot.
	FinalizeBattleRecord(battleID string, winnerWallet *string, turnCount int, finalStateJSON string, status string) error

	// SetBattleArchiveURL attaches the uploaded replay archive URL.
	SetBattleArchiveURL(battleID, url string) error
}
