package services

import (
	"errors"
	"fmt"

	"card-battle-service/models"

	"gorm.io/gorm"
)

// GormBattleStore is the postgres-backed BattleStore.
type GormBattleStore struct {
	DB *gorm.DB
}

func NewGormBattleStore(db *gorm.DB) *GormBattleStore {
	return &GormBattleStore{DB: db}
}

// resolvePlayer maps a wallet address to its mirrored player record. Every
// store operation that persists a player reference goes through it.
func (s *GormBattleStore) resolvePlayer(walletAddress string) (*models.Player, error) {
	var player models.Player
	if err := s.DB.Where("wallet_address = ?", walletAddress).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, walletAddress)
		}
		return nil, fmt.Errorf("%w: resolve player: %v", ErrPersistence, err)
	}
	return &player, nil
}

func (s *GormBattleStore) PlayerHand(walletAddress string) ([]models.Card, error) {
	player, err := s.resolvePlayer(walletAddress)
	if err != nil {
		return nil, err
	}

	var cards []models.Card
	if err := s.DB.Where("owner_id = ?", player.ID).Order("created_at ASC").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("%w: load hand: %v", ErrPersistence, err)
	}
	return cards, nil
}

func (s *GormBattleStore) CreateBattleRecord(battleID, player1Wallet, player2Wallet string) error {
	player1, err := s.resolvePlayer(player1Wallet)
	if err != nil {
		return err
	}
	player2, err := s.resolvePlayer(player2Wallet)
	if err != nil {
		return err
	}

	battle := models.Battle{
		ID:        battleID,
		Player1ID: player1.ID,
		Player2ID: player2.ID,
		Status:    models.BattleStatusPending,
	}
	if err := s.DB.Create(&battle).Error; err != nil {
		return fmt.Errorf("%w: create battle: %v", ErrPersistence, err)
	}
	return nil
}

func (s *GormBattleStore) MarkBattleInProgress(battleID string) error {
	result := s.DB.Model(&models.Battle{}).
		Where("id = ?", battleID).
		Update("status", models.BattleStatusInProgress)
	if result.Error != nil {
		return fmt.Errorf("%w: mark in progress: %v", ErrPersistence, result.Error)
	}
	return nil
}

func (s *GormBattleStore) FinalizeBattleRecord(battleID string, winnerWallet *string, turnCount int, finalStateJSON string, status string) error {
	updates := map[string]interface{}{
		"status":           status,
		"turn_count":       turnCount,
		"final_state_json": finalStateJSON,
	}
	if winnerWallet != nil {
		winner, err := s.resolvePlayer(*winnerWallet)
		if err != nil {
			return err
		}
		updates["winner_id"] = winner.ID
	}

	result := s.DB.Model(&models.Battle{}).Where("id = ?", battleID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("%w: finalize battle: %v", ErrPersistence, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: finalize battle %s", ErrBattleNotFound, battleID)
	}
	return nil
}

func (s *GormBattleStore) SetBattleArchiveURL(battleID, url string) error {
	if err := s.DB.Model(&models.Battle{}).Where("id = ?", battleID).Update("archive_url", url).Error; err != nil {
		return fmt.Errorf("%w: set archive url: %v", ErrPersistence, err)
	}
	return nil
}
