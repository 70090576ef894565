package services

import (
	"errors"
	"log"

	"card-battle-service/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PlayerService serves the read-only REST surface: player profiles and
// persisted battle history. Live gameplay never goes through here.
type PlayerService struct {
	DB *gorm.DB
}

func NewPlayerService(db *gorm.DB) *PlayerService {
	return &PlayerService{DB: db}
}

// GetPlayerByWallet returns the mirrored player profile
func (s *PlayerService) GetPlayerByWallet(c *fiber.Ctx) error {
	wallet := c.Params("wallet")

	var player models.Player
	if err := s.DB.Where("wallet_address = ?", wallet).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "player not found"})
		}
		log.Printf("DB Error fetching player %s: %v", wallet, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(player)
}

// GetBattleByID returns one persisted battle record
func (s *PlayerService) GetBattleByID(c *fiber.Ctx) error {
	id := c.Params("id")

	var battle models.Battle
	if err := s.DB.First(&battle, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "battle not found"})
		}
		log.Printf("DB Error fetching battle %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(battle)
}

// GetPlayerBattles returns a player's battle history, newest first
func (s *PlayerService) GetPlayerBattles(c *fiber.Ctx) error {
	wallet := c.Params("wallet")

	var player models.Player
	if err := s.DB.Where("wallet_address = ?", wallet).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "player not found"})
		}
		log.Printf("DB Error fetching player %s: %v", wallet, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	var battles []models.Battle
	if err := s.DB.
		Where("player1_id = ? OR player2_id = ?", player.ID, player.ID).
		Order("created_at DESC").
		Limit(50).
		Find(&battles).Error; err != nil {
		log.Printf("DB Error fetching battles for %s: %v", wallet, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(fiber.Map{
		"wallet_address": wallet,
		"battles":        battles,
		"count":          len(battles),
	})
}
