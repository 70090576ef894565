package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"card-battle-service/models"
	"card-battle-service/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlayerSyncClient mirrors player profiles from the platform profile
// service into the local players table. The battle engine resolves wallet
// addresses against this mirror only.
type PlayerSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewPlayerSyncClient(db *gorm.DB) *PlayerSyncClient {
	baseURL := os.Getenv("SYNC_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("GAME_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("GAME_SERVICE_TOKEN environment variable is required for player sync")
	}

	return &PlayerSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

func (c *PlayerSyncClient) GetChangedPlayers(ctx context.Context, since time.Time) ([]models.RemotePlayer, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/players", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call sync service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sync service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Players []models.RemotePlayer `json:"players"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode sync service response: %w", err)
	}

	return response.Players, nil
}

// PollPlayers upserts changed profiles on a fixed interval.
func PollPlayers(ctx context.Context, client *PlayerSyncClient, pollInterval time.Duration) {
	log.Println("Starting player profile polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Player polling stopped.")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()

			remotes, err := client.GetChangedPlayers(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling players: %v", err)
				continue
			}

			if len(remotes) == 0 {
				continue
			}

			players := make([]models.Player, 0, len(remotes))
			for _, r := range remotes {
				players = append(players, models.Player{
					ID:            uuid.NewString(),
					WalletAddress: r.WalletAddress,
					Username:      r.Username,
					Rating:        r.Rating,
					IsBanned:      r.IsBanned,
				})
			}

			// Bulk upsert keyed on the wallet address; existing rows keep
			// their local id.
			if err := client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "wallet_address"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"username",
						"rating",
						"is_banned",
						"updated_at",
					}),
				},
			).Create(&players).Error; err != nil {
				log.Printf("❌ Failed to upsert %d player(s): %v", len(players), err)
				// Do NOT advance lastSyncTime on failure — retry same window next tick
				continue
			}

			lastSyncTime = logTime
			log.Printf("✅ Upserted %d player(s) into players table.", len(players))
		}
	}
}
