package models

import (
	"time"
)

// Player is a local snapshot of player data needed for battles.
// Owned and managed solely by the battle service.
// Populated via sync worker from the platform profile service.
type Player struct {
	ID            string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	WalletAddress string `gorm:"uniqueIndex;not null" json:"wallet_address"` // Primary lookup key
	Username      string `gorm:"index;not null" json:"username"`

	// Optional skill rating for future skill-based matchmaking
	Rating int `json:"rating" gorm:"default:1000"`

	IsBanned bool       `json:"is_banned" gorm:"default:false"` // local battle ban
	LastSeen *time.Time `json:"last_seen,omitempty"`

	Timestamps
}

// RemotePlayer mirrors the schema of the platform service's players payload (read-only).
// Used by the sync worker to fetch data from the profile service.
type RemotePlayer struct {
	WalletAddress string     `json:"wallet_address"`
	Username      string     `json:"username"`
	Rating        int        `json:"rating"`
	IsBanned      bool       `json:"is_banned"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"` // soft-delete marker
}
