package models

// Card is a card owned by a player. Ownership and rarity generation belong
// to the pack/purchase service; this service only reads a player's hand.
type Card struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	OwnerID string `gorm:"index;not null" json:"owner_id"`
	Name    string `gorm:"not null" json:"name"`
	Power   int    `json:"power" gorm:"not null"`
	Rarity  string `json:"rarity" gorm:"type:varchar(16);default:'common'"`

	Timestamps
}
