package model

import "time"

// Link describes the core short-link entity stored in Postgres.
// OriginalURL is immutable after creation. Clicks never decreases and is
// touched exclusively by the click accounting pipeline.
type Link struct {
	Code        string    `db:"code" gorm:"primaryKey;size:32"`
	OriginalURL string    `db:"original_url" gorm:"type:text;not null"`
	OwnerID     *string   `db:"owner_id" gorm:"size:64;index"`
	Clicks      int64     `db:"clicks" gorm:"not null;default:0"`
	CreatedAt   time.Time `db:"created_at" gorm:"autoCreateTime"`
}
