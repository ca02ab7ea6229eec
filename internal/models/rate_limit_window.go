package models

import "time"

// RateLimitWindow is the per-fingerprint report counter. A window whose
// WindowStart is older than the configured period is treated as empty.
type RateLimitWindow struct {
	Fingerprint string    `gorm:"primaryKey;size:64" json:"fingerprint"`
	Count       int       `gorm:"not null;default:0" json:"count"`
	WindowStart time.Time `gorm:"not null;index" json:"window_start"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (RateLimitWindow) TableName() string {
	return "rate_limit_windows"
}
