package domain

import "time"

// Session represents one authenticated device/browser instance.
// Records are JSON-encoded into the key-value store and physically expire
// after the retention TTL regardless of IsActive.
type Session struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	IPAddress         string    `json:"ip_address"`
	UserAgent         string    `json:"user_agent"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivity      time.Time `json:"last_activity"`
	IsActive          bool      `json:"is_active"`
}
