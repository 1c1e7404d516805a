package domain

import "time"

// Tag is a globally unique, case-sensitive label. Tags are created on first
// reference and never deleted.
type Tag struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
