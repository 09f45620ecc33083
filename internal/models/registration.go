package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration is a visitor's attendance registration for an expo.
type Registration struct {
	ID           uuid.UUID `json:"id"`
	ExpoID       uuid.UUID `json:"expo_id"`
	UserID       uuid.UUID `json:"user_id"`
	RegisteredAt time.Time `json:"registered_at"`
}
