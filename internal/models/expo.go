package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format of expo dates.
const DateLayout = "2006-01-02"

// Expo is an organizer-owned event. Booths and registrations are deleted with it.
type Expo struct {
	ID          uuid.UUID `json:"id"`
	OrganizerID uuid.UUID `json:"organizer_id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Description string    `json:"description"`
	Website     *string   `json:"website,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OwnedBy reports whether organizerID owns the expo.
func (e *Expo) OwnedBy(organizerID uuid.UUID) bool {
	return e.OrganizerID == organizerID
}

// ExpoFilter narrows expo listings.
type ExpoFilter struct {
	Type        string
	OrganizerID *uuid.UUID
}
