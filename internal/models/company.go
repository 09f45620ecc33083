package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is an exhibitor's profile; one per exhibitor.
type Company struct {
	ID          uuid.UUID `json:"id"`
	ExhibitorID uuid.UUID `json:"exhibitor_id"`
	Name        string    `json:"name"`
	Industry    string    `json:"industry"`
	Country     string    `json:"country"`
	City        string    `json:"city"`
	Email       string    `json:"email"`
	Website     string    `json:"website"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
