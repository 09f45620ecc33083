package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// BoothStatus is the approval state of a booth.
type BoothStatus string

const (
	BoothPending  BoothStatus = "pending"
	BoothApproved BoothStatus = "approved"
	BoothRejected BoothStatus = "rejected"
)

// ParseBoothStatus normalizes s and reports whether it is a valid status.
func ParseBoothStatus(s string) (BoothStatus, bool) {
	st := BoothStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case BoothPending, BoothApproved, BoothRejected:
		return st, true
	}
	return "", false
}

// Booth is an exhibitor's stand on an expo floor grid.
//
// At most one booth exists per (ExhibitorID, ExpoID) and per (ExpoID, MapRow, MapCol).
type Booth struct {
	ID          uuid.UUID   `json:"id"`
	ExpoID      uuid.UUID   `json:"expo_id"`
	ExhibitorID uuid.UUID   `json:"exhibitor_id"`
	CompanyID   *uuid.UUID  `json:"company_id,omitempty"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	ModelPath   string      `json:"model_path"`
	Status      BoothStatus `json:"status"`
	MapRow      int         `json:"map_row"`
	MapCol      int         `json:"map_col"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// FloorMap bounds booth coordinates: 0 <= row < Rows, 0 <= col < Cols.
type FloorMap struct {
	Rows int
	Cols int
}

// Contains reports whether (row, col) lies on the grid.
func (f FloorMap) Contains(row, col int) bool {
	return row >= 0 && row < f.Rows && col >= 0 && col < f.Cols
}
