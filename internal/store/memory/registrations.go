package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
)

// Registrations is the visitor attendance table.
type Registrations struct{ db *DB }

func (r *Registrations) Create(ctx context.Context, reg *models.Registration) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.expos[reg.ExpoID]; !ok {
		return store.ErrReferenceMissing
	}
	if _, ok := r.db.users[reg.UserID]; !ok {
		return store.ErrReferenceMissing
	}
	for _, existing := range r.db.registrations {
		if existing.ExpoID == reg.ExpoID && existing.UserID == reg.UserID {
			return &store.UniqueViolation{Constraint: store.RegistrationsExpoKey}
		}
	}
	reg.ID = uuid.New()
	reg.RegisteredAt = r.db.now()
	stored := *reg
	r.db.registrations[reg.ID] = &stored
	r.db.track(reg.ID)
	return nil
}

func (r *Registrations) Delete(ctx context.Context, expoID, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, reg := range r.db.registrations {
		if reg.ExpoID == expoID && reg.UserID == userID {
			delete(r.db.registrations, id)
			delete(r.db.order, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *Registrations) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error) {
	return r.list(func(reg *models.Registration) bool { return reg.UserID == userID }), nil
}

func (r *Registrations) ListByExpo(ctx context.Context, expoID uuid.UUID) ([]models.Registration, error) {
	return r.list(func(reg *models.Registration) bool { return reg.ExpoID == expoID }), nil
}

func (r *Registrations) list(match func(*models.Registration) bool) []models.Registration {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var ids []uuid.UUID
	for id, reg := range r.db.registrations {
		if match(reg) {
			ids = append(ids, id)
		}
	}
	r.db.newestFirst(ids)
	out := make([]models.Registration, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.db.registrations[id])
	}
	return out
}
