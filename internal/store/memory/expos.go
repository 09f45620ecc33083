package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
)

// Expos is the expo table.
type Expos struct{ db *DB }

func (r *Expos) Create(ctx context.Context, e *models.Expo) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[e.OrganizerID]; !ok {
		return store.ErrReferenceMissing
	}
	now := r.db.now()
	e.ID = uuid.New()
	e.CreatedAt, e.UpdatedAt = now, now
	stored := *e
	r.db.expos[e.ID] = &stored
	r.db.track(e.ID)
	return nil
}

func (r *Expos) GetByID(ctx context.Context, id uuid.UUID) (*models.Expo, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	e, ok := r.db.expos[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *e
	return &out, nil
}

func (r *Expos) List(ctx context.Context, f models.ExpoFilter, limit, offset int) ([]models.Expo, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var ids []uuid.UUID
	for id, e := range r.db.expos {
		if f.Type != "" && !strings.EqualFold(e.Type, f.Type) {
			continue
		}
		if f.OrganizerID != nil && e.OrganizerID != *f.OrganizerID {
			continue
		}
		ids = append(ids, id)
	}
	r.db.newestFirst(ids)
	out := make([]models.Expo, 0, len(ids))
	for _, id := range page(ids, limit, offset) {
		out = append(out, *r.db.expos[id])
	}
	return out, len(ids), nil
}

func (r *Expos) Update(ctx context.Context, e *models.Expo) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.expos[e.ID]
	if !ok {
		return store.ErrNotFound
	}
	e.OrganizerID = cur.OrganizerID
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = r.db.now()
	*cur = *e
	return nil
}

// Delete removes the expo with its booths and registrations.
func (r *Expos) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.expos[id]; !ok {
		return store.ErrNotFound
	}
	r.db.deleteExpo(id)
	return nil
}
