package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
)

// Companies is the company table; one row per exhibitor.
type Companies struct{ db *DB }

func (r *Companies) Create(ctx context.Context, c *models.Company) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[c.ExhibitorID]; !ok {
		return store.ErrReferenceMissing
	}
	for _, existing := range r.db.companies {
		if existing.ExhibitorID == c.ExhibitorID {
			return &store.UniqueViolation{Constraint: store.CompaniesExhibitor}
		}
	}
	now := r.db.now()
	c.ID = uuid.New()
	c.CreatedAt, c.UpdatedAt = now, now
	stored := *c
	r.db.companies[c.ID] = &stored
	r.db.track(c.ID)
	return nil
}

func (r *Companies) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	c, ok := r.db.companies[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *Companies) GetByExhibitor(ctx context.Context, exhibitorID uuid.UUID) (*models.Company, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, c := range r.db.companies {
		if c.ExhibitorID == exhibitorID {
			out := *c
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *Companies) List(ctx context.Context, limit, offset int) ([]models.Company, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.db.companies))
	for id := range r.db.companies {
		ids = append(ids, id)
	}
	r.db.newestFirst(ids)
	out := make([]models.Company, 0, len(ids))
	for _, id := range page(ids, limit, offset) {
		out = append(out, *r.db.companies[id])
	}
	return out, len(ids), nil
}

func (r *Companies) Update(ctx context.Context, c *models.Company) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.companies[c.ID]
	if !ok {
		return store.ErrNotFound
	}
	c.ExhibitorID = cur.ExhibitorID
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = r.db.now()
	*cur = *c
	return nil
}

// Delete removes the company; booths referencing it keep existing without one.
func (r *Companies) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.companies[id]; !ok {
		return store.ErrNotFound
	}
	r.db.deleteCompany(id)
	return nil
}
