package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
)

// Booths is the booth table with both placement constraints.
type Booths struct{ db *DB }

// checkUnique mirrors booths_exhibitor_id_expo_id_key and
// booths_expo_id_map_row_map_col_key; caller holds the lock.
func (r *Booths) checkUnique(b *models.Booth) error {
	for _, other := range r.db.booths {
		if other.ID == b.ID || other.ExpoID != b.ExpoID {
			continue
		}
		if other.ExhibitorID == b.ExhibitorID {
			return &store.UniqueViolation{Constraint: store.BoothsExhibitorExpo}
		}
		if other.MapRow == b.MapRow && other.MapCol == b.MapCol {
			return &store.UniqueViolation{Constraint: store.BoothsExpoCell}
		}
	}
	return nil
}

func (r *Booths) checkRefs(b *models.Booth) error {
	if _, ok := r.db.expos[b.ExpoID]; !ok {
		return store.ErrReferenceMissing
	}
	if _, ok := r.db.users[b.ExhibitorID]; !ok {
		return store.ErrReferenceMissing
	}
	if b.CompanyID != nil {
		if _, ok := r.db.companies[*b.CompanyID]; !ok {
			return store.ErrReferenceMissing
		}
	}
	return nil
}

func (r *Booths) Create(ctx context.Context, b *models.Booth) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.checkRefs(b); err != nil {
		return err
	}
	b.ID = uuid.New()
	if err := r.checkUnique(b); err != nil {
		return err
	}
	now := r.db.now()
	b.CreatedAt, b.UpdatedAt = now, now
	stored := *b
	r.db.booths[b.ID] = &stored
	r.db.track(b.ID)
	return nil
}

func (r *Booths) GetByID(ctx context.Context, id uuid.UUID) (*models.Booth, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	b, ok := r.db.booths[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (r *Booths) GetByCell(ctx context.Context, expoID uuid.UUID, row, col int) (*models.Booth, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, b := range r.db.booths {
		if b.ExpoID == expoID && b.MapRow == row && b.MapCol == col {
			out := *b
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

// ListByExpo returns the expo's booths in grid order; an empty status means all.
func (r *Booths) ListByExpo(ctx context.Context, expoID uuid.UUID, status models.BoothStatus) ([]models.Booth, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []models.Booth{}
	for _, b := range r.db.booths {
		if b.ExpoID != expoID || (status != "" && b.Status != status) {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MapRow != out[j].MapRow {
			return out[i].MapRow < out[j].MapRow
		}
		return out[i].MapCol < out[j].MapCol
	})
	return out, nil
}

func (r *Booths) ListByExhibitor(ctx context.Context, exhibitorID uuid.UUID) ([]models.Booth, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var ids []uuid.UUID
	for id, b := range r.db.booths {
		if b.ExhibitorID == exhibitorID {
			ids = append(ids, id)
		}
	}
	r.db.newestFirst(ids)
	out := make([]models.Booth, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.db.booths[id])
	}
	return out, nil
}

func (r *Booths) List(ctx context.Context, limit, offset int) ([]models.Booth, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.db.booths))
	for id := range r.db.booths {
		ids = append(ids, id)
	}
	r.db.newestFirst(ids)
	out := make([]models.Booth, 0, len(ids))
	for _, id := range page(ids, limit, offset) {
		out = append(out, *r.db.booths[id])
	}
	return out, len(ids), nil
}

// Update saves every mutable column of b, re-checking both constraints.
func (r *Booths) Update(ctx context.Context, b *models.Booth) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.booths[b.ID]
	if !ok {
		return store.ErrNotFound
	}
	b.ExpoID = cur.ExpoID
	b.ExhibitorID = cur.ExhibitorID
	b.CreatedAt = cur.CreatedAt
	if err := r.checkRefs(b); err != nil {
		return err
	}
	if err := r.checkUnique(b); err != nil {
		return err
	}
	b.UpdatedAt = r.db.now()
	*cur = *b
	return nil
}

func (r *Booths) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.booths[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.db.booths, id)
	delete(r.db.order, id)
	return nil
}

// ModelPathsByExpo returns the non-empty model keys of an expo's booths.
func (r *Booths) ModelPathsByExpo(ctx context.Context, expoID uuid.UUID) ([]string, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var keys []string
	for _, b := range r.db.booths {
		if b.ExpoID == expoID && b.ModelPath != "" {
			keys = append(keys, b.ModelPath)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
