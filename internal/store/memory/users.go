package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
)

// Users is the user and role-assignment table.
type Users struct{ db *DB }

func (r *Users) withRoles(u *models.User) *models.User {
	out := *u
	out.Roles = nil
	for _, ur := range r.db.userRoles[u.ID] {
		out.Roles = append(out.Roles, ur.Role)
	}
	return &out
}

func (r *Users) emailTaken(email string, except uuid.UUID) bool {
	for _, u := range r.db.users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// Create inserts u and its initial roles atomically.
func (r *Users) Create(ctx context.Context, u *models.User, roles ...models.RoleName) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.emailTaken(u.Email, uuid.Nil) {
		return &store.UniqueViolation{Constraint: store.UsersEmailKey}
	}
	now := r.db.now()
	u.ID = uuid.New()
	u.CreatedAt, u.UpdatedAt = now, now
	stored := *u
	stored.Roles = nil
	r.db.users[u.ID] = &stored
	r.db.track(u.ID)
	u.Roles = nil
	for _, role := range roles {
		if r.hasRole(u.ID, role) {
			continue
		}
		r.db.userRoles[u.ID] = append(r.db.userRoles[u.ID], models.UserRole{
			ID: uuid.New(), UserID: u.ID, Role: role, CreatedAt: now,
		})
		u.Roles = append(u.Roles, role)
	}
	return nil
}

func (r *Users) hasRole(userID uuid.UUID, role models.RoleName) bool {
	for _, ur := range r.db.userRoles[userID] {
		if ur.Role == role {
			return true
		}
	}
	return false
}

func (r *Users) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.withRoles(u), nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			return r.withRoles(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *Users) List(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.db.users))
	for id := range r.db.users {
		ids = append(ids, id)
	}
	r.db.newestFirst(ids)
	out := make([]models.User, 0, len(ids))
	for _, id := range page(ids, limit, offset) {
		out = append(out, *r.withRoles(r.db.users[id]))
	}
	return out, len(ids), nil
}

// Update saves name, email and picture.
func (r *Users) Update(ctx context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return &store.UniqueViolation{Constraint: store.UsersEmailKey}
	}
	cur.Email, cur.Name, cur.Picture, cur.PasswordHash = u.Email, u.Name, u.Picture, u.PasswordHash
	cur.UpdatedAt = r.db.now()
	u.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *Users) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return store.ErrNotFound
	}
	r.db.deleteUser(id)
	return nil
}

// AssignRole adds role to the user; an existing assignment is returned unchanged.
func (r *Users) AssignRole(ctx context.Context, userID uuid.UUID, role models.RoleName) (*models.UserRole, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[userID]; !ok {
		return nil, store.ErrReferenceMissing
	}
	for _, ur := range r.db.userRoles[userID] {
		if ur.Role == role {
			out := ur
			return &out, nil
		}
	}
	ur := models.UserRole{ID: uuid.New(), UserID: userID, Role: role, CreatedAt: r.db.now()}
	r.db.userRoles[userID] = append(r.db.userRoles[userID], ur)
	return &ur, nil
}

// SetRole replaces every assignment of the user with role.
func (r *Users) SetRole(ctx context.Context, userID uuid.UUID, role models.RoleName) (*models.UserRole, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[userID]; !ok {
		return nil, store.ErrReferenceMissing
	}
	ur := models.UserRole{ID: uuid.New(), UserID: userID, Role: role, CreatedAt: r.db.now()}
	r.db.userRoles[userID] = []models.UserRole{ur}
	return &ur, nil
}

// CountRoles returns how many assignments the user holds.
func (r *Users) CountRoles(ctx context.Context, userID uuid.UUID) int {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.db.userRoles[userID])
}
