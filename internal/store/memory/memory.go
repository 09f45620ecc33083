// Package memory is an in-process store with the same unique constraints and
// cascade rules as the PostgreSQL schema. It backs tests and STORE_DRIVER=memory.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FatPandaC8/Vexpo/internal/models"
)

// DB holds every table behind a single lock.
type DB struct {
	mu sync.RWMutex

	users         map[uuid.UUID]*models.User
	userRoles     map[uuid.UUID][]models.UserRole
	expos         map[uuid.UUID]*models.Expo
	companies     map[uuid.UUID]*models.Company
	booths        map[uuid.UUID]*models.Booth
	registrations map[uuid.UUID]*models.Registration

	seq   int64
	order map[uuid.UUID]int64

	now func() time.Time
}

// New returns an empty store.
func New() *DB {
	return &DB{
		users:         make(map[uuid.UUID]*models.User),
		userRoles:     make(map[uuid.UUID][]models.UserRole),
		expos:         make(map[uuid.UUID]*models.Expo),
		companies:     make(map[uuid.UUID]*models.Company),
		booths:        make(map[uuid.UUID]*models.Booth),
		registrations: make(map[uuid.UUID]*models.Registration),
		order:         make(map[uuid.UUID]int64),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (db *DB) Users() *Users                 { return &Users{db: db} }
func (db *DB) Expos() *Expos                 { return &Expos{db: db} }
func (db *DB) Companies() *Companies         { return &Companies{db: db} }
func (db *DB) Booths() *Booths               { return &Booths{db: db} }
func (db *DB) Registrations() *Registrations { return &Registrations{db: db} }

// track records insertion order for id; caller holds the write lock.
func (db *DB) track(id uuid.UUID) {
	db.seq++
	db.order[id] = db.seq
}

// newestFirst sorts ids by descending insertion order.
func (db *DB) newestFirst(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return db.order[ids[i]] > db.order[ids[j]] })
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// deleteUser removes a user and everything that references it; caller holds the write lock.
func (db *DB) deleteUser(id uuid.UUID) {
	delete(db.users, id)
	delete(db.userRoles, id)
	delete(db.order, id)
	for eid, e := range db.expos {
		if e.OrganizerID == id {
			db.deleteExpo(eid)
		}
	}
	for cid, c := range db.companies {
		if c.ExhibitorID == id {
			db.deleteCompany(cid)
		}
	}
	for bid, b := range db.booths {
		if b.ExhibitorID == id {
			delete(db.booths, bid)
			delete(db.order, bid)
		}
	}
	for rid, r := range db.registrations {
		if r.UserID == id {
			delete(db.registrations, rid)
			delete(db.order, rid)
		}
	}
}

func (db *DB) deleteExpo(id uuid.UUID) {
	delete(db.expos, id)
	delete(db.order, id)
	for bid, b := range db.booths {
		if b.ExpoID == id {
			delete(db.booths, bid)
			delete(db.order, bid)
		}
	}
	for rid, r := range db.registrations {
		if r.ExpoID == id {
			delete(db.registrations, rid)
			delete(db.order, rid)
		}
	}
}

func (db *DB) deleteCompany(id uuid.UUID) {
	delete(db.companies, id)
	delete(db.order, id)
	for _, b := range db.booths {
		if b.CompanyID != nil && *b.CompanyID == id {
			b.CompanyID = nil
		}
	}
}
