// Package registry holds the process-wide user registry: one record per
// username ever seen, in registration order. Names are never released; a
// disconnected user stays in the registry with Online=false and the name
// stays reserved for the life of the process.
package registry

import (
	"sync"
	"time"

	"onionchat/internal/models"
)

type record struct {
	user models.User

	// ID of the live transport connection bound to this user, empty while
	// none is bound. At most one connection per username at any time.
	connID string
}

type Registry struct {
	records map[string]*record
	order   []*record

	mu sync.RWMutex
}

func New() *Registry {
	return &Registry{
		records: make(map[string]*record),
	}
}

// Register creates a record for username with Online=true. It fails with
// models.ErrNameTaken if the name was ever registered before, including
// names whose user has since gone offline.
func (r *Registry) Register(username string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[username]; ok {
		return models.User{}, models.ErrNameTaken
	}

	rec := &record{
		user: models.User{
			Username: username,
			JoinedAt: models.FormatTime(time.Now()),
			Online:   true,
		},
	}
	r.records[username] = rec
	r.order = append(r.order, rec)

	return rec.user, nil
}

// MarkOnline flips the record online and binds connID as its connection.
// Unknown usernames are ignored.
func (r *Registry) MarkOnline(username, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[username]
	if !ok {
		return
	}
	rec.user.Online = true
	rec.connID = connID
}

// MarkOffline flips the record offline and unbinds its connection.
// Unknown usernames are ignored.
func (r *Registry) MarkOffline(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[username]
	if !ok {
		return
	}
	rec.user.Online = false
	rec.connID = ""
}

// Get returns the user record and the ID of its bound connection, if any.
func (r *Registry) Get(username string) (models.User, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[username]
	if !ok {
		return models.User{}, "", false
	}
	return rec.user, rec.connID, true
}

// Snapshot returns all records, online and offline, in registration order.
func (r *Registry) Snapshot() []models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, 0, len(r.order))
	for _, rec := range r.order {
		users = append(users, rec.user)
	}
	return users
}
