// Package memstore is an in-process implementation of the store contract,
// used by tests and by the API when STORE_BACKEND=memory.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/store"
)

// Operation names accepted by InjectFault.
const (
	OpMemberInsert     = "members.insert"
	OpMemberUpdate     = "members.update"
	OpSchoolInsert     = "schools.insert"
	OpSchoolUpdate     = "schools.update"
	OpUserInsert       = "users.insert"
	OpStudentInsert    = "students.insert"
	OpStudentUpdate    = "students.update"
	OpStudentDelete    = "students.delete"
	OpClassAddStudent  = "classes.add_student"
	OpClassPullStudent = "classes.pull_student"
	OpClassSetRoster   = "classes.set_roster"
	OpClassInsert      = "classes.insert"
)

type DB struct {
	mu       sync.RWMutex
	members  map[string]models.Member
	schools  map[string]models.School
	users    map[string]models.User
	students map[string]models.Student
	classes  map[string]models.Class
	order    map[string][]string
	faults   map[string]error
	now      func() time.Time
}

func Open() *DB {
	return &DB{
		members:  make(map[string]models.Member),
		schools:  make(map[string]models.School),
		users:    make(map[string]models.User),
		students: make(map[string]models.Student),
		classes:  make(map[string]models.Class),
		order:    make(map[string][]string),
		faults:   make(map[string]error),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Store wires every collection of db into a store.Store.
func (db *DB) Store() *store.Store {
	return &store.Store{
		Members:  &MemberStore{db: db},
		Schools:  &SchoolStore{db: db},
		Users:    &UserStore{db: db},
		Students: &StudentStore{db: db},
		Classes:  &ClassStore{db: db},
	}
}

// InjectFault makes every call of op fail with err until cleared.
func (db *DB) InjectFault(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.faults[op] = err
}

func (db *DB) ClearFaults() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.faults = make(map[string]error)
}

// fault must be called with db.mu held.
func (db *DB) fault(op string) error {
	return db.faults[op]
}

func (db *DB) newID(collection string) string {
	id := uuid.NewString()
	db.order[collection] = append(db.order[collection], id)
	return id
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
