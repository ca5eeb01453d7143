package chat

import (
	"log/slog"
	"sync"
)

// LoginResult is the reason code for an authentication attempt.
type LoginResult int

const (
	LoginOK LoginResult = iota
	LoginUnknownUser
	LoginAlreadyActive
	LoginBadCredential
)

type userRecord struct {
	credential string
	active     bool
}

// Directory is the registered-credentials and online-status registry.
// It is shared across all sessions and guarded by a single mutex.
// Users are never deleted; a name once registered is permanent.
type Directory struct {
	mu     sync.Mutex
	users  map[string]*userRecord
	logger *slog.Logger
}

func NewDirectory(logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		users:  make(map[string]*userRecord),
		logger: logger,
	}
}

// Register creates the user and returns true only if name is free.
// It never overwrites an existing credential. The record is created
// already active under the same lock acquisition, so a concurrent
// Login can never slip in between registration and activation and
// bind the fresh name to a second session.
func (d *Directory) Register(name, credential string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.users[name]; exists {
		return false
	}
	d.users[name] = &userRecord{credential: credential, active: true}
	d.logger.Info("user registered", "user", name)
	return true
}

func (d *Directory) IsRegistered(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.users[name]
	return ok
}

// IsActive reports whether name is registered and currently online.
func (d *Directory) IsActive(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[name]
	return ok && u.active
}

// Login authenticates name and marks it active on success. A name can
// hold at most one active session, so a second login is refused until
// the first logs out.
func (d *Directory) Login(name, credential string) LoginResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[name]
	if !ok {
		return LoginUnknownUser
	}
	if u.active {
		return LoginAlreadyActive
	}
	if u.credential != credential {
		return LoginBadCredential
	}
	u.active = true
	d.logger.Info("user authenticated", "user", name)
	return LoginOK
}

// Logout marks an active user offline; false if the user was not
// active. Unknown names are a no-op.
func (d *Directory) Logout(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[name]
	if !ok || !u.active {
		return false
	}
	u.active = false
	d.logger.Info("user logged out", "user", name)
	return true
}
