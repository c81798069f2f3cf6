package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/moments/internal/models"
	"github.com/jon4hz/moments/internal/storage"
)

// DefaultStorageKey is the storage key the serialised user is kept under.
const DefaultStorageKey = "user"

// Store owns the current user of the process. It is the only writer of both
// the in-memory value and its persisted mirror; everybody else reads through
// the getters.
type Store struct {
	mu      sync.RWMutex
	user    *models.User
	stale   bool
	storage storage.Storage
	key     string
}

// New creates an empty store. LoadFromStorage has to be called once before
// the first navigation.
func New(st storage.Storage, key string) *Store {
	if key == "" {
		key = DefaultStorageKey
	}
	return &Store{
		storage: st,
		key:     key,
	}
}

// SetUser replaces the current user and mirrors it to storage. A user without
// an ID is treated as a logout. Storage failures are logged and leave the
// in-memory value authoritative, see MirrorStale.
func (s *Store) SetUser(ctx context.Context, user *models.User) {
	if !user.Valid() {
		log.Warn("refusing to store a user without id, clearing session instead")
		s.Clear(ctx)
		return
	}

	u := user.Clone()
	data, err := json.Marshal(u)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = u
	if err != nil {
		// unreachable for the plain User struct, keep memory authoritative anyway
		log.Error("failed to serialise user", "user_id", u.ID, "error", err)
		s.stale = true
		return
	}
	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		if errors.Is(err, storage.ErrQuotaExceeded) {
			log.Error("session does not fit into storage, it will not survive a restart", "user_id", u.ID, "error", err)
		} else {
			log.Error("failed to persist session", "user_id", u.ID, "error", err)
		}
		s.stale = true
		return
	}
	s.stale = false
	log.Debug("session stored", "user_id", u.ID)
}

// Clear removes the current user from memory and storage.
// Clearing an absent session is a no-op.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(ctx)
}

// Invalidate clears the session only if one is present and, when userID is
// not 0, it still belongs to userID. It reports whether this call cleared the
// session, so concurrent callers can tell which one of them did it.
func (s *Store) Invalidate(ctx context.Context, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return false
	}
	if userID != 0 && s.user.ID != userID {
		log.Debug("ignoring invalidation for a previous session", "user_id", userID, "current_user_id", s.user.ID)
		return false
	}
	s.clearLocked(ctx)
	return true
}

func (s *Store) clearLocked(ctx context.Context) {
	if s.user != nil {
		log.Debug("session cleared", "user_id", s.user.ID)
	}
	s.user = nil
	if err := s.storage.Remove(ctx, s.key); err != nil {
		log.Error("failed to remove persisted session", "error", err)
		s.stale = true
		return
	}
	s.stale = false
}

// LoadFromStorage rehydrates the session from storage and returns it.
// A missing, unreadable or malformed value yields nil; it never fails.
func (s *Store) LoadFromStorage(ctx context.Context) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.stale = false

	raw, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error("failed to load session from storage", "error", err)
		}
		return nil
	}

	var u *models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || !u.Valid() {
		log.Warn("discarding malformed persisted session", "error", err)
		if err := s.storage.Remove(ctx, s.key); err != nil {
			log.Error("failed to remove malformed session", "error", err)
			s.stale = true
		}
		return nil
	}

	s.user = u
	log.Debug("session loaded from storage", "user_id", u.ID)
	return u.Clone()
}

// CurrentUser returns a copy of the current user or nil.
func (s *Store) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin
}

func (s *Store) IsTeacher() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsTeacher
}

func (s *Store) IsFirstLogin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsFirstLogin
}

func (s *Store) CanPost() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.CanPost
}

// MirrorStale reports whether the last write to storage failed, i.e. the
// in-memory session will not survive a restart.
func (s *Store) MirrorStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}
