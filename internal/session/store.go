package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yenshow/ba-frontend/internal/infrastructure/logging"
)

const (
	// DefaultTTL is how long a persisted slot stays valid after the last Set.
	DefaultTTL = 7 * 24 * time.Hour

	// persistTimeout bounds a single persister operation.
	persistTimeout = 5 * time.Second
)

// Options configures a Store.
type Options struct {
	// Persister backs the persisted slot. Nil means memory only.
	Persister Persister

	// TTL is the persisted slot's expiry window. Zero means DefaultTTL.
	TTL time.Duration

	// Logger receives persistence failures. Nil discards them.
	Logger *logging.Logger
}

// Store holds the canonical session.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - The in-memory mutex is never held across persister I/O.
type Store struct {
	mu      sync.RWMutex
	current Session
	epoch   uint64

	persister Persister
	persistMu sync.Mutex
	ttl       time.Duration

	restoreOnce sync.Once
	restored    Session

	subMu       sync.RWMutex
	subscribers []func(Change)

	logger *logging.Logger
	now    func() time.Time
}

// NewStore creates an empty store at epoch 0.
func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	p := opts.Persister
	if p == nil {
		p = NewMemoryPersister()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		persister: p,
		ttl:       ttl,
		logger:    logger.With("component", "session"),
		now:       time.Now,
	}
}

// Get returns a copy of the current session.
func (s *Store) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Snapshot returns a copy of the current session and its epoch.
func (s *Store) Snapshot() (Session, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone(), s.epoch
}

// Epoch returns the current epoch.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Token returns the bearer token and the epoch it belongs to.
func (s *Store) Token() (string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token, s.epoch
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *User {
	return s.Get().User
}

// Set replaces the session unconditionally.
//
// Returns:
//   - error: ErrHalfSession if token or user is missing
func (s *Store) Set(sess Session) error {
	if !sess.IsAuthenticated() {
		return ErrHalfSession
	}
	s.mu.Lock()
	epoch := s.apply(sess.clone())
	s.mu.Unlock()

	s.afterChange(sess, epoch, ReasonSet)
	return nil
}

// SetIfEpoch replaces the session only if the store is still at epoch.
//
// Returns:
//   - error: ErrHalfSession, or ErrStaleEpoch if the session moved on
func (s *Store) SetIfEpoch(sess Session, epoch uint64) error {
	if !sess.IsAuthenticated() {
		return ErrHalfSession
	}
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrStaleEpoch
	}
	next := s.apply(sess.clone())
	s.mu.Unlock()

	s.afterChange(sess, next, ReasonSet)
	return nil
}

// UpdateUserIfEpoch replaces the user half of an authenticated session
// if the store is still at epoch. The token is kept.
func (s *Store) UpdateUserIfEpoch(u User, epoch uint64) error {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrStaleEpoch
	}
	if !s.current.IsAuthenticated() {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	next := Session{Token: s.current.Token, User: &u}
	newEpoch := s.apply(next)
	s.mu.Unlock()

	s.afterChange(next, newEpoch, ReasonUserUpdated)
	return nil
}

// Clear empties the session unconditionally. It is idempotent with
// respect to the session value; the epoch still advances so any call in
// flight is treated as stale.
func (s *Store) Clear() {
	s.mu.Lock()
	epoch := s.apply(Session{})
	s.mu.Unlock()

	s.afterChange(Session{}, epoch, ReasonCleared)
}

// ClearIfEpoch empties the session only if the store is still at epoch.
// It reports whether it cleared.
func (s *Store) ClearIfEpoch(epoch uint64) bool {
	return s.clearIf(epoch, false, ReasonCleared)
}

// Invalidate clears an authenticated session at epoch. It is the hook the
// request gateway calls on Unauthorized and reports whether the session
// was actually cleared.
func (s *Store) Invalidate(epoch uint64) bool {
	return s.clearIf(epoch, true, ReasonInvalidated)
}

func (s *Store) clearIf(epoch uint64, requireAuth bool, reason Reason) bool {
	s.mu.Lock()
	if s.epoch != epoch || (requireAuth && !s.current.IsAuthenticated()) {
		s.mu.Unlock()
		return false
	}
	next := s.apply(Session{})
	s.mu.Unlock()

	s.afterChange(Session{}, next, reason)
	return true
}

// Restore loads the persisted slot into memory. Only the first call reads
// the persister; later calls return the same result. It never fails: a
// missing, corrupt or expired slot restores an empty session.
func (s *Store) Restore(ctx context.Context) Session {
	s.restoreOnce.Do(func() {
		s.restored = s.restore(ctx)
	})
	return s.restored.clone()
}

func (s *Store) restore(ctx context.Context) Session {
	_, startEpoch := s.Snapshot()

	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	slot, err := s.persister.Load(ctx)
	switch {
	case err != nil:
		s.logger.Warn("persisted session unreadable, starting anonymous", "error", err)
		if errors.Is(err, ErrCorruptSlot) {
			s.deleteSlot(ctx)
		}
		return Session{}
	case slot == nil:
		return Session{}
	case slot.Token == "" || (slot.User.ID == 0 && slot.User.Username == ""):
		s.deleteSlot(ctx)
		return Session{}
	case slot.Expired(s.now()):
		s.logger.Info("persisted session expired", "expired_at", slot.ExpiresAt)
		s.deleteSlot(ctx)
		return Session{}
	}

	u := slot.User
	sess := Session{Token: slot.Token, User: &u}

	s.mu.Lock()
	if s.epoch != startEpoch || s.current.IsAuthenticated() {
		// A login or logout happened while we were reading.
		current := s.current.clone()
		s.mu.Unlock()
		return current
	}
	s.current = sess.clone()
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	s.notify(Change{Session: sess.clone(), Epoch: epoch, Reason: ReasonRestored})
	return sess
}

// Subscribe registers fn to be called after every mutation. Callbacks run
// synchronously on the mutating goroutine after the lock is released.
func (s *Store) Subscribe(fn func(Change)) {
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

// IsAuthenticated reports whether both token and user are present.
func (s *Store) IsAuthenticated() bool {
	return s.Get().IsAuthenticated()
}

// IsAdmin reports whether the current user is an admin.
func (s *Store) IsAdmin() bool {
	return s.hasRole(RoleAdmin)
}

// IsOperator reports whether the current user is an operator or admin.
func (s *Store) IsOperator() bool {
	return s.hasRole(RoleOperator)
}

// IsViewer reports whether the current user holds any known role.
func (s *Store) IsViewer() bool {
	return s.hasRole(RoleViewer)
}

func (s *Store) hasRole(min Role) bool {
	sess := s.Get()
	return sess.IsAuthenticated() && sess.User.Role.Satisfies(min)
}

// apply installs next and returns the new epoch. Caller holds s.mu.
func (s *Store) apply(next Session) uint64 {
	s.current = next
	s.epoch++
	return s.epoch
}

// afterChange persists the new value and notifies subscribers.
func (s *Store) afterChange(sess Session, epoch uint64, reason Reason) {
	s.persist(sess, epoch)
	s.notify(Change{Session: sess.clone(), Epoch: epoch, Reason: reason})
}

// persist mirrors the session into the persisted slot. Writes are ordered
// by persistMu and skipped when a newer epoch exists, since that newer
// mutation persists its own value afterwards.
func (s *Store) persist(sess Session, epoch uint64) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if s.Epoch() != epoch {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if !sess.IsAuthenticated() {
		if err := s.persister.Delete(ctx); err != nil {
			s.logger.Warn("failed to delete persisted session", "error", err)
		}
		return
	}

	now := s.now()
	slot := Slot{
		Token:     sess.Token,
		User:      *sess.User,
		SavedAt:   now.UTC(),
		ExpiresAt: now.Add(s.ttl).UTC(),
	}
	if err := s.persister.Save(ctx, slot); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
	}
}

func (s *Store) deleteSlot(ctx context.Context) {
	if err := s.persister.Delete(ctx); err != nil {
		s.logger.Warn("failed to delete persisted session", "error", err)
	}
}

func (s *Store) notify(c Change) {
	s.subMu.RLock()
	subs := make([]func(Change), len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(c)
	}
}
