package session

import (
	"hash/fnv"
	"sync"
	"time"
)

// shardCount is the number of independently locked map shards. Operations
// on different users only contend when their ids hash to the same shard.
const shardCount = 16

type shard struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// Store is a sharded per-user session map. All methods are safe for
// concurrent use; mutations for a given user are serialized by the shard
// lock, which is what makes the reset-on-restart invariant atomic.
type Store struct {
	shards [shardCount]*shard
	now    func() time.Time
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithNowFunc overrides the store's clock, for tests.
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty session store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*Session)}
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return s.shards[h.Sum32()%shardCount]
}

// Get returns a copy of the user's session, or false if none exists.
// Callers mutate through Update, never through the returned copy.
func (s *Store) Get(userID string) (Session, bool) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Reset discards any in-flight session for the user and installs a fresh
// one in the given state. The swap is atomic: a concurrent observer sees
// either the old session or the new one, never a blend.
func (s *Store) Reset(userID string, state State) Session {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess := &Session{
		UserID:    userID,
		State:     state,
		UpdatedAt: s.now(),
	}
	sh.sessions[userID] = sess
	return *sess
}

// Update applies fn to the user's session under the shard lock. If no
// session exists, fn is not called and Update reports false. fn returning
// an error leaves the stored session unchanged.
func (s *Store) Update(userID string, fn func(*Session) error) (Session, bool, error) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[userID]
	if !ok {
		return Session{}, false, nil
	}

	working := *sess
	if err := fn(&working); err != nil {
		return *sess, true, err
	}
	working.UpdatedAt = s.now()
	sh.sessions[userID] = &working
	return working, true, nil
}

// Remove deletes the user's session if present.
func (s *Store) Remove(userID string) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.sessions, userID)
}

// SweepIdle removes in-flight sessions whose last activity predates the
// cutoff, returning how many were evicted.
func (s *Store) SweepIdle(olderThan time.Duration) int {
	cutoff := s.now().Add(-olderThan)
	removed := 0

	for _, sh := range s.shards {
		sh.mu.Lock()
		for userID, sess := range sh.sessions {
			if sess.UpdatedAt.Before(cutoff) {
				delete(sh.sessions, userID)
				removed++
			}
		}
		sh.mu.Unlock()
	}

	return removed
}

// Len reports the number of active sessions across all shards.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.sessions)
		sh.mu.Unlock()
	}
	return total
}

// PlanStore holds completed-plan snapshots by user id. Writes replace
// wholesale; reads return copies.
type PlanStore struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewPlanStore creates an empty plan store.
func NewPlanStore() *PlanStore {
	return &PlanStore{plans: make(map[string]Plan)}
}

// Put stores the snapshot, replacing any previous plan for the user.
func (p *PlanStore) Put(plan Plan) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.plans[plan.UserID] = plan
}

// Snapshot returns a copy of the user's completed plan, or false if the
// user never completed a dialogue.
func (p *PlanStore) Snapshot(userID string) (Plan, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	plan, ok := p.plans[userID]
	return plan, ok
}
