package memstore

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type setEntry struct {
	members map[string]struct{}
	expire  time.Time
}

func (e *setEntry) expired(now time.Time) bool {
	return !e.expire.IsZero() && now.After(e.expire)
}

// Store is a thread-safe in-memory implementation of the set command
// surface, with lazy TTL expiry. It backs tests and the CLI's --memory
// mode; it makes no attempt at durability.
type Store struct {
	mu   sync.Mutex
	sets map[string]*setEntry
	now  func() time.Time
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock pins the store to a caller-supplied clock so TTL behavior
// is testable without sleeping.
func NewWithClock(now func() time.Time) *Store {
	return &Store{sets: make(map[string]*setEntry), now: now}
}

// live returns the entry for key, dropping it first if its TTL lapsed.
func (s *Store) live(key string) *setEntry {
	entry, ok := s.sets[key]
	if !ok {
		return nil
	}
	if entry.expired(s.now()) {
		delete(s.sets, key)
		return nil
	}
	return entry
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		entry = &setEntry{members: make(map[string]struct{}, len(members))}
		s.sets[key] = entry
	}
	var added int64
	for _, member := range members {
		if _, ok := entry.members[member]; !ok {
			entry.members[member] = struct{}{}
			added++
		}
	}
	return added, nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		return nil, nil
	}
	out := make([]string, 0, len(entry.members))
	for member := range entry.members {
		out = append(out, member)
	}
	return out, nil
}

func (s *Store) SRandMember(ctx context.Context, key string, count int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		return nil, nil
	}
	members := make([]string, 0, len(entry.members))
	for member := range entry.members {
		members = append(members, member)
	}
	rand.Shuffle(len(members), func(i, j int) {
		members[i], members[j] = members[j], members[i]
	})
	if count < len(members) {
		members = members[:count]
	}
	return members, nil
}

func (s *Store) SRem(ctx context.Context, key, member string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		return 0, nil
	}
	if _, ok := entry.members[member]; !ok {
		return 0, nil
	}
	delete(entry.members, member)
	if len(entry.members) == 0 {
		delete(s.sets, key)
	}
	return 1, nil
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		return false, nil
	}
	_, ok := entry.members[member]
	return ok, nil
}

func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		return 0, nil
	}
	return int64(len(entry.members)), nil
}

func (s *Store) SUnion(ctx context.Context, keys ...string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return setToSlice(s.union(keys)), nil
}

func (s *Store) SUnionStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeResult(dest, s.union(keys)), nil
}

func (s *Store) SInter(ctx context.Context, keys ...string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return setToSlice(s.inter(keys)), nil
}

func (s *Store) SInterStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeResult(dest, s.inter(keys)), nil
}

func (s *Store) SDiff(ctx context.Context, keys ...string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return setToSlice(s.diff(keys)), nil
}

func (s *Store) SDiffStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeResult(dest, s.diff(keys)), nil
}

func (s *Store) Del(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live(key) == nil {
		return 0, nil
	}
	delete(s.sets, key)
	return 1, nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		return false, nil
	}
	entry.expire = s.now().Add(ttl)
	return true, nil
}

// TTL reports the key's remaining lifetime. ok is false for a missing
// key; a zero duration with ok means no expiry is set. Test hook, not
// part of the command surface.
func (s *Store) TTL(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		return 0, false
	}
	if entry.expire.IsZero() {
		return 0, true
	}
	return entry.expire.Sub(s.now()), true
}

func (s *Store) union(keys []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, key := range keys {
		if entry := s.live(key); entry != nil {
			for member := range entry.members {
				out[member] = struct{}{}
			}
		}
	}
	return out
}

func (s *Store) inter(keys []string) map[string]struct{} {
	out := make(map[string]struct{})
	if len(keys) == 0 {
		return out
	}
	first := s.live(keys[0])
	if first == nil {
		return out
	}
	for member := range first.members {
		inAll := true
		for _, key := range keys[1:] {
			entry := s.live(key)
			if entry == nil {
				return make(map[string]struct{})
			}
			if _, ok := entry.members[member]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out[member] = struct{}{}
		}
	}
	return out
}

func (s *Store) diff(keys []string) map[string]struct{} {
	out := make(map[string]struct{})
	if len(keys) == 0 {
		return out
	}
	first := s.live(keys[0])
	if first == nil {
		return out
	}
	for member := range first.members {
		inOther := false
		for _, key := range keys[1:] {
			if entry := s.live(key); entry != nil {
				if _, ok := entry.members[member]; ok {
					inOther = true
					break
				}
			}
		}
		if !inOther {
			out[member] = struct{}{}
		}
	}
	return out
}

// storeResult replaces dest with the computed members. An empty result
// deletes dest, matching the store-native behavior; any TTL on dest is
// dropped.
func (s *Store) storeResult(dest string, members map[string]struct{}) int64 {
	if len(members) == 0 {
		delete(s.sets, dest)
		return 0
	}
	s.sets[dest] = &setEntry{members: members}
	return int64(len(members))
}

func setToSlice(members map[string]struct{}) []string {
	out := make([]string, 0, len(members))
	for member := range members {
		out = append(out, member)
	}
	return out
}
