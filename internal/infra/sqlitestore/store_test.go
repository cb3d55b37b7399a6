package sqlitestore

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sets.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sorted(members []string) []string {
	out := append([]string(nil), members...)
	sort.Strings(out)
	return out
}

func equalMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mustAdd(t *testing.T, s *Store, key string, members ...string) {
	t.Helper()
	if _, err := s.SAdd(context.Background(), key, members...); err != nil {
		t.Fatalf("SAdd(%q): %v", key, err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("Open with blank path succeeded")
	}
}

func TestAddMembersAndCard(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	added, err := s.SAdd(ctx, "k", "a", "b", "c")
	if err != nil {
		t.Fatalf("SAdd: %v", err)
	}
	if added != 3 {
		t.Fatalf("added = %d, want 3", added)
	}

	added, err = s.SAdd(ctx, "k", "c", "d")
	if err != nil {
		t.Fatalf("SAdd: %v", err)
	}
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}

	members, err := s.SMembers(ctx, "k")
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if got := sorted(members); !equalMembers(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("members = %v", got)
	}

	card, err := s.SCard(ctx, "k")
	if err != nil {
		t.Fatalf("SCard: %v", err)
	}
	if card != 4 {
		t.Fatalf("SCard = %d, want 4", card)
	}
}

func TestRemDropsEmptyKeyRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustAdd(t, s, "k", "only")

	removed, err := s.SRem(ctx, "k", "only")
	if err != nil {
		t.Fatalf("SRem: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	var keyRows int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM set_keys WHERE key = ?", "k").Scan(&keyRows); err != nil {
		t.Fatalf("count key rows: %v", err)
	}
	if keyRows != 0 {
		t.Fatalf("key row survives empty set")
	}

	removed, err = s.SRem(ctx, "k", "only")
	if err != nil {
		t.Fatalf("SRem: %v", err)
	}
	if removed != 0 {
		t.Fatalf("second removed = %d, want 0", removed)
	}
}

func TestIsMember(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustAdd(t, s, "k", "a")

	ok, err := s.SIsMember(ctx, "k", "a")
	if err != nil {
		t.Fatalf("SIsMember: %v", err)
	}
	if !ok {
		t.Fatalf("SIsMember(a) = false, want true")
	}
	ok, err = s.SIsMember(ctx, "k", "missing")
	if err != nil {
		t.Fatalf("SIsMember: %v", err)
	}
	if ok {
		t.Fatalf("SIsMember(missing) = true, want false")
	}
}

func TestRandMemberBounds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustAdd(t, s, "k", "a", "b", "c")

	picks, err := s.SRandMember(ctx, "k", 2)
	if err != nil {
		t.Fatalf("SRandMember: %v", err)
	}
	if len(picks) != 2 {
		t.Fatalf("len(picks) = %d, want 2", len(picks))
	}

	picks, err = s.SRandMember(ctx, "k", 10)
	if err != nil {
		t.Fatalf("SRandMember: %v", err)
	}
	if len(picks) != 3 {
		t.Fatalf("len(picks) = %d, want all 3", len(picks))
	}

	picks, err = s.SRandMember(ctx, "k", 0)
	if err != nil {
		t.Fatalf("SRandMember: %v", err)
	}
	if len(picks) != 0 {
		t.Fatalf("picks = %v, want none for count 0", picks)
	}
}

func TestAlgebraQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustAdd(t, s, "a", "1", "2", "3")
	mustAdd(t, s, "b", "2", "3", "4")

	union, err := s.SUnion(ctx, "a", "b")
	if err != nil {
		t.Fatalf("SUnion: %v", err)
	}
	if got := sorted(union); !equalMembers(got, []string{"1", "2", "3", "4"}) {
		t.Fatalf("union = %v", got)
	}

	inter, err := s.SInter(ctx, "a", "b")
	if err != nil {
		t.Fatalf("SInter: %v", err)
	}
	if got := sorted(inter); !equalMembers(got, []string{"2", "3"}) {
		t.Fatalf("inter = %v", got)
	}

	diff, err := s.SDiff(ctx, "a", "b")
	if err != nil {
		t.Fatalf("SDiff: %v", err)
	}
	if got := sorted(diff); !equalMembers(got, []string{"1"}) {
		t.Fatalf("diff = %v", got)
	}

	inter, err = s.SInter(ctx, "a", "missing")
	if err != nil {
		t.Fatalf("SInter: %v", err)
	}
	if len(inter) != 0 {
		t.Fatalf("inter with missing key = %v, want empty", inter)
	}

	// A key intersected with itself is the set itself.
	inter, err = s.SInter(ctx, "a", "a")
	if err != nil {
		t.Fatalf("SInter: %v", err)
	}
	if got := sorted(inter); !equalMembers(got, []string{"1", "2", "3"}) {
		t.Fatalf("inter with duplicate key = %v", got)
	}

	n, err := s.SInterStore(ctx, "selfdest", "a", "a", "b")
	if err != nil {
		t.Fatalf("SInterStore: %v", err)
	}
	if n != 2 {
		t.Fatalf("stored = %d, want 2", n)
	}
}

func TestStoreVariantsReplaceDestination(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustAdd(t, s, "a", "1", "2")
	mustAdd(t, s, "b", "2", "3")
	mustAdd(t, s, "dest", "stale")

	n, err := s.SUnionStore(ctx, "dest", "a", "b")
	if err != nil {
		t.Fatalf("SUnionStore: %v", err)
	}
	if n != 3 {
		t.Fatalf("stored = %d, want 3", n)
	}
	members, err := s.SMembers(ctx, "dest")
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if got := sorted(members); !equalMembers(got, []string{"1", "2", "3"}) {
		t.Fatalf("dest = %v", got)
	}

	n, err = s.SDiffStore(ctx, "dest", "a", "a")
	if err != nil {
		t.Fatalf("SDiffStore: %v", err)
	}
	if n != 0 {
		t.Fatalf("stored = %d, want 0", n)
	}
	card, err := s.SCard(ctx, "dest")
	if err != nil {
		t.Fatalf("SCard: %v", err)
	}
	if card != 0 {
		t.Fatalf("empty store result left %d members in dest", card)
	}
}

func TestDel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustAdd(t, s, "k", "a")

	n, err := s.Del(ctx, "k")
	if err != nil {
		t.Fatalf("Del: %v", err)
	}
	if n != 1 {
		t.Fatalf("Del = %d, want 1", n)
	}
	n, err = s.Del(ctx, "k")
	if err != nil {
		t.Fatalf("Del: %v", err)
	}
	if n != 0 {
		t.Fatalf("second Del = %d, want 0", n)
	}
}

func TestExpirePurgesLazily(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	mustAdd(t, s, "k", "a")

	ok, err := s.Expire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if !ok {
		t.Fatalf("Expire on live key = false, want true")
	}

	now = now.Add(30 * time.Second)
	card, err := s.SCard(ctx, "k")
	if err != nil {
		t.Fatalf("SCard: %v", err)
	}
	if card != 1 {
		t.Fatalf("SCard before expiry = %d, want 1", card)
	}

	now = now.Add(2 * time.Minute)
	card, err = s.SCard(ctx, "k")
	if err != nil {
		t.Fatalf("SCard: %v", err)
	}
	if card != 0 {
		t.Fatalf("SCard after expiry = %d, want 0", card)
	}
	ok, err = s.Expire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if ok {
		t.Fatalf("Expire on lapsed key = true, want false")
	}
}

func TestExpireMissingKey(t *testing.T) {
	s := openTestStore(t)
	ok, err := s.Expire(context.Background(), "nope", time.Minute)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if ok {
		t.Fatalf("Expire on missing key = true, want false")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sets.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := first.SAdd(context.Background(), "k", "a", "b"); err != nil {
		t.Fatalf("SAdd: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	members, err := second.SMembers(context.Background(), "k")
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if got := sorted(members); !equalMembers(got, []string{"a", "b"}) {
		t.Fatalf("members after reopen = %v", got)
	}
}
