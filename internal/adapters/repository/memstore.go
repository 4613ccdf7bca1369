package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
)

const backendMemory = "memory"

// board holds the entries of one leaderboard.
type board struct {
	byID   map[string]*model.Entry
	tree   *treap
	byRank map[int]string // persisted rank -> participant
}

func newBoard(dir model.Direction) *board {
	return &board{
		byID:   make(map[string]*model.Entry),
		tree:   newTreap(dir),
		byRank: make(map[int]string),
	}
}

type nameKey struct {
	gameID string
	name   string
}

// MemoryStore is an in-process Store. A single lock guards all state so
// multi-step operations such as a cascading delete are atomic.
type MemoryStore struct {
	mu     sync.RWMutex
	boards map[string]*model.Leaderboard
	names  map[nameKey]string
	boardE map[string]*board
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		boards: make(map[string]*model.Leaderboard),
		names:  make(map[nameKey]string),
		boardE: make(map[string]*board),
	}
}

func observe(backend, op string, start time.Time) {
	metrics.RecordStoreLatency(backend, op, time.Since(start))
}

func (s *MemoryStore) CreateLeaderboard(_ context.Context, lb *model.Leaderboard) error {
	defer observe(backendMemory, "create_leaderboard", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	k := nameKey{lb.GameID, lb.Name}
	if _, taken := s.names[k]; taken {
		return fmt.Errorf("leaderboard %q in game %q: %w", lb.Name, lb.GameID, ErrConflict)
	}
	if _, taken := s.boards[lb.ID]; taken {
		return fmt.Errorf("leaderboard id %q: %w", lb.ID, ErrConflict)
	}
	s.boards[lb.ID] = lb.Clone()
	s.names[k] = lb.ID
	s.boardE[lb.ID] = newBoard(lb.Direction())
	return nil
}

func (s *MemoryStore) GetLeaderboard(_ context.Context, id string) (*model.Leaderboard, error) {
	defer observe(backendMemory, "get_leaderboard", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	lb, ok := s.boards[id]
	if !ok {
		return nil, fmt.Errorf("leaderboard %q: %w", id, ErrNotFound)
	}
	return lb.Clone(), nil
}

func (s *MemoryStore) ListLeaderboards(_ context.Context, gameID string, filter model.LeaderboardFilter, offset, limit int) ([]*model.Leaderboard, int, error) {
	defer observe(backendMemory, "list_leaderboards", time.Now())

	if limit < 1 || offset < 0 {
		return nil, 0, ErrInvalidLimit
	}

	s.mu.RLock()
	matched := make([]*model.Leaderboard, 0)
	for _, lb := range s.boards {
		if lb.GameID == gameID && filter.Matches(lb) {
			matched = append(matched, lb)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *model.Leaderboard) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	total := len(matched)
	if offset >= total {
		return []*model.Leaderboard{}, total, nil
	}
	page := matched[offset:min(total, offset+limit)]
	out := make([]*model.Leaderboard, len(page))
	for i, lb := range page {
		out[i] = lb.Clone()
	}
	return out, total, nil
}

func (s *MemoryStore) UpdateLeaderboard(_ context.Context, lb *model.Leaderboard) error {
	defer observe(backendMemory, "update_leaderboard", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.boards[lb.ID]
	if !ok {
		return fmt.Errorf("leaderboard %q: %w", lb.ID, ErrNotFound)
	}
	if cur.Name != lb.Name {
		k := nameKey{lb.GameID, lb.Name}
		if _, taken := s.names[k]; taken {
			return fmt.Errorf("leaderboard %q in game %q: %w", lb.Name, lb.GameID, ErrConflict)
		}
		delete(s.names, nameKey{cur.GameID, cur.Name})
		s.names[k] = lb.ID
	}
	if cur.Direction() != lb.Direction() {
		b := s.boardE[lb.ID]
		rebuilt := newTreap(lb.Direction())
		for _, e := range b.byID {
			rebuilt.Insert(e)
		}
		b.tree = rebuilt
	}
	s.boards[lb.ID] = lb.Clone()
	return nil
}

func (s *MemoryStore) DeleteLeaderboard(_ context.Context, id string) error {
	defer observe(backendMemory, "delete_leaderboard", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	lb, ok := s.boards[id]
	if !ok {
		return fmt.Errorf("leaderboard %q: %w", id, ErrNotFound)
	}
	delete(s.boardE, id)
	delete(s.names, nameKey{lb.GameID, lb.Name})
	delete(s.boards, id)
	return nil
}

func (s *MemoryStore) ScheduledLeaderboards(_ context.Context) ([]*model.Leaderboard, error) {
	defer observe(backendMemory, "scheduled_leaderboards", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Leaderboard, 0)
	for _, lb := range s.boards {
		if lb.IsActive && lb.ResetSchedule != "" {
			out = append(out, lb.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *model.Leaderboard) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) CountLeaderboards(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.boards), nil
}

func (s *MemoryStore) GetEntry(_ context.Context, leaderboardID, participantID string) (*model.Entry, error) {
	defer observe(backendMemory, "get_entry", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boardE[leaderboardID]
	if !ok {
		return nil, fmt.Errorf("leaderboard %q: %w", leaderboardID, ErrNotFound)
	}
	e, ok := b.byID[participantID]
	if !ok {
		return nil, fmt.Errorf("entry %q: %w", participantID, ErrNotFound)
	}
	return e.Clone(), nil
}

func (s *MemoryStore) UpsertEntry(_ context.Context, leaderboardID, participantID string, merge MergeFunc) (*model.Entry, error) {
	defer observe(backendMemory, "upsert_entry", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boardE[leaderboardID]
	if !ok {
		return nil, fmt.Errorf("leaderboard %q: %w", leaderboardID, ErrNotFound)
	}
	old := b.byID[participantID]
	next, err := merge(old.Clone())
	if err != nil {
		return nil, err
	}
	next = next.Clone()
	next.LeaderboardID = leaderboardID
	next.ParticipantID = participantID

	if old != nil {
		b.tree.Delete(old)
		if old.Rank != nil && (next.Rank == nil || *next.Rank != *old.Rank) {
			delete(b.byRank, *old.Rank)
		}
	}
	b.byID[participantID] = next
	b.tree.Insert(next)
	if next.Rank != nil {
		b.byRank[*next.Rank] = participantID
	}
	return next.Clone(), nil
}

func (s *MemoryStore) ListEntries(_ context.Context, leaderboardID string, dir model.Direction) ([]*model.Entry, error) {
	defer observe(backendMemory, "list_entries", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boardE[leaderboardID]
	if !ok {
		return []*model.Entry{}, nil
	}
	return cloneOrdered(b, dir, b.tree.All()), nil
}

func (s *MemoryStore) PageEntries(_ context.Context, leaderboardID string, dir model.Direction, offset, limit int) ([]*model.Entry, int, error) {
	defer observe(backendMemory, "page_entries", time.Now())

	if limit < 1 || offset < 0 {
		return nil, 0, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boardE[leaderboardID]
	if !ok {
		return []*model.Entry{}, 0, nil
	}
	total := b.tree.Len()
	if b.tree.dir != dir {
		all := cloneOrdered(b, dir, b.tree.All())
		if offset >= total {
			return []*model.Entry{}, total, nil
		}
		return all[offset:min(total, offset+limit)], total, nil
	}
	return cloneOrdered(b, dir, b.tree.Slice(offset, limit)), total, nil
}

// cloneOrdered clones entries, re-sorting only when dir differs from the
// tree's own order.
func cloneOrdered(b *board, dir model.Direction, entries []*model.Entry) []*model.Entry {
	out := make([]*model.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	if b.tree.dir != dir {
		reordered := newTreap(dir)
		for _, e := range out {
			reordered.Insert(e)
		}
		return reordered.All()
	}
	return out
}

func (s *MemoryStore) EntriesByRank(_ context.Context, leaderboardID string, lo, hi int) ([]*model.Entry, error) {
	defer observe(backendMemory, "entries_by_rank", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boardE[leaderboardID]
	if !ok {
		return []*model.Entry{}, nil
	}
	lo = max(lo, 1)
	hi = min(hi, len(b.byID)+1)
	out := make([]*model.Entry, 0, max(hi-lo, 0))
	for r := lo; r < hi; r++ {
		pid, ok := b.byRank[r]
		if !ok {
			continue
		}
		if e := b.byID[pid]; e != nil && e.Rank != nil && *e.Rank == r {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) CountEntries(_ context.Context, leaderboardID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boardE[leaderboardID]
	if !ok {
		return 0, nil
	}
	return len(b.byID), nil
}

func (s *MemoryStore) SaveRanks(_ context.Context, leaderboardID string, ranks map[string]int) error {
	defer observe(backendMemory, "save_ranks", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boardE[leaderboardID]
	if !ok {
		// The leaderboard went away mid-recompute; nothing to write.
		return nil
	}
	for pid, r := range ranks {
		e, ok := b.byID[pid]
		if !ok {
			continue
		}
		if e.Rank != nil && b.byRank[*e.Rank] == pid {
			delete(b.byRank, *e.Rank)
		}
		e.Rank = model.IntPtr(r)
		b.byRank[r] = pid
	}
	return nil
}

func (s *MemoryStore) DeleteEntries(_ context.Context, leaderboardID string) (int, error) {
	defer observe(backendMemory, "delete_entries", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	lb, ok := s.boards[leaderboardID]
	if !ok {
		return 0, fmt.Errorf("leaderboard %q: %w", leaderboardID, ErrNotFound)
	}
	n := len(s.boardE[leaderboardID].byID)
	s.boardE[leaderboardID] = newBoard(lb.Direction())
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
