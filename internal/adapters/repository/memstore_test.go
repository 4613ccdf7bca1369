package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/ranking"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newBoardFixture(t *testing.T, s *MemoryStore, id string, st model.ScoreType) *model.Leaderboard {
	t.Helper()
	lb := &model.Leaderboard{
		ID:        id,
		GameID:    "game-1",
		Name:      "board " + id,
		Type:      model.TypeGlobal,
		ScoreType: st,
		IsActive:  true,
		CreatedAt: base,
		UpdatedAt: base,
	}
	if err := s.CreateLeaderboard(context.Background(), lb); err != nil {
		t.Fatalf("create leaderboard: %v", err)
	}
	return lb
}

func put(score float64, at time.Time) MergeFunc {
	return func(existing *model.Entry) (*model.Entry, error) {
		if existing == nil {
			return &model.Entry{Score: score, AchievedAt: at, CreatedAt: at, UpdatedAt: at, Metadata: model.Metadata{}}, nil
		}
		existing.Score = score
		existing.AchievedAt = at
		existing.UpdatedAt = at
		return existing, nil
	}
}

func recompute(t *testing.T, s *MemoryStore, lb *model.Leaderboard) {
	t.Helper()
	ctx := context.Background()
	entries, err := s.ListEntries(ctx, lb.ID, lb.Direction())
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if err := s.SaveRanks(ctx, lb.ID, ranking.Assign(lb.Direction(), entries)); err != nil {
		t.Fatalf("save ranks: %v", err)
	}
}

func TestMemoryStore_LeaderboardLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	lb := newBoardFixture(t, s, "lb-1", model.ScoreHighest)

	got, err := s.GetLeaderboard(ctx, lb.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != lb.Name || got.ScoreType != model.ScoreHighest {
		t.Errorf("unexpected leaderboard: %+v", got)
	}

	dup := *lb
	dup.ID = "lb-dup"
	if err := s.CreateLeaderboard(ctx, &dup); !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	if _, err := s.GetLeaderboard(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	got.IsActive = false
	if err := s.UpdateLeaderboard(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := s.GetLeaderboard(ctx, lb.ID)
	if again.IsActive {
		t.Error("expected leaderboard to be inactive")
	}

	if _, err := s.UpsertEntry(ctx, lb.ID, "p1", put(10, base)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.DeleteLeaderboard(ctx, lb.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetEntry(ctx, lb.ID, "p1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected entries to be gone, got %v", err)
	}
	if err := s.DeleteLeaderboard(ctx, lb.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}

	// The name is free again after delete.
	newBoardFixture(t, s, "lb-2", model.ScoreHighest)
	renamed := newBoardFixture(t, s, "lb-3", model.ScoreHighest)
	renamed.Name = "board lb-2"
	if err := s.UpdateLeaderboard(ctx, renamed); !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected conflict on rename, got %v", err)
	}
}

func TestMemoryStore_ListLeaderboards(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := 0; i < 5; i++ {
		lb := &model.Leaderboard{
			ID:        fmt.Sprintf("lb-%d", i),
			GameID:    "game-1",
			Name:      fmt.Sprintf("board %d", i),
			Type:      model.TypeDaily,
			ScoreType: model.ScoreHighest,
			IsActive:  i%2 == 0,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i == 4 {
			lb.Type = model.TypeWeekly
		}
		if err := s.CreateLeaderboard(ctx, lb); err != nil {
			t.Fatal(err)
		}
	}
	other := &model.Leaderboard{ID: "x", GameID: "game-2", Name: "other", ScoreType: model.ScoreHighest}
	if err := s.CreateLeaderboard(ctx, other); err != nil {
		t.Fatal(err)
	}

	page, total, err := s.ListLeaderboards(ctx, "game-1", model.LeaderboardFilter{}, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("expected 2 of 5, got %d of %d", len(page), total)
	}
	if page[0].ID != "lb-4" || page[1].ID != "lb-3" {
		t.Errorf("expected newest first, got %s, %s", page[0].ID, page[1].ID)
	}

	active := true
	daily := model.TypeDaily
	page, total, err = s.ListLeaderboards(ctx, "game-1", model.LeaderboardFilter{IsActive: &active, Type: &daily}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(page) != 2 {
		t.Errorf("expected 2 active daily boards, got %d", total)
	}

	page, total, err = s.ListLeaderboards(ctx, "game-1", model.LeaderboardFilter{}, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(page) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(page))
	}

	if _, _, err := s.ListLeaderboards(ctx, "game-1", model.LeaderboardFilter{}, 0, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected invalid limit, got %v", err)
	}
	if _, _, err := s.ListLeaderboards(ctx, "game-1", model.LeaderboardFilter{}, -10, 10); !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("expected a negative offset to be an invalid argument, got %v", err)
	}
}

func TestMemoryStore_RankingOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	high := newBoardFixture(t, s, "high", model.ScoreHighest)
	low := newBoardFixture(t, s, "low", model.ScoreLowest)

	scores := map[string]float64{"a": 100, "b": 50, "c": 75, "d": 75}
	at := map[string]time.Time{"a": base, "b": base, "c": base.Add(time.Second), "d": base}
	for pid, sc := range scores {
		for _, lb := range []*model.Leaderboard{high, low} {
			if _, err := s.UpsertEntry(ctx, lb.ID, pid, put(sc, at[pid])); err != nil {
				t.Fatal(err)
			}
		}
	}

	check := func(lb *model.Leaderboard, want []string) {
		t.Helper()
		entries, err := s.ListEntries(ctx, lb.ID, lb.Direction())
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(entries))
		}
		for i, e := range entries {
			if e.ParticipantID != want[i] {
				t.Errorf("%s position %d: expected %s, got %s", lb.ID, i, want[i], e.ParticipantID)
			}
		}
	}
	check(high, []string{"a", "d", "c", "b"})
	check(low, []string{"b", "d", "c", "a"})

	// Moving a participant re-sorts it.
	if _, err := s.UpsertEntry(ctx, high.ID, "b", put(200, base.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	check(high, []string{"b", "a", "d", "c"})
}

func TestMemoryStore_PagingAndRanks(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	lb := newBoardFixture(t, s, "lb", model.ScoreHighest)

	for i := 1; i <= 10; i++ {
		pid := fmt.Sprintf("p%02d", i)
		if _, err := s.UpsertEntry(ctx, lb.ID, pid, put(float64(i*10), base)); err != nil {
			t.Fatal(err)
		}
	}
	recompute(t, s, lb)

	page, total, err := s.PageEntries(ctx, lb.ID, lb.Direction(), 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if total != 10 || len(page) != 4 {
		t.Fatalf("expected 4 of 10, got %d of %d", len(page), total)
	}
	for i, e := range page {
		if e.RankValue() != 4+i {
			t.Errorf("expected rank %d, got %d", 4+i, e.RankValue())
		}
	}

	last, _, err := s.PageEntries(ctx, lb.ID, lb.Direction(), 8, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(last) != 2 {
		t.Errorf("expected a short last page, got %d", len(last))
	}

	window, err := s.EntriesByRank(ctx, lb.ID, 6, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(window) != 4 {
		t.Fatalf("expected 4 entries in window, got %d", len(window))
	}
	for i, e := range window {
		if e.RankValue() != 6+i {
			t.Errorf("expected rank %d, got %d", 6+i, e.RankValue())
		}
	}

	e, err := s.GetEntry(ctx, lb.ID, "p10")
	if err != nil {
		t.Fatal(err)
	}
	if e.RankValue() != 1 {
		t.Errorf("expected p10 at rank 1, got %d", e.RankValue())
	}

	// Returned entries are copies.
	e.Metadata["mutated"] = true
	again, _ := s.GetEntry(ctx, lb.ID, "p10")
	if _, ok := again.Metadata["mutated"]; ok {
		t.Error("store state leaked through a returned entry")
	}
}

func TestMemoryStore_SaveRanksSkipsUnknown(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	lb := newBoardFixture(t, s, "lb", model.ScoreHighest)

	if _, err := s.UpsertEntry(ctx, lb.ID, "p1", put(1, base)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRanks(ctx, lb.ID, map[string]int{"p1": 1, "ghost": 2}); err != nil {
		t.Fatalf("expected unknown participants to be skipped, got %v", err)
	}
	if n, _ := s.CountEntries(ctx, lb.ID); n != 1 {
		t.Errorf("expected 1 entry, got %d", n)
	}
	if err := s.SaveRanks(ctx, "gone", map[string]int{"p1": 1}); err != nil {
		t.Errorf("expected missing leaderboard to be ignored, got %v", err)
	}
}

func TestMemoryStore_DeleteEntries(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	lb := newBoardFixture(t, s, "lb", model.ScoreHighest)

	for i := 0; i < 3; i++ {
		if _, err := s.UpsertEntry(ctx, lb.ID, fmt.Sprintf("p%d", i), put(float64(i), base)); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.DeleteEntries(ctx, lb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 deleted, got %d", n)
	}
	if _, err := s.GetLeaderboard(ctx, lb.ID); err != nil {
		t.Errorf("definition must survive a reset: %v", err)
	}
	page, total, _ := s.PageEntries(ctx, lb.ID, lb.Direction(), 0, 10)
	if total != 0 || len(page) != 0 {
		t.Errorf("expected no entries after reset, got %d", total)
	}
	if _, err := s.DeleteEntries(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMemoryStore_UpsertUnknownLeaderboard(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.UpsertEntry(context.Background(), "missing", "p1", put(1, base))
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMemoryStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	lb := newBoardFixture(t, s, "lb", model.ScoreCumulative)

	add := func(existing *model.Entry) (*model.Entry, error) {
		if existing == nil {
			return &model.Entry{Score: 1, AchievedAt: base}, nil
		}
		existing.Score++
		return existing, nil
	}

	const workers, perWorker = 8, 250
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.UpsertEntry(ctx, lb.ID, "shared", add); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	e, err := s.GetEntry(ctx, lb.ID, "shared")
	if err != nil {
		t.Fatal(err)
	}
	if e.Score != workers*perWorker {
		t.Errorf("expected no lost updates, got score %v", e.Score)
	}
	if n, _ := s.CountEntries(ctx, lb.ID); n != 1 {
		t.Errorf("expected one entry, got %d", n)
	}
}

func TestTreap_PositionAndSlice(t *testing.T) {
	tr := newTreap(model.Descending)
	entries := make([]*model.Entry, 0, 100)
	for i := 0; i < 100; i++ {
		e := &model.Entry{ParticipantID: fmt.Sprintf("p%03d", i), Score: float64(i % 10), AchievedAt: base}
		entries = append(entries, e)
		tr.Insert(e)
	}
	if tr.Len() != 100 {
		t.Fatalf("expected 100, got %d", tr.Len())
	}

	all := tr.All()
	for i := 1; i < len(all); i++ {
		if ranking.Compare(model.Descending, all[i-1], all[i]) >= 0 {
			t.Fatalf("out of order at %d", i)
		}
	}
	for i, e := range all {
		if pos := tr.Position(e); pos != i {
			t.Fatalf("position of %s: expected %d, got %d", e.ParticipantID, i, pos)
		}
	}

	mid := tr.Slice(45, 10)
	for i, e := range mid {
		if e != all[45+i] {
			t.Fatalf("slice mismatch at %d", i)
		}
	}

	for _, e := range entries[:50] {
		tr.Delete(e)
	}
	if tr.Len() != 50 {
		t.Fatalf("expected 50 after delete, got %d", tr.Len())
	}
	if tr.Position(entries[0]) != -1 {
		t.Error("deleted entry still present")
	}
}
