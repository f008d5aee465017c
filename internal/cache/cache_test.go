package cache

import (
	"testing"

	"github.com/rumoro-app/rumoro-go/internal/model"
)

func gossipStore() *Store[model.Gossip] {
	return New(func(g model.Gossip) string { return g.ID })
}

func TestUpsertMany_KeepsOlderPages(t *testing.T) {
	t.Parallel()
	s := gossipStore()

	s.UpsertMany([]model.Gossip{{ID: "g1", Text: "one"}, {ID: "g2", Text: "two"}})
	s.UpsertMany([]model.Gossip{{ID: "g3", Text: "three"}})

	if s.Len() != 3 {
		t.Fatalf("partial page must not evict, len=%d", s.Len())
	}
	if g, ok := s.Get("g1"); !ok || g.Text != "one" {
		t.Fatalf("g1 missing after second page")
	}
}

func TestUpsertMany_LastWriteWinsOverPatch(t *testing.T) {
	t.Parallel()
	s := gossipStore()
	s.UpsertMany([]model.Gossip{{ID: "g1", LikeCount: 3}})

	// optimistic like
	s.Patch("g1", func(g *model.Gossip) {
		g.IsLiked = true
		g.LikeCount++
	})
	if g, _ := s.Get("g1"); !g.IsLiked || g.LikeCount != 4 {
		t.Fatalf("patch not applied: %+v", g)
	}

	// server refetch reconciles
	s.UpsertMany([]model.Gossip{{ID: "g1", LikeCount: 3, IsLiked: false}})
	if g, _ := s.Get("g1"); g.IsLiked || g.LikeCount != 3 {
		t.Fatalf("full upsert must win over earlier patch: %+v", g)
	}
}

func TestPatch_AbsentIDIsNoop(t *testing.T) {
	t.Parallel()
	s := gossipStore()
	s.UpsertMany([]model.Gossip{{ID: "g1"}})

	s.Patch("nonexistent", func(g *model.Gossip) { g.IsLiked = true })

	if s.Len() != 1 {
		t.Fatalf("patch on absent id must not create an entry")
	}
	if _, ok := s.Get("nonexistent"); ok {
		t.Fatalf("absent id must stay absent")
	}
}

func TestPatch_MergesOnlyGivenFields(t *testing.T) {
	t.Parallel()
	s := gossipStore()
	s.UpsertMany([]model.Gossip{{ID: "g1", Text: "keep me", LikeCount: 2, ReplyCount: 7}})

	s.Patch("g1", func(g *model.Gossip) { g.LikeCount = 3 })

	g, _ := s.Get("g1")
	if g.Text != "keep me" || g.ReplyCount != 7 || g.LikeCount != 3 {
		t.Fatalf("unrelated fields disturbed: %+v", g)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()
	s := gossipStore()
	s.UpsertMany([]model.Gossip{{ID: "g1"}})
	s.Remove("g1")
	if _, ok := s.Get("g1"); ok {
		t.Fatalf("removed id must read as not found")
	}
	// removing again is harmless
	s.Remove("g1")
}

func TestGet_ReturnsCopy(t *testing.T) {
	t.Parallel()
	s := gossipStore()
	s.UpsertMany([]model.Gossip{{ID: "g1", LikeCount: 1}})

	g, _ := s.Get("g1")
	g.LikeCount = 99

	again, _ := s.Get("g1")
	if again.LikeCount != 1 {
		t.Fatalf("mutating a read copy must not affect the store")
	}
}
