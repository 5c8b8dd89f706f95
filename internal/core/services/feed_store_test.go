package services

import (
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
)

func TestReplaceAllIsIdempotent(t *testing.T) {
	store := NewFeedStore()
	notified := 0
	store.Watch(func() { notified++ })

	records := []domain.PostRecord{
		post("a", "u1", 1, []string{"x"}, nil),
		post("b", "u2", 2, nil, []string{"y"}),
	}

	store.ReplaceAll(records)
	first := store.Snapshot()
	v1 := store.Version()

	store.ReplaceAll(records)
	second := store.Snapshot()

	assert.Equal(t, 1, notified)
	assert.Equal(t, v1, store.Version())
	assert.Equal(t, len(first), len(second))
	for id, p := range first {
		assert.Equal(t, true, p.Equal(second[id]))
	}
}

func TestReplaceAllRemovesMissingEntries(t *testing.T) {
	store := NewFeedStore()
	store.ReplaceAll([]domain.PostRecord{post("a", "u1", 1, nil, nil), post("b", "u1", 2, nil, nil)})
	store.ReplaceAll([]domain.PostRecord{post("b", "u1", 2, nil, nil)})

	_, ok := store.Get("a")
	assert.Equal(t, false, ok)
	assert.Equal(t, 1, len(store.Snapshot()))
}

func TestApplyReactionPatchTouchesOnlyViewer(t *testing.T) {
	store := NewFeedStore()
	store.ReplaceAll([]domain.PostRecord{post("p", "author", 1, []string{"A"}, []string{"V", "X"})})

	store.ApplyReactionPatch("p", "V", domain.ReactionState{HasLiked: true})

	got, _ := store.Get("p")
	assert.Equal(t, []string{"A", "V"}, got.Likes)
	assert.Equal(t, []string{"X"}, got.Dislikes)
	assert.Equal(t, "title p", got.Title)
}

func TestApplyReactionPatchNoOps(t *testing.T) {
	store := NewFeedStore()
	store.ReplaceAll([]domain.PostRecord{post("p", "author", 1, nil, nil)})
	v := store.Version()

	// Post absent, viewer vide, état invalide
	store.ApplyReactionPatch("missing", "V", domain.ReactionState{HasLiked: true})
	store.ApplyReactionPatch("p", "", domain.ReactionState{HasLiked: true})
	store.ApplyReactionPatch("p", "V", domain.ReactionState{HasLiked: true, HasDisliked: true})

	assert.Equal(t, v, store.Version())
	got, _ := store.Get("p")
	assert.Equal(t, 0, len(got.Likes))
	assert.Equal(t, 0, len(got.Dislikes))
}

func TestApplyEditPatch(t *testing.T) {
	store := NewFeedStore()
	store.ReplaceAll([]domain.PostRecord{post("p", "author", 1, []string{"L"}, nil)})

	store.ApplyEditPatch("p", "new title", "new description")
	store.ApplyEditPatch("missing", "x", "y")

	got, _ := store.Get("p")
	assert.Equal(t, "new title", got.Title)
	assert.Equal(t, "new description", got.Description)
	assert.Equal(t, []string{"L"}, got.Likes)
	assert.Equal(t, 1, len(store.Snapshot()))
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewFeedStore()
	store.ReplaceAll([]domain.PostRecord{post("p", "author", 1, []string{"L"}, nil)})

	snap := store.Snapshot()
	p := snap["p"]
	p.Likes[0] = "mutated"
	delete(snap, "p")

	got, ok := store.Get("p")
	assert.Equal(t, true, ok)
	assert.Equal(t, []string{"L"}, got.Likes)
}

func TestWatchUnsubscribe(t *testing.T) {
	store := NewFeedStore()
	calls := 0
	unwatch := store.Watch(func() { calls++ })

	store.ReplaceAll([]domain.PostRecord{post("p", "a", 1, nil, nil)})
	unwatch()
	unwatch()
	store.ReplaceAll(nil)

	assert.Equal(t, 1, calls)
}

// Les lecteurs concurrents ne voient jamais un viewer dans les deux ensembles.
func TestConcurrentPatchesKeepMutualExclusion(t *testing.T) {
	store := NewFeedStore()
	store.ReplaceAll([]domain.PostRecord{post("p", "author", 1, nil, nil)})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				next := domain.ReactionState{HasLiked: (i+j)%2 == 0, HasDisliked: (i+j)%2 == 1}
				store.ApplyReactionPatch("p", "V", next)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				p := store.Snapshot()["p"]
				state := p.ReactionFor("V")
				if state.HasLiked && state.HasDisliked {
					t.Errorf("viewer in both likes and dislikes: %+v", p)
				}
			}
		}()
	}
	wg.Wait()
}
