package domain

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestToggleTransitions(t *testing.T) {
	cases := []struct {
		from ReactionState
		kind ReactionKind
		want ReactionState
	}{
		{ReactionState{}, ReactionLike, ReactionState{HasLiked: true}},
		{ReactionState{HasLiked: true}, ReactionLike, ReactionState{}},
		{ReactionState{HasDisliked: true}, ReactionLike, ReactionState{HasLiked: true}},
		{ReactionState{}, ReactionDislike, ReactionState{HasDisliked: true}},
		{ReactionState{HasDisliked: true}, ReactionDislike, ReactionState{}},
		{ReactionState{HasLiked: true}, ReactionDislike, ReactionState{HasDisliked: true}},
	}
	for i, c := range cases {
		got := c.from.Toggle(c.kind)
		if got != c.want {
			t.Fatalf("case %d: %+v toggle %s = %+v, want %+v", i, c.from, c.kind, got, c.want)
		}
		assert.Equal(t, true, got.Valid())
	}
}

func TestReactionForAnonymous(t *testing.T) {
	p := PostRecord{Likes: []string{""}, Dislikes: []string{"X"}}
	assert.Equal(t, ReactionState{}, p.ReactionFor(""))
	assert.Equal(t, ReactionState{HasDisliked: true}, p.ReactionFor("X"))
}

func TestWithReactionDoesNotShareSlices(t *testing.T) {
	p := PostRecord{Likes: []string{"A"}, Dislikes: []string{"V"}}

	out := p.WithReaction("V", ReactionState{HasLiked: true})

	assert.Equal(t, []string{"A", "V"}, out.Likes)
	assert.Equal(t, 0, len(out.Dislikes))
	assert.Equal(t, []string{"A"}, p.Likes)
	assert.Equal(t, []string{"V"}, p.Dislikes)
}

func TestWithReactionNeverDuplicates(t *testing.T) {
	p := PostRecord{Likes: []string{"V"}}
	out := p.WithReaction("V", ReactionState{HasLiked: true})
	assert.Equal(t, []string{"V"}, out.Likes)
}

func TestSameIdentity(t *testing.T) {
	assert.Equal(t, false, SameIdentity("", ""))
	assert.Equal(t, false, SameIdentity("a", ""))
	assert.Equal(t, false, SameIdentity("a", "b"))
	assert.Equal(t, true, SameIdentity("a", "a"))
}
