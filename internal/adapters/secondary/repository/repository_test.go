package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
)

func TestBuildUpdateQueryReaction(t *testing.T) {
	query, args, err := buildUpdateQuery("P", domain.ReactionUpdates(domain.ReactionLike, "V", domain.ReactionState{HasLiked: true}))
	assert.Equal(t, nil, err)
	assert.Equal(t,
		"UPDATE posts SET likes = array_append(array_remove(likes, $2::text), $2::text), dislikes = array_remove(dislikes, $3::text) WHERE id = $1",
		query)
	assert.Equal(t, []any{"P", "V", "V"}, args)
}

func TestBuildUpdateQueryEdit(t *testing.T) {
	query, args, err := buildUpdateQuery("P", domain.EditUpdates("t", ""))
	assert.Equal(t, nil, err)
	assert.Equal(t, "UPDATE posts SET title = $2::text, description = $3::text WHERE id = $1", query)
	assert.Equal(t, []any{"P", "t", ""}, args)
}

func TestBuildUpdateQueryChainsSameColumn(t *testing.T) {
	query, _, err := buildUpdateQuery("P", []domain.FieldUpdate{
		{Field: domain.FieldLikes, Op: domain.OpAddMember, Value: "A"},
		{Field: domain.FieldLikes, Op: domain.OpRemoveMember, Value: "B"},
	})
	assert.Equal(t, nil, err)
	assert.Equal(t,
		"UPDATE posts SET likes = array_remove(array_append(array_remove(likes, $2::text), $2::text), $3::text) WHERE id = $1",
		query)
}

func TestBuildUpdateQueryRejectsInvalid(t *testing.T) {
	_, _, err := buildUpdateQuery("P", nil)
	assert.Equal(t, domain.ErrInvalidUpdate, err)

	_, _, err = buildUpdateQuery("P", []domain.FieldUpdate{{Field: "author_id", Op: domain.OpSet, Value: "x"}})
	assert.Equal(t, true, errors.Is(err, domain.ErrInvalidUpdate))
}

func TestMemoryRepoLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	first, err := repo.Create(ctx, domain.NewPost{Title: "first", Author: domain.Author{ID: "A"}})
	assert.Equal(t, nil, err)
	second, _ := repo.Create(ctx, domain.NewPost{Title: "second", Author: domain.Author{ID: "B"}})

	all, _ := repo.ListAll(ctx)
	assert.Equal(t, 2, len(all))
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	updates := domain.ReactionUpdates(domain.ReactionLike, "V", domain.ReactionState{HasLiked: true})
	assert.Equal(t, nil, repo.UpdateFields(ctx, first.ID, updates))
	assert.Equal(t, nil, repo.UpdateFields(ctx, first.ID, updates))

	all, _ = repo.ListAll(ctx)
	assert.Equal(t, []string{"V"}, all[1].Likes)

	assert.Equal(t, domain.ErrPostNotFound, repo.UpdateFields(ctx, "missing", updates))

	assert.Equal(t, nil, repo.Delete(ctx, first.ID))
	assert.Equal(t, nil, repo.Delete(ctx, first.ID))
	all, _ = repo.ListAll(ctx)
	assert.Equal(t, 1, len(all))
}

func TestMemoryRepoListAllReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	repo.Put(domain.PostRecord{ID: "P", Likes: []string{"A"}})

	all, _ := repo.ListAll(ctx)
	all[0].Likes[0] = "mutated"

	again, _ := repo.ListAll(ctx)
	assert.Equal(t, []string{"A"}, again[0].Likes)
}

func TestDecodeRedisPost(t *testing.T) {
	p, err := decodeRedisPost("P", map[string]string{
		"title":            "hello",
		"description":      "world",
		"author_id":        "A",
		"author_name":      "Ann",
		"author_photo_url": "",
		"created_at":       "1741608000000",
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, "hello", p.Title)
	assert.Equal(t, domain.Author{ID: "A", Name: "Ann"}, p.Author)
	assert.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), p.CreatedAt)

	_, err = decodeRedisPost("P", map[string]string{"created_at": "nope"})
	assert.NotEqual(t, nil, err)
}

func TestSortedMembers(t *testing.T) {
	in := []string{"b", "a"}
	assert.Equal(t, []string{"a", "b"}, sortedMembers(in))
	assert.Equal(t, []string{"b", "a"}, in)
}
