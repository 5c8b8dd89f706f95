package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

// MemoryRepo garde la collection en RAM (dev local, tests, feedctl --memory).
type MemoryRepo struct {
	mu    sync.RWMutex
	posts map[string]domain.PostRecord
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		posts: make(map[string]domain.PostRecord),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

var _ ports.PostRepository = (*MemoryRepo)(nil)

func (r *MemoryRepo) Create(ctx context.Context, post domain.NewPost) (*domain.PostRecord, error) {
	rec := domain.PostRecord{
		ID:          uuid.NewString(),
		Title:       post.Title,
		Description: post.Description,
		Author:      post.Author,
		CreatedAt:   r.now(),
		Likes:       []string{},
		Dislikes:    []string{},
	}

	r.mu.Lock()
	r.posts[rec.ID] = rec
	r.mu.Unlock()

	out := rec.Clone()
	return &out, nil
}

// Put insère un post tel quel (seed et tests).
func (r *MemoryRepo) Put(rec domain.PostRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[rec.ID] = rec.Clone()
}

func (r *MemoryRepo) UpdateFields(ctx context.Context, postID string, updates []domain.FieldUpdate) error {
	if len(updates) == 0 {
		return domain.ErrInvalidUpdate
	}
	for _, u := range updates {
		if !u.Valid() {
			return fmt.Errorf("%w: %s %s", domain.ErrInvalidUpdate, u.Op, u.Field)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[postID]
	if !ok {
		return domain.ErrPostNotFound
	}
	r.posts[postID] = domain.ApplyUpdates(post, updates)
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, postID)
	return nil
}

func (r *MemoryRepo) ListAll(ctx context.Context) ([]domain.PostRecord, error) {
	r.mu.RLock()
	out := make([]domain.PostRecord, 0, len(r.posts))
	for _, p := range r.posts {
		out = append(out, p.Clone())
	}
	r.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

// sortNewestFirst : createdAt décroissant, id croissant en cas d'égalité.
func sortNewestFirst(posts []domain.PostRecord) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
}
