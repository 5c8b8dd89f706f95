package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

var _ ports.ReactionService = (*ReactionMutator)(nil)

// ReactionMutator implémente ports.ReactionService.
// Patch optimiste local d'abord, écriture distante ensuite, pas de rollback :
// le prochain ReplaceAll du bridge réconcilie.
type ReactionMutator struct {
	store  *FeedStore
	remote ports.DocumentStore
}

func NewReactionMutator(store *FeedStore, remote ports.DocumentStore) *ReactionMutator {
	return &ReactionMutator{store: store, remote: remote}
}

func (m *ReactionMutator) ToggleLike(ctx context.Context, postID, viewerID string) error {
	return m.toggle(ctx, domain.ReactionLike, postID, viewerID)
}

func (m *ReactionMutator) ToggleDislike(ctx context.Context, postID, viewerID string) error {
	return m.toggle(ctx, domain.ReactionDislike, postID, viewerID)
}

func (m *ReactionMutator) toggle(ctx context.Context, kind domain.ReactionKind, postID, viewerID string) error {
	// 1. Viewer anonyme : no-op silencieux
	if viewerID == "" {
		return nil
	}

	// 2-4. Lecture, bascule et patch optimiste atomiques, avant tout appel réseau
	next, ok := m.store.ToggleReaction(postID, viewerID, kind)
	if !ok {
		return nil
	}
	slog.Debug("Optimistic reaction applied", "post_id", postID, "viewer_id", viewerID, "kind", kind,
		"liked", next.HasLiked, "disliked", next.HasDisliked)

	// 5. Écriture distante idempotente
	updates := domain.ReactionUpdates(kind, viewerID, next)
	if err := m.remote.UpdateFields(ctx, postID, updates); err != nil {
		// 6. Pas de rollback
		slog.Warn("❌ Reaction write failed, waiting for next snapshot", "post_id", postID, "kind", kind, "error", err)
		return fmt.Errorf("%w: %s on %s: %w", domain.ErrRemoteWrite, kind, postID, err)
	}
	return nil
}
