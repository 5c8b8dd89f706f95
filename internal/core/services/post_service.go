package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

var _ ports.PostService = (*PostService)(nil)

// PostService gère création, édition et suppression.
// Seule l'édition est appliquée localement ; création et suppression
// attendent le prochain snapshot.
type PostService struct {
	store  *FeedStore
	remote ports.DocumentStore
}

func NewPostService(store *FeedStore, remote ports.DocumentStore) *PostService {
	return &PostService{store: store, remote: remote}
}

// CreatePost retourne l'id attribué par le store, "" pour un viewer anonyme.
func (s *PostService) CreatePost(ctx context.Context, viewer domain.Viewer, title, description string) (string, error) {
	if viewer.IsAnonymous() {
		return "", nil
	}
	if err := domain.ValidateContent(title, description); err != nil {
		return "", err
	}

	id, err := s.remote.CreateDocument(ctx, domain.NewPost{
		Title:       title,
		Description: description,
		Author:      viewer.Author(),
	})
	if err != nil {
		return "", fmt.Errorf("%w: create: %w", domain.ErrRemoteWrite, err)
	}

	slog.Info("📝 Post created", "post_id", id, "author_id", viewer.ID)
	return id, nil
}

func (s *PostService) EditPost(ctx context.Context, viewerID, postID, title, description string) error {
	if viewerID == "" {
		return nil
	}
	post, ok := s.store.Get(postID)
	if !ok {
		return nil
	}
	// Vérification de propriété (seul l'auteur peut modifier)
	if !post.IsOwnedBy(viewerID) {
		return domain.ErrForbidden
	}
	if err := domain.ValidateContent(title, description); err != nil {
		return err
	}

	s.store.ApplyEditPatch(postID, title, description)

	if err := s.remote.UpdateFields(ctx, postID, domain.EditUpdates(title, description)); err != nil {
		slog.Warn("❌ Edit write failed, waiting for next snapshot", "post_id", postID, "error", err)
		return fmt.Errorf("%w: edit %s: %w", domain.ErrRemoteWrite, postID, err)
	}
	return nil
}

// DeletePost ne retire rien localement : la suppression apparaît au snapshot suivant.
func (s *PostService) DeletePost(ctx context.Context, viewerID, postID string) error {
	if viewerID == "" {
		return nil
	}
	post, ok := s.store.Get(postID)
	if !ok {
		return nil
	}
	if !post.IsOwnedBy(viewerID) {
		return domain.ErrForbidden
	}

	if err := s.remote.DeleteDocument(ctx, postID); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrRemoteWrite, postID, err)
	}
	slog.Info("🗑️ Post deleted", "post_id", postID)
	return nil
}
