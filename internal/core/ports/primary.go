package ports

import (
	"context"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
)

// --- DRIVING (Ce que le cœur expose) ---

type FeedReader interface {
	// Timeline projette la collection courante pour un viewer
	Timeline(viewerID string, sort domain.SortKey) domain.FeedView

	// Watch appelle fn à chaque changement observable ; retourne la désinscription
	Watch(fn func()) (unwatch func())
}

type ReactionService interface {
	ToggleLike(ctx context.Context, postID, viewerID string) error
	ToggleDislike(ctx context.Context, postID, viewerID string) error
}

type PostService interface {
	CreatePost(ctx context.Context, viewer domain.Viewer, title, description string) (string, error)
	EditPost(ctx context.Context, viewerID, postID, title, description string) error
	DeletePost(ctx context.Context, viewerID, postID string) error
}
