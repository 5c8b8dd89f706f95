package ports

import (
	"context"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
)

// --- DRIVEN (Ce dont le cœur a besoin) ---

// DocumentStore est le store distant vu par le cœur.
// Subscribe pousse des snapshots complets triés par createdAt décroissant,
// dans l'ordre, depuis une seule goroutine.
type DocumentStore interface {
	Subscribe(ctx context.Context, onSnapshot func([]domain.PostRecord), onError func(error)) (cancel func(), err error)
	CreateDocument(ctx context.Context, post domain.NewPost) (string, error)
	UpdateFields(ctx context.Context, postID string, updates []domain.FieldUpdate) error
	DeleteDocument(ctx context.Context, postID string) error
}

// PostRepository est la persistance brute (Postgres, Redis, mémoire).
type PostRepository interface {
	Create(ctx context.Context, post domain.NewPost) (*domain.PostRecord, error)
	UpdateFields(ctx context.Context, postID string, updates []domain.FieldUpdate) error
	Delete(ctx context.Context, postID string) error

	// ListAll retourne toute la collection, createdAt décroissant
	ListAll(ctx context.Context) ([]domain.PostRecord, error)
}

// ChangeEvent décrit une écriture sur la collection.
type ChangeEvent struct {
	Type   string `json:"type"` // "created", "updated", "deleted"
	PostID string `json:"post_id"`
}

// ChangeNotifier diffuse les écritures à tous les abonnés (NATS, Redis Pub/Sub).
type ChangeNotifier interface {
	PublishChange(ctx context.Context, evt ChangeEvent) error
	Subscribe(ctx context.Context, onChange func(context.Context, ChangeEvent)) (unsubscribe func(), err error)
}

// TokenValidator résout l'identité du viewer depuis un token.
type TokenValidator interface {
	Validate(token string) (domain.Viewer, error)
}
