package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

// Colonnes autorisées dans un UPDATE dynamique.
var pgColumns = map[domain.Field]string{
	domain.FieldTitle:       "title",
	domain.FieldDescription: "description",
	domain.FieldLikes:       "likes",
	domain.FieldDislikes:    "dislikes",
}

const pgSelectPosts = `
	SELECT id, title, description, author_id, author_name, author_photo_url, created_at, likes, dislikes
	FROM posts
`

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) ports.PostRepository {
	return &PostgresRepo{db: db}
}

// Create : l'horodatage est attribué par la base (DEFAULT now()).
func (r *PostgresRepo) Create(ctx context.Context, post domain.NewPost) (*domain.PostRecord, error) {
	query := `
		INSERT INTO posts (id, title, description, author_id, author_name, author_photo_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	rec := &domain.PostRecord{
		ID:          uuid.NewString(),
		Title:       post.Title,
		Description: post.Description,
		Author:      post.Author,
		Likes:       []string{},
		Dislikes:    []string{},
	}

	var photo *string
	if post.Author.PhotoURL != "" {
		photo = &post.Author.PhotoURL
	}

	err := r.db.QueryRow(ctx, query,
		rec.ID,
		post.Title,
		post.Description,
		post.Author.ID,
		post.Author.Name,
		photo,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// UpdateFields applique toutes les opérations en un seul UPDATE (atomique par document).
// Ajout et retrait d'un membre sont idempotents côté SQL.
func (r *PostgresRepo) UpdateFields(ctx context.Context, postID string, updates []domain.FieldUpdate) error {
	query, args, err := buildUpdateQuery(postID, updates)
	if err != nil {
		return err
	}

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update post %s: %w", postID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// Delete est idempotent : supprimer un post absent n'est pas une erreur.
func (r *PostgresRepo) Delete(ctx context.Context, postID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("delete post %s: %w", postID, err)
	}
	return nil
}

func (r *PostgresRepo) ListAll(ctx context.Context) ([]domain.PostRecord, error) {
	rows, err := r.db.Query(ctx, pgSelectPosts+` ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]domain.PostRecord, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func scanPost(row pgx.Row) (domain.PostRecord, error) {
	var (
		p         domain.PostRecord
		photo     *string
		createdAt time.Time
	)
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Author.ID,
		&p.Author.Name,
		&photo,
		&createdAt,
		&p.Likes,
		&p.Dislikes,
	)
	if err != nil {
		return domain.PostRecord{}, fmt.Errorf("scan post: %w", err)
	}
	if photo != nil {
		p.Author.PhotoURL = *photo
	}
	p.CreatedAt = createdAt.UTC()
	return p, nil
}

// buildUpdateQuery compose les expressions par colonne ; plusieurs opérations
// sur la même colonne s'imbriquent dans l'ordre reçu.
func buildUpdateQuery(postID string, updates []domain.FieldUpdate) (string, []any, error) {
	if len(updates) == 0 {
		return "", nil, domain.ErrInvalidUpdate
	}

	args := []any{postID}
	exprs := make(map[string]string)
	order := make([]string, 0, len(updates))

	for _, u := range updates {
		if !u.Valid() {
			return "", nil, fmt.Errorf("%w: %s %s", domain.ErrInvalidUpdate, u.Op, u.Field)
		}
		col := pgColumns[u.Field]
		current, seen := exprs[col]
		if !seen {
			current = col
			order = append(order, col)
		}

		args = append(args, u.Value)
		ph := fmt.Sprintf("$%d::text", len(args))

		switch u.Op {
		case domain.OpSet:
			current = ph
		case domain.OpAddMember:
			current = fmt.Sprintf("array_append(array_remove(%s, %s), %s)", current, ph, ph)
		case domain.OpRemoveMember:
			current = fmt.Sprintf("array_remove(%s, %s)", current, ph)
		}
		exprs[col] = current
	}

	sets := make([]string, len(order))
	for i, col := range order {
		sets[i] = col + " = " + exprs[col]
	}

	return "UPDATE posts SET " + strings.Join(sets, ", ") + " WHERE id = $1", args, nil
}
