package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

// Nombre de tentatives quand un WATCH échoue (écriture concurrente)
const redisMaxRetries = 5

// RedisPostRepo stocke chaque post dans un hash, ses réactions dans deux sets,
// et l'ordre chronologique dans un sorted set.
//
//	post:{id}            HASH  title, description, author_*, created_at
//	post:{id}:likes      SET   viewer ids
//	post:{id}:dislikes   SET   viewer ids
//	posts:by_created     ZSET  score = created_at (unix ms)
type RedisPostRepo struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisPostRepo(client *redis.Client) ports.PostRepository {
	return &RedisPostRepo{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

const redisIndexKey = "posts:by_created"

func postKey(id string) string { return fmt.Sprintf("post:%s", id) }

func reactionKey(id string, field domain.Field) string {
	return fmt.Sprintf("post:%s:%s", id, field)
}

func (r *RedisPostRepo) Create(ctx context.Context, post domain.NewPost) (*domain.PostRecord, error) {
	rec := &domain.PostRecord{
		ID:          uuid.NewString(),
		Title:       post.Title,
		Description: post.Description,
		Author:      post.Author,
		CreatedAt:   r.now().Truncate(time.Millisecond),
		Likes:       []string{},
		Dislikes:    []string{},
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, postKey(rec.ID),
			"title", rec.Title,
			"description", rec.Description,
			"author_id", rec.Author.ID,
			"author_name", rec.Author.Name,
			"author_photo_url", rec.Author.PhotoURL,
			"created_at", rec.CreatedAt.UnixMilli(),
		)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{
			Score:  float64(rec.CreatedAt.UnixMilli()),
			Member: rec.ID,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis create post: %w", err)
	}
	return rec, nil
}

// UpdateFields : WATCH sur le hash pour ne pas recréer les sets d'un post supprimé entre-temps.
func (r *RedisPostRepo) UpdateFields(ctx context.Context, postID string, updates []domain.FieldUpdate) error {
	if len(updates) == 0 {
		return domain.ErrInvalidUpdate
	}
	for _, u := range updates {
		if !u.Valid() {
			return fmt.Errorf("%w: %s %s", domain.ErrInvalidUpdate, u.Op, u.Field)
		}
	}

	key := postKey(postID)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrPostNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, u := range updates {
				switch u.Op {
				case domain.OpSet:
					pipe.HSet(ctx, key, string(u.Field), u.Value)
				case domain.OpAddMember:
					pipe.SAdd(ctx, reactionKey(postID, u.Field), u.Value)
				case domain.OpRemoveMember:
					pipe.SRem(ctx, reactionKey(postID, u.Field), u.Value)
				}
			}
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, domain.ErrPostNotFound) {
			return fmt.Errorf("redis update post %s: %w", postID, err)
		}
		return err
	}
	return fmt.Errorf("redis update post %s: too many concurrent writes", postID)
}

func (r *RedisPostRepo) Delete(ctx context.Context, postID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx,
			postKey(postID),
			reactionKey(postID, domain.FieldLikes),
			reactionKey(postID, domain.FieldDislikes),
		)
		pipe.ZRem(ctx, redisIndexKey, postID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete post %s: %w", postID, err)
	}
	return nil
}

// ListAll lit l'index puis hydrate tous les posts en un seul pipeline.
func (r *RedisPostRepo) ListAll(ctx context.Context) ([]domain.PostRecord, error) {
	ids, err := r.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	type pending struct {
		hash     *redis.MapStringStringCmd
		likes    *redis.StringSliceCmd
		dislikes *redis.StringSliceCmd
	}
	cmds := make([]pending, len(ids))

	pipe := r.client.Pipeline()
	for i, id := range ids {
		cmds[i] = pending{
			hash:     pipe.HGetAll(ctx, postKey(id)),
			likes:    pipe.SMembers(ctx, reactionKey(id, domain.FieldLikes)),
			dislikes: pipe.SMembers(ctx, reactionKey(id, domain.FieldDislikes)),
		}
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	posts := make([]domain.PostRecord, 0, len(ids))
	for i, id := range ids {
		fields := cmds[i].hash.Val()
		if len(fields) == 0 {
			// Supprimé entre ZREVRANGE et HGETALL
			continue
		}
		p, err := decodeRedisPost(id, fields)
		if err != nil {
			return nil, err
		}
		p.Likes = sortedMembers(cmds[i].likes.Val())
		p.Dislikes = sortedMembers(cmds[i].dislikes.Val())
		posts = append(posts, p)
	}

	sortNewestFirst(posts)
	return posts, nil
}

func decodeRedisPost(id string, fields map[string]string) (domain.PostRecord, error) {
	ms, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return domain.PostRecord{}, fmt.Errorf("corrupted created_at for post %s: %w", id, err)
	}
	return domain.PostRecord{
		ID:          id,
		Title:       fields["title"],
		Description: fields["description"],
		Author: domain.Author{
			ID:       fields["author_id"],
			Name:     fields["author_name"],
			PhotoURL: fields["author_photo_url"],
		},
		CreatedAt: time.UnixMilli(ms).UTC(),
	}, nil
}

// Les sets Redis ne sont pas ordonnés ; on trie pour des snapshots stables.
func sortedMembers(members []string) []string {
	out := append([]string{}, members...)
	sort.Strings(out)
	return out
}
