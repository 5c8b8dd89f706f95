// Package docstore assemble un PostRepository et un ChangeNotifier en
// DocumentStore temps réel : chaque écriture est publiée, chaque abonné
// recharge la collection complète et reçoit un snapshot.
package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

type Options struct {
	// WriteTimeout borne chaque écriture distante (0 = pas de limite)
	WriteTimeout time.Duration
	// ResyncInterval recharge périodiquement la collection pour rattraper
	// une notification perdue (0 = désactivé)
	ResyncInterval time.Duration
}

type Store struct {
	repo     ports.PostRepository
	notifier ports.ChangeNotifier
	opts     Options
}

func New(repo ports.PostRepository, notifier ports.ChangeNotifier, opts Options) *Store {
	return &Store{repo: repo, notifier: notifier, opts: opts}
}

var _ ports.DocumentStore = (*Store)(nil)

func (s *Store) writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.WriteTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.WriteTimeout)
}

func (s *Store) CreateDocument(ctx context.Context, post domain.NewPost) (string, error) {
	ctx, cancel := s.writeCtx(ctx)
	defer cancel()

	rec, err := s.repo.Create(ctx, post)
	if err != nil {
		return "", err
	}
	s.publish(ctx, ChangeCreated, rec.ID)
	return rec.ID, nil
}

func (s *Store) UpdateFields(ctx context.Context, postID string, updates []domain.FieldUpdate) error {
	ctx, cancel := s.writeCtx(ctx)
	defer cancel()

	if err := s.repo.UpdateFields(ctx, postID, updates); err != nil {
		return err
	}
	s.publish(ctx, ChangeUpdated, postID)
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, postID string) error {
	ctx, cancel := s.writeCtx(ctx)
	defer cancel()

	if err := s.repo.Delete(ctx, postID); err != nil {
		return err
	}
	s.publish(ctx, ChangeDeleted, postID)
	return nil
}

// publish est best-effort : l'écriture est déjà persistée, le resync rattrapera.
func (s *Store) publish(ctx context.Context, kind, postID string) {
	if err := s.notifier.PublishChange(ctx, ports.ChangeEvent{Type: kind, PostID: postID}); err != nil {
		slog.Warn("⚠️ Failed to publish change", "type", kind, "post_id", postID, "error", err)
	}
}

// Subscribe livre un premier snapshot puis un nouveau à chaque changement.
// Les rafales de notifications sont fusionnées ; les callbacks sont appelés
// dans l'ordre depuis une seule goroutine. cancel attend la fin de cette
// goroutine : aucun callback n'a lieu après son retour. Ne pas appeler
// cancel depuis un callback.
func (s *Store) Subscribe(ctx context.Context, onSnapshot func([]domain.PostRecord), onError func(error)) (func(), error) {
	subCtx, cancelCtx := context.WithCancel(ctx)

	dirty := make(chan struct{}, 1)
	signal := func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	}

	unsubscribe, err := s.notifier.Subscribe(subCtx, func(_ context.Context, _ ports.ChangeEvent) {
		signal()
	})
	if err != nil {
		cancelCtx()
		return nil, fmt.Errorf("change notifier: %w", err)
	}

	// Snapshot initial
	signal()

	var (
		ticker *time.Ticker
		tick   <-chan time.Time
	)
	if s.opts.ResyncInterval > 0 {
		ticker = time.NewTicker(s.opts.ResyncInterval)
		tick = ticker.C
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if ticker != nil {
			defer ticker.Stop()
		}
		for {
			select {
			case <-subCtx.Done():
				return
			case <-tick:
				signal()
			case <-dirty:
				records, err := s.repo.ListAll(subCtx)
				if subCtx.Err() != nil {
					return
				}
				if err != nil {
					onError(err)
					continue
				}
				onSnapshot(records)
			}
		}
	}()

	return func() {
		cancelCtx()
		unsubscribe()
		<-done
	}, nil
}
