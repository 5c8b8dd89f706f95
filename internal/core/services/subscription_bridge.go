package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

// SubscriptionBridge relie la souscription distante au FeedStore.
// Un seul abonnement actif à la fois (contrat appelant, non vérifié ici).
type SubscriptionBridge struct {
	remote ports.DocumentStore
	store  *FeedStore

	mu      sync.RWMutex
	status  domain.FeedStatus
	lastErr error
	loaded  chan struct{}
}

// SubscriptionHandle identifie un abonnement démarré par Start.
type SubscriptionHandle struct {
	mu      sync.Mutex
	stopped bool
	cancel  func()
}

func NewSubscriptionBridge(remote ports.DocumentStore, store *FeedStore) *SubscriptionBridge {
	return &SubscriptionBridge{
		remote: remote,
		store:  store,
		status: domain.StatusLoading,
		loaded: make(chan struct{}),
	}
}

// Start ouvre l'abonnement. Le bridge reste "loading" jusqu'au premier snapshot.
func (b *SubscriptionBridge) Start(ctx context.Context) (*SubscriptionHandle, error) {
	h := &SubscriptionHandle{}

	b.mu.Lock()
	if b.status == domain.StatusStopped {
		b.status = domain.StatusLoading
		b.loaded = make(chan struct{})
	}
	b.mu.Unlock()

	cancel, err := b.remote.Subscribe(ctx,
		func(records []domain.PostRecord) { b.deliver(h, records) },
		func(err error) { b.fail(h, err) },
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	h.mu.Lock()
	if h.stopped {
		// Stop appelé pendant Subscribe
		h.mu.Unlock()
		cancel()
		return h, nil
	}
	h.cancel = cancel
	h.mu.Unlock()

	slog.Debug("Feed subscription started")
	return h, nil
}

// Stop peut être appelé à tout moment, même deux fois.
// Aucun ReplaceAll de ce handle n'a lieu après son retour.
func (b *SubscriptionBridge) Stop(h *SubscriptionHandle) {
	if h == nil {
		return
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	cancel := h.cancel
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	b.mu.Lock()
	b.status = domain.StatusStopped
	b.mu.Unlock()

	slog.Debug("Feed subscription stopped")
}

// deliver garde le verrou du handle pendant le remplacement : Stop attend la fin
// d'une livraison en cours avant de rendre la main. Les listeners sont prévenus
// après libération du verrou, ils peuvent donc appeler Stop.
func (b *SubscriptionBridge) deliver(h *SubscriptionHandle, records []domain.PostRecord) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}

	changed := b.store.replace(records)

	b.mu.Lock()
	prev := b.status
	b.status = domain.StatusLive
	b.lastErr = nil
	select {
	case <-b.loaded:
	default:
		close(b.loaded)
	}
	b.mu.Unlock()
	h.mu.Unlock()

	if changed || prev != domain.StatusLive {
		b.store.notify()
	}
}

// fail conserve le dernier snapshot (stale-but-present).
func (b *SubscriptionBridge) fail(h *SubscriptionHandle, err error) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}

	slog.Warn("⚠️ Feed subscription error, keeping last snapshot", "error", err)

	b.mu.Lock()
	prev := b.status
	b.status = domain.StatusUnavailable
	b.lastErr = err
	b.mu.Unlock()
	h.mu.Unlock()

	if prev != domain.StatusUnavailable {
		b.store.Touch()
	}
}

func (b *SubscriptionBridge) Status() domain.FeedStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Err retourne la dernière erreur de flux, enveloppée dans ErrFeedUnavailable.
func (b *SubscriptionBridge) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lastErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrFeedUnavailable, b.lastErr)
}

// Loaded est fermé à l'arrivée du premier snapshot.
func (b *SubscriptionBridge) Loaded() <-chan struct{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// WaitLoaded bloque jusqu'au premier snapshot ou l'annulation du contexte.
func (b *SubscriptionBridge) WaitLoaded(ctx context.Context) error {
	select {
	case <-b.Loaded():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
