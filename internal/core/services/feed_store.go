package services

import (
	"log/slog"
	"sync"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
)

// FeedStore est l'unique propriétaire de la FeedCollection.
// Toutes les mutations sont sérialisées ; les lecteurs reçoivent une copie.
type FeedStore struct {
	mu      sync.RWMutex
	posts   domain.FeedCollection
	version uint64

	listenersMu sync.Mutex
	listeners   map[uint64]func()
	nextID      uint64
}

func NewFeedStore() *FeedStore {
	return &FeedStore{
		posts:     make(domain.FeedCollection),
		listeners: make(map[uint64]func()),
	}
}

// ReplaceAll remplace toute la collection (seule opération qui ajoute/retire).
// Un contenu identique ne déclenche ni changement de version ni notification.
func (s *FeedStore) ReplaceAll(records []domain.PostRecord) {
	if s.replace(records) {
		s.notify()
	}
}

// replace remplace la collection sans prévenir les listeners.
func (s *FeedStore) replace(records []domain.PostRecord) bool {
	next := make(domain.FeedCollection, len(records))
	for _, r := range records {
		next[r.ID] = r.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sameCollection(s.posts, next) {
		return false
	}
	s.posts = next
	s.version++
	return true
}

// ApplyReactionPatch aligne l'appartenance de viewerID sur next.
// No-op si le post est absent, le viewer vide ou next invalide.
func (s *FeedStore) ApplyReactionPatch(postID, viewerID string, next domain.ReactionState) {
	if viewerID == "" || !next.Valid() {
		return
	}

	s.mu.Lock()
	post, ok := s.posts[postID]
	if !ok {
		s.mu.Unlock()
		slog.Debug("Reaction patch ignored, post not in collection", "post_id", postID)
		return
	}
	patched := post.WithReaction(viewerID, next)
	if patched.Equal(post) {
		s.mu.Unlock()
		return
	}
	s.posts[postID] = patched
	s.version++
	s.mu.Unlock()

	s.notify()
}

// ToggleReaction lit l'état du viewer, le bascule et l'applique sous un seul verrou :
// deux clics concurrents du même viewer s'annulent toujours.
// ok est faux si le viewer est vide ou le post absent.
func (s *FeedStore) ToggleReaction(postID, viewerID string, kind domain.ReactionKind) (next domain.ReactionState, ok bool) {
	if viewerID == "" {
		return domain.ReactionState{}, false
	}

	s.mu.Lock()
	post, found := s.posts[postID]
	if !found {
		s.mu.Unlock()
		return domain.ReactionState{}, false
	}
	next = post.ReactionFor(viewerID).Toggle(kind)
	patched := post.WithReaction(viewerID, next)
	if patched.Equal(post) {
		s.mu.Unlock()
		return next, true
	}
	s.posts[postID] = patched
	s.version++
	s.mu.Unlock()

	s.notify()
	return next, true
}

// ApplyEditPatch ne touche que le titre et la description.
func (s *FeedStore) ApplyEditPatch(postID, title, description string) {
	s.mu.Lock()
	post, ok := s.posts[postID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if post.Title == title && post.Description == description {
		s.mu.Unlock()
		return
	}
	post.Title = title
	post.Description = description
	s.posts[postID] = post
	s.version++
	s.mu.Unlock()

	s.notify()
}

// Snapshot retourne une copie profonde (copy-on-read).
func (s *FeedStore) Snapshot() domain.FeedCollection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(domain.FeedCollection, len(s.posts))
	for id, p := range s.posts {
		out[id] = p.Clone()
	}
	return out
}

// SnapshotWithVersion retourne la copie et la version qui lui correspond.
func (s *FeedStore) SnapshotWithVersion() (domain.FeedCollection, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(domain.FeedCollection, len(s.posts))
	for id, p := range s.posts {
		out[id] = p.Clone()
	}
	return out, s.version
}

// Get retourne une copie d'un post.
func (s *FeedStore) Get(postID string) (domain.PostRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[postID]
	if !ok {
		return domain.PostRecord{}, false
	}
	return p.Clone(), true
}

// Version augmente à chaque changement observable.
func (s *FeedStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Watch enregistre fn, appelée hors verrou après chaque changement.
// fn ne doit pas bloquer : elle s'exécute dans la goroutine de l'écrivain.
func (s *FeedStore) Watch(fn func()) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// Touch prévient les listeners sans modifier la collection
// (changement d'état de l'abonnement par exemple).
func (s *FeedStore) Touch() {
	s.notify()
}

func (s *FeedStore) notify() {
	s.listenersMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func sameCollection(a, b domain.FeedCollection) bool {
	if len(a) != len(b) {
		return false
	}
	for id, p := range a {
		q, ok := b[id]
		if !ok || !p.Equal(q) {
			return false
		}
	}
	return true
}
