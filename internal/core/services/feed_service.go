package services

import (
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

var _ ports.FeedReader = (*FeedService)(nil)

// FeedService implémente ports.FeedReader : lecture seule sur le store
// et l'état du bridge.
type FeedService struct {
	store  *FeedStore
	bridge *SubscriptionBridge
}

func NewFeedService(store *FeedStore, bridge *SubscriptionBridge) *FeedService {
	return &FeedService{store: store, bridge: bridge}
}

func (s *FeedService) Timeline(viewerID string, sort domain.SortKey) domain.FeedView {
	status := s.bridge.Status()
	if status == domain.StatusLoading {
		// Rien à montrer avant le premier snapshot
		return domain.FeedView{
			Status:     status,
			Sort:       sort,
			OwnPosts:   []domain.PostView{},
			OtherPosts: []domain.PostView{},
		}
	}

	posts, version := s.store.SnapshotWithVersion()
	return BuildView(Project(posts, viewerID, sort), viewerID, sort, status, version)
}

func (s *FeedService) Watch(fn func()) func() {
	return s.store.Watch(fn)
}
