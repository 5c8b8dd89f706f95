package services

import (
	"cmp"
	"slices"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
)

// Project partitionne et trie la collection pour un viewer. Fonction pure :
// l'entrée n'est jamais modifiée, la sortie est neuve à chaque appel.
// Les posts du viewer restent toujours du plus récent au plus ancien ;
// seul Others suit sortKey.
func Project(posts domain.FeedCollection, viewerID string, sortKey domain.SortKey) domain.Partition {
	out := domain.Partition{
		Own:    make([]domain.PostRecord, 0),
		Others: make([]domain.PostRecord, 0, len(posts)),
	}

	for _, p := range posts {
		if p.IsOwnedBy(viewerID) {
			out.Own = append(out.Own, p.Clone())
		} else {
			out.Others = append(out.Others, p.Clone())
		}
	}

	slices.SortFunc(out.Own, compareNewest)
	slices.SortFunc(out.Others, comparatorFor(sortKey))
	return out
}

func comparatorFor(key domain.SortKey) func(a, b domain.PostRecord) int {
	switch key {
	case domain.SortOldest:
		return compareOldest
	case domain.SortMostLiked:
		return compareMostLiked
	default:
		return compareNewest
	}
}

// Départage final par id pour un ordre total déterministe.

func compareNewest(a, b domain.PostRecord) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareOldest(a, b domain.PostRecord) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Plus de likes d'abord, le plus récent gagne les égalités.
func compareMostLiked(a, b domain.PostRecord) int {
	if c := cmp.Compare(len(b.Likes), len(a.Likes)); c != 0 {
		return c
	}
	return compareNewest(a, b)
}

// BuildView habille une partition pour l'affichage.
func BuildView(part domain.Partition, viewerID string, sortKey domain.SortKey, status domain.FeedStatus, version uint64) domain.FeedView {
	view := domain.FeedView{
		Status:     status,
		Sort:       sortKey,
		Version:    version,
		OwnPosts:   make([]domain.PostView, len(part.Own)),
		OtherPosts: make([]domain.PostView, len(part.Others)),
	}
	for i, p := range part.Own {
		view.OwnPosts[i] = domain.NewPostView(p, viewerID)
	}
	for i, p := range part.Others {
		view.OtherPosts[i] = domain.NewPostView(p, viewerID)
	}

	view.NoPosts = len(part.Own) == 0 && len(part.Others) == 0
	view.NoPostsFromOthers = viewerID != "" && len(part.Own) > 0 && len(part.Others) == 0
	return view
}
