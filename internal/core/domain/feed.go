package domain

import "strings"

// SortKey ne s'applique qu'aux posts des autres.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortMostLiked SortKey = "mostLiked"
)

// ParseSortKey accepte aussi "liked" et la valeur non sélectionnée ("", "select")
// qui se comporte comme newest.
func ParseSortKey(raw string) (SortKey, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "select", "newest":
		return SortNewest, true
	case "oldest":
		return SortOldest, true
	case "mostliked", "liked", "most_liked":
		return SortMostLiked, true
	default:
		return SortNewest, false
	}
}

// FeedStatus reflète l'état de la souscription.
type FeedStatus string

const (
	StatusLoading     FeedStatus = "loading"
	StatusLive        FeedStatus = "live"
	StatusUnavailable FeedStatus = "unavailable"
	StatusStopped     FeedStatus = "stopped"
)

// Viewer est l'identité courante. Zéro = anonyme.
type Viewer struct {
	ID       string
	Name     string
	PhotoURL string
}

func (v Viewer) IsAnonymous() bool {
	return v.ID == ""
}

// Author construit l'auteur d'un nouveau post à partir du viewer.
func (v Viewer) Author() Author {
	return Author{ID: v.ID, Name: v.Name, PhotoURL: v.PhotoURL}
}

// Partition est la sortie brute du projecteur.
type Partition struct {
	Own    []PostRecord
	Others []PostRecord
}

// PostView est ce qu'une carte affiche.
type PostView struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	AuthorID     string `json:"author_id"`
	AuthorName   string `json:"author_name"`
	AuthorPhoto  string `json:"author_photo_url,omitempty"`
	CreatedAt    int64  `json:"created_at"`
	DisplayDate  string `json:"display_date"`
	LikeCount    int    `json:"like_count"`
	DislikeCount int    `json:"dislike_count"`
	HasLiked     bool   `json:"has_liked"`
	HasDisliked  bool   `json:"has_disliked"`
	CanEdit      bool   `json:"can_edit"`
}

// FeedView est la page d'accueil d'un viewer.
type FeedView struct {
	Status            FeedStatus `json:"status"`
	Sort              SortKey    `json:"sort"`
	Version           uint64     `json:"version"`
	OwnPosts          []PostView `json:"own_posts"`
	OtherPosts        []PostView `json:"other_posts"`
	NoPosts           bool       `json:"no_posts"`
	NoPostsFromOthers bool       `json:"no_posts_from_others"`
}

const displayDateLayout = "Jan 02, 2006"

// NewPostView dérive la carte d'un post pour viewerID.
func NewPostView(p PostRecord, viewerID string) PostView {
	state := p.ReactionFor(viewerID)
	v := PostView{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		AuthorID:     p.Author.ID,
		AuthorName:   p.Author.Name,
		AuthorPhoto:  p.Author.PhotoURL,
		LikeCount:    len(p.Likes),
		DislikeCount: len(p.Dislikes),
		HasLiked:     state.HasLiked,
		HasDisliked:  state.HasDisliked,
		CanEdit:      p.IsOwnedBy(viewerID),
	}
	if !p.CreatedAt.IsZero() {
		v.CreatedAt = p.CreatedAt.Unix()
		v.DisplayDate = p.CreatedAt.UTC().Format(displayDateLayout)
	}
	return v
}
