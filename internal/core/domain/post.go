package domain

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// Limites appliquées à la frontière création/édition (pas par le FeedStore)
const (
	MaxTitleLength       = 50
	MaxDescriptionLength = 600
)

// Author est figé à la création du post.
type Author struct {
	ID       string
	Name     string
	PhotoURL string // Optionnel
}

// PostRecord est la représentation locale canonique d'un post.
// Invariant : aucun identifiant n'apparaît à la fois dans Likes et Dislikes.
type PostRecord struct {
	ID          string
	Title       string
	Description string
	Author      Author
	CreatedAt   time.Time // Zéro = timestamp serveur pas encore résolu
	Likes       []string
	Dislikes    []string
}

// NewPost regroupe ce qu'il faut pour créer un document distant.
// L'ID et le CreatedAt sont attribués par le store.
type NewPost struct {
	Title       string
	Description string
	Author      Author
}

// FeedCollection : id -> PostRecord. L'ordre d'affichage est toujours dérivé.
type FeedCollection map[string]PostRecord

// Clone retourne une copie profonde (les slices ne sont pas partagées).
func (p PostRecord) Clone() PostRecord {
	p.Likes = slices.Clone(p.Likes)
	p.Dislikes = slices.Clone(p.Dislikes)
	return p
}

// Equal compare tous les champs observables.
func (p PostRecord) Equal(o PostRecord) bool {
	return p.ID == o.ID &&
		p.Title == o.Title &&
		p.Description == o.Description &&
		p.Author == o.Author &&
		p.CreatedAt.Equal(o.CreatedAt) &&
		slices.Equal(p.Likes, o.Likes) &&
		slices.Equal(p.Dislikes, o.Dislikes)
}

// IsOwnedBy vaut false si l'un des deux côtés est absent.
func (p PostRecord) IsOwnedBy(viewerID string) bool {
	return SameIdentity(p.Author.ID, viewerID)
}

// SameIdentity compare deux identifiants optionnels ("" = absent).
func SameIdentity(a, b string) bool {
	return a != "" && b != "" && a == b
}

// --- VALIDATION (frontière création / édition) ---

func ValidateContent(title, description string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// --- HELPERS ENSEMBLES ---

func hasMember(ids []string, id string) bool {
	return slices.Contains(ids, id)
}

// withMember ajoute id en fin de liste s'il n'y est pas déjà.
func withMember(ids []string, id string) []string {
	if hasMember(ids, id) {
		return ids
	}
	return append(slices.Clone(ids), id)
}

func withoutMember(ids []string, id string) []string {
	if !hasMember(ids, id) {
		return ids
	}
	out := make([]string, 0, len(ids)-1)
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
