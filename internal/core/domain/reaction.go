package domain

// ReactionKind identifie le bouton actionné par le viewer.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// ReactionState est toujours dérivé de Likes/Dislikes, jamais stocké.
type ReactionState struct {
	HasLiked    bool
	HasDisliked bool
}

// Valid vérifie l'exclusion mutuelle.
func (s ReactionState) Valid() bool {
	return !(s.HasLiked && s.HasDisliked)
}

// ReactionFor dérive l'état d'un viewer. Viewer absent => état neutre.
func (p PostRecord) ReactionFor(viewerID string) ReactionState {
	if viewerID == "" {
		return ReactionState{}
	}
	return ReactionState{
		HasLiked:    hasMember(p.Likes, viewerID),
		HasDisliked: hasMember(p.Dislikes, viewerID),
	}
}

// Toggle calcule l'état suivant après un clic sur kind.
// Like quand pas liké => liké et plus disliké ; like quand liké => plus liké.
func (s ReactionState) Toggle(kind ReactionKind) ReactionState {
	switch kind {
	case ReactionLike:
		if s.HasLiked {
			return ReactionState{}
		}
		return ReactionState{HasLiked: true}
	case ReactionDislike:
		if s.HasDisliked {
			return ReactionState{}
		}
		return ReactionState{HasDisliked: true}
	default:
		return s
	}
}

// WithReaction retourne une copie du post où l'appartenance de viewerID
// correspond à next. Les autres viewers ne sont pas touchés.
func (p PostRecord) WithReaction(viewerID string, next ReactionState) PostRecord {
	out := p.Clone()
	if next.HasLiked {
		out.Likes = withMember(out.Likes, viewerID)
	} else {
		out.Likes = withoutMember(out.Likes, viewerID)
	}
	if next.HasDisliked {
		out.Dislikes = withMember(out.Dislikes, viewerID)
	} else {
		out.Dislikes = withoutMember(out.Dislikes, viewerID)
	}
	return out
}

// ReactionUpdates traduit un clic en opérations de champs distantes idempotentes :
// ajout ou retrait dans le champ cliqué, retrait inconditionnel dans l'autre.
func ReactionUpdates(kind ReactionKind, viewerID string, next ReactionState) []FieldUpdate {
	target, other := FieldLikes, FieldDislikes
	active := next.HasLiked
	if kind == ReactionDislike {
		target, other = FieldDislikes, FieldLikes
		active = next.HasDisliked
	}

	op := OpRemoveMember
	if active {
		op = OpAddMember
	}
	return []FieldUpdate{
		{Field: target, Op: op, Value: viewerID},
		{Field: other, Op: OpRemoveMember, Value: viewerID},
	}
}
