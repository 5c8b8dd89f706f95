package domain

// Field est un nom de champ du document distant.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldLikes       Field = "likes"
	FieldDislikes    Field = "dislikes"
)

// IsSet indique un champ de type ensemble (likes / dislikes).
func (f Field) IsSet() bool {
	return f == FieldLikes || f == FieldDislikes
}

// IsScalar indique un champ texte modifiable.
func (f Field) IsScalar() bool {
	return f == FieldTitle || f == FieldDescription
}

type UpdateOp int

const (
	OpSet UpdateOp = iota
	OpAddMember
	OpRemoveMember
)

func (o UpdateOp) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpAddMember:
		return "add"
	case OpRemoveMember:
		return "remove"
	default:
		return "unknown"
	}
}

// FieldUpdate est une mise à jour partielle d'un document.
// Add/Remove sont idempotents côté store.
type FieldUpdate struct {
	Field Field
	Op    UpdateOp
	Value string
}

// Valid refuse les combinaisons champ/opération impossibles.
func (u FieldUpdate) Valid() bool {
	switch u.Op {
	case OpSet:
		return u.Field.IsScalar()
	case OpAddMember, OpRemoveMember:
		return u.Field.IsSet() && u.Value != ""
	default:
		return false
	}
}

// EditUpdates : mise à jour du titre et de la description.
func EditUpdates(title, description string) []FieldUpdate {
	return []FieldUpdate{
		{Field: FieldTitle, Op: OpSet, Value: title},
		{Field: FieldDescription, Op: OpSet, Value: description},
	}
}

// ApplyUpdates applique des FieldUpdate à un post (utilisé par les stores
// en mémoire et les tests). Les opérations invalides sont ignorées.
func ApplyUpdates(p PostRecord, updates []FieldUpdate) PostRecord {
	out := p.Clone()
	for _, u := range updates {
		if !u.Valid() {
			continue
		}
		switch u.Field {
		case FieldTitle:
			out.Title = u.Value
		case FieldDescription:
			out.Description = u.Value
		case FieldLikes:
			out.Likes = applySetOp(out.Likes, u)
		case FieldDislikes:
			out.Dislikes = applySetOp(out.Dislikes, u)
		}
	}
	return out
}

func applySetOp(ids []string, u FieldUpdate) []string {
	if u.Op == OpAddMember {
		return withMember(ids, u.Value)
	}
	return withoutMember(ids, u.Value)
}
