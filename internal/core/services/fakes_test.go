package services

import (
	"context"
	"sync"
	"time"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
)

// fakeRemote enregistre les appels et expose la souscription au test.
type fakeRemote struct {
	mu        sync.Mutex
	updates   map[string][][]domain.FieldUpdate
	deleted   []string
	created   []domain.NewPost
	writeErr  error
	subErr    error
	onSnap    func([]domain.PostRecord)
	onErr     func(error)
	cancelled bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{updates: make(map[string][][]domain.FieldUpdate)}
}

func (f *fakeRemote) Subscribe(ctx context.Context, onSnapshot func([]domain.PostRecord), onError func(error)) (func(), error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.mu.Lock()
	f.onSnap = onSnapshot
	f.onErr = onError
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.cancelled = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeRemote) push(records []domain.PostRecord) {
	f.mu.Lock()
	fn := f.onSnap
	f.mu.Unlock()
	fn(records)
}

func (f *fakeRemote) pushErr(err error) {
	f.mu.Lock()
	fn := f.onErr
	f.mu.Unlock()
	fn(err)
}

func (f *fakeRemote) CreateDocument(ctx context.Context, post domain.NewPost) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return "", f.writeErr
	}
	f.created = append(f.created, post)
	return "generated-id", nil
}

func (f *fakeRemote) UpdateFields(ctx context.Context, postID string, updates []domain.FieldUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.updates[postID] = append(f.updates[postID], updates)
	return nil
}

func (f *fakeRemote) DeleteDocument(ctx context.Context, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deleted = append(f.deleted, postID)
	return nil
}

var baseTime = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func post(id, authorID string, ageMinutes int, likes, dislikes []string) domain.PostRecord {
	return domain.PostRecord{
		ID:          id,
		Title:       "title " + id,
		Description: "description " + id,
		Author:      domain.Author{ID: authorID, Name: "name " + authorID},
		CreatedAt:   baseTime.Add(-time.Duration(ageMinutes) * time.Minute),
		Likes:       likes,
		Dislikes:    dislikes,
	}
}

func ids(posts []domain.PostRecord) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
