package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/gorilla/websocket"

	"github.com/jupiterclapton/cenackle/livefeed/internal/adapters/secondary/docstore"
	"github.com/jupiterclapton/cenackle/livefeed/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/cenackle/livefeed/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/services"
)

// tokenTable : "token-<id>" -> viewer
type tokenTable map[string]domain.Viewer

func (t tokenTable) Validate(token string) (domain.Viewer, error) {
	v, ok := t[token]
	if !ok {
		return domain.Viewer{}, errors.New("unknown token")
	}
	return v, nil
}

var tokens = tokenTable{
	"token-A": {ID: "A", Name: "Ann"},
	"token-V": {ID: "V", Name: "Val"},
}

type fixture struct {
	handler http.Handler
	repo    *repository.MemoryRepo
	store   *services.FeedStore
}

func newFixture(t *testing.T, seed ...domain.PostRecord) *fixture {
	t.Helper()
	repo := repository.NewMemoryRepo()
	for _, p := range seed {
		repo.Put(p)
	}
	remote := docstore.New(repo, eventbroker.NewMemoryNotifier(), docstore.Options{})

	store := services.NewFeedStore()
	bridge := services.NewSubscriptionBridge(remote, store)
	h, err := bridge.Start(context.Background())
	if err != nil {
		t.Fatalf("start bridge: %v", err)
	}
	t.Cleanup(func() { bridge.Stop(h) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bridge.WaitLoaded(ctx); err != nil {
		t.Fatalf("wait loaded: %v", err)
	}

	api := NewHandler(
		services.NewFeedService(store, bridge),
		services.NewReactionMutator(store, remote),
		services.NewPostService(store, remote),
		nil,
	)
	return &fixture{
		handler: AuthMiddleware(tokens)(api.Routes()),
		repo:    repo,
		store:   store,
	}
}

func (f *fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) domain.FeedView {
	t.Helper()
	var view domain.FeedView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v (%s)", err, rec.Body.String())
	}
	return view
}

var created = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func seedPosts() []domain.PostRecord {
	return []domain.PostRecord{
		{ID: "mine", Title: "mine", Author: domain.Author{ID: "V"}, CreatedAt: created},
		{ID: "old", Title: "old", Author: domain.Author{ID: "A"}, CreatedAt: created.Add(-time.Hour), Likes: []string{"A", "B"}},
		{ID: "new", Title: "new", Author: domain.Author{ID: "A"}, CreatedAt: created.Add(-time.Minute)},
	}
}

func TestGetFeedPartitionsAndSorts(t *testing.T) {
	f := newFixture(t, seedPosts()...)

	rec := f.do("GET", "/feed?sort=liked", "token-V", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	view := decodeView(t, rec)
	assert.Equal(t, domain.StatusLive, view.Status)
	assert.Equal(t, domain.SortMostLiked, view.Sort)
	assert.Equal(t, 1, len(view.OwnPosts))
	assert.Equal(t, true, view.OwnPosts[0].CanEdit)
	assert.Equal(t, "old", view.OtherPosts[0].ID)
	assert.Equal(t, "new", view.OtherPosts[1].ID)
}

func TestGetFeedAnonymousSeesEverythingAsOthers(t *testing.T) {
	f := newFixture(t, seedPosts()...)

	view := decodeView(t, f.do("GET", "/feed", "", ""))
	assert.Equal(t, 0, len(view.OwnPosts))
	assert.Equal(t, 3, len(view.OtherPosts))
	assert.Equal(t, "mine", view.OtherPosts[0].ID)
}

func TestGetFeedRejectsUnknownSort(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/feed?sort=random", "", "").Code)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do("GET", "/feed", "unknown", "").Code)

	req := httptest.NewRequest("GET", "/feed", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestToggleLikeIsOptimistic(t *testing.T) {
	f := newFixture(t, seedPosts()...)

	rec := f.do("POST", "/posts/new/like", "token-V", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	got, _ := f.store.Get("new")
	assert.Equal(t, []string{"V"}, got.Likes)

	rec = f.do("POST", "/posts/new/dislike", "token-V", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	got, _ = f.store.Get("new")
	assert.Equal(t, 0, len(got.Likes))
	assert.Equal(t, []string{"V"}, got.Dislikes)
}

func TestToggleLikeAnonymousIsNoOp(t *testing.T) {
	f := newFixture(t, seedPosts()...)

	rec := f.do("POST", "/posts/new/like", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	got, _ := f.store.Get("new")
	assert.Equal(t, 0, len(got.Likes))
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)

	rec := f.do("POST", "/posts", "token-V", `{"title":"hello","description":"world"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var out createdResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	assert.NotEqual(t, "", out.ID)

	all, _ := f.repo.ListAll(context.Background())
	assert.Equal(t, 1, len(all))
	assert.Equal(t, "Val", all[0].Author.Name)

	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/posts", "token-V", `{"title":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/posts", "token-V", `not json`).Code)
	assert.Equal(t, http.StatusNoContent, f.do("POST", "/posts", "", `{"title":"x"}`).Code)
}

func TestEditAndDeleteRequireAuthor(t *testing.T) {
	f := newFixture(t, seedPosts()...)

	assert.Equal(t, http.StatusForbidden, f.do("PATCH", "/posts/mine", "token-A", `{"title":"x"}`).Code)
	assert.Equal(t, http.StatusForbidden, f.do("DELETE", "/posts/mine", "token-A", "").Code)

	assert.Equal(t, http.StatusNoContent, f.do("PATCH", "/posts/mine", "token-V", `{"title":"edited","description":"d"}`).Code)
	got, _ := f.store.Get("mine")
	assert.Equal(t, "edited", got.Title)

	assert.Equal(t, http.StatusNoContent, f.do("DELETE", "/posts/mine", "token-V", "").Code)
	all, _ := f.repo.ListAll(context.Background())
	assert.Equal(t, 2, len(all))
}

func TestMapDomainError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrTitleTooLong, http.StatusBadRequest},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrPostNotFound, http.StatusNotFound},
		{errors.Join(domain.ErrRemoteWrite, errors.New("timeout")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		status, _ := mapDomainError(c.err)
		assert.Equal(t, c.want, status)
	}
}

func TestStreamPushesOnChange(t *testing.T) {
	f := newFixture(t, seedPosts()...)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed/stream?sort=newest&access_token=token-V"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first domain.FeedView
	assert.Equal(t, nil, conn.ReadJSON(&first))
	assert.Equal(t, 1, len(first.OwnPosts))
	assert.Equal(t, false, first.OtherPosts[0].HasLiked)

	_ = f.do("POST", "/posts/new/like", "token-V", "")

	var next domain.FeedView
	assert.Equal(t, nil, conn.ReadJSON(&next))
	assert.Equal(t, true, next.Version > first.Version)
	assert.Equal(t, "new", next.OtherPosts[0].ID)
	assert.Equal(t, true, next.OtherPosts[0].HasLiked)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})

	req := httptest.NewRequest("GET", "/feed/stream", nil)
	assert.Equal(t, true, check(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.Equal(t, true, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.Equal(t, false, check(req))

	assert.Equal(t, true, originChecker(nil)(req))
}
