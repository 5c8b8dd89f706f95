package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

const maxBodyBytes = 64 << 10

// Handler expose le flux et ses mutations en REST + websocket.
type Handler struct {
	feed      ports.FeedReader
	reactions ports.ReactionService
	posts     ports.PostService

	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// NewHandler : allowedOrigins vide ou contenant "*" accepte toute origine websocket.
func NewHandler(feed ports.FeedReader, reactions ports.ReactionService, posts ports.PostService, allowedOrigins []string) *Handler {
	h := &Handler{
		feed:         feed,
		reactions:    reactions,
		posts:        posts,
		pingInterval: 30 * time.Second,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Routes enregistre les endpoints sur un nouveau mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /feed", h.getFeed)
	mux.HandleFunc("GET /feed/stream", h.streamFeed)
	mux.HandleFunc("POST /posts", h.createPost)
	mux.HandleFunc("PATCH /posts/{id}", h.editPost)
	mux.HandleFunc("DELETE /posts/{id}", h.deletePost)
	mux.HandleFunc("POST /posts/{id}/like", h.toggleLike)
	mux.HandleFunc("POST /posts/{id}/dislike", h.toggleDislike)
	return mux
}

type postInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type createdResponse struct {
	ID string `json:"id"`
}

func (h *Handler) getFeed(w http.ResponseWriter, r *http.Request) {
	sortKey, ok := domain.ParseSortKey(r.URL.Query().Get("sort"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown sort key")
		return
	}
	viewer := ViewerFromContext(r.Context())
	writeJSON(w, http.StatusOK, h.feed.Timeline(viewer.ID, sortKey))
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	in, err := decodePostInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.posts.CreatePost(r.Context(), ViewerFromContext(r.Context()), in.Title, in.Description)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if id == "" {
		// Anonyme : rien n'a été écrit
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *Handler) editPost(w http.ResponseWriter, r *http.Request) {
	in, err := decodePostInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	viewer := ViewerFromContext(r.Context())
	if err := h.posts.EditPost(r.Context(), viewer.ID, r.PathValue("id"), in.Title, in.Description); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())
	if err := h.posts.DeletePost(r.Context(), viewer.ID, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())
	if err := h.reactions.ToggleLike(r.Context(), r.PathValue("id"), viewer.ID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggleDislike(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())
	if err := h.reactions.ToggleDislike(r.Context(), r.PathValue("id"), viewer.ID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodePostInput(w http.ResponseWriter, r *http.Request) (postInput, error) {
	var in postInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return postInput{}, errors.New("invalid JSON body")
	}
	return in, nil
}
