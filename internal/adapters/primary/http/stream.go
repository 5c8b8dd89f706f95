package http

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
)

const writeWait = 10 * time.Second

// streamFeed pousse la projection du viewer à l'ouverture puis à chaque
// changement du FeedStore. Les rafales sont fusionnées : seul le dernier état compte.
func (h *Handler) streamFeed(w http.ResponseWriter, r *http.Request) {
	sortKey, ok := domain.ParseSortKey(r.URL.Query().Get("sort"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown sort key")
		return
	}
	viewer := ViewerFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade a déjà répondu au client
		slog.Debug("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	changed := make(chan struct{}, 1)
	unwatch := h.feed.Watch(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unwatch()

	// Lecture obligatoire pour traiter close/pong ; le client n'envoie rien d'utile
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	slog.Debug("🔌 Feed stream opened", "viewer_id", viewer.ID, "sort", sortKey)

	var lastVersion uint64
	var lastStatus domain.FeedStatus
	send := func(force bool) bool {
		view := h.feed.Timeline(viewer.ID, sortKey)
		if !force && view.Version == lastVersion && view.Status == lastStatus {
			return true
		}
		lastVersion, lastStatus = view.Version, view.Status
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(view); err != nil {
			slog.Debug("Feed stream write failed", "viewer_id", viewer.ID, "error", err)
			return false
		}
		return true
	}

	if !send(true) {
		return
	}

	for {
		select {
		case <-changed:
			if !send(false) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			slog.Debug("Feed stream closed by client", "viewer_id", viewer.ID)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Clients non navigateurs (feedctl, tests)
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}
