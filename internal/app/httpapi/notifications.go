package httpapi

import (
	"net/http"
	"strconv"

	"github.com/pawmate/pawmate/internal/app/domain/notification"
)

func (h *handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	filter := notification.Filter{UnreadOnly: unread}
	var err error
	if filter.Limit, err = queryInt(r, "limit", 50); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.app.Notifications.List(r.Context(), actor(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.app.Notifications.UnreadCount(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.app.Notifications.MarkRead(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.app.Notifications.MarkAllRead(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *handler) deleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Notifications.Delete(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
