package httpapi

import (
	"net/http"
	"time"

	apperrors "github.com/pawmate/pawmate/internal/errors"
)

type messageRequest struct {
	Body string `json:"body" validate:"required"`
}

type roomResponse struct {
	Room    string   `json:"room"`
	Members []string `json:"members"`
}

func (h *handler) directRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.app.Chat.DirectRoom(r.Context(), actor(r), pathVar(r, "user"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	members, err := h.app.Chat.Members(r.Context(), room)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Room: room, Members: members})
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	var before time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, r, apperrors.InvalidInput("before must be an RFC 3339 timestamp"))
			return
		}
		before = t
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.app.Chat.History(r.Context(), actor(r), pathVar(r, "room"), before, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := h.app.Chat.Send(r.Context(), actor(r), pathVar(r, "room"), req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// chatSocket upgrades to a websocket session. Browsers cannot set headers on
// the handshake, so the token may also arrive as ?token=.
func (h *handler) chatSocket(w http.ResponseWriter, r *http.Request) {
	u, room := actor(r), pathVar(r, "room")
	if err := h.app.Chat.Authorize(r.Context(), u, room); err != nil {
		writeError(w, r, err)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		h.log.WithContext(r.Context()).WithError(err).Debug("websocket upgrade failed")
		return
	}
	if err := h.app.Chat.Serve(r.Context(), u, room, conn); err != nil {
		h.log.WithContext(r.Context()).WithError(err).WithField("room", room).Debug("chat session ended")
	}
}
