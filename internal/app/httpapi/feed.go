package httpapi

import (
	"net/http"

	"github.com/pawmate/pawmate/internal/app/domain/feed"
	feedsvc "github.com/pawmate/pawmate/internal/app/services/feed"
)

type postRequest struct {
	Kind    feed.Kind     `json:"kind" validate:"omitempty,oneof=post vacancy"`
	Content string        `json:"content" validate:"required"`
	Vacancy *feed.Vacancy `json:"vacancy"`
}

type postPatchRequest struct {
	Content string `json:"content" validate:"required"`
}

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}

func (h *handler) listPosts(w http.ResponseWriter, r *http.Request) {
	filter := feed.Filter{
		Kind:     feed.Kind(r.URL.Query().Get("kind")),
		AuthorID: r.URL.Query().Get("author_id"),
	}
	var err error
	if filter.Limit, err = queryInt(r, "limit", 20); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.app.Feed.ListPosts(r.Context(), actor(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) createPost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.app.Feed.CreatePost(r.Context(), actor(r), req.Kind, req.Content, req.Vacancy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) getPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Feed.GetPost(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updatePost(w http.ResponseWriter, r *http.Request) {
	var req postPatchRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.app.Feed.UpdatePost(r.Context(), actor(r), pathVar(r, "id"), req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Feed.DeletePost(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// attachMedia accepts multipart/form-data with a "file" part.
func (h *handler) attachMedia(w http.ResponseWriter, r *http.Request) {
	file, err := formFile(w, r, "file", feedsvc.MaxMediaBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	m, err := h.app.Feed.AttachMedia(r.Context(), actor(r), pathVar(r, "id"), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) listComments(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Feed.Comments(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) addComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.app.Feed.AddComment(r.Context(), actor(r), pathVar(r, "id"), req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Feed.DeleteComment(r.Context(), actor(r), pathVar(r, "id"), pathVar(r, "comment")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) like(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Feed.Like(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) unlike(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Feed.Unlike(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
