package api

import (
	"net/http"

	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/auth"
)

// NewNote handles GET /create_note with the empty form.
func (h *Handler) NewNote(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NoteRequest{})
}

// CreateNote handles POST /create_note.
//
//	@Summary	Create a note
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		body	body		NoteRequest	true	"Note"
//	@Success	201		{object}	models.Note
//	@Failure	400		{object}	errResponse
//	@Router		/create_note [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	note, err := h.svc.CreateNote(r.Context(), auth.ActorFrom(r.Context()), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// GetNote handles GET /note/{id}.
//
//	@Summary	View a note
//	@Tags		notes
//	@Produce	json
//	@Param		id	path		int	true	"Note id"
//	@Success	200	{object}	service.NoteView
//	@Failure	403	{object}	errResponse
//	@Failure	404	{object}	errResponse
//	@Router		/note/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	view, err := h.svc.ViewNote(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// EditNote handles GET /edit_note/{id}.
func (h *Handler) EditNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	note, err := h.svc.EditableNote(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles POST /edit_note/{id}.
//
//	@Summary	Edit a note
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int			true	"Note id"
//	@Param		body	body		NoteRequest	true	"Note"
//	@Success	200		{object}	models.Note
//	@Failure	400		{object}	errResponse
//	@Failure	403		{object}	errResponse
//	@Failure	404		{object}	errResponse
//	@Router		/edit_note/{id} [post]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	var req NoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), auth.ActorFrom(r.Context()), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles POST /delete_note/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	if err := h.svc.DeleteNote(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NoteShares handles GET /share_note/{id}.
func (h *Handler) NoteShares(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	grants, err := h.svc.NoteShares(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SharesResponse{Shares: grants})
}

// ShareNote handles POST /share_note/{id}.
//
//	@Summary	Grant a user read access to a note
//	@Tags		sharing
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int				true	"Note id"
//	@Param		body	body		ShareRequest	true	"Grantee"
//	@Success	201		{object}	models.NoteShare
//	@Failure	400		{object}	errResponse
//	@Failure	403		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Router		/share_note/{id} [post]
func (h *Handler) ShareNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	var req ShareRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	share, err := h.svc.ShareNote(r.Context(), auth.ActorFrom(r.Context()), id, req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, share)
}

// UnshareNote handles POST /unshare_note/{id}.
func (h *Handler) UnshareNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	var req ShareRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.UnshareNote(r.Context(), auth.ActorFrom(r.Context()), id, req.Username); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
