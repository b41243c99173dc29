package api

import (
	"net/http"

	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/auth"
)

// NewFolder handles GET /create_folder with the empty form.
func (h *Handler) NewFolder(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, FolderRequest{})
}

// CreateFolder handles POST /create_folder.
//
//	@Summary	Create a folder
//	@Tags		folders
//	@Accept		json
//	@Produce	json
//	@Param		body	body		FolderRequest	true	"Folder"
//	@Success	201		{object}	models.Folder
//	@Failure	400		{object}	errResponse
//	@Router		/create_folder [post]
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	folder, err := h.svc.CreateFolder(r.Context(), auth.ActorFrom(r.Context()), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// GetFolder handles GET /folder/{id}.
//
//	@Summary	View a folder and its files
//	@Tags		folders
//	@Produce	json
//	@Param		id	path		int	true	"Folder id"
//	@Success	200	{object}	service.FolderView
//	@Failure	403	{object}	errResponse
//	@Failure	404	{object}	errResponse
//	@Router		/folder/{id} [get]
func (h *Handler) GetFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	view, err := h.svc.ViewFolder(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// EditFolder handles GET /edit_folder/{id}.
func (h *Handler) EditFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	folder, err := h.svc.EditableFolder(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// UpdateFolder handles POST /edit_folder/{id}.
func (h *Handler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	var req FolderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	folder, err := h.svc.UpdateFolder(r.Context(), auth.ActorFrom(r.Context()), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// DeleteFolder handles POST /delete_folder/{id}.
//
//	@Summary	Delete a folder with its shares, files and stored bytes
//	@Tags		folders
//	@Param		id	path	int	true	"Folder id"
//	@Success	204	"Folder deleted"
//	@Failure	403	{object}	errResponse
//	@Failure	404	{object}	errResponse
//	@Router		/delete_folder/{id} [post]
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	if err := h.svc.DeleteFolder(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FolderShares handles GET /share_folder/{id}.
func (h *Handler) FolderShares(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	grants, err := h.svc.FolderShares(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SharesResponse{Shares: grants})
}

// ShareFolder handles POST /share_folder/{id}.
func (h *Handler) ShareFolder(w http.ResponseWriter, r *http.Request) {
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
	share, err := h.svc.ShareFolder(r.Context(), auth.ActorFrom(r.Context()), id, req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, share)
}

// UnshareFolder handles POST /unshare_folder/{id}.
func (h *Handler) UnshareFolder(w http.ResponseWriter, r *http.Request) {
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
	if err := h.svc.UnshareFolder(r.Context(), auth.ActorFrom(r.Context()), id, req.Username); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublicDrop handles GET /public_drop/{id}. Folders that are not open for
// drops answer 404.
func (h *Handler) PublicDrop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	folder, err := h.svc.PublicDrop(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}
