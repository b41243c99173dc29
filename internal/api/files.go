package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/auth"
	"github.com/starford/notedrop/internal/service"
)

// uploadField is the multipart field carrying the files of one upload.
const uploadField = "files[]"

// multipartMemory is how much of a multipart body is buffered in memory
// before parts spill to temporary files.
const multipartMemory = 8 << 20

// UploadTarget handles GET /upload_file/{id}.
func (h *Handler) UploadTarget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	folder, err := h.svc.UploadTarget(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// UploadFiles handles POST /upload_file/{id}.
//
//	@Summary	Upload one or more files into a folder
//	@Tags		files
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		id		path		int		true	"Folder id"
//	@Param		files[]	formData	file	true	"Files to upload"
//	@Success	201		{object}	service.UploadResult
//	@Failure	400		{object}	errResponse
//	@Failure	403		{object}	errResponse
//	@Failure	404		{object}	errResponse
//	@Failure	413		{object}	errResponse
//	@Router		/upload_file/{id} [post]
func (h *Handler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	actor := auth.ActorFrom(r.Context())
	if _, err := h.svc.UploadTarget(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, apperr.Invalid("files", "no files selected"))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files only

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		writeError(w, r, apperr.Invalid("files", "no files selected"))
		return
	}
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll(uploads)
			writeError(w, r, apperr.Storage("open upload part", err))
			return
		}
		uploads = append(uploads, service.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}
	defer closeAll(uploads)

	result, err := h.svc.UploadFiles(r.Context(), actor, id, uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func closeAll(uploads []service.Upload) {
	for _, u := range uploads {
		if f, ok := u.Body.(multipart.File); ok {
			_ = f.Close()
		}
	}
}

// DownloadFile handles GET /download_file/{id}. The file is served under
// its original name.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	file, body, err := h.svc.OpenFile(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", file.FileType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": file.OriginalFilename}))
	w.Header().Set("Content-Length", strconv.FormatInt(file.FileSize, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Error("download failed",
			slog.Int64("file_id", id),
			slog.String("error", err.Error()))
	}
}

// DeleteFile handles POST /delete_file/{id}.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	if _, err := h.svc.DeleteFile(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
