package api

import (
	"errors"
	"net/http"

	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/auth"
	"github.com/starford/notedrop/internal/service"
)

// Handler holds API route handlers.
type Handler struct {
	svc      *service.Service
	sessions *auth.Sessions
}

// NewHandler creates a new Handler.
func NewHandler(svc *service.Service, sessions *auth.Sessions) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// Index handles GET /.
//
//	@Summary	Newest public notes and folders
//	@Tags		home
//	@Produce	json
//	@Success	200	{object}	service.Home
//	@Router		/ [get]
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	home, err := h.svc.Home(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, home)
}

// Register handles POST /register.
//
//	@Summary	Create an account
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		RegisterRequest	true	"Account"
//	@Success	201		{object}	service.UserSummary
//	@Failure	400		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Router		/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, service.UserSummary{ID: u.ID, Username: u.Username})
}

// Login handles POST /login.
//
//	@Summary	Start a session
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		LoginRequest	true	"Credentials"
//	@Success	200		{object}	service.UserSummary
//	@Failure	401		{object}	errResponse
//	@Router		/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, errorBody("invalid username or password"))
			return
		}
		writeError(w, r, err)
		return
	}
	if err := h.sessions.SetCookie(w, *u); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.UserSummary{ID: u.ID, Username: u.Username})
}

// Logout handles GET /logout.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, statusResponse{Status: "logged out"})
}

// Dashboard handles GET /dashboard.
//
//	@Summary	Own and shared notes and folders
//	@Tags		home
//	@Produce	json
//	@Success	200	{object}	service.Dashboard
//	@Failure	401	{object}	errResponse
//	@Router		/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteAccount handles POST /delete_account. The session ends with the
// account.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAccount(r.Context(), auth.ActorFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	h.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// SearchUsers handles GET /api/search_users.
//
//	@Summary	Find users to share with
//	@Tags		users
//	@Produce	json
//	@Param		q	query	string	true	"Username fragment, at least two characters"
//	@Success	200	{array}	service.UserSummary
//	@Failure	401	{object}	errResponse
//	@Router		/api/search_users [get]
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.SearchUsers(r.Context(), auth.ActorFrom(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
