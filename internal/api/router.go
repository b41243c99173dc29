package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notedrop/internal/auth"
	"github.com/starford/notedrop/internal/service"
)

// formBodyLimit caps JSON and form bodies; uploads use the configured limit.
const formBodyLimit = 10 << 20

// NewRouter creates a chi router with all application routes mounted.
// Sessions are resolved on every request; anonymous requests reach only
// the routes that admit them. maxUploadBytes caps upload bodies.
func NewRouter(svc *service.Service, sessions *auth.Sessions, users auth.UserFinder, maxUploadBytes int64) chi.Router {
	h := NewHandler(svc, sessions)

	r := chi.NewRouter()
	r.Use(auth.Middleware(sessions, users))

	// Uploads are open to anonymous actors on public drop folders.
	r.With(LimitBody(maxUploadBytes)).Post("/upload_file/{id}", h.UploadFiles)

	r.Group(func(r chi.Router) {
		r.Use(LimitBody(formBodyLimit))

		r.Get("/", h.Index)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		// Read paths decide per resource.
		r.Get("/note/{id}", h.GetNote)
		r.Get("/folder/{id}", h.GetFolder)
		r.Get("/upload_file/{id}", h.UploadTarget)
		r.Get("/download_file/{id}", h.DownloadFile)
		r.Get("/public_drop/{id}", h.PublicDrop)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireLogin)

			r.Get("/logout", h.Logout)
			r.Get("/dashboard", h.Dashboard)
			r.Post("/delete_account", h.DeleteAccount)
			r.Get("/api/search_users", h.SearchUsers)

			// Notes.
			r.Get("/create_note", h.NewNote)
			r.Post("/create_note", h.CreateNote)
			r.Get("/edit_note/{id}", h.EditNote)
			r.Post("/edit_note/{id}", h.UpdateNote)
			r.Post("/delete_note/{id}", h.DeleteNote)
			r.Get("/share_note/{id}", h.NoteShares)
			r.Post("/share_note/{id}", h.ShareNote)
			r.Post("/unshare_note/{id}", h.UnshareNote)

			// Folders and files.
			r.Get("/create_folder", h.NewFolder)
			r.Post("/create_folder", h.CreateFolder)
			r.Get("/edit_folder/{id}", h.EditFolder)
			r.Post("/edit_folder/{id}", h.UpdateFolder)
			r.Post("/delete_folder/{id}", h.DeleteFolder)
			r.Get("/share_folder/{id}", h.FolderShares)
			r.Post("/share_folder/{id}", h.ShareFolder)
			r.Post("/unshare_folder/{id}", h.UnshareFolder)
			r.Post("/delete_file/{id}", h.DeleteFile)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
	})
	return r
}
