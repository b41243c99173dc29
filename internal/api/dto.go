package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/models"
	"github.com/starford/notedrop/internal/service"
)

// validate is the singleton validator for request bodies.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// formRequest is a request body that can also arrive as an HTML form.
type formRequest interface {
	fromForm(url.Values)
}

// normalizer cleans up a decoded body before validation, whichever
// encoding it arrived in.
type normalizer interface {
	normalize()
}

// decode reads a JSON or form-encoded body into dst and validates it.
func decode(r *http.Request, dst formRequest) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return err
			}
			return apperr.Invalid("", "invalid JSON body")
		}
	} else {
		if err := r.ParseForm(); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return err
			}
			return apperr.Invalid("", "invalid form body")
		}
		dst.fromForm(r.PostForm)
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	return formatValidationError(validate.Struct(dst))
}

// formatValidationError reports the first failed field.
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return apperr.Invalid(e.Field(), ruleMessage(e))
	}
	return fmt.Errorf("validate request: %w", err)
}

func ruleMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "email":
		return "must be a valid email address"
	default:
		return "is invalid"
	}
}

// checked reads an HTML checkbox value.
func checked(v url.Values, key string) bool {
	switch strings.ToLower(v.Get(key)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// RegisterRequest is the request body for creating an account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email,max=150"`
	Password string `json:"password" validate:"required"`
}

func (r *RegisterRequest) fromForm(v url.Values) {
	r.Username, r.Email, r.Password = v.Get("username"), v.Get("email"), v.Get("password")
}

// LoginRequest is the request body for starting a session.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) fromForm(v url.Values) {
	r.Username, r.Password = v.Get("username"), v.Get("password")
}

// NoteRequest is the request body for creating or editing a note.
type NoteRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	IsPublic bool   `json:"is_public"`
}

func (r *NoteRequest) fromForm(v url.Values) {
	r.Title, r.Content, r.IsPublic = v.Get("title"), v.Get("content"), checked(v, "is_public")
}

func (r *NoteRequest) input() service.NoteInput {
	return service.NoteInput{Title: r.Title, Content: r.Content, IsPublic: r.IsPublic}
}

// FolderRequest is the request body for creating or editing a folder.
type FolderRequest struct {
	Name          string `json:"name" validate:"required,max=150"`
	Description   string `json:"description"`
	IsPublic      bool   `json:"is_public"`
	AllowFileDrop bool   `json:"allow_file_drop"`
}

func (r *FolderRequest) fromForm(v url.Values) {
	r.Name, r.Description = v.Get("name"), v.Get("description")
	r.IsPublic, r.AllowFileDrop = checked(v, "is_public"), checked(v, "allow_file_drop")
}

func (r *FolderRequest) input() service.FolderInput {
	return service.FolderInput{
		Name:          r.Name,
		Description:   r.Description,
		IsPublic:      r.IsPublic,
		AllowFileDrop: r.AllowFileDrop,
	}
}

// ShareRequest names the user a grant is created for or revoked from.
type ShareRequest struct {
	Username string `json:"username" validate:"required,max=150"`
}

func (r *ShareRequest) fromForm(v url.Values) {
	r.Username = v.Get("username")
}

func (r *ShareRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

// SharesResponse lists the grants of a note or folder.
type SharesResponse struct {
	Shares []models.Grant `json:"shares" validate:"required"`
}
