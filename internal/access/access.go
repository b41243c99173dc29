// Package access holds the authorization and sharing rules of notedrop.
//
// Every exported decision function is pure: it takes the acting identity and a
// snapshot of the resource (including the ids of users it is shared with) and
// returns a Decision. Nothing here touches the database, the request context
// or the clock, so callers must load the snapshot before asking.
//
// A decision is an ordered list of independent policies. Each policy either
// abstains, permits or forbids; the first policy that does not abstain wins and
// an exhausted list denies.
package access

import (
	"fmt"
	"slices"

	"github.com/starford/notedrop/internal/apperr"
)

// Actor is the identity a request acts as. The zero value is anonymous.
type Actor struct {
	UserID   int64
	Username string
}

// Anonymous returns the actor used for requests without a session.
func Anonymous() Actor { return Actor{} }

// IsAnonymous reports whether the actor carries no user identity.
func (a Actor) IsAnonymous() bool { return a.UserID == 0 }

// Action names the operation a decision was made for.
type Action string

const (
	ActionNoteRead      Action = "note.read"
	ActionNoteMutate    Action = "note.mutate"
	ActionNoteDelete    Action = "note.delete"
	ActionNoteShare     Action = "note.share"
	ActionNoteUnshare   Action = "note.unshare"
	ActionFolderRead    Action = "folder.read"
	ActionFolderUpload  Action = "folder.upload"
	ActionFolderMutate  Action = "folder.mutate"
	ActionFolderDelete  Action = "folder.delete"
	ActionFolderShare   Action = "folder.share"
	ActionFolderUnshare Action = "folder.unshare"
	ActionPublicDrop    Action = "folder.public_drop"
	ActionFileRead      Action = "file.read"
	ActionFileDelete    Action = "file.delete"
	ActionShareGrant    Action = "share.grant"
)

// Reason explains which policy settled a decision. It is meant for logs and
// metrics, never for response bodies.
type Reason string

const (
	ReasonPublic         Reason = "public"
	ReasonOwner          Reason = "owner"
	ReasonGrant          Reason = "grant"
	ReasonPublicDrop     Reason = "public-drop"
	ReasonUploader       Reason = "uploader"
	ReasonAnonymous      Reason = "anonymous"
	ReasonNoPolicy       Reason = "no-matching-policy"
	ReasonGranteeUnknown Reason = "grantee-unknown"
	ReasonSelfShare      Reason = "self-share"
	ReasonAlreadyShared  Reason = "already-shared"
	ReasonGrantable      Reason = "grantable"
)

// Decision is the outcome of one access check.
type Decision struct {
	Action  Action
	Allowed bool
	Reason  Reason
}

// Allow builds a permitting decision.
func Allow(action Action, reason Reason) Decision {
	return Decision{Action: action, Allowed: true, Reason: reason}
}

// Deny builds a refusing decision.
func Deny(action Action, reason Reason) Decision {
	return Decision{Action: action, Allowed: false, Reason: reason}
}

// Err returns nil for an allowed decision and an error wrapping
// apperr.ErrForbidden otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%s denied (%s): %w", d.Action, d.Reason, apperr.ErrForbidden)
}

// NoteResource is the snapshot of a note needed for decisions.
type NoteResource struct {
	ID       int64
	OwnerID  int64
	Public   bool
	Grantees []int64
}

// FolderResource is the snapshot of a folder needed for decisions.
type FolderResource struct {
	ID            int64
	OwnerID       int64
	Public        bool
	AllowFileDrop bool
	Grantees      []int64
}

// FileResource is the snapshot of a file. It has no visibility of its own and
// inherits everything but deletion from its folder.
type FileResource struct {
	ID         int64
	Folder     FolderResource
	UploaderID *int64
}

// GrantRequest describes a share about to be created. GranteeID is zero when
// the requested username does not resolve to a user.
type GrantRequest struct {
	GranteeID     int64
	AlreadyShared bool
}

func (n NoteResource) owner() int64 { return n.OwnerID }
func (n NoteResource) public() bool { return n.Public }
func (n NoteResource) grants() []int64 { return n.Grantees }

func (f FolderResource) owner() int64 { return f.OwnerID }
func (f FolderResource) public() bool { return f.Public }
func (f FolderResource) grants() []int64 { return f.Grantees }

// dropOpen reports whether anyone, anonymous included, may upload.
func (f FolderResource) dropOpen() bool { return f.Public && f.AllowFileDrop }

// sharable is the shape shared by notes and folders.
type sharable interface {
	owner() int64
	public() bool
	grants() []int64
}

func grantedTo(r sharable, userID int64) bool {
	return userID != 0 && slices.Contains(r.grants(), userID)
}
