package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notedrop/internal/apperr"
)

const (
	ownerID   int64 = 1
	granteeID int64 = 2
	otherID   int64 = 3
)

var actors = map[string]Actor{
	"anonymous": Anonymous(),
	"owner":     {UserID: ownerID, Username: "alice"},
	"grantee":   {UserID: granteeID, Username: "bob"},
	"stranger":  {UserID: otherID, Username: "carol"},
}

func TestNoteRead_Property(t *testing.T) {
	for _, public := range []bool{false, true} {
		for _, shared := range []bool{false, true} {
			n := NoteResource{ID: 10, OwnerID: ownerID, Public: public}
			if shared {
				n.Grantees = []int64{granteeID}
			}
			for name, a := range actors {
				hasGrant := shared && a.UserID == granteeID
				want := public || a.UserID == ownerID || hasGrant
				got := NoteRead(a, n)
				assert.Equalf(t, want, got.Allowed,
					"actor=%s public=%v shared=%v reason=%s", name, public, shared, got.Reason)
				assert.Equal(t, ActionNoteRead, got.Action)
			}
		}
	}
}

func TestNoteRead_AnonymousPrivateIsDeniedBeforeOwnership(t *testing.T) {
	d := NoteRead(Anonymous(), NoteResource{OwnerID: 0})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonAnonymous, d.Reason)
}

func TestNoteWriteClass_OwnerOnly(t *testing.T) {
	n := NoteResource{ID: 10, OwnerID: ownerID, Public: true, Grantees: []int64{granteeID}}
	checks := map[string]func(Actor, NoteResource) Decision{
		"mutate":  NoteMutate,
		"delete":  NoteDelete,
		"share":   NoteShare,
		"unshare": NoteUnshare,
	}
	for op, check := range checks {
		for name, a := range actors {
			got := check(a, n)
			assert.Equalf(t, name == "owner", got.Allowed, "%s by %s", op, name)
		}
	}
}

func TestSharingIsNotTransitive(t *testing.T) {
	bob := actors["grantee"]
	n := NoteResource{ID: 10, OwnerID: ownerID, Grantees: []int64{granteeID}}

	assert.True(t, NoteRead(bob, n).Allowed)
	assert.False(t, NoteShare(bob, n).Allowed)
	assert.False(t, NoteMutate(bob, n).Allowed)
	assert.False(t, NoteDelete(bob, n).Allowed)

	f := FolderResource{ID: 20, OwnerID: ownerID, Grantees: []int64{granteeID}}
	assert.True(t, FolderRead(bob, f).Allowed)
	assert.False(t, FolderShare(bob, f).Allowed)
	assert.False(t, FolderDelete(bob, f).Allowed)
	assert.False(t, FolderMutate(bob, f).Allowed)
}

func TestFolderRead_Property(t *testing.T) {
	for _, public := range []bool{false, true} {
		for _, shared := range []bool{false, true} {
			f := FolderResource{ID: 20, OwnerID: ownerID, Public: public}
			if shared {
				f.Grantees = []int64{granteeID}
			}
			for name, a := range actors {
				want := public || a.UserID == ownerID || (shared && a.UserID == granteeID)
				assert.Equalf(t, want, FolderRead(a, f).Allowed,
					"actor=%s public=%v shared=%v", name, public, shared)
			}
		}
	}
}

func TestFolderUpload_Property(t *testing.T) {
	for _, public := range []bool{false, true} {
		for _, drop := range []bool{false, true} {
			for _, shared := range []bool{false, true} {
				f := FolderResource{ID: 20, OwnerID: ownerID, Public: public, AllowFileDrop: drop}
				if shared {
					f.Grantees = []int64{granteeID}
				}
				for name, a := range actors {
					want := a.UserID == ownerID ||
						(public && drop) ||
						(shared && a.UserID == granteeID)
					got := FolderUpload(a, f)
					assert.Equalf(t, want, got.Allowed,
						"actor=%s public=%v drop=%v shared=%v", name, public, drop, shared)
				}
			}
		}
	}
}

func TestFolderUpload_PublicWithoutDropDeniesAnonymous(t *testing.T) {
	f := FolderResource{ID: 20, OwnerID: ownerID, Public: true, AllowFileDrop: false}
	d := FolderUpload(Anonymous(), f)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNoPolicy, d.Reason)
}

func TestFolderUpload_DropWithoutPublicIsClosed(t *testing.T) {
	f := FolderResource{ID: 20, OwnerID: ownerID, Public: false, AllowFileDrop: true}
	assert.False(t, FolderUpload(Anonymous(), f).Allowed)
	assert.False(t, PublicDrop(Anonymous(), f).Allowed)
}

func TestFolderUpload_Reasons(t *testing.T) {
	f := FolderResource{ID: 20, OwnerID: ownerID, Public: true, AllowFileDrop: true, Grantees: []int64{granteeID}}
	assert.Equal(t, ReasonOwner, FolderUpload(actors["owner"], f).Reason)
	assert.Equal(t, ReasonPublicDrop, FolderUpload(actors["grantee"], f).Reason)
	assert.Equal(t, ReasonPublicDrop, FolderUpload(Anonymous(), f).Reason)

	f.AllowFileDrop = false
	assert.Equal(t, ReasonGrant, FolderUpload(actors["grantee"], f).Reason)
}

func TestFileRead_DelegatesToFolder(t *testing.T) {
	folder := FolderResource{ID: 20, OwnerID: ownerID, Grantees: []int64{granteeID}}
	file := FileResource{ID: 30, Folder: folder}
	for name, a := range actors {
		want := FolderRead(a, folder).Allowed
		got := FileRead(a, file)
		assert.Equalf(t, want, got.Allowed, "actor=%s", name)
		assert.Equal(t, ActionFileRead, got.Action)
	}
}

func TestFileDelete(t *testing.T) {
	uploader := otherID
	folder := FolderResource{ID: 20, OwnerID: ownerID, Public: true, AllowFileDrop: true, Grantees: []int64{granteeID}}

	withUploader := FileResource{ID: 30, Folder: folder, UploaderID: &uploader}
	assert.True(t, FileDelete(actors["owner"], withUploader).Allowed)
	assert.True(t, FileDelete(actors["stranger"], withUploader).Allowed)
	assert.Equal(t, ReasonUploader, FileDelete(actors["stranger"], withUploader).Reason)
	assert.False(t, FileDelete(actors["grantee"], withUploader).Allowed)
	assert.False(t, FileDelete(Anonymous(), withUploader).Allowed)

	anonymousDrop := FileResource{ID: 31, Folder: folder}
	assert.True(t, FileDelete(actors["owner"], anonymousDrop).Allowed)
	assert.False(t, FileDelete(Anonymous(), anonymousDrop).Allowed)
	assert.False(t, FileDelete(actors["stranger"], anonymousDrop).Allowed)
}

func TestShareGrant(t *testing.T) {
	alice := actors["owner"]
	tests := []struct {
		name   string
		req    GrantRequest
		allow  bool
		reason Reason
	}{
		{"unknown grantee", GrantRequest{GranteeID: 0}, false, ReasonGranteeUnknown},
		{"self", GrantRequest{GranteeID: ownerID}, false, ReasonSelfShare},
		{"duplicate", GrantRequest{GranteeID: granteeID, AlreadyShared: true}, false, ReasonAlreadyShared},
		{"fresh", GrantRequest{GranteeID: granteeID}, true, ReasonGrantable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ShareGrant(alice, tt.req)
			assert.Equal(t, tt.allow, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestDecisionErr(t *testing.T) {
	require.NoError(t, Allow(ActionNoteRead, ReasonPublic).Err())

	err := Deny(ActionNoteRead, ReasonNoPolicy).Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestGrantedTo_IgnoresAnonymous(t *testing.T) {
	n := NoteResource{Grantees: []int64{0}}
	assert.False(t, grantedTo(n, 0))
}
