package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notedrop/internal/access"
	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/metrics"
	"github.com/starford/notedrop/internal/models"
	"github.com/starford/notedrop/internal/storage"
	"github.com/starford/notedrop/internal/store"
	"github.com/starford/notedrop/internal/testutil"
)

type fixture struct {
	svc       *Service
	repo      store.Repository
	uploadDir string
	alice     access.Actor
	bob       access.Actor
	carol     access.Actor
}

// newFixture builds a service on a temporary database and upload directory
// with three users. wrap, if non-nil, decorates the repository.
func newFixture(t *testing.T, wrap func(store.Repository) store.Repository) *fixture {
	t.Helper()
	var repo store.Repository = testutil.TestDB(t)
	dir, fs := testutil.TestUploads(t)

	actor := func(name string) access.Actor {
		u := testutil.CreateUser(t, repo, name)
		return access.Actor{UserID: u.ID, Username: u.Username}
	}
	f := &fixture{uploadDir: dir, alice: actor("alice"), bob: actor("bob"), carol: actor("carol")}
	if wrap != nil {
		repo = wrap(repo)
	}
	f.repo = repo
	f.svc = New(repo, fs, WithMetrics(metrics.New()))
	return f
}

func upload(name, body string) Upload {
	return Upload{Filename: name, ContentType: "text/plain", Body: strings.NewReader(body)}
}

func TestPrivateNoteSharedWithBob(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	note, err := f.svc.CreateNote(ctx, f.alice, NoteInput{Title: "Plan", Content: "secret"})
	require.NoError(t, err)
	_, err = f.svc.ShareNote(ctx, f.alice, note.ID, "bob")
	require.NoError(t, err)

	view, err := f.svc.ViewNote(ctx, f.bob, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", view.Note.Content)
	assert.Equal(t, "alice", view.Owner)
	assert.False(t, view.CanEdit)
	assert.Empty(t, view.Shares, "grantees do not see the grant list")

	_, err = f.svc.UpdateNote(ctx, f.bob, note.ID, NoteInput{Title: "Plan", Content: "mine now"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.ViewNote(ctx, f.carol, note.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.ViewNote(ctx, access.Anonymous(), note.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	ownerView, err := f.svc.ViewNote(ctx, f.alice, note.ID)
	require.NoError(t, err)
	assert.True(t, ownerView.CanEdit)
	require.Len(t, ownerView.Shares, 1)
	assert.Equal(t, "bob", ownerView.Shares[0].Username)
}

func TestSharingIsNotTransitive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	note, err := f.svc.CreateNote(ctx, f.alice, NoteInput{Title: "Plan", Content: "x"})
	require.NoError(t, err)
	_, err = f.svc.ShareNote(ctx, f.alice, note.ID, "bob")
	require.NoError(t, err)

	_, err = f.svc.ShareNote(ctx, f.bob, note.ID, "carol")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteNote(ctx, f.bob, note.ID), apperr.ErrForbidden)
	_, err = f.svc.EditableNote(ctx, f.bob, note.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.ViewNote(ctx, f.carol, note.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestShareGrantConditions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	note, err := f.svc.CreateNote(ctx, f.alice, NoteInput{Title: "Plan", Content: "x"})
	require.NoError(t, err)

	_, err = f.svc.ShareNote(ctx, f.alice, note.ID, "bob")
	require.NoError(t, err)
	_, err = f.svc.ShareNote(ctx, f.alice, note.ID, "bob")
	assert.ErrorIs(t, err, apperr.ErrAlreadyShared)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	grants, err := f.svc.NoteShares(ctx, f.alice, note.ID)
	require.NoError(t, err)
	assert.Len(t, grants, 1, "exactly one grant remains")

	_, err = f.svc.ShareNote(ctx, f.alice, note.ID, "alice")
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "username", verr.Field)

	_, err = f.svc.ShareNote(ctx, f.alice, note.ID, "mallory")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.svc.UnshareNote(ctx, f.alice, note.ID, "bob"))
	_, err = f.svc.ViewNote(ctx, f.bob, note.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.ErrorIs(t, f.svc.UnshareNote(ctx, f.alice, note.ID, "bob"), apperr.ErrNotFound)
}

func TestMissingResourcesAreNotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.ViewNote(ctx, f.alice, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.ViewFolder(ctx, f.alice, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, _, err = f.svc.OpenFile(ctx, f.alice, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAnonymousDropAndOwnerDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	drop, err := f.svc.CreateFolder(ctx, f.alice, FolderInput{Name: "drop", IsPublic: true, AllowFileDrop: true})
	require.NoError(t, err)
	_, err = f.svc.PublicDrop(ctx, access.Anonymous(), drop.ID)
	require.NoError(t, err)

	res, err := f.svc.UploadFiles(ctx, access.Anonymous(), drop.ID, []Upload{upload("report.pdf", "%PDF-1.7")})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	file := res.Files[0]
	assert.NotEqual(t, "report.pdf", file.Filename)
	assert.Equal(t, "report.pdf", file.OriginalFilename)
	assert.Equal(t, models.AnonymousUploader, file.UploadedBy)
	assert.Nil(t, file.UploadedByUserID)
	assert.Equal(t, int64(8), file.FileSize)
	_, err = os.Stat(filepath.Join(f.uploadDir, file.Filepath))
	require.NoError(t, err)

	// public folder: anyone can download
	rec, rc, err := f.svc.OpenFile(ctx, access.Anonymous(), file.ID)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "%PDF-1.7", string(data))
	assert.Equal(t, "report.pdf", rec.OriginalFilename)

	_, err = f.svc.DeleteFile(ctx, access.Anonymous(), file.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.DeleteFile(ctx, f.alice, file.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, testutil.CountFiles(t, f.uploadDir))
	_, err = f.repo.FileByID(ctx, file.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.repo.FolderByID(ctx, drop.ID)
	assert.NoError(t, err, "folder untouched")
}

func TestPublicFolderWithoutDrop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	folder, err := f.svc.CreateFolder(ctx, f.alice, FolderInput{Name: "gallery", IsPublic: true})
	require.NoError(t, err)

	_, err = f.svc.ViewFolder(ctx, access.Anonymous(), folder.ID)
	require.NoError(t, err, "public folders are readable")
	_, err = f.svc.UploadFiles(ctx, access.Anonymous(), folder.ID, []Upload{upload("a.txt", "a")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.UploadFiles(ctx, f.carol, folder.ID, []Upload{upload("a.txt", "a")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.PublicDrop(ctx, access.Anonymous(), folder.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 0, testutil.CountFiles(t, f.uploadDir))
}

func TestGranteeUploadAndRetract(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	folder, err := f.svc.CreateFolder(ctx, f.alice, FolderInput{Name: "team"})
	require.NoError(t, err)
	_, err = f.svc.ShareFolder(ctx, f.alice, folder.ID, "bob")
	require.NoError(t, err)

	res, err := f.svc.UploadFiles(ctx, f.bob, folder.ID, []Upload{upload("notes.txt", "hi"), upload("b.txt", "yo")})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "bob", res.Files[0].UploadedBy)
	require.NotNil(t, res.Files[0].UploadedByUserID)
	assert.Equal(t, f.bob.UserID, *res.Files[0].UploadedByUserID)

	view, err := f.svc.ViewFolder(ctx, f.bob, folder.ID)
	require.NoError(t, err)
	assert.Len(t, view.Files, 2)
	assert.True(t, view.CanUpload)
	assert.False(t, view.CanManage)

	_, err = f.svc.DeleteFile(ctx, f.carol, res.Files[0].ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, _, err = f.svc.OpenFile(ctx, f.carol, res.Files[0].ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.DeleteFile(ctx, f.bob, res.Files[0].ID)
	require.NoError(t, err, "uploader may retract")
	_, err = f.svc.DeleteFile(ctx, f.alice, res.Files[1].ID)
	require.NoError(t, err, "folder owner may delete")
	assert.Equal(t, 0, testutil.CountFiles(t, f.uploadDir))

	_, err = f.svc.ShareFolder(ctx, f.bob, folder.ID, "carol")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteFolder(ctx, f.bob, folder.ID), apperr.ErrForbidden)
}

func TestDeleteFolderRemovesBytes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	folder, err := f.svc.CreateFolder(ctx, f.alice, FolderInput{Name: "docs"})
	require.NoError(t, err)
	_, err = f.svc.ShareFolder(ctx, f.alice, folder.ID, "bob")
	require.NoError(t, err)
	res, err := f.svc.UploadFiles(ctx, f.alice, folder.ID, []Upload{upload("a.txt", "a"), upload("b.md", "b"), upload("c.csv", "c")})
	require.NoError(t, err)
	require.Equal(t, 3, testutil.CountFiles(t, f.uploadDir))

	require.NoError(t, f.svc.DeleteFolder(ctx, f.alice, folder.ID))
	assert.Equal(t, 0, testutil.CountFiles(t, f.uploadDir))
	for _, file := range res.Files {
		_, err := f.repo.FileByID(ctx, file.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	}
	shared, err := f.repo.FoldersSharedWith(ctx, f.bob.UserID)
	require.NoError(t, err)
	assert.Empty(t, shared)
}

// rollbackAfterDelete lets the delete hook run and then fails the commit.
type rollbackAfterDelete struct {
	store.Repository
}

func (r rollbackAfterDelete) DeleteFolder(ctx context.Context, id int64, beforeCommit func([]models.File) error) error {
	return r.Repository.DeleteFolder(ctx, id, func(files []models.File) error {
		if err := beforeCommit(files); err != nil {
			return err
		}
		return errors.New("store: commit: database is locked")
	})
}

func TestDeleteFolderRollbackKeepsBytes(t *testing.T) {
	f := newFixture(t, func(r store.Repository) store.Repository { return rollbackAfterDelete{r} })
	ctx := context.Background()
	folder, err := f.svc.CreateFolder(ctx, f.alice, FolderInput{Name: "docs"})
	require.NoError(t, err)
	res, err := f.svc.UploadFiles(ctx, f.alice, folder.ID, []Upload{upload("a.txt", "kept")})
	require.NoError(t, err)

	require.Error(t, f.svc.DeleteFolder(ctx, f.alice, folder.ID))
	assert.Equal(t, 1, testutil.CountFiles(t, f.uploadDir))

	_, rc, err := f.svc.OpenFile(ctx, f.alice, res.Files[0].ID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(body))
}

// stuckDeletes refuses to remove any bytes.
type stuckDeletes struct {
	storage.Provider
}

func (stuckDeletes) Delete(context.Context, string) error {
	return errors.New("permission denied")
}

func TestDeleteFolderSurvivesStorageFailure(t *testing.T) {
	repo := testutil.TestDB(t)
	dir, fs := testutil.TestUploads(t)
	alice := testutil.CreateUser(t, repo, "alice")
	actor := access.Actor{UserID: alice.ID, Username: alice.Username}
	svc := New(repo, stuckDeletes{fs})
	ctx := context.Background()

	folder, err := svc.CreateFolder(ctx, actor, FolderInput{Name: "docs"})
	require.NoError(t, err)
	res, err := svc.UploadFiles(ctx, actor, folder.ID, []Upload{upload("a.txt", "a")})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFolder(ctx, actor, folder.ID))
	_, err = repo.FileByID(ctx, res.Files[0].ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 1, testutil.CountFiles(t, dir), "orphaned bytes stay on disk")
}

// failingCommit fails every CreateFiles call as a commit failure would.
type failingCommit struct {
	store.Repository
}

func (failingCommit) CreateFiles(context.Context, []models.File) error {
	return errors.New("store: commit: database is locked")
}

func TestUploadCompensatesFailedCommit(t *testing.T) {
	f := newFixture(t, func(r store.Repository) store.Repository { return failingCommit{r} })
	ctx := context.Background()
	folder, err := f.svc.CreateFolder(ctx, f.alice, FolderInput{Name: "docs"})
	require.NoError(t, err)

	_, err = f.svc.UploadFiles(ctx, f.alice, folder.ID, []Upload{upload("a.txt", "a"), upload("b.txt", "b")})
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.Equal(t, 0, testutil.CountFiles(t, f.uploadDir), "no orphaned bytes")

	files, err := f.repo.FilesInFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestUploadCompensatesFailedWrite(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	folder, err := f.svc.CreateFolder(ctx, f.alice, FolderInput{Name: "docs"})
	require.NoError(t, err)

	_, err = f.svc.UploadFiles(ctx, f.alice, folder.ID, []Upload{
		upload("a.txt", "a"),
		{Filename: "b.txt", Body: brokenReader{}},
	})
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.Equal(t, 0, testutil.CountFiles(t, f.uploadDir))
}

func TestUploadSkipsUnusableNames(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	folder, err := f.svc.CreateFolder(ctx, f.alice, FolderInput{Name: "docs"})
	require.NoError(t, err)

	res, err := f.svc.UploadFiles(ctx, f.alice, folder.ID, []Upload{upload("README", "x"), upload("../../etc/hosts.txt", "y")})
	require.NoError(t, err)
	assert.Equal(t, []string{"README"}, res.Skipped)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "hosts.txt", res.Files[0].OriginalFilename)
	assert.Equal(t, "text/plain", res.Files[0].FileType)

	_, err = f.svc.UploadFiles(ctx, f.alice, folder.ID, []Upload{upload("", "x")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUploadAcceptsDottedNamesWithoutExtension(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	folder, err := f.svc.CreateFolder(ctx, f.alice, FolderInput{Name: "docs"})
	require.NoError(t, err)

	res, err := f.svc.UploadFiles(ctx, f.alice, folder.ID, []Upload{upload("report.", "r"), upload(".bashrc", "b"), upload("..", "x")})
	require.NoError(t, err)
	assert.Equal(t, []string{".."}, res.Skipped)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "report", res.Files[0].OriginalFilename)
	assert.Equal(t, "bashrc", res.Files[1].OriginalFilename)
	assert.True(t, strings.HasPrefix(res.Files[0].Filename, "report_"), res.Files[0].Filename)
	assert.Equal(t, 2, testutil.CountFiles(t, f.uploadDir))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, RegisterInput{Username: "dave", Email: "dave@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "dave", Email: "dave2@example.com", Password: "x"})
	assert.ErrorIs(t, err, apperr.ErrDuplicateUsername)
	_, err = f.svc.Register(ctx, RegisterInput{Username: "dave2", Email: "dave@example.com", Password: "x"})
	assert.ErrorIs(t, err, apperr.ErrDuplicateEmail)
	_, err = f.svc.Register(ctx, RegisterInput{Username: "erin", Email: "not-an-email", Password: "x"})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
	_, err = f.svc.Register(ctx, RegisterInput{Username: "erin", Email: "erin@example.com"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := f.svc.Authenticate(ctx, "dave", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	_, err = f.svc.Authenticate(ctx, "dave", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.svc.Authenticate(ctx, "nobody", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	got, err := f.svc.SearchUsers(ctx, f.alice, "a")
	require.NoError(t, err)
	assert.Empty(t, got, "short queries return nothing")

	got, err = f.svc.SearchUsers(ctx, f.alice, "AR")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "carol", got[0].Username)

	got, err = f.svc.SearchUsers(ctx, f.alice, "al")
	require.NoError(t, err)
	assert.Empty(t, got, "caller is excluded")

	_, err = f.svc.SearchUsers(ctx, access.Anonymous(), "bob")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestHomeAndDashboard(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	pub, err := f.svc.CreateNote(ctx, f.alice, NoteInput{Title: "Hello", Content: "world", IsPublic: true})
	require.NoError(t, err)
	priv, err := f.svc.CreateNote(ctx, f.alice, NoteInput{Title: "Diary", Content: "shh"})
	require.NoError(t, err)
	_, err = f.svc.CreateFolder(ctx, f.bob, FolderInput{Name: "open", IsPublic: true})
	require.NoError(t, err)
	_, err = f.svc.ShareNote(ctx, f.alice, priv.ID, "bob")
	require.NoError(t, err)

	home, err := f.svc.Home(ctx)
	require.NoError(t, err)
	require.Len(t, home.Notes, 1)
	assert.Equal(t, pub.ID, home.Notes[0].ID)
	assert.Len(t, home.Folders, 1)

	dash, err := f.svc.Dashboard(ctx, f.bob)
	require.NoError(t, err)
	assert.Empty(t, dash.Notes)
	assert.Len(t, dash.Folders, 1)
	require.Len(t, dash.SharedNotes, 1)
	assert.Equal(t, priv.ID, dash.SharedNotes[0].ID)

	_, err = f.svc.Dashboard(ctx, access.Anonymous())
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	folder, err := f.svc.CreateFolder(ctx, f.alice, FolderInput{Name: "mine"})
	require.NoError(t, err)
	_, err = f.svc.UploadFiles(ctx, f.alice, folder.ID, []Upload{upload("a.txt", "a")})
	require.NoError(t, err)

	bobs, err := f.svc.CreateFolder(ctx, f.bob, FolderInput{Name: "drop", IsPublic: true, AllowFileDrop: true})
	require.NoError(t, err)
	res, err := f.svc.UploadFiles(ctx, f.alice, bobs.ID, []Upload{upload("gift.txt", "g")})
	require.NoError(t, err)
	require.Equal(t, 2, testutil.CountFiles(t, f.uploadDir))

	require.NoError(t, f.svc.DeleteAccount(ctx, f.alice))
	assert.Equal(t, 1, testutil.CountFiles(t, f.uploadDir), "only files in alice's folders are removed")

	kept, err := f.repo.FileByID(ctx, res.Files[0].ID)
	require.NoError(t, err)
	assert.Nil(t, kept.UploadedByUserID)

	_, err = f.svc.Authenticate(ctx, "alice", "password-alice")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.ErrorIs(t, f.svc.DeleteAccount(ctx, access.Anonymous()), apperr.ErrUnauthorized)
}

func TestUpdateFolder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	folder, err := f.svc.CreateFolder(ctx, f.alice, FolderInput{Name: "docs"})
	require.NoError(t, err)

	updated, err := f.svc.UpdateFolder(ctx, f.alice, folder.ID, FolderInput{Name: "inbox", IsPublic: true, AllowFileDrop: true})
	require.NoError(t, err)
	assert.True(t, updated.AllowFileDrop)
	_, err = f.svc.PublicDrop(ctx, access.Anonymous(), folder.ID)
	assert.NoError(t, err)

	_, err = f.svc.UpdateFolder(ctx, f.bob, folder.ID, FolderInput{Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.UpdateFolder(ctx, f.alice, folder.ID, FolderInput{Name: ""})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
