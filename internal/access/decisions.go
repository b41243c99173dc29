package access

// NoteRead decides whether a may view n: public notes are open to everyone,
// private ones to the owner and to grantees.
func NoteRead(a Actor, n NoteResource) Decision {
	return evaluate(ActionNoteRead, a, n,
		publicPolicy[NoteResource],
		requireAuthenticated[NoteResource],
		ownerPolicy[NoteResource],
		grantPolicy[NoteResource],
	)
}

// NoteMutate decides whether a may edit n. Only the owner may.
func NoteMutate(a Actor, n NoteResource) Decision {
	return evaluate(ActionNoteMutate, a, n, ownerPolicy[NoteResource])
}

// NoteDelete decides whether a may delete n. Only the owner may.
func NoteDelete(a Actor, n NoteResource) Decision {
	return evaluate(ActionNoteDelete, a, n, ownerPolicy[NoteResource])
}

// NoteShare decides whether a may grant access to n. Grantees may not re-share.
func NoteShare(a Actor, n NoteResource) Decision {
	return evaluate(ActionNoteShare, a, n, ownerPolicy[NoteResource])
}

// NoteUnshare decides whether a may revoke a grant on n.
func NoteUnshare(a Actor, n NoteResource) Decision {
	return evaluate(ActionNoteUnshare, a, n, ownerPolicy[NoteResource])
}

// FolderRead decides whether a may list f and download its files.
func FolderRead(a Actor, f FolderResource) Decision {
	return evaluate(ActionFolderRead, a, f, folderReadPolicies...)
}

var folderReadPolicies = []Policy[FolderResource]{
	publicPolicy[FolderResource],
	requireAuthenticated[FolderResource],
	ownerPolicy[FolderResource],
	grantPolicy[FolderResource],
}

// FolderUpload decides whether a may add files to f. An open public drop
// admits anonymous uploads; grants admit authenticated grantees only.
func FolderUpload(a Actor, f FolderResource) Decision {
	return evaluate(ActionFolderUpload, a, f,
		ownerPolicy[FolderResource],
		publicDropPolicy,
		grantPolicy[FolderResource],
	)
}

// FolderMutate decides whether a may change f's attributes.
func FolderMutate(a Actor, f FolderResource) Decision {
	return evaluate(ActionFolderMutate, a, f, ownerPolicy[FolderResource])
}

// FolderDelete decides whether a may delete f with all of its files.
func FolderDelete(a Actor, f FolderResource) Decision {
	return evaluate(ActionFolderDelete, a, f, ownerPolicy[FolderResource])
}

// FolderShare decides whether a may grant access to f.
func FolderShare(a Actor, f FolderResource) Decision {
	return evaluate(ActionFolderShare, a, f, ownerPolicy[FolderResource])
}

// FolderUnshare decides whether a may revoke a grant on f.
func FolderUnshare(a Actor, f FolderResource) Decision {
	return evaluate(ActionFolderUnshare, a, f, ownerPolicy[FolderResource])
}

// PublicDrop decides whether the anonymous drop page of f exists at all.
func PublicDrop(a Actor, f FolderResource) Decision {
	return evaluate(ActionPublicDrop, a, f, publicDropPolicy)
}

// FileRead decides whether a may download file. It delegates to the folder.
func FileRead(a Actor, file FileResource) Decision {
	d := FolderRead(a, file.Folder)
	d.Action = ActionFileRead
	return d
}

// FileDelete decides whether a may delete file: the folder owner and the
// original uploader may.
func FileDelete(a Actor, file FileResource) Decision {
	return evaluate(ActionFileDelete, a, file,
		fileFolderOwnerPolicy,
		uploaderPolicy,
	)
}

// ShareGrant validates a new grant once ownership has been checked with
// NoteShare or FolderShare.
func ShareGrant(a Actor, g GrantRequest) Decision {
	return evaluate(ActionShareGrant, a, g,
		granteeKnownPolicy,
		notSelfPolicy,
		notDuplicatePolicy,
		grantablePolicy,
	)
}
