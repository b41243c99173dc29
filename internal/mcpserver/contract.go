package mcpserver

const accessModelURI = "notedrop://access-model"

// AccessModel describes the sharing rules the tools enforce, for LLM
// consumers deciding which calls can succeed.
const AccessModel = `# notedrop Access Model

Every note and folder has exactly one owner, fixed at creation.

## Notes

- Public notes can be read by everyone, signed in or not.
- Private notes can be read by the owner and by users the owner shared them with.
- Only the owner can edit, delete, share or unshare a note.

## Folders

- Public folders and their files can be read by everyone.
- Private folders can be read by the owner and by users they were shared with.
- The owner and grantees can upload. A folder that is both public and marked
  ` + "`allow_file_drop`" + ` also accepts uploads from anyone, including anonymous users.
- Only the owner can change, delete, share or unshare a folder.

## Files

- Reading a file follows its folder.
- A file can be deleted by the folder owner and by the user who uploaded it.
- Uploaded files are stored under a generated name; the original name is kept
  for downloads.

## Sharing

- Shares are not transitive: a grantee cannot pass access on.
- A note or folder cannot be shared with its owner, with an unknown user,
  or twice with the same user.
`
