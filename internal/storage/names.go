package storage

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	unsafeFilenameRe = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// SanitizeFilename reduces a client-supplied file name to a safe display name:
// directory parts are dropped, whitespace becomes underscores, anything outside
// [A-Za-z0-9._-] is removed and leading or trailing dots and underscores are
// trimmed. The result is empty when nothing usable remains.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = whitespaceRe.ReplaceAllString(strings.TrimSpace(name), "_")
	name = unsafeFilenameRe.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// GenerateName returns a storage name for original that does not depend on the
// original for uniqueness: <stem>_<random hex><ext>.
func GenerateName(original string) string {
	clean := SanitizeFilename(original)
	ext := filepath.Ext(clean)
	stem := strings.TrimSuffix(clean, ext)
	if stem == "" {
		stem = "file"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return stem + "_" + suffix + ext
}
