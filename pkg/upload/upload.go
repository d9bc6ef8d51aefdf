package upload

import (
	"context"
	"path/filepath"
	"strings"
)

// Uploader pushes a single local file to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on misconfiguration.
	Preflight(ctx context.Context) error

	// UploadFile uploads localPath under the given object key and returns
	// a URL where the object can be retrieved.
	UploadFile(ctx context.Context, localPath, key string) (string, error)
}

// BatchKey builds the object key for a batch upload: <prefix>/<taskID><ext>,
// where ext is taken from the local file.
func BatchKey(prefix, taskID, localPath string) string {
	return joinKey(prefix, taskID+strings.ToLower(filepath.Ext(localPath)))
}

// FormKey builds the object key for a form upload:
// <prefix>/<taskID>_<sanitized filename>.
func FormKey(prefix, taskID, filename string) string {
	return joinKey(prefix, taskID+"_"+SanitizeFilename(filename))
}

func joinKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}

	return prefix + "/" + name
}

// SanitizeFilename reduces an untrusted filename to a safe object key
// component: base name only, path separators and control characters
// replaced, never empty.
func SanitizeFilename(name string) string {
	// Strip any directory components, including Windows-style ones.
	name = filepath.Base(name)
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}

	var b strings.Builder

	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		case r == '/' || r == '\\' || r == ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "upload"
	}

	return cleaned
}
