package media

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adamavenir/chatmirror/internal/types"
	"github.com/gabriel-vasile/mimetype"
)

const defaultMimetype = "application/octet-stream"

// ContentKind is the broad category of a blob.
type ContentKind int

const (
	KindOther ContentKind = iota
	KindImage
	KindAudio
	KindVideo
)

func (k ContentKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "other"
	}
}

// KindOf maps a MIME type to its content kind using the top-level type.
func KindOf(mime string) ContentKind {
	top, _, _ := strings.Cut(mime, "/")
	switch strings.TrimSpace(strings.ToLower(top)) {
	case "image":
		return KindImage
	case "audio":
		return KindAudio
	case "video":
		return KindVideo
	default:
		return KindOther
	}
}

// InferMimetype sniffs the MIME type from the leading bytes of data.
func InferMimetype(data []byte) string {
	if len(data) == 0 {
		return defaultMimetype
	}
	detected := mimetype.Detect(data)
	if detected == nil || detected.String() == "" {
		return defaultMimetype
	}
	return detected.String()
}

// ContentPath maps an asset reference to its location under root:
// <root>/content/<authority with '.' replaced by '_'>/<path>. It returns false
// for references without an authority or with a path escaping the folder.
func ContentPath(root string, ref types.AssetRef) (string, bool) {
	dir, ok := ContentFolder(root, ref)
	if !ok {
		return "", false
	}
	name := filepath.FromSlash(ref.Path)
	if name == "" || !filepath.IsLocal(name) {
		return "", false
	}
	return filepath.Join(dir, name), true
}

// ContentFolder returns the per-authority directory for a reference.
func ContentFolder(root string, ref types.AssetRef) (string, bool) {
	if ref.Authority == "" {
		return "", false
	}
	return filepath.Join(root, "content", strings.ReplaceAll(ref.Authority, ".", "_")), true
}

// ContentExists reports whether the reference has been stored on disk.
func ContentExists(root string, ref types.AssetRef) bool {
	path, ok := ContentPath(root, ref)
	if !ok {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// FileName returns the last element of path, or "unknown".
func FileName(path string) string {
	if path == "" {
		return "unknown"
	}
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return "unknown"
	}
	return base
}
