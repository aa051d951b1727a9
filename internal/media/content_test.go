package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adamavenir/chatmirror/internal/types"
)

func TestContentPath(t *testing.T) {
	root := filepath.Join("data", "chatmirror")
	tests := []struct {
		name string
		ref  types.AssetRef
		want string
		ok   bool
	}{
		{
			name: "authority dots replaced",
			ref:  types.AssetRef{Authority: "chat.example.org", Path: "abc"},
			want: filepath.Join(root, "content", "chat_example_org", "abc"),
			ok:   true,
		},
		{
			name: "nested path",
			ref:  types.AssetRef{Authority: "cdn.example.org:8443", Path: "a/b.png"},
			want: filepath.Join(root, "content", "cdn_example_org:8443", "a", "b.png"),
			ok:   true,
		},
		{name: "no authority", ref: types.AssetRef{Path: "abc"}},
		{name: "no path", ref: types.AssetRef{Authority: "x.y"}},
		{name: "escaping path", ref: types.AssetRef{Authority: "x.y", Path: "../../etc/passwd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ContentPath(root, tt.ref)
			if ok != tt.ok {
				t.Fatalf("ok: got %v want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("path: got %q want %q", got, tt.want)
			}
		})
	}
}

func TestContentExists(t *testing.T) {
	root := t.TempDir()
	ref := types.AssetRef{Authority: "chat.example.org", Path: "avatar"}
	if ContentExists(root, ref) {
		t.Fatalf("content should not exist yet")
	}
	path, ok := ContentPath(root, ref)
	if !ok {
		t.Fatalf("expected a content path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !ContentExists(root, ref) {
		t.Fatalf("expected content to exist")
	}
}

func TestKindOf(t *testing.T) {
	tests := map[string]ContentKind{
		"image/png":                 KindImage,
		"audio/mpeg":                KindAudio,
		"video/mp4":                 KindVideo,
		"application/pdf":           KindOther,
		"text/plain; charset=utf-8": KindOther,
		"":                          KindOther,
	}
	for mime, want := range tests {
		if got := KindOf(mime); got != want {
			t.Errorf("KindOf(%q): got %v want %v", mime, got, want)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(filepath.Join("a", "b", "c.png")); got != "c.png" {
		t.Fatalf("got %q", got)
	}
	if got := FileName(""); got != "unknown" {
		t.Fatalf("got %q", got)
	}
}
