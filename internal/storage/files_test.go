package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAudioGeneratesOpaqueName(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	name, err := fs.SaveAudio(strings.NewReader("audio-bytes"), "My Song (final).m4a")
	if err != nil {
		t.Fatalf("SaveAudio: %v", err)
	}

	if strings.Contains(name, "My Song") {
		t.Fatalf("filename %q derived from user input", name)
	}
	if !strings.HasSuffix(name, ".m4a") {
		t.Fatalf("expected .m4a extension, got %q", name)
	}

	data, err := os.ReadFile(fs.AudioPath(name))
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("unexpected file content %q", data)
	}
}

func TestSaveAudioUnknownExtensionFallsBack(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	name, err := fs.SaveAudio(strings.NewReader("x"), "track.exe")
	if err != nil {
		t.Fatalf("SaveAudio: %v", err)
	}
	if !strings.HasSuffix(name, ".mp3") {
		t.Fatalf("expected .mp3 fallback, got %q", name)
	}
}

func TestSaveImageReturnsRelativePath(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	rel, err := fs.SaveImage(strings.NewReader("img"), "cover.png")
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if !strings.HasPrefix(rel, "images/") || !strings.HasSuffix(rel, ".png") {
		t.Fatalf("unexpected relative path %q", rel)
	}
	if _, err := os.Stat(filepath.Join(fs.Root(), rel)); err != nil {
		t.Fatalf("saved image missing: %v", err)
	}
}

func TestAudioPathStripsDirectories(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	got := fs.AudioPath("../../etc/passwd")
	want := filepath.Join(fs.Root(), "audio", "passwd")
	if got != want {
		t.Fatalf("AudioPath = %q, want %q", got, want)
	}
}

func TestRemoveImageDeletesSavedFile(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	rel, err := fs.SaveImage(strings.NewReader("img"), "cover.jpg")
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}

	fs.RemoveImage(rel)
	if _, err := os.Stat(filepath.Join(fs.Root(), rel)); !os.IsNotExist(err) {
		t.Fatalf("image still present after RemoveImage: %v", err)
	}
}

func TestRemoveAudioToleratesMissingFile(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	// Must not panic or error: deletes are warn-only.
	fs.RemoveAudio("does-not-exist.mp3")
}
