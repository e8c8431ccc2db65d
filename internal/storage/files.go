// Package storage manages the on-disk upload area for audio and image files.
// Filenames are opaque generated tokens, never derived from user input.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	audioExtensions = map[string]bool{".mp3": true, ".m4a": true, ".ogg": true, ".wav": true}
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
)

// FileStore persists uploaded files under an upload root with separate
// audio and image subdirectories.
type FileStore struct {
	root     string
	audioDir string
	imageDir string
}

// NewFileStore prepares the upload directories under root.
func NewFileStore(root string) (*FileStore, error) {
	fs := &FileStore{
		root:     root,
		audioDir: filepath.Join(root, "audio"),
		imageDir: filepath.Join(root, "images"),
	}
	for _, dir := range []string{fs.audioDir, fs.imageDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
		}
	}
	return fs, nil
}

// Root returns the upload root served under /uploads/.
func (fs *FileStore) Root() string {
	return fs.root
}

// SaveAudio stores an uploaded audio stream and returns the generated
// filename recorded on the track row.
func (fs *FileStore) SaveAudio(r io.Reader, originalName string) (string, error) {
	name := generateName(originalName, audioExtensions, ".mp3")
	if err := writeFile(filepath.Join(fs.audioDir, name), r); err != nil {
		return "", err
	}
	return name, nil
}

// SaveImage stores an uploaded image and returns its path relative to the
// upload root, suitable for building /uploads/ URLs.
func (fs *FileStore) SaveImage(r io.Reader, originalName string) (string, error) {
	name := generateName(originalName, imageExtensions, ".jpg")
	if err := writeFile(filepath.Join(fs.imageDir, name), r); err != nil {
		return "", err
	}
	return "images/" + name, nil
}

// AudioPath resolves a stored file_path value to an absolute path inside
// the audio directory. Only the basename is honored so a corrupted row can
// never point outside the upload area.
func (fs *FileStore) AudioPath(filePath string) string {
	return filepath.Join(fs.audioDir, filepath.Base(filePath))
}

// RemoveAudio deletes a track's audio file. Failures are logged and
// swallowed: row deletion must never be blocked by filesystem errors.
func (fs *FileStore) RemoveAudio(filePath string) {
	path := fs.AudioPath(filePath)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("could not delete track file")
	}
}

// RemoveImage deletes a stored image by the relative path SaveImage
// returned. Failures are logged and swallowed.
func (fs *FileStore) RemoveImage(imagePath string) {
	path := filepath.Join(fs.imageDir, filepath.Base(imagePath))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("could not delete image file")
	}
}

func generateName(originalName string, allowed map[string]bool, fallbackExt string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowed[ext] {
		ext = fallbackExt
	}
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close upload file: %w", err)
	}
	return nil
}
