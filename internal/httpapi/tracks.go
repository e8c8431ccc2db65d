package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"spotliner/internal/app/tracks"
	"spotliner/internal/store"
)

// maxUploadBytes bounds a single track upload (audio plus cover image).
const maxUploadBytes = 100 << 20

// updateTrackRequest is a partial edit: omitted fields keep their current
// values, an explicit null album_id or image_path clears them.
type updateTrackRequest struct {
	Title       *string          `json:"title"`
	ArtistID    *int64           `json:"artist_id"`
	Artist      string           `json:"artist"`
	AlbumID     Optional[int64]  `json:"album_id"`
	Album       string           `json:"album"`
	ImagePath   Optional[string] `json:"image_path"`
	FeaturedIDs []int64          `json:"featured_artist_ids"`
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 50, 100)
	list, err := s.tracks.List(r.Context(), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
		return
	}
	track, err := s.tracks.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// handleCreateTrack accepts a multipart upload: an "audio" file plus
// metadata fields, with an optional "image" cover.
func (s *Server) handleCreateTrack(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart payload"})
		return
	}

	audio, audioHeader, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "audio file is required"})
		return
	}
	defer audio.Close()

	filePath, err := s.uploads.SaveAudio(audio, audioHeader.Filename)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	var imagePath *string
	if image, imageHeader, err := r.FormFile("image"); err == nil {
		defer image.Close()
		path, err := s.uploads.SaveImage(image, imageHeader.Filename)
		if err != nil {
			writeError(w, err, http.StatusInternalServerError)
			return
		}
		imagePath = &path
	}

	in := tracks.CreateInput{
		Title:      r.FormValue("title"),
		ArtistName: r.FormValue("artist"),
		AlbumName:  r.FormValue("album"),
		FilePath:   filePath,
		ImagePath:  imagePath,
	}
	if raw := r.FormValue("artist_id"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			in.ArtistID = &v
		}
	}
	if raw := r.FormValue("album_id"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			in.AlbumID = &v
		}
	}
	if raw := r.FormValue("duration_seconds"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			in.DurationSeconds = v
		}
	}

	track, err := s.tracks.Create(r.Context(), identity, in)
	if err != nil {
		// The service removes the audio file; the cover is ours to clean up.
		if imagePath != nil {
			s.uploads.RemoveImage(*imagePath)
		}
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

func (s *Server) handleUpdateTrack(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
		return
	}

	var req updateTrackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	track, err := s.tracks.Update(r.Context(), identity, id, tracks.UpdateInput{
		Title:      req.Title,
		ArtistID:   req.ArtistID,
		ArtistName: req.Artist,
		AlbumID:    req.AlbumID.Ptr(),
		AlbumName:  req.Album,
		SetAlbum:   req.AlbumID.Set,
		SetImage:   req.ImagePath.Set,
		ImagePath:  req.ImagePath.Ptr(),
		Featured:   req.FeaturedIDs,
	})
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
		return
	}

	if err := s.tracks.Delete(r.Context(), identity, id); err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStreamTrack serves the audio file with byte-range support so
// browsers can seek. Auth is optional, matching the public catalog reads;
// a presented token is still validated and may come via ?token= because
// the audio element cannot set headers.
func (s *Server) handleStreamTrack(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.optionalAuth(w, r); !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
		return
	}

	path, err := s.tracks.StreamPath(r.Context(), id)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, store.ErrTrackNotFound, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not open track file"})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not stat track file"})
		return
	}
	size := info.Size()

	w.Header().Set("Content-Type", audioContentType(path))
	w.Header().Set("Accept-Ranges", "bytes")

	start, end, ok, err := parseRange(r.Header.Get("Range"), size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if !ok {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, f)
		return
	}

	length := end - start + 1
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return
	}
	_, _ = io.CopyN(w, f, length)
}

// parseRange interprets a single "bytes=S-E" range against the file size.
// ok is false when no range was requested; err signals an unsatisfiable
// range.
func parseRange(header string, size int64) (start, end int64, ok bool, err error) {
	if header == "" {
		return 0, 0, false, nil
	}
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, 0, false, nil
	}
	startRaw, endRaw, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false, nil
	}

	start, perr := strconv.ParseInt(strings.TrimSpace(startRaw), 10, 64)
	if perr != nil || start < 0 {
		return 0, 0, false, nil
	}

	end = size - 1
	if trimmed := strings.TrimSpace(endRaw); trimmed != "" {
		end, perr = strconv.ParseInt(trimmed, 10, 64)
		if perr != nil {
			return 0, 0, false, nil
		}
		if end > size-1 {
			end = size - 1
		}
	}

	if start >= size || start > end {
		return 0, 0, false, errors.New("unsatisfiable range")
	}
	return start, end, true, nil
}

func audioContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	default:
		return "audio/mpeg"
	}
}
