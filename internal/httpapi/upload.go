package httpapi

import "net/http"

// maxImageBytes bounds a standalone image upload.
const maxImageBytes = 10 << 20

// handleUploadImage stores an image and returns its path for use in a
// later artist, album or track payload. Uploader or admin only.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if !identity.Role.CanUpload() {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart payload"})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "image file is required"})
		return
	}
	defer file.Close()

	path, err := s.uploads.SaveImage(file, header.Filename)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}
