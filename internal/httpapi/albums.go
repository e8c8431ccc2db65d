package httpapi

import "net/http"

type createAlbumRequest struct {
	Name      string  `json:"name"`
	ArtistID  int64   `json:"artist_id"`
	ImagePath *string `json:"image_path"`
}

type updateAlbumRequest struct {
	Name      string           `json:"name"`
	ArtistID  int64            `json:"artist_id"`
	ImagePath Optional[string] `json:"image_path"`
}

func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 50, 100)
	list, err := s.albums.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid album id"})
		return
	}
	detail, err := s.albums.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	var req createAlbumRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	album, err := s.albums.Create(r.Context(), identity, req.Name, req.ArtistID, req.ImagePath)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, album)
}

func (s *Server) handleUpdateAlbum(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid album id"})
		return
	}

	var req updateAlbumRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	album, err := s.albums.Update(r.Context(), identity, id, req.Name, req.ArtistID, req.ImagePath.Set, req.ImagePath.Ptr())
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleDeleteAlbum(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid album id"})
		return
	}

	if err := s.albums.Delete(r.Context(), identity, id); err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
