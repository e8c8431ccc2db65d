package httpapi

import "net/http"

type favoriteRequest struct {
	TrackID int64 `json:"track_id"`
}

type historyRequest struct {
	TrackID int64 `json:"track_id"`
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	list, err := s.favorites.List(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	var req favoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	if err := s.favorites.Add(r.Context(), identity.UserID, req.TrackID); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	trackID, err := pathID(r, "trackId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
		return
	}

	if err := s.favorites.Remove(r.Context(), identity.UserID, trackID); err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	limit, _ := parseLimitOffset(r, 50, 100)

	list, err := s.favorites.History(r.Context(), identity.UserID, limit)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRecordPlay(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	var req historyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	if err := s.tracks.RecordPlay(r.Context(), identity.UserID, req.TrackID); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
