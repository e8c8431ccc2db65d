package httpapi

import "net/http"

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, _ := parseLimitOffset(r, 30, 50)
	results, err := s.search.SearchAll(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
