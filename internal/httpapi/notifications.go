package httpapi

import (
	"net/http"

	"spotliner/internal/push"
)

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

type sendPushRequest struct {
	UserIDs []int64 `json:"user_ids"`
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	URL     string  `json:"url"`
	Icon    string  `json:"icon"`
	Image   string  `json:"image"`
	Badge   string  `json:"badge"`
	Tag     string  `json:"tag"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	if err := s.notifications.Subscribe(r.Context(), identity.UserID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	if err := s.notifications.Unsubscribe(r.Context(), identity.UserID); err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePushTest(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	result, err := s.notifications.SendTest(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	limit, _ := parseLimitOffset(r, 50, 100)

	list, err := s.notifications.History(r.Context(), identity.UserID, limit)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleResendNotification(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid notification id"})
		return
	}

	result, err := s.notifications.Resend(r.Context(), identity.UserID, id)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListSubscribers(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	list, err := s.notifications.Subscribers(r.Context(), identity)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSendPush(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	var req sendPushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	result, err := s.notifications.SendCustom(r.Context(), identity, req.UserIDs, push.Message{
		Title: req.Title,
		Body:  req.Body,
		URL:   req.URL,
		Icon:  req.Icon,
		Image: req.Image,
		Badge: req.Badge,
		Tag:   req.Tag,
	})
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
