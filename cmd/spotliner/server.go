package main

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"spotliner/internal/app/albums"
	"spotliner/internal/app/artists"
	"spotliner/internal/app/favorites"
	"spotliner/internal/app/notifications"
	"spotliner/internal/app/playlists"
	"spotliner/internal/app/tracks"
	"spotliner/internal/app/users"
	"spotliner/internal/auth"
	"spotliner/internal/httpapi"
	"spotliner/internal/middleware"
	"spotliner/internal/push"
	"spotliner/internal/storage"
	"spotliner/internal/store"
)

func newHTTPHandler(cfg Config, dataStore *store.Store, files *storage.FileStore, logger zerolog.Logger) http.Handler {
	tokens := auth.NewTokenManager(cfg.JWTSecret)

	var notifier tracks.Notifier
	var dispatcher notifications.Dispatcher
	if cfg.PushEnabled() {
		d := push.NewDispatcher(dataStore, push.NewSender(push.VAPIDConfig{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
			Subject:    cfg.VAPIDSubject,
		}), logger)
		notifier = d
		dispatcher = d
		logger.Info().Msg("web push enabled")
	} else {
		logger.Info().Msg("VAPID keys not provided, web push disabled")
	}

	userSvc := users.New(dataStore, tokens)
	artistSvc := artists.New(dataStore, files)
	albumSvc := albums.New(dataStore, files)
	trackSvc := tracks.New(dataStore, files, notifier, logger)
	playlistSvc := playlists.New(dataStore)
	favoriteSvc := favorites.New(dataStore)
	notificationSvc := notifications.New(dataStore, dispatcher)

	api := httpapi.New(userSvc, artistSvc, albumSvc, trackSvc, playlistSvc,
		favoriteSvc, notificationSvc, dataStore, files, tokens)

	mux := http.NewServeMux()
	mux.Handle("/api/", api.Routes())
	mux.Handle("/uploads/", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(files.Root()))))

	handler := middleware.RequestLogging()(mux)
	handler = middleware.Recovery()(handler)
	return withCORS(cfg.AllowedOrigins, handler)
}

func withCORS(allowedOrigins []string, next http.Handler) http.Handler {
	originAllowed := func(origin string) bool {
		if len(allowedOrigins) == 0 || origin == "" {
			return false
		}
		for _, o := range allowedOrigins {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
