package main

import (
	"context"
	"net/http"
	"os"

	"spotliner/internal/logging"
	"spotliner/internal/storage"
	"spotliner/internal/store"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fallback := logging.New(logging.Config{})
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.SetGlobal(logger)

	db, err := openDatabase(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	dataStore := store.New(db)

	files, err := storage.NewFileStore(cfg.UploadPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.UploadPath).Msg("prepare upload directory")
	}

	handler := newHTTPHandler(cfg, dataStore, files, logger)

	logger.Info().Str("addr", cfg.Addr).Msg("starting server")
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
