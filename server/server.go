package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chromafm/cache"
	"chromafm/config"
	"chromafm/core/ingest"
	"chromafm/core/palette"
	"chromafm/db"
	"chromafm/logger"
	"chromafm/repository"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Start initializes dependencies and runs the HTTP server until interrupted.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.Err(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database schema", logger.Err(err))
	}

	// The track cache is an optimization; a missing redis only disables it.
	var trackCache *cache.TrackCache
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, track cache disabled", logger.Err(err))
	} else {
		defer db.CloseRedis()
		trackCache = cache.NewTrackCache(db.RedisClient, time.Duration(cfg.TrackCacheTTL)*time.Second)
	}

	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	albumRepo := repository.NewMySQLAlbumRepository(db.DB)
	service := ingest.NewService(trackRepo, albumRepo, trackCache)
	paletteGen := palette.NewGenerator(time.Duration(cfg.PaletteFetchTimeout) * time.Second)

	apiHandler := NewAPIHandler(service, paletteGen)

	router := mux.NewRouter()
	registerRoutes(router, apiHandler)

	// Middleware wraps the router itself so OPTIONS preflights are answered
	// even for method-restricted routes.
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      corsMiddleware(requestLogMiddleware(router)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("HTTP server listening", logger.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", logger.Err(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", logger.Err(err))
	}
}

func registerRoutes(router *mux.Router, h *APIHandler) {
	router.HandleFunc("/api/health", h.HealthHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/tracks", h.CreateTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/bulk", h.CreateBulkTracksHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/bulk/get", h.GetTracksBulkHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/queue/unprocessed", h.ListUnprocessedHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/queue/claim", h.ClaimUnprocessedHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}", h.GetTrackHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", h.PatchTrackHandler).Methods(http.MethodPatch)
	router.HandleFunc("/api/tracks/{id}/audio-features", h.UpdateAudioFeaturesHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{id}/status", h.UpdateStatusHandler).Methods(http.MethodPut)

	router.HandleFunc("/api/albums", h.CreateAlbumHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/albums/{id}", h.PatchAlbumHandler).Methods(http.MethodPatch)
	router.HandleFunc("/api/albums/{id}/tracks", h.GetAlbumTracksHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/palettizer", h.PalettizerHandler).Methods(http.MethodPost)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request handled",
			logger.String("requestId", requestID),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("duration", time.Since(start).String()),
		)
	})
}
