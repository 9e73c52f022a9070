// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/api"
	"github.com/codr1/courtside/internal/api/sessions"
	"github.com/codr1/courtside/internal/config"
)

func newServer(cfg *config.Config) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithAuth,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      corsHandler(cfg).Handler(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func corsHandler(cfg *config.Config) *cors.Cors {
	origins := cfg.HTTP.AllowedOrigins
	if len(origins) == 0 && cfg.App.BaseURL != "" {
		origins = []string{cfg.App.BaseURL}
	}
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins:   origins,
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID", "HX-Request", "HX-Target", "HX-Current-URL"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
	})
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Session routes
	mux.HandleFunc("GET /sessions/{id}", sessions.HandleSessionPage)
	mux.HandleFunc("GET /api/v1/sessions/{id}", sessions.HandleSessionView)
	mux.HandleFunc("POST /api/v1/sessions/{id}/matches/{matchID}/winner", sessions.HandleToggleWinner)
	mux.HandleFunc("GET /api/v1/sessions/{id}/matches/{matchID}/mutation", sessions.HandleMutationState)

	staticDir := getEnv("STATIC_DIR", "build/bin/static")
	fs := http.FileServer(http.Dir(staticDir))

	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Ctx(r.Context()).Debug().
			Str("path", r.URL.Path).
			Str("static_dir", staticDir).
			Msg("Static file request")
		http.StripPrefix("/static/", fs).ServeHTTP(w, r)
	}))
}
