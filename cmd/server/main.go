package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/geocalc/geocalc/backend-go/internal/asset"
	"github.com/geocalc/geocalc/backend-go/internal/auth"
	"github.com/geocalc/geocalc/backend-go/internal/collab"
	"github.com/geocalc/geocalc/backend-go/internal/config"
	"github.com/geocalc/geocalc/backend-go/internal/db"
	"github.com/geocalc/geocalc/backend-go/internal/db/dbgen"
	"github.com/geocalc/geocalc/backend-go/internal/export"
	"github.com/geocalc/geocalc/backend-go/internal/history"
	mw "github.com/geocalc/geocalc/backend-go/internal/middleware"
	"github.com/geocalc/geocalc/backend-go/internal/typeid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	queries := dbgen.New(pool)

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	historyService := history.NewService(queries)
	historyHandler := history.NewHandler(historyService)

	hub := collab.NewHub(cfg.SessionIdleTimeout)
	go hub.Run(ctx)

	// Exports still stream without a store; only "store": true needs it.
	store, err := asset.NewStore(cfg.ExportDir)
	if err != nil {
		slog.Warn("export store unavailable", "dir", cfg.ExportDir, "error", err)
		store = nil
	}
	exportHandler := export.NewHandler(store, cfg.ExportMaxPixels)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Export endpoint (public, exports are rendered from the posted snapshot)
	r.HandleFunc("/export/png", exportHandler.ExportPNG).Methods("POST")
	if store != nil {
		r.HandleFunc("/assets/{id}", store.HandleDelete).Methods("DELETE")
		r.PathPrefix("/assets/").Handler(store.Serve()).Methods("GET")
	}

	// Live sessions
	r.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		handleCreateSession(w, r, hub)
	}).Methods("POST")
	r.HandleFunc("/ws/session/{sessionId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, cfg.OriginPatterns())
	})

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/history", historyHandler.List).Methods("GET")
	api.HandleFunc("/history", historyHandler.Add).Methods("POST")
	api.HandleFunc("/history", historyHandler.Clear).Methods("DELETE")
	api.HandleFunc("/history/{id}", historyHandler.Get).Methods("GET")
	api.HandleFunc("/history/{id}", historyHandler.Delete).Methods("DELETE")

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		// CORS sits outside the router so preflights skip route matching.
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
		cancel()
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

const maxSessionSeed = 4 << 20

func handleCreateSession(w http.ResponseWriter, r *http.Request, hub *collab.Hub) {
	var req struct {
		Snapshot json.RawMessage `json:"snapshot"`
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSessionSeed))
	if err != nil {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	sessionID, err := hub.CreateSession(req.Snapshot)
	if err != nil {
		http.Error(w, "invalid snapshot: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"sessionId": sessionID})
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, originPatterns []string) {
	sessionID := mux.Vars(r)["sessionId"]
	if err := typeid.Validate(sessionID, typeid.PrefixSession); err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	// Anyone with the session link may join; a token only attaches a name.
	userID := "anon-" + uuid.New().String()[:8]
	displayName := "Anonymous"

	if token, err := auth.TokenFromRequest(r); err == nil {
		id, err := authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		user, err := authSvc.GetUser(r.Context(), id)
		if err != nil {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}
		userID, displayName = user.ID, user.DisplayName
	}

	hub.Serve(w, r, sessionID, userID, displayName, originPatterns)
}
