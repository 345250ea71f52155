// Package main our entry point.
package main

import (
	"context"
	"embed"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lmarchetti/sidechat/internal"
	"github.com/lmarchetti/sidechat/internal/auth"
	"github.com/lmarchetti/sidechat/internal/config"
	"github.com/lmarchetti/sidechat/internal/database"
	"github.com/lmarchetti/sidechat/internal/handler"
	"github.com/lmarchetti/sidechat/internal/metrics"
	"github.com/lmarchetti/sidechat/internal/objstore"
	ratelimiter "github.com/lmarchetti/sidechat/internal/rate_limiter"
	ws "github.com/lmarchetti/sidechat/internal/websocket"
)

//go:embed sql/schema/*.sql
var embedMigrations embed.FS

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %+v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v, err := config.LoadConfig("config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg, err := config.ParseConfig(v)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	// Init DB
	log.Println("Initializing database connection...")

	dbConn, err := pgxpool.New(ctx, cfg.DB.URL)
	if err != nil {
		log.Fatalf("could not connect to the postgresql database: %v", err)
	}
	defer dbConn.Close()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("goose.SetDialect() error = %+v", err)
	}
	if err := goose.Up(stdlib.OpenDBFromPool(dbConn), "sql/schema"); err != nil {
		log.Fatalf("goose.Up() error = %+v", err)
	}

	dbQueries := database.New(dbConn)

	// Media store for message and profile images.
	var media objstore.Store
	switch cfg.Media.Backend {
	case "s3":
		media, err = objstore.NewS3Store(ctx, objstore.S3Config{
			Bucket:          cfg.Media.S3.Bucket,
			Region:          cfg.Media.S3.Region,
			Endpoint:        cfg.Media.S3.Endpoint,
			Prefix:          cfg.Media.S3.Prefix,
			AccessKeyID:     cfg.Media.S3.AccessKeyID,
			SecretAccessKey: cfg.Media.S3.SecretAccessKey,
			UsePathStyle:    cfg.Media.S3.UsePathStyle,
		})
		if err != nil {
			log.Fatalf("failed to init s3 store: %v", err)
		}
	default:
		media, err = objstore.NewDisk(cfg.Media.UploadDir, cfg.Media.BaseURL)
		if err != nil {
			log.Fatalf("failed to init disk store: %v", err)
		}
	}

	sessions := &auth.Sessions{
		Store:      dbQueries,
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	}

	// The realtime hub owns the in-process presence table and pushes
	// lifecycle events to connected peers.
	m := metrics.New(prometheus.DefaultRegisterer)
	hub := ws.NewHub(m, logger)
	notifier := ws.NewNotifier(hub, logger)

	var resolver handler.IdentityResolver
	switch cfg.Realtime.Handshake {
	case "declared":
		resolver = handler.DeclaredIdentity{}
	default:
		resolver = handler.TokenIdentity{Secret: cfg.JWT.Secret}
	}

	authLimiter := ratelimiter.NewIPRateLimiter(10, time.Minute, ratelimiter.CleanupOpts{
		TTL:      10 * time.Minute,
		Interval: time.Minute,
	})
	defer authLimiter.Cancel()

	requireAuth := internal.Middleware(sessions)
	requireAdmin := internal.AdminOnly(dbQueries)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	if cfg.Media.Backend != "s3" {
		fs := http.FileServer(http.Dir(cfg.Media.UploadDir))
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", fs))
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/signup", handler.Signup(dbQueries, sessions))
			r.Post("/login", handler.Login(dbQueries, sessions))
		})
		r.Post("/logout", handler.Logout(sessions))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/check", handler.CheckAuth(dbQueries))
			r.Put("/update-profile", handler.UpdateProfile(dbQueries, media))
			r.Put("/update", handler.UpdateAccount(dbQueries))

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/users", handler.ListUsers(dbQueries))
				r.Put("/users/{userID}/role", handler.UpdateUserRole(dbQueries))
			})
		})
	})

	r.Route("/api/messages", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/users", handler.ListSidebarUsers(dbQueries))
		r.Get("/{id}", handler.GetMessages(dbQueries))
		r.Post("/send/{id}", handler.SendMessage(dbQueries, notifier, media))
		r.Put("/{messageID}", handler.UpdateMessage(dbQueries, notifier, media))
		r.Delete("/{messageID}", handler.DeleteMessage(dbQueries, notifier, media))
	})

	r.Get("/ws", handler.ServeWs(hub, resolver, cfg.Realtime.AllowedOrigins, logger))

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		log.Printf("Server starting at 0.0.0.0:%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received; shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println(err)
	}

	log.Println("Server stopped")
}
