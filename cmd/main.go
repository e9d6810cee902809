package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doc-vault-server/config"
	_ "doc-vault-server/docs"
	"doc-vault-server/internal/handler"
	"doc-vault-server/internal/metrics"
	"doc-vault-server/internal/middleware"
	"doc-vault-server/internal/migrations"
	"doc-vault-server/internal/repository"
	"doc-vault-server/internal/security"
	"doc-vault-server/internal/service"
	"doc-vault-server/internal/util"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Doc-vault-server
// @version 1.0
// @description REST API личного хранилища документов

// @host localhost:5000

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	defaultPath := os.Getenv("DOCVAULT_CONFIG")
	if defaultPath == "" {
		defaultPath = "config.yaml"
	}
	configPath := flag.String("config", defaultPath, "путь к файлу конфигурации")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка загрузки конфигурации")
	}
	util.InitLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := config.SetupDatabase(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Не удалось подключиться к БД")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Ошибка при закрытии БД")
		}
	}()

	if cfg.Database.Migrate {
		if err := migrations.Run(ctx, db.DB.DB); err != nil {
			log.Fatal().Err(err).Msg("Ошибка применения миграций")
		}
	}

	redisClient, err := config.SetupRedis(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка подключения к Redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Ошибка при закрытии Redis")
		}
	}()

	s3Service, err := service.NewS3Service(ctx, &cfg.S3)
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка создания S3 сервиса")
	}

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	shareRepo := repository.NewShareLinkRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, cfg.Redis.ShareTTL.Std())

	proxy := service.NewStreamProxy(s3Service, cfg.S3.FetchTimeout.Std())
	docService := service.NewDocumentService(
		docRepo, shareRepo, cacheRepo, cacheRepo, s3Service, proxy,
		service.NewLanguageDetector(), cfg.Storage.CapMB, cfg.Storage.BaseURL,
	)

	jwtService := security.NewJWTService(&cfg.JWT)
	userService := service.NewUserService(userRepo, jwtService, sessionRepo)
	authService := service.NewAuthenticationService(userRepo, jwtService, sessionRepo)

	cookie := handler.NewSessionCookie(&cfg.JWT)
	authHandler := handler.NewAuthenticationHandler(authService, cookie)
	userHandler := handler.NewUserHandler(userService, cookie)
	docHandler := handler.NewDocumentHandler(docService, cfg.Storage.MaxUploadMB)
	healthHandler := handler.NewHealthHandler(db)

	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	go limiter.Run(ctx)

	if cfg.Reconcile.Enabled {
		reconciler := service.NewReconciler(docRepo, s3Service, cacheRepo, cfg.Reconcile)
		go reconciler.Run(ctx)
	}

	srv, router := config.SetupServer(cfg.Server)

	router.Use(chiMiddleware.RequestID, chiMiddleware.RealIP, middleware.AccessLog, chiMiddleware.Recoverer)
	if cfg.Metrics.Enabled {
		metrics.Init()
		router.Use(middleware.Prometheus)
		router.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	authMiddleware := security.JWTMiddleware(jwtService, sessionRepo, cfg.JWT.CookieName)

	router.Get("/healthz", healthHandler.Health)
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	setupAuthRoutes(router, authHandler, userHandler, authMiddleware)
	setupDocumentRoutes(router, docHandler, authMiddleware, limiter)

	runServer(ctx, srv, cfg.Server.ShutdownTimeout.Std())
}

func setupAuthRoutes(r chi.Router, authHandler *handler.AuthenticationHandler, userHandler *handler.UserHandler, auth func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", userHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", userHandler.Me)
		})
	})
}

func setupDocumentRoutes(r chi.Router, h *handler.DocumentHandler, auth func(http.Handler) http.Handler, limiter *middleware.RateLimiter) {
	r.Route("/documents", func(r chi.Router) {
		r.With(limiter.Middleware).Get("/share/{shareId}", h.ResolveShare)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Get("/", h.List)
			r.Post("/upload", h.Upload)
			r.Get("/{id}/view", h.View)
			r.Post("/{id}/share", h.CreateShare)
			r.Delete("/{id}", h.Delete)
		})
	})
}

func runServer(ctx context.Context, server *http.Server, shutdownTimeout time.Duration) {
	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("сервер запущен")
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ошибка работы сервера")
		}
	case sig := <-signalChannel:
		log.Info().Str("signal", sig.String()).Msg("получен сигнал остановки работы сервера")
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	shutDownCtx, shutDownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		log.Error().Err(err).Msg("ошибка при остановке сервера")
	} else {
		log.Info().Msg("Сервер успешно остановлен")
	}
}
