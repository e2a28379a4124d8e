package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medirespond/medirespond/internal/config"
	"github.com/medirespond/medirespond/internal/domain/emergency"
	"github.com/medirespond/medirespond/internal/domain/identity"
	"github.com/medirespond/medirespond/internal/domain/imaging"
	"github.com/medirespond/medirespond/internal/domain/medichat"
	"github.com/medirespond/medirespond/internal/domain/reports"
	"github.com/medirespond/medirespond/internal/domain/scheduling"
	"github.com/medirespond/medirespond/internal/platform/auth"
	"github.com/medirespond/medirespond/internal/platform/blobstore"
	"github.com/medirespond/medirespond/internal/platform/db"
	"github.com/medirespond/medirespond/internal/platform/events"
	"github.com/medirespond/medirespond/internal/platform/genai"
	"github.com/medirespond/medirespond/internal/platform/inference"
	"github.com/medirespond/medirespond/internal/platform/middleware"
	"github.com/medirespond/medirespond/internal/platform/retrieval"
	"github.com/medirespond/medirespond/internal/platform/websocket"
)

const (
	shutdownTimeout = 10 * time.Second
	defaultBodySize = "1M"
	uploadBodySize  = "50M"
)

// newEcho builds the server with the global middleware chain and returns
// it along with the authenticated /api group.
func newEcho(cfg *config.Config, logger zerolog.Logger) (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(middleware.SecurityConfig{
		HSTS:           !cfg.IsDev(),
		FrameAncestors: cfg.CORSOrigins,
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(defaultBodySize, uploadBodySize))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	api := e.Group("/api")
	api.Use(auth.JWTMiddleware(auth.JWTConfig{
		SigningKey: []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		Skipper:    auth.AuthSkipper,
		QueryParam: "token",
	}))
	api.Use(middleware.RateLimit(rateLimitCfg))
	return e, api
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	for _, w := range cfg.Warnings() {
		logger.Warn().Msg(w)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Database
	pool, err := db.NewPool(ctx, db.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e, api := newEcho(cfg, logger)
	e.GET("/health/db", db.HealthHandler(pool))

	// Live feed: Redis fan-out when configured, otherwise straight to the hub.
	hub := websocket.NewHub(logger)
	var publisher events.Publisher = hub
	if cfg.RedisURL != "" {
		client, err := events.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		bus := events.NewRedisBus(client, cfg.EventsChannel, logger)
		publisher = bus
		go func() {
			if err := bus.Relay(ctx, hub); err != nil {
				logger.Error().Err(err).Msg("event relay stopped")
			}
		}()
	}

	// External AI collaborators
	var gen *genai.Client
	if cfg.AssessmentEnabled() {
		gen, err = genai.NewClient(genai.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
			Timeout: cfg.AssessmentTimeout,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create genai client")
		}
	}

	var store blobstore.Store = blobstore.NewInMemoryStore()
	if cfg.MinioEndpoint != "" {
		store, err = blobstore.NewMinioStore(ctx, blobstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to object storage")
		}
	}

	// Identity
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTTTL)
	identitySvc := identity.NewService(identity.NewUserRepoPG(pool), tokens, logger)
	identity.NewHandler(identitySvc).RegisterRoutes(api)

	// Reports
	var reportGen reports.Generator
	if gen != nil {
		reportGen = gen
	}
	reportSvc := reports.NewService(reports.NewReportRepoPG(pool), store, reportGen, logger)
	reports.NewHandler(reportSvc).RegisterRoutes(api)

	// Emergency calls
	var assessor emergency.Assessor
	var analyzer emergency.ReportAnalyzer
	if gen != nil {
		assessor = emergency.NewGenAIAssessor(gen)
		analyzer = reportSvc
	}
	emergencySvc := emergency.NewService(emergency.NewCallRepoPG(pool), identitySvc, assessor, publisher,
		emergency.Config{AssessmentTimeout: cfg.AssessmentTimeout}, logger)
	emergency.NewHandler(emergencySvc, analyzer).RegisterRoutes(api)

	// Appointments
	schedulingSvc := scheduling.NewService(scheduling.NewAppointmentRepoPG(pool), emergencySvc, identitySvc,
		db.NewTransactor(pool), publisher, logger)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)

	// MediChat
	var retriever medichat.Retriever
	if cfg.RetrievalEnabled() {
		retriever = retrieval.NewRetriever(
			retrieval.NewHFEmbedder(cfg.HFAPIKey, cfg.EmbeddingModel, ""),
			retrieval.NewPineconeIndex(cfg.PineconeAPIKey, cfg.PineconeIndexHost, cfg.PineconeNamespace),
			retrieval.DefaultTopK, logger)
	}
	var chatGen medichat.TextGenerator
	if gen != nil {
		chatGen = gen
	}
	medichat.NewHandler(medichat.NewService(retriever, chatGen, logger)).RegisterRoutes(api)

	// Imaging: each modality's classifier is a separate inference service.
	classifiers := map[imaging.Modality]imaging.Classifier{}
	for m, url := range map[imaging.Modality]string{
		imaging.ModalityXRay: cfg.XRayInferenceURL,
		imaging.ModalityCT:   cfg.CTInferenceURL,
	} {
		if url == "" {
			continue
		}
		client, err := inference.NewClient(inference.Config{Name: string(m), URL: url, Timeout: cfg.InferenceTimeout}, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("modality", string(m)).Msg("failed to create inference client")
		}
		classifiers[m] = client
	}
	var imagingGen imaging.Generator
	if gen != nil {
		imagingGen = gen
	}
	imaging.NewHandler(imaging.NewService(classifiers, imagingGen, logger)).RegisterRoutes(api)

	// Live call feed for staff
	websocket.NewHandler(hub, cfg.CORSOrigins, logger).RegisterRoutes(api, auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
