package router

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bizcard/internal/api/v1/handler"
	"bizcard/internal/config"
	"bizcard/internal/events"
	"bizcard/internal/gotrue"
	"bizcard/internal/middleware"
	"bizcard/internal/pgmq"
	"bizcard/internal/preferences"
	"bizcard/internal/pubsub"
	"bizcard/internal/repository"
	"bizcard/internal/service"
	"bizcard/internal/storage"
	"bizcard/internal/store"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Setup builds the HTTP handler around already constructed handlers.
func Setup(cfg *config.Config, h Handlers, logger zerolog.Logger) http.Handler {
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	chiRouter, api := SetupHumaAPI(cfg, authMiddleware, logger)
	RegisterRoutes(api, h, logger)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return middleware.LoggerMiddleware(logger)(c.Handler(chiRouter))
}

// NewPublisher returns the event backend selected by EVENTS_BACKEND.
func NewPublisher(ctx context.Context, cfg *config.Config, db *sql.DB) (events.Publisher, func() error, error) {
	nop := func() error { return nil }
	switch cfg.EventsBackend {
	case "pgmq":
		return pgmq.New(db), nop, nil
	case "pubsub":
		p, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case "none", "":
		return events.Nop{}, nop, nil
	}
	return nil, nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
}

// New wires the application. The returned cleanup releases the database, the publisher and the preference cache.
func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, func() error, error) {
	ctx := context.Background()
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	db, err := repository.OpenPostgres(ctx, cfg.DBConnectionString, cfg.Environment)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	s3Client, err := storage.NewS3Client(ctx, storage.S3Options{
		Endpoint:  cfg.S3URL,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	publisher, closePublisher, err := NewPublisher(ctx, cfg, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	logger.Info().Str("backend", cfg.EventsBackend).Msg("Event publisher initialized")

	prefs, err := preferences.Open(ctx, cfg.PreferencesDSN, logger)
	if err != nil {
		_ = closePublisher()
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to open preferences: %w", err)
	}

	cardRepo := repository.NewCardRepo(db)
	contactRepo := repository.NewContactRepo(db)
	profileRepo := repository.NewProfileRepo(db)
	scanRepo := repository.NewScanRepo(db)

	validate := store.NewValidator()
	cardsDeps := store.CardsDeps{
		Cards:     cardRepo,
		Profiles:  profileRepo,
		Scans:     scanRepo,
		Publisher: publisher,
		ScanTopic: cfg.ScanTopic,
		Validate:  validate,
	}
	authOpts := store.AuthOptions{
		EmailRedirectURL: cfg.EmailRedirectURL,
		OAuthRedirectURL: cfg.OAuthRedirectURL,
		ResetRedirectURL: cfg.ResetRedirectURL,
	}
	registry := store.NewRegistry(func() *store.State {
		auth := store.NewAuthStore(gotrue.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, logger), profileRepo, authOpts, logger)
		return &store.State{
			Auth:     auth,
			Cards:    store.NewCardsStore(auth, cardsDeps, logger),
			Contacts: store.NewContactsStore(auth, contactRepo, validate, logger),
		}
	})
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	if cfg.StateIdleTimeoutSec > 0 {
		go registry.Janitor(janitorCtx,
			time.Duration(max(cfg.StateSweepIntervalSec, 1))*time.Second,
			time.Duration(cfg.StateIdleTimeoutSec)*time.Second)
	}

	visitorCards := func() *store.CardsStore {
		return store.NewCardsStore(store.Anonymous, cardsDeps, logger)
	}

	var admin service.MetadataUpdater
	if cfg.SupabaseServiceRoleKey != "" {
		admin = gotrue.NewAdmin(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, logger)
	} else {
		logger.Warn().Msg("SUPABASE_SERVICE_ROLE_KEY not set; premium changes from webhooks only reach the profile row")
	}
	entitlements := service.NewEntitlementService(registry, profileRepo, admin, logger)
	stripeSvc := service.NewStripeService(cfg, profileRepo, entitlements, logger)
	avatars := storage.NewAvatarStorage(s3Client, cfg.S3Bucket, cfg.S3PublicURL, logger)

	h := Handlers{
		Auth:    handler.NewAuthHandler(registry, logger),
		User:    handler.NewUserHandler(registry, profileRepo, avatars, prefs, logger),
		Card:    handler.NewCardHandler(registry, logger),
		Contact: handler.NewContactHandler(registry, logger),
		Public:  handler.NewPublicHandler(registry, visitorCards, publisher, cfg.ContactImportTopic, logger),
		Billing: handler.NewBillingHandler(stripeSvc, logger),
	}

	cleanup := func() error {
		stopJanitor()
		return errors.Join(prefs.Close(), closePublisher(), db.Close())
	}
	return Setup(cfg, h, logger), cleanup, nil
}
