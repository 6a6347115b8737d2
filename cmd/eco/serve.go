package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"eco/internal/auth"
	"eco/internal/db"
	"eco/internal/export"
	"eco/internal/media"
	"eco/internal/onboarding"
	"eco/internal/server"
	"eco/internal/storage"
	"eco/internal/store"
	"eco/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	supauth "github.com/supabase-community/auth-go"
	"github.com/urfave/cli/v2"
)

const mediaCacheEntries = 5000

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

// objectStorage signs, uploads and removes private media.
type objectStorage interface {
	media.Signer
	server.Uploader
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	config, err := loadConfig(logger)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	profileRepo := store.NewProfileRepository(pool)
	neighborhoodRepo := store.NewNeighborhoodRepository(pool)
	onboardingRepo := store.NewOnboardingRepository(pool)
	pickupRepo := store.NewPickupRepository(pool)
	postRepo := store.NewPostRepository(pool)
	notificationRepo := store.NewNotificationRepository(pool)
	payoutRepo := store.NewPayoutRepository(pool)
	auditRepo := store.NewAuditRepository(pool)
	mediaRepo := store.NewMediaRepository(pool)

	provider, err := newAuthProvider(ctx, config, logger, profileRepo)
	if err != nil {
		return err
	}

	objects, err := newObjectStorage(ctx, config)
	if err != nil {
		return err
	}

	cacheStore, err := newMediaStore(ctx, config, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(config, logger, server.Deps{
		Auth:          provider,
		Profiles:      profileRepo,
		Neighborhoods: neighborhoodRepo,
		Pickups:       pickupRepo,
		Posts:         postRepo,
		Notifications: notificationRepo,
		Periods:       payoutRepo,
		MediaObjects:  mediaRepo,
		Uploader:      objects,
		MediaURLs:     media.NewCache(media.NewRemoteResolver(provider, mediaRepo, objects), cacheStore),
		Exporter:      export.NewExporter(payoutRepo, profileRepo, auditRepo),
		Wizard:        onboarding.NewWizard(logger, onboardingRepo, profileRepo, neighborhoodRepo),
	})
	if err != nil {
		return err
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":        config.ServerPort,
			"environment": config.Environment,
			"auth":        config.AuthProvider,
		}).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

func newAuthProvider(ctx context.Context, config *types.Config, logger *logrus.Logger, profiles *store.ProfileRepository) (auth.Provider, error) {
	if config.AuthProvider == "fixture" {
		provider, err := auth.LoadFixtureProvider(config.AuthFixturePath)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", config.AuthFixturePath).Warn("using fixture auth provider")
		return provider.WithProfiles(profiles), nil
	}

	jwkCache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := auth.JWKSURL(config.SupabaseURL)
	err = jwkCache.Register(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to register supabase jwk with cache: %w", err)
	}

	client := supauth.New(config.SupabaseProjectRef, config.SupabaseAnonKey).
		WithCustomAuthURL(strings.TrimRight(config.SupabaseURL, "/") + "/auth/v1")

	return auth.NewSupabaseProvider(logger, client, profiles, jwkCache, jwksURL), nil
}

func newObjectStorage(ctx context.Context, config *types.Config) (objectStorage, error) {
	if config.MediaSigner != "s3" {
		return storage.NewSupabaseStorage(config.SupabaseURL, config.SupabaseServiceKey), nil
	}

	awsConfig, err := loadAWSConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if config.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(config.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return storage.NewS3Storage(client), nil
}

func newMediaStore(ctx context.Context, config *types.Config, logger *logrus.Logger) (media.Store, error) {
	if config.RedisURL == "" {
		return media.NewMemoryStore(mediaCacheEntries), nil
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unreachable, signed urls fall back to the in-process cache")
		_ = client.Close()
		return media.NewMemoryStore(mediaCacheEntries), nil
	}

	return media.NewRedisStore(client, logger), nil
}
