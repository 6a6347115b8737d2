package main

import (
	"context"
	"fmt"

	"eco/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

func loadConfig(logger *logrus.Logger) (*types.Config, error) {
	// a local .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	c := new(types.Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 15
	}

	switch c.AuthProvider {
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return nil, fmt.Errorf("set SUPABASE_URL and SUPABASE_ANON_KEY, or AUTH_PROVIDER=fixture")
		}
	case "fixture":
		if c.IsProduction() {
			return nil, fmt.Errorf("fixture auth is not allowed in production")
		}
	default:
		return nil, fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	if c.IsStaging() && c.StagingPassword == "" {
		logger.Warn("STAGING_PASSWORD not set, staging is open to everyone")
	}

	return c, nil
}

func loadAWSConfig(ctx context.Context, c *types.Config) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(c.S3Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return cfg, nil
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}
