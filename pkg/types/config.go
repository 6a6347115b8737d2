package types

import "time"

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Supabase project
	SupabaseURL        string `envconfig:"SUPABASE_URL"`
	SupabaseProjectRef string `envconfig:"SUPABASE_PROJECT_REF"`
	SupabaseAnonKey    string `envconfig:"SUPABASE_ANON_KEY"`
	SupabaseServiceKey string `envconfig:"SUPABASE_SERVICE_KEY"`

	// Auth provider: "supabase" or "fixture"
	AuthProvider    string `envconfig:"AUTH_PROVIDER" default:"supabase"`
	AuthFixturePath string `envconfig:"AUTH_FIXTURE_PATH" default:"fixtures/users.yaml"`

	// Private media
	StorageBucket string `envconfig:"STORAGE_BUCKET" default:"eco-private"`
	MediaSigner   string `envconfig:"MEDIA_SIGNER" default:"supabase"`
	S3Endpoint    string `envconfig:"S3_ENDPOINT"`
	S3Region      string `envconfig:"S3_REGION" default:"us-east-1"`

	// Optional shared cache for signed URLs
	RedisURL string `envconfig:"REDIS_URL"`

	StagingPassword string `envconfig:"STAGING_PASSWORD"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	APIRatePerSec float64 `envconfig:"API_RATE_PER_SEC" default:"5"`
	APIRateBurst  int     `envconfig:"API_RATE_BURST" default:"20"`

	TransparencyRefresh time.Duration `envconfig:"TRANSPARENCY_REFRESH" default:"5m"`

	Features Features
}

type Features struct {
	Pilot   bool `envconfig:"FEATURE_PILOT"`
	Anchors bool `envconfig:"FEATURE_ANCHORS"`
	Galpao  bool `envconfig:"FEATURE_GALPAO"`
	Gov     bool `envconfig:"FEATURE_GOV"`
	Learn   bool `envconfig:"FEATURE_LEARN"`
}

const (
	EnvironmentProduction = "production"
	EnvironmentStaging    = "staging"
)

func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

func (c *Config) IsStaging() bool {
	return c.Environment == EnvironmentStaging
}
