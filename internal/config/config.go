package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds service configuration loaded from environment variables.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":3001"`
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	Production bool   `env:"PRODUCTION" envDefault:"false"`

	// Redis backs the challenge store and the event stream. When empty the
	// service falls back to the in-memory store and a no-op publisher.
	RedisURL string `env:"REDIS_URL"`

	// Signing keys as hex-encoded P-256 scalars. Ephemeral keys are
	// generated when unset, which invalidates outstanding tokens on restart.
	SessionSigningKey   string `env:"SESSION_SIGNING_KEY"`
	AnonymousSigningKey string `env:"ANONYMOUS_SIGNING_KEY"`

	TokenIssuer string `env:"TOKEN_ISSUER" envDefault:"decentralized-trust-platform"`

	// Credential issuer allow-list and their resolvable signing keys
	// (did -> hex-encoded uncompressed secp256k1 public key).
	AllowedIssuers []string          `env:"ALLOWED_ISSUERS" envSeparator:","`
	IssuerKeys     map[string]string `env:"ISSUER_KEYS" envSeparator:"," envKeyValSeparator:"="`

	// Membership collection the zero-knowledge proof attests to.
	MembershipCollection string `env:"MEMBERSHIP_COLLECTION" envDefault:"corporate_excellence_2025"`

	// External proof verifier endpoint. When empty, a static verifier is
	// wired: accept-all outside production, reject-all in production.
	ProofVerifierURL string `env:"PROOF_VERIFIER_URL"`

	// AuthDomain and PublicAPIURL appear in the out-of-band challenge bundle.
	AuthDomain   string `env:"AUTH_DOMAIN" envDefault:"decentralized-trust.platform"`
	PublicAPIURL string `env:"PUBLIC_API_URL" envDefault:"http://localhost:3001"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	ChallengeTTL    time.Duration `env:"CHALLENGE_TTL" envDefault:"5m"`
	ChallengeLinger time.Duration `env:"CHALLENGE_LINGER" envDefault:"30s"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	GrantTTL        time.Duration `env:"GRANT_TTL" envDefault:"1h"`
	ZkChallengeTTL  time.Duration `env:"ZK_CHALLENGE_TTL" envDefault:"5m"`
}

// Load reads the environment (and an optional .env file) into Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.ChallengeTTL <= 0 {
		return nil, fmt.Errorf("CHALLENGE_TTL must be positive")
	}
	if cfg.SessionTTL <= 0 || cfg.GrantTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}

	return cfg, nil
}
