package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dtp-labs/trustgate/adapters/credential"
	"github.com/dtp-labs/trustgate/adapters/events"
	"github.com/dtp-labs/trustgate/adapters/store"
	"github.com/dtp-labs/trustgate/adapters/tokenizer"
	"github.com/dtp-labs/trustgate/adapters/zkverifier"
	"github.com/dtp-labs/trustgate/internal/config"
	"github.com/dtp-labs/trustgate/internal/logger"
	"github.com/dtp-labs/trustgate/ports"
	"github.com/dtp-labs/trustgate/service"
	"github.com/dtp-labs/trustgate/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}

	logger.Init("trustgate", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionKey, err := loadSigningKey(cfg.SessionSigningKey)
	if err != nil {
		log.Fatal().Err(err).Msg("load session signing key")
	}
	grantKey, err := loadSigningKey(cfg.AnonymousSigningKey)
	if err != nil {
		log.Fatal().Err(err).Msg("load anonymous signing key")
	}

	var (
		challengeStore ports.ChallengeStore
		publisher      ports.EventPublisher = events.NopPublisher{}
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient := redis.NewClient(opts)
		challengeStore = store.NewRedisStore(redisClient, cfg.ChallengeTTL, cfg.ChallengeLinger)

		streamPublisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(cfg.Debug, false),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("create event publisher")
		}
		publisher = events.NewWatermillPublisher(streamPublisher)
		log.Info().Msg("using redis challenge store and event stream")
	} else {
		challengeStore = store.NewMemoryStore(cfg.ChallengeTTL, cfg.ChallengeLinger)
		log.Info().Msg("using in-memory challenge store, events disabled")
	}

	resolver := credential.NewStaticResolver()
	for did, hexKey := range cfg.IssuerKeys {
		raw, err := hex.DecodeString(hexKey)
		if err != nil {
			log.Fatal().Err(err).Str("did", did).Msg("decode issuer key")
		}
		pub, err := ethcrypto.UnmarshalPubkey(raw)
		if err != nil {
			log.Fatal().Err(err).Str("did", did).Msg("parse issuer key")
		}
		resolver.Register(did, pub)
	}

	var proofVerifier ports.ProofVerifier
	if cfg.ProofVerifierURL != "" {
		proofVerifier = zkverifier.NewHTTPVerifier(cfg.ProofVerifierURL)
	} else {
		// Without a deployed circuit, accept proofs in development only.
		proofVerifier = &zkverifier.StaticVerifier{Accept: !cfg.Production}
		if cfg.Production {
			log.Warn().Msg("no proof verifier configured, all proofs will be rejected")
		}
	}

	authService := service.NewAuthService(
		challengeStore,
		tokenizer.NewSessionTokenizer(sessionKey, cfg.TokenIssuer, cfg.SessionTTL),
		tokenizer.NewAnonymousGranter(grantKey, cfg.TokenIssuer, cfg.GrantTTL),
		credential.NewVerifier(resolver),
		proofVerifier,
		publisher,
		service.Config{
			AllowedIssuers:       cfg.AllowedIssuers,
			MembershipCollection: cfg.MembershipCollection,
			AuthDomain:           cfg.AuthDomain,
			PublicAPIURL:         cfg.PublicAPIURL,
			ChallengeTTL:         cfg.ChallengeTTL,
			ZkChallengeTTL:       cfg.ZkChallengeTTL,
		},
	)

	go service.NewSweeper(challengeStore, cfg.SweepInterval).Run(ctx)

	router := http.SetupRouter(authService, http.RouterConfig{
		Production:     cfg.Production,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	server := &nethttp.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

// loadSigningKey parses a hex-encoded P-256 scalar, or generates an ephemeral
// key when unset. Ephemeral keys invalidate outstanding tokens on restart.
func loadSigningKey(hexKey string) (*ecdsa.PrivateKey, error) {
	if hexKey == "" {
		log.Warn().Msg("no signing key configured, generating ephemeral key")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}

	d := new(big.Int).SetBytes(raw)
	curve := elliptic.P256()
	if d.Sign() <= 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("signing key scalar out of range")
	}

	key := new(ecdsa.PrivateKey)
	key.Curve = curve
	key.D = d
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(raw)
	return key, nil
}
