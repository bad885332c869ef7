package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dtp-labs/trustgate/core"
	"github.com/dtp-labs/trustgate/internal/eth"
	"github.com/dtp-labs/trustgate/ports"
)

// Config carries the coordinator's tunables. Zero values fall back to the
// defaults used by the reference deployment.
type Config struct {
	AllowedIssuers       []string
	MembershipCollection string
	AuthDomain           string
	PublicAPIURL         string
	ChallengeTTL         time.Duration
	ZkChallengeTTL       time.Duration
}

// AuthService coordinates the two authentication flows: identified
// challenge-response login and anonymous proof-gated grants. It owns no
// cryptography itself; verification and token minting live in adapters.
type AuthService struct {
	store       ports.ChallengeStore
	sessions    ports.SessionTokenizer
	grants      ports.AnonymousGranter
	credentials ports.CredentialVerifier
	proofs      ports.ProofVerifier
	events      ports.EventPublisher

	cfg Config

	// zk nonces are a small, short-lived namespace with no persistence
	// requirement, so they live in process even when challenges are in redis.
	zkMu     sync.Mutex
	zkNonces map[string]*core.ZkChallenge

	now func() time.Time
}

// NewAuthService creates the authentication coordinator.
func NewAuthService(
	store ports.ChallengeStore,
	sessions ports.SessionTokenizer,
	grants ports.AnonymousGranter,
	credentials ports.CredentialVerifier,
	proofs ports.ProofVerifier,
	events ports.EventPublisher,
	cfg Config,
) *AuthService {
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = 5 * time.Minute
	}
	if cfg.ZkChallengeTTL <= 0 {
		cfg.ZkChallengeTTL = 5 * time.Minute
	}
	return &AuthService{
		store:       store,
		sessions:    sessions,
		grants:      grants,
		credentials: credentials,
		proofs:      proofs,
		events:      events,
		cfg:         cfg,
		zkNonces:    make(map[string]*core.ZkChallenge),
		now:         time.Now,
	}
}

// ChallengePayload is what a client needs to start a login: the challenge
// itself plus a self-contained bundle suitable for out-of-band transports
// such as QR codes.
type ChallengePayload struct {
	ChallengeID string
	Secret      string
	ExpiresAt   time.Time
	ExpiresIn   int
	Bundle      string
}

// challengeBundle is the out-of-band representation of a challenge. A wallet
// scanning it has everything needed to respond without prior state.
type challengeBundle struct {
	Type        string `json:"type"`
	Version     string `json:"version"`
	ChallengeID string `json:"challengeId"`
	Challenge   string `json:"challenge"`
	Domain      string `json:"domain"`
	APIEndpoint string `json:"apiEndpoint,omitempty"`
	ExpiresAt   int64  `json:"expiresAt"`
	RequesterID string `json:"requesterId,omitempty"`
	GroupID     string `json:"groupId,omitempty"`
	RequestKind string `json:"requestKind,omitempty"`
}

// IssueChallenge creates a fresh single-use challenge. The bound context is
// informational and echoed into the bundle.
func (s *AuthService) IssueChallenge(ctx context.Context, bound *core.BoundContext) (*ChallengePayload, error) {
	challenge, err := s.store.Create(ctx, bound)
	if err != nil {
		return nil, fmt.Errorf("create challenge: %w", err)
	}

	bundle := challengeBundle{
		Type:        "did-auth-request",
		Version:     "1.0",
		ChallengeID: challenge.ID,
		Challenge:   challenge.Secret,
		Domain:      s.cfg.AuthDomain,
		APIEndpoint: s.cfg.PublicAPIURL,
		ExpiresAt:   challenge.ExpiresAt.UnixMilli(),
	}
	if bound != nil {
		bundle.RequesterID = bound.RequesterID
		bundle.GroupID = bound.GroupID
		bundle.RequestKind = bound.RequestKind
	}
	raw, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("encode challenge bundle: %w", err)
	}

	log.Debug().Str("challenge_id", challenge.ID).Msg("challenge issued")

	return &ChallengePayload{
		ChallengeID: challenge.ID,
		Secret:      challenge.Secret,
		ExpiresAt:   challenge.ExpiresAt,
		ExpiresIn:   int(time.Until(challenge.ExpiresAt).Seconds()),
		Bundle:      base64.StdEncoding.EncodeToString(raw),
	}, nil
}

// checkChallenge loads the challenge and rejects used or expired ones. The
// returned challenge is still live; consumption happens separately.
func (s *AuthService) checkChallenge(ctx context.Context, challengeID, message string) (*core.Challenge, error) {
	challenge, err := s.store.Get(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.Used {
		return nil, core.ErrChallengeUsed
	}
	if challenge.Expired(s.now()) {
		return nil, core.ErrChallengeExpired
	}
	// The signed message must embed the secret verbatim; clients are free to
	// wrap it in human-readable text.
	if !strings.Contains(message, challenge.Secret) {
		return nil, core.ErrInvalidChallenge
	}
	return challenge, nil
}

// finishLogin mints a session, then atomically consumes the challenge with
// the result attached. Minting happens first so a poll observing the consumed
// challenge always sees a token; a consume race discards the minted token.
func (s *AuthService) finishLogin(ctx context.Context, challengeID string, session core.Session) (string, error) {
	token, err := s.sessions.Mint(session)
	if err != nil {
		return "", fmt.Errorf("mint session token: %w", err)
	}

	result := &core.ChallengeResult{
		Token:          token,
		SubjectAddress: session.SubjectAddress,
		DID:            session.DID,
	}
	if _, err := s.store.TryConsume(ctx, challengeID, result); err != nil {
		return "", err
	}

	if err := s.events.PublishLogin(ctx, session.SubjectAddress, session.DID, challengeID); err != nil {
		log.Warn().Err(err).Str("challenge_id", challengeID).Msg("failed to publish login event")
	}

	log.Info().
		Str("challenge_id", challengeID).
		Str("address", truncateAddress(session.SubjectAddress)).
		Bool("credential_verified", session.CredentialVerified).
		Msg("login verified")

	return token, nil
}

// VerifySignature authenticates a client that proves control of an address
// by signing the challenge. On success the challenge is consumed and a
// standard session token is returned.
func (s *AuthService) VerifySignature(ctx context.Context, challengeID, claimedAddress, message, signature string) (string, error) {
	if !common.IsHexAddress(claimedAddress) {
		return "", core.ErrInvalidAddress
	}

	if _, err := s.checkChallenge(ctx, challengeID, message); err != nil {
		return "", err
	}

	if !eth.Verify(message, signature, claimedAddress) {
		return "", core.ErrInvalidSignature
	}

	address := common.HexToAddress(claimedAddress)
	return s.finishLogin(ctx, challengeID, core.Session{
		SubjectAddress: address.Hex(),
		DID:            eth.FormatDID(address),
		AccessLevel:    core.AccessStandard,
	})
}

// VerifyWithCredential authenticates a DID holder and additionally validates
// a verifiable credential bound to that DID. Credential claims ride along on
// the session as informational passengers.
func (s *AuthService) VerifyWithCredential(ctx context.Context, challengeID, did, message, signature, credentialToken string) (string, *core.Session, error) {
	address, err := eth.ParseDID(did)
	if err != nil {
		return "", nil, err
	}

	if _, err := s.checkChallenge(ctx, challengeID, message); err != nil {
		return "", nil, err
	}

	if !eth.Verify(message, signature, address.Hex()) {
		return "", nil, core.ErrInvalidSignature
	}

	vc, err := s.credentials.Verify(ctx, credentialToken, did, s.cfg.AllowedIssuers)
	if err != nil {
		return "", nil, err
	}

	session := core.Session{
		SubjectAddress:     address.Hex(),
		DID:                eth.FormatDID(address),
		AccessLevel:        core.AccessStandard,
		CredentialVerified: true,
		Role:               vc.Claims.Role,
		Group:              vc.Claims.Group,
		Name:               vc.Claims.Name,
		Email:              vc.Claims.Email,
	}

	token, err := s.finishLogin(ctx, challengeID, session)
	if err != nil {
		return "", nil, err
	}

	// Return the canonical claims as minted, timestamps included.
	minted, err := s.sessions.Verify(token)
	if err != nil {
		return "", nil, fmt.Errorf("verify minted token: %w", err)
	}
	return token, minted, nil
}

// PollResult is the observable state of a challenge for polling clients.
type PollResult struct {
	ChallengeID    string
	Status         string // "pending" or "completed"
	ExpiresAt      time.Time
	Token          string
	SubjectAddress string
	DID            string
}

func pollResultFrom(challenge *core.Challenge) *PollResult {
	r := &PollResult{
		ChallengeID: challenge.ID,
		Status:      "pending",
		ExpiresAt:   challenge.ExpiresAt,
	}
	if challenge.Used && challenge.Result != nil {
		r.Status = "completed"
		r.Token = challenge.Result.Token
		r.SubjectAddress = challenge.Result.SubjectAddress
		r.DID = challenge.Result.DID
	}
	return r
}

// Poll reports whether a challenge has been completed. It never consumes or
// otherwise mutates the challenge.
func (s *AuthService) Poll(ctx context.Context, challengeID string) (*PollResult, error) {
	challenge, err := s.store.Get(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !challenge.Used && challenge.Expired(s.now()) {
		return nil, core.ErrChallengeExpired
	}
	return pollResultFrom(challenge), nil
}

// PollByFragment is Poll keyed by a fragment of the challenge id or secret,
// for clients that only retained a session shorthand.
func (s *AuthService) PollByFragment(ctx context.Context, fragment string) (*PollResult, error) {
	challenge, err := s.store.FindByFragment(ctx, fragment)
	if err != nil {
		return nil, err
	}
	if !challenge.Used && challenge.Expired(s.now()) {
		return nil, core.ErrChallengeExpired
	}
	return pollResultFrom(challenge), nil
}

// IssueZkChallenge creates a freshness nonce for the anonymous proof flow.
// It carries no identity binding.
func (s *AuthService) IssueZkChallenge(ctx context.Context) (*core.ZkChallenge, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("generate zk nonce: %w", err)
	}

	now := s.now()
	challenge := &core.ZkChallenge{
		ID:        uuid.New().String(),
		Nonce:     hex.EncodeToString(nonceBytes),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ZkChallengeTTL),
	}

	s.zkMu.Lock()
	defer s.zkMu.Unlock()
	for id, zc := range s.zkNonces {
		if now.After(zc.ExpiresAt) {
			delete(s.zkNonces, id)
		}
	}
	s.zkNonces[challenge.ID] = challenge

	return challenge, nil
}

// consumeZkNonce enforces single use of a zk challenge. An empty id is
// accepted: the nonce is an optional replay guard, not an identity binding.
func (s *AuthService) consumeZkNonce(id string) error {
	if id == "" {
		return nil
	}

	s.zkMu.Lock()
	defer s.zkMu.Unlock()

	challenge, ok := s.zkNonces[id]
	if !ok {
		return core.ErrChallengeNotFound
	}
	delete(s.zkNonces, id)
	if s.now().After(challenge.ExpiresAt) {
		return core.ErrChallengeExpired
	}
	return nil
}

// SubmitProof exchanges an accepted membership proof for an anonymous grant.
// No identity enters or leaves this path.
func (s *AuthService) SubmitProof(ctx context.Context, proof core.ProofArtifact, publicSignals []string, zkChallengeID string) (string, error) {
	if err := s.consumeZkNonce(zkChallengeID); err != nil {
		return "", err
	}

	accepted, err := s.proofs.VerifyMembership(ctx, proof, publicSignals)
	if err != nil {
		return "", err
	}
	if !accepted {
		return "", core.ErrProofRejected
	}

	token, err := s.grants.Mint(accepted, s.cfg.MembershipCollection)
	if err != nil {
		return "", err
	}

	if err := s.events.PublishAnonymousGrant(ctx, s.cfg.MembershipCollection); err != nil {
		log.Warn().Err(err).Msg("failed to publish anonymous grant event")
	}

	log.Info().Str("collection", s.cfg.MembershipCollection).Msg("anonymous grant issued")
	return token, nil
}

// SubmitProofForSessionUpgrade upgrades an existing identified session to
// premium after an accepted membership proof. The prior token stays valid
// until its own expiry.
func (s *AuthService) SubmitProofForSessionUpgrade(ctx context.Context, sessionToken string, proof core.ProofArtifact, publicSignals []string) (string, error) {
	session, err := s.sessions.Verify(sessionToken)
	if err != nil {
		return "", err
	}

	accepted, err := s.proofs.VerifyMembership(ctx, proof, publicSignals)
	if err != nil {
		return "", err
	}
	if !accepted {
		return "", core.ErrProofRejected
	}

	upgraded, err := s.sessions.Upgrade(session)
	if err != nil {
		return "", fmt.Errorf("upgrade session: %w", err)
	}

	if err := s.events.PublishSessionUpgraded(ctx, session.SubjectAddress); err != nil {
		log.Warn().Err(err).Msg("failed to publish session upgrade event")
	}

	log.Info().
		Str("address", truncateAddress(session.SubjectAddress)).
		Msg("session upgraded to premium")
	return upgraded, nil
}

// VerifySessionToken validates an identified session token.
func (s *AuthService) VerifySessionToken(token string) (*core.Session, error) {
	return s.sessions.Verify(token)
}

// VerifyAnonymousGrant validates an anonymous grant token.
func (s *AuthService) VerifyAnonymousGrant(token string) (*core.AnonymousGrant, error) {
	return s.grants.Verify(token)
}

// truncateAddress keeps logs correlatable without recording full addresses.
func truncateAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:10] + "..."
}
