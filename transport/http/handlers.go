package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dtp-labs/trustgate/core"
	"github.com/dtp-labs/trustgate/service"
)

// AuthHandlers contains the HTTP handlers for both authentication flows.
type AuthHandlers struct {
	authService *service.AuthService
	production  bool
}

// NewAuthHandlers creates the auth handlers.
func NewAuthHandlers(authService *service.AuthService, production bool) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		production:  production,
	}
}

func respondOK(c *gin.Context, data gin.H) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success":   false,
		"error":     code,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// respondServiceError maps domain errors onto status codes and stable error
// codes. Unknown errors become internal_error; in production their detail is
// not echoed to the client.
func (h *AuthHandlers) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrChallengeNotFound):
		respondError(c, http.StatusNotFound, "challenge_not_found", "Challenge not found")
	case errors.Is(err, core.ErrChallengeExpired):
		respondError(c, http.StatusGone, "challenge_expired", "Challenge has expired")
	case errors.Is(err, core.ErrChallengeUsed):
		respondError(c, http.StatusConflict, "challenge_already_used", "Challenge has already been used")
	case errors.Is(err, core.ErrInvalidChallenge):
		respondError(c, http.StatusBadRequest, "validation_error", "Signed message does not contain the challenge")
	case errors.Is(err, core.ErrInvalidAddress):
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid address")
	case errors.Is(err, core.ErrInvalidDID):
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid DID")
	case errors.Is(err, core.ErrInvalidProof):
		respondError(c, http.StatusBadRequest, "validation_error", "Malformed proof")
	case errors.Is(err, core.ErrInvalidSignature):
		respondError(c, http.StatusUnauthorized, "signature_mismatch", "Signature verification failed")
	case errors.Is(err, core.ErrCredentialSubjectMismatch),
		errors.Is(err, core.ErrCredentialIssuerNotAllowed),
		errors.Is(err, core.ErrCredentialExpired),
		errors.Is(err, core.ErrCredentialInvalid):
		respondError(c, http.StatusUnauthorized, "credential_invalid", "Credential verification failed")
	case errors.Is(err, core.ErrProofRejected):
		respondError(c, http.StatusBadRequest, "proof_rejected", "Proof verification failed")
	case errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrAccessLevelMismatch):
		respondError(c, http.StatusUnauthorized, "token_invalid", "Invalid or expired token")
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		message := "Internal server error"
		if !h.production {
			message = err.Error()
		}
		respondError(c, http.StatusInternalServerError, "internal_error", message)
	}
}

// Challenge creates a new authentication challenge. The request body is
// optional and only carries informational context.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		EmployeeID string `json:"employeeId"`
		CompanyID  string `json:"companyId"`
		Type       string `json:"type"`
	}
	// Empty bodies are fine; a malformed body is not.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body")
			return
		}
	}

	var bound *core.BoundContext
	if req.EmployeeID != "" || req.CompanyID != "" || req.Type != "" {
		bound = &core.BoundContext{
			RequesterID: req.EmployeeID,
			GroupID:     req.CompanyID,
			RequestKind: req.Type,
		}
	}

	payload, err := h.authService.IssueChallenge(c.Request.Context(), bound)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{
		"challengeId": payload.ChallengeID,
		"challenge":   payload.Secret,
		"expiresAt":   payload.ExpiresAt.UTC().Format(time.RFC3339),
		"expiresIn":   payload.ExpiresIn,
		"qrData":      payload.Bundle,
	})
}

func pollResponse(result *service.PollResult) gin.H {
	data := gin.H{
		"challengeId": result.ChallengeID,
		"status":      result.Status,
		"expiresAt":   result.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if result.Status == "completed" {
		data["token"] = result.Token
		data["address"] = result.SubjectAddress
		data["did"] = result.DID
	}
	return data
}

// ChallengeStatus reports whether a challenge has been completed.
func (h *AuthHandlers) ChallengeStatus(c *gin.Context) {
	result, err := h.authService.Poll(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, pollResponse(result))
}

// SessionStatus resolves a challenge by session shorthand and reports its
// state.
func (h *AuthHandlers) SessionStatus(c *gin.Context) {
	result, err := h.authService.PollByFragment(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, pollResponse(result))
}

// Verify authenticates a signed challenge and returns a session token.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		ChallengeID string `json:"challengeId" binding:"required"`
		Address     string `json:"address" binding:"required"`
		Message     string `json:"message" binding:"required"`
		Signature   string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "challengeId, address, message and signature are required")
		return
	}

	token, err := h.authService.VerifySignature(c.Request.Context(), req.ChallengeID, req.Address, req.Message, req.Signature)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	session, err := h.authService.VerifySessionToken(token)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{
		"token":       token,
		"address":     session.SubjectAddress,
		"did":         session.DID,
		"accessLevel": session.AccessLevel,
		"expiresAt":   session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Login authenticates a DID holder with a signed challenge and a verifiable
// credential.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		ChallengeID string `json:"challengeId" binding:"required"`
		DID         string `json:"did" binding:"required"`
		Message     string `json:"message" binding:"required"`
		Signature   string `json:"signature" binding:"required"`
		Credential  string `json:"credential" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "challengeId, did, message, signature and credential are required")
		return
	}

	token, session, err := h.authService.VerifyWithCredential(c.Request.Context(), req.ChallengeID, req.DID, req.Message, req.Signature, req.Credential)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{
		"token":       token,
		"address":     session.SubjectAddress,
		"did":         session.DID,
		"accessLevel": session.AccessLevel,
		"expiresAt":   session.ExpiresAt.UTC().Format(time.RFC3339),
		"isAdmin":     strings.EqualFold(session.Role, "admin"),
		"user": gin.H{
			"role":       session.Role,
			"department": session.Group,
			"name":       session.Name,
			"email":      session.Email,
		},
	})
}

func sessionResponse(session *core.Session) gin.H {
	data := gin.H{
		"address":            session.SubjectAddress,
		"did":                session.DID,
		"accessLevel":        session.AccessLevel,
		"credentialVerified": session.CredentialVerified,
		"issuedAt":           session.IssuedAt.UTC().Format(time.RFC3339),
		"expiresAt":          session.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if !session.PremiumGrantedAt.IsZero() {
		data["premiumGrantedAt"] = session.PremiumGrantedAt.UTC().Format(time.RFC3339)
	}
	return data
}

// VerifyToken introspects a session token passed in the request body.
func (h *AuthHandlers) VerifyToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "token is required")
		return
	}

	session, err := h.authService.VerifySessionToken(req.Token)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	data := sessionResponse(session)
	data["valid"] = true
	respondOK(c, data)
}

// SessionStatusAuthenticated returns the session claims behind the bearer
// middleware.
func (h *AuthHandlers) SessionStatusAuthenticated(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		respondError(c, http.StatusInternalServerError, "internal_error", "Session missing from context")
		return
	}
	respondOK(c, sessionResponse(session))
}

// ZkChallenge issues a freshness nonce for the anonymous proof flow.
func (h *AuthHandlers) ZkChallenge(c *gin.Context) {
	challenge, err := h.authService.IssueZkChallenge(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{
		"challengeId": challenge.ID,
		"challenge":   challenge.Nonce,
		"expiresAt":   challenge.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

type proofRequest struct {
	Proof         core.ProofArtifact `json:"proof" binding:"required"`
	PublicSignals []string           `json:"publicSignals" binding:"required"`
	ChallengeID   string             `json:"challengeId"`
}

// VerifyZkp exchanges a membership proof for an anonymous grant.
func (h *AuthHandlers) VerifyZkp(c *gin.Context) {
	var req proofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "proof and publicSignals are required")
		return
	}

	token, err := h.authService.SubmitProof(c.Request.Context(), req.Proof, req.PublicSignals, req.ChallengeID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{
		"token":       token,
		"accessLevel": core.AccessPremiumContent,
		"anonymous":   true,
	})
}

// VerifyZkpSession upgrades the bearer session to premium after a membership
// proof.
func (h *AuthHandlers) VerifyZkpSession(c *gin.Context) {
	var req proofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "proof and publicSignals are required")
		return
	}

	token, err := h.authService.SubmitProofForSessionUpgrade(c.Request.Context(), bearerFromContext(c), req.Proof, req.PublicSignals)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{
		"token":       token,
		"accessLevel": core.AccessPremium,
	})
}

// VerifyAnonymousToken introspects an anonymous grant token.
func (h *AuthHandlers) VerifyAnonymousToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "token is required")
		return
	}

	grant, err := h.authService.VerifyAnonymousGrant(req.Token)
	if err != nil {
		// Introspection of an anonymous grant is an access check, so token
		// failures are forbidden rather than unauthorized.
		if errors.Is(err, core.ErrTokenExpired) || errors.Is(err, core.ErrInvalidToken) || errors.Is(err, core.ErrAccessLevelMismatch) {
			respondError(c, http.StatusForbidden, "token_invalid", "Invalid or expired token")
			return
		}
		h.respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{
		"valid":       true,
		"accessLevel": grant.AccessLevel,
		"grantType":   grant.GrantType,
		"collection":  grant.MembershipCollection,
		"anonymous":   grant.Anonymous,
		"expiresAt":   grant.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
