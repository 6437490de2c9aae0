package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taxgate/internal/identity/models"
	"taxgate/internal/identity/service"
	"taxgate/pkg/apperrors"
)

// IdentityService is the slice of the identity service the auth endpoints
// need.
type IdentityService interface {
	BeginLogin(ctx context.Context, flow models.FlowName, identifier, password string) (*service.Challenge, error)
	VerifyOTP(ctx context.Context, flow models.FlowName, handle, code, userAgent string) (*service.Session, error)
	SetPassword(ctx context.Context, handle, code, newPassword string) error
	Logout(ctx context.Context, token string) error
}

type AuthHandler struct {
	identity IdentityService
}

func NewAuthHandler(identity IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/{flow}/login", h.handleLogin)
	r.Post("/auth/{flow}/verify", h.handleVerify)
	r.Post("/auth/password", h.handleSetPassword)
	r.Post("/auth/logout", h.handleLogout)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password,omitempty"`
}

type challengeResponse struct {
	Handle        string `json:"handle"`
	MaskedContact string `json:"masked_contact"`
	Role          string `json:"role"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Identifier == "" {
		writeError(w, apperrors.New(apperrors.CodeBadRequest, "identifier is required"))
		return
	}

	flow := models.FlowName(chi.URLParam(r, "flow"))
	challenge, err := h.identity.BeginLogin(r.Context(), flow, req.Identifier, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, challengeResponse{
		Handle:        challenge.Handle,
		MaskedContact: challenge.MaskedContact,
		Role:          string(challenge.Role),
	})
}

type verifyRequest struct {
	Handle string `json:"handle"`
	Code   string `json:"code"`
}

type sessionResponse struct {
	PrincipalID    string     `json:"principal_id"`
	Name           string     `json:"name"`
	Role           string     `json:"role"`
	AccessToken    string     `json:"access_token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}

func (h *AuthHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeBadRequest, "invalid request body"))
		return
	}

	flow := models.FlowName(chi.URLParam(r, "flow"))
	sess, err := h.identity.VerifyOTP(r.Context(), flow, req.Handle, req.Code, r.UserAgent())
	if err != nil {
		writeError(w, uniformVerifyFailure(err))
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		PrincipalID:    sess.PrincipalID,
		Name:           sess.Name,
		Role:           string(sess.Role),
		AccessToken:    sess.AccessToken,
		TokenExpiresAt: sess.TokenExpiresAt,
	})
}

type setPasswordRequest struct {
	Handle      string `json:"handle"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.identity.SetPassword(r.Context(), req.Handle, req.Code, req.NewPassword); err != nil {
		writeError(w, uniformVerifyFailure(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, apperrors.New(apperrors.CodeInvalidSession, "missing bearer token"))
		return
	}
	if err := h.identity.Logout(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uniformVerifyFailure collapses the distinguishable verification failures
// into one external answer. Whether a handle was unknown, the code wrong, or
// the code expired stays in logs; a caller probing the endpoint learns
// nothing from the response.
func uniformVerifyFailure(err error) error {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeExpired, apperrors.CodeInvalidCode, apperrors.CodeInvalidSession:
		return apperrors.New(apperrors.CodeInvalidCode, "invalid or expired verification code")
	default:
		return err
	}
}
