package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taxgate/internal/identity/device"
	"taxgate/internal/identity/models"
	"taxgate/internal/identity/otp"
	"taxgate/internal/identity/store"
	"taxgate/pkg/apperrors"
	"taxgate/pkg/sentinel"
)

// Session is the result of a successful verification. AccessToken is empty
// for flows that complete a session without a durable credential.
type Session struct {
	PrincipalID string
	Name        string
	Role        models.Role

	AccessToken    string
	TokenExpiresAt *time.Time
}

// VerifyOTP consumes a challenge handle plus submitted code. On success the
// OTP fields are cleared atomically with the promotion, so the same code can
// never verify twice; for token-issuing flows a fresh signed access token is
// minted whose jti becomes the principal's durable credential id.
//
// Expired, InvalidCode, and InvalidSession stay distinguishable here and in
// logs; the transport layer collapses them into one external message.
func (s *Service) VerifyOTP(ctx context.Context, flowName models.FlowName, handle, code, userAgent string) (*Session, error) {
	flow, ok := models.FlowByName(flowName)
	if !ok {
		return nil, apperrors.New(apperrors.CodeBadRequest, "unknown login flow")
	}

	p, err := s.store.FindBySessionID(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncOTPRejected("invalid_session")
			return nil, apperrors.New(apperrors.CodeInvalidSession, "unknown or expired session")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "verification failed", err)
	}

	if !p.Active {
		return nil, apperrors.New(apperrors.CodeDeactivated, "account is deactivated")
	}
	if !flow.Permits(p.Role) {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "role not permitted for this login")
	}

	now := s.now()
	// A missing expiry counts as expired, never as valid-forever.
	if p.OTPExpiresAt == nil || !now.Before(*p.OTPExpiresAt) {
		s.metrics.IncOTPRejected("expired")
		s.log.Info("otp rejected", "reason", "expired", "principal", p.ID, "flow", flow.Name)
		return nil, apperrors.New(apperrors.CodeExpired, "code has expired")
	}
	if p.OTPCode == nil || !otp.Equal(code, *p.OTPCode) {
		s.metrics.IncOTPRejected("invalid_code")
		s.log.Info("otp rejected", "reason", "invalid_code", "principal", p.ID, "flow", flow.Name)
		return nil, apperrors.New(apperrors.CodeInvalidCode, "incorrect code")
	}

	params := store.CompleteParams{
		PrincipalID: p.ID,
		SessionID:   handle,
		OTPCode:     *p.OTPCode,
		Now:         now,
	}

	var accessToken string
	if flow.IssuesToken {
		signed, jti, err := s.tokens.Issue(p, now, s.tokenTTL)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, "could not issue token", err)
		}
		exp := now.Add(s.tokenTTL)
		accessToken = signed
		params.TokenID = &jti
		params.TokenExpiresAt = &exp
	}

	applied, err := s.store.CompleteVerification(ctx, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "verification failed", err)
	}
	if !applied {
		// Lost a race: the code was consumed or superseded between the read
		// and the conditional update.
		s.metrics.IncOTPRejected("invalid_session")
		return nil, apperrors.New(apperrors.CodeInvalidSession, "unknown or expired session")
	}

	if contact := p.Contact(); contact != "" {
		s.dispatcher.Send(contact, "New login to your account",
			fmt.Sprintf("Your account was accessed from %s at %s. If this was not you, contact support immediately.",
				device.ParseUserAgent(userAgent), now.Format(time.RFC1123)))
	}

	s.metrics.IncOTPVerified(string(flow.Name))
	s.metrics.IncLogin(string(p.Role))
	s.log.Info("login verified", "flow", flow.Name, "principal", p.ID, "role", p.Role)

	sess := &Session{
		PrincipalID: p.ID,
		Name:        p.Name,
		Role:        p.Role,
		AccessToken: accessToken,
	}
	if params.TokenExpiresAt != nil {
		sess.TokenExpiresAt = params.TokenExpiresAt
	}
	return sess, nil
}

const minPasswordLength = 8

// SetPassword completes the password-set flow: the same verification as any
// other OTP, then the new credential is stored as a bcrypt hash.
func (s *Service) SetPassword(ctx context.Context, handle, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.New(apperrors.CodeBadRequest,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	sess, err := s.VerifyOTP(ctx, models.FlowPasswordSet, handle, code, "")
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "could not store password", err)
	}
	if err := s.store.SetPassword(ctx, sess.PrincipalID, string(hash), s.now()); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "could not store password", err)
	}

	s.log.Info("password set", "principal", sess.PrincipalID)
	return nil
}
