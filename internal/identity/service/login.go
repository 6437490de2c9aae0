package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"taxgate/internal/identity/models"
	"taxgate/internal/identity/otp"
	"taxgate/pkg/apperrors"
	"taxgate/pkg/mask"
	"taxgate/pkg/sentinel"
)

// Challenge is what a caller gets back from BeginLogin: an opaque handle to
// correlate the later verification, and a masked copy of where the code went.
// The principal's identifier is deliberately absent.
type Challenge struct {
	Handle        string
	MaskedContact string
	Role          models.Role
}

// BeginLogin resolves the principal for the flow, runs the flow's password
// step if it has one, and issues a fresh OTP. Issuing always supersedes any
// prior unconsumed code for the principal.
func (s *Service) BeginLogin(ctx context.Context, flowName models.FlowName, identifier, password string) (*Challenge, error) {
	flow, ok := models.FlowByName(flowName)
	if !ok {
		return nil, apperrors.New(apperrors.CodeBadRequest, "unknown login flow")
	}

	p, err := s.store.FindBySelector(ctx, flow.Selector, identifier)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "account not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "lookup failed", err)
	}

	if !p.Active {
		return nil, apperrors.New(apperrors.CodeDeactivated, "account is deactivated")
	}
	if !flow.Permits(p.Role) {
		s.log.Warn("login flow rejected by role gate",
			"flow", flow.Name, "principal", p.ID, "role", p.Role)
		return nil, apperrors.New(apperrors.CodeUnauthorized, "role not permitted for this login")
	}

	if flow.PasswordStep {
		if p.PasswordHash == nil {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*p.PasswordHash), []byte(password)); err != nil {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
		}
	}

	contact := p.Contact()
	if contact == "" {
		return nil, apperrors.New(apperrors.CodeMissingContact, "no deliverable contact address on file")
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not issue code", err)
	}
	handle, err := otp.GenerateHandle()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not issue code", err)
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.otpTTL)
	if err := s.store.SetOTP(ctx, p.ID, code, expiresAt, handle, issuedAt); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "account not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not issue code", err)
	}

	// The code is persisted; delivery is best-effort from here on.
	s.dispatcher.Send(contact, "Your verification code",
		fmt.Sprintf("Your one-time verification code is %s. It expires in %d minutes.",
			code, int(s.otpTTL.Minutes())))

	s.metrics.IncOTPIssued(string(flow.Name))
	s.log.Info("otp issued", "flow", flow.Name, "principal", p.ID)

	return &Challenge{
		Handle:        handle,
		MaskedContact: mask.Contact(contact),
		Role:          p.Role,
	}, nil
}
