package models

import "time"

// Role is the closed set of principal roles. Role gates which login flows a
// principal may use and which governance actions it may perform.
type Role string

const (
	RoleResident    Role = "resident"
	RoleNonResident Role = "nonresident"
	RoleGRAMaker    Role = "gra_maker"
	RoleGRAChecker  Role = "gra_checker"
	RoleMonitoring  Role = "monitoring"
	RoleAdmin       Role = "admin"
)

// Valid reports whether r is a member of the closed role enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleNonResident, RoleGRAMaker, RoleGRAChecker, RoleMonitoring, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r holds durable bearer tokens. Self-service
// registrants complete their session at verification time and never carry one.
func (r Role) IsStaff() bool {
	switch r {
	case RoleGRAMaker, RoleGRAChecker, RoleMonitoring, RoleAdmin:
		return true
	}
	return false
}

// Principal is one human actor: registrant, monitoring staff, GRA maker,
// GRA checker, or admin.
//
// Invariants:
//   - At most one of {OTP pending, fully authenticated} is current; issuing a
//     new OTP always overwrites the previous one (no OTP queue).
//   - OTPCode/OTPExpiresAt/SessionID are cleared together on successful
//     verification, atomically with the state promotion, so a replayed code
//     can never verify twice.
//   - TokenID is set only by OTP verification on flows that issue durable
//     tokens, and cleared by logout or sweep.
type Principal struct {
	ID         string
	Name       string
	Username   string
	Role       Role
	Email      string
	Phone      string
	NationalID string

	// PasswordHash is a bcrypt hash. Nil for self-registered principals who
	// have not completed the password-set flow yet.
	PasswordHash *string

	Active bool

	OTPCode      *string
	OTPExpiresAt *time.Time
	SessionID    *string

	// TokenID is the jti of the currently valid access token.
	TokenID        *string
	TokenExpiresAt *time.Time

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Contact returns the principal's deliverable address, preferring email.
// Empty when the principal has no address on file.
func (p *Principal) Contact() string {
	if p.Email != "" {
		return p.Email
	}
	return p.Phone
}
