package models

// Role identifies which kind of account a user holds.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleSponsor     Role = "sponsor"
	RoleInstitution Role = "institution"
	RoleStudent     Role = "student"
)

// TwoFactorMethod is the channel used for a second authentication factor.
type TwoFactorMethod string

const (
	TwoFactorEmail TwoFactorMethod = "email"
	TwoFactorSMS   TwoFactorMethod = "sms"
	TwoFactorTOTP  TwoFactorMethod = "totp"
)

// VerificationMethod is the channel used to deliver a verification code.
type VerificationMethod string

const (
	VerificationMethodEmail VerificationMethod = "email"
	VerificationMethodSMS   VerificationMethod = "sms"
)

// VerificationType tags a pending verification step.
type VerificationType string

const (
	VerificationEmail     VerificationType = "email"
	VerificationSMS       VerificationType = "sms"
	VerificationTwoFactor VerificationType = "2fa"
)

// AuthUser is the authenticated user as resolved from GET /users/me.
// Timestamps are kept in the backend's wire form (RFC 3339 strings).
type AuthUser struct {
	ID               string          `json:"id"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone,omitempty"`
	Role             Role            `json:"role"`
	EmailVerified    bool            `json:"email_verified"`
	PhoneVerified    bool            `json:"phone_verified"`
	TwoFactorEnabled bool            `json:"two_factor_enabled"`
	TwoFactorMethod  TwoFactorMethod `json:"two_factor_method,omitempty"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

// UserProfile is the role-specific profile attached to a user. Its internal
// structure is owned by the backend and passed through opaquely.
type UserProfile map[string]any

// PendingVerification records a follow-up step the user must complete
// before a flow can finish.
type PendingVerification struct {
	Type        VerificationType
	Destination string
}
