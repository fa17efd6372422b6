package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PMGEECODE/destinypal-sub002/internal/models"
	"github.com/PMGEECODE/destinypal-sub002/pkg/apierr"
)

// ============================================================================
// Bootstrap
// ============================================================================

func TestBootstrap_ResolvesSession(t *testing.T) {
	transport := &mockTransport{
		GetFunc: func(ctx context.Context, path string, out any) error {
			respondJSON(t, out, meJSON)
			return nil
		},
	}
	m := newTestManager(transport)

	assert.True(t, m.State().IsLoading, "session starts unresolved")

	m.Bootstrap(context.Background())
	state := m.State()

	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	require.NotNil(t, state.User)
	assert.Equal(t, "a@b.com", state.User.Email)
	assert.Equal(t, models.RoleSponsor, state.User.Role)
	assert.Equal(t, "Alice B", state.Profile["full_name"])
	assert.Nil(t, state.PendingVerification)
	assert.Empty(t, state.Error)
}

func TestBootstrap_NoSessionIsNotAnError(t *testing.T) {
	transport := &mockTransport{
		GetFunc: func(ctx context.Context, path string, out any) error {
			return apierr.New(http.StatusUnauthorized, map[string]any{"detail": "Not authenticated"})
		},
	}
	m := newTestManager(transport)

	m.Bootstrap(context.Background())
	state := m.State()

	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Error, "absence of a session is expected, not exceptional")
}

func TestBootstrap_UpdatedAtDefaultsToCreatedAt(t *testing.T) {
	transport := &mockTransport{
		GetFunc: func(ctx context.Context, path string, out any) error {
			respondJSON(t, out, `{"id":"1","email":"a@b.com","role":"student","created_at":"2025-01-01T00:00:00Z"}`)
			return nil
		},
	}
	m := newTestManager(transport)

	m.Bootstrap(context.Background())

	require.NotNil(t, m.State().User)
	assert.Equal(t, "2025-01-01T00:00:00Z", m.State().User.UpdatedAt)
}

// ============================================================================
// Login
// ============================================================================

func TestLogin_Success(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			respondJSON(t, out, `{}`)
			return nil
		},
		GetFunc: func(ctx context.Context, path string, out any) error {
			respondJSON(t, out, meJSON)
			return nil
		},
	}
	m := newTestManager(transport)

	result, err := m.Login(context.Background(), "a@b.com", "pw")

	require.NoError(t, err)
	assert.False(t, result.RequiresTwoFactor)

	state := m.State()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	require.NotNil(t, state.User)
	assert.Equal(t, "a@b.com", state.User.Email)
	assert.Nil(t, state.PendingVerification)

	require.Len(t, transport.Calls, 2)
	assert.Equal(t, "/auth/login", transport.Calls[0].Path)
	assert.Equal(t, "/users/me", transport.Calls[1].Path)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			return apierr.New(http.StatusUnauthorized, map[string]any{"detail": "Invalid credentials"})
		},
	}
	m := newTestManager(transport)

	_, err := m.Login(context.Background(), "a@b.com", "wrong")

	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())

	state := m.State()
	assert.Equal(t, "Invalid credentials", state.Error)
	assert.False(t, state.IsLoading)
	assert.False(t, state.IsAuthenticated)
}

func TestLogin_ProfileFetchFailureAfterLogin(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			respondJSON(t, out, `{}`)
			return nil
		},
		GetFunc: func(ctx context.Context, path string, out any) error {
			return errors.New("connection reset")
		},
	}
	m := newTestManager(transport)

	_, err := m.Login(context.Background(), "a@b.com", "pw")

	require.Error(t, err)
	assert.Equal(t, "Failed to fetch user profile after login", err.Error())
	assert.Equal(t, "Failed to fetch user profile after login", m.State().Error)
	assert.False(t, m.State().IsAuthenticated)
	assert.False(t, m.State().IsLoading)
}

func TestLogin_TwoFactorRequired(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			respondJSON(t, out, `{"requires_two_factor": true, "two_factor_method": "sms", "user_id": "temp-42", "phone": "+254711111111"}`)
			return nil
		},
	}
	m := newTestManager(transport)

	result, err := m.Login(context.Background(), "a@b.com", "pw")

	require.NoError(t, err)
	assert.True(t, result.RequiresTwoFactor)

	state := m.State()
	assert.False(t, state.IsAuthenticated, "a 2FA-pending login is not authenticated")
	assert.True(t, state.TwoFactorRequired)
	assert.Equal(t, models.TwoFactorSMS, state.TwoFactorMethod)
	assert.False(t, state.IsLoading)
	require.NotNil(t, state.PendingVerification)
	assert.Equal(t, models.VerificationTwoFactor, state.PendingVerification.Type)
	assert.Equal(t, "+254711111111", state.PendingVerification.Destination)
	assert.Equal(t, "temp-42", m.tempUserID)

	// no /users/me call until the second factor clears
	require.Len(t, transport.Calls, 1)
}

func TestLogin_TwoFactorMethodDefaultsToEmail(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			respondJSON(t, out, `{"requires_two_factor": true, "user_id": "temp-42"}`)
			return nil
		},
	}
	m := newTestManager(transport)

	_, err := m.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)

	state := m.State()
	assert.Equal(t, models.TwoFactorEmail, state.TwoFactorMethod)
	require.NotNil(t, state.PendingVerification)
	assert.Equal(t, "a@b.com", state.PendingVerification.Destination,
		"email 2FA codes go to the login address")
}

// ============================================================================
// Two-factor verification
// ============================================================================

func TestVerifyTwoFactor_CompletesLogin(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			if path == "/auth/login" {
				respondJSON(t, out, `{"requires_two_factor": true, "two_factor_method": "email", "user_id": "temp-42"}`)
			}
			return nil
		},
		GetFunc: func(ctx context.Context, path string, out any) error {
			respondJSON(t, out, meJSON)
			return nil
		},
	}
	m := newTestManager(transport)

	_, err := m.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)

	err = m.VerifyTwoFactor(context.Background(), "123456")
	require.NoError(t, err)

	state := m.State()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.TwoFactorRequired)
	assert.Empty(t, state.TwoFactorMethod)
	assert.Empty(t, m.tempUserID)
	assert.Nil(t, state.PendingVerification)

	verify := transport.Calls[1]
	assert.Equal(t, "/auth/2fa/verify", verify.Path)
	assert.Equal(t, map[string]string{"code": "123456", "user_id": "temp-42"}, verify.Body)
}

func TestVerifyTwoFactor_NothingPending(t *testing.T) {
	transport := &mockTransport{}
	m := newTestManager(transport)

	err := m.VerifyTwoFactor(context.Background(), "123456")

	require.ErrorIs(t, err, models.ErrNoTwoFactorPending)
	assert.Equal(t, models.ErrNoTwoFactorPending.Error(), m.State().Error)
	assert.Empty(t, transport.Calls, "precondition failures stay local")
}

func TestVerifyTwoFactor_ProfileFetchFailure(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			if path == "/auth/login" {
				respondJSON(t, out, `{"requires_two_factor": true, "user_id": "temp-42"}`)
			}
			return nil
		},
		GetFunc: func(ctx context.Context, path string, out any) error {
			return errors.New("timeout")
		},
	}
	m := newTestManager(transport)

	_, err := m.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)

	err = m.VerifyTwoFactor(context.Background(), "123456")

	require.Error(t, err)
	assert.Equal(t, "Failed to fetch user profile after 2FA verification", err.Error())
	assert.False(t, m.State().IsAuthenticated)
	// the challenge remains pending so the caller may retry
	assert.Equal(t, "temp-42", m.tempUserID)
}

// ============================================================================
// Logout
// ============================================================================

func TestLogout_ResetsSession(t *testing.T) {
	transport := &mockTransport{
		GetFunc: func(ctx context.Context, path string, out any) error {
			respondJSON(t, out, meJSON)
			return nil
		},
	}
	m := newTestManager(transport)
	m.Bootstrap(context.Background())
	require.True(t, m.State().IsAuthenticated)

	m.Logout(context.Background())

	state := m.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Nil(t, state.User)
	assert.Nil(t, state.Profile)
	assert.Empty(t, state.Error)
}

func TestLogout_ResetsEvenWhenBackendFails(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			if path == "/auth/logout" {
				return apierr.New(http.StatusInternalServerError, map[string]any{"detail": "boom"})
			}
			respondJSON(t, out, `{"requires_two_factor": true, "user_id": "temp-42"}`)
			return nil
		},
	}
	m := newTestManager(transport)

	// park the session mid-2FA so there is transient state to clear
	_, err := m.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)

	m.Logout(context.Background())

	state := m.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.False(t, state.TwoFactorRequired)
	assert.Empty(t, state.TwoFactorMethod)
	assert.Empty(t, m.tempUserID)
	assert.Nil(t, state.PendingVerification)
}

// ============================================================================
// Email / SMS verification
// ============================================================================

func TestVerifyEmail_Success(t *testing.T) {
	transport := &mockTransport{
		GetFunc: func(ctx context.Context, path string, out any) error {
			respondJSON(t, out, `{"id":"1","email":"a@b.com","role":"sponsor","email_verified":false,"created_at":"2025-01-01T00:00:00Z"}`)
			return nil
		},
	}
	m := newTestManager(transport)
	m.Bootstrap(context.Background())

	err := m.VerifyEmail(context.Background(), "tok-123")
	require.NoError(t, err)

	state := m.State()
	assert.Nil(t, state.PendingVerification)
	require.NotNil(t, state.User)
	assert.True(t, state.User.EmailVerified)

	last := transport.Calls[len(transport.Calls)-1]
	assert.Equal(t, "/auth/verify-email", last.Path)
	assert.Equal(t, map[string]string{"token": "tok-123"}, last.Body)
}

func TestVerifyEmail_BackendRejectsToken(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			return apierr.New(http.StatusBadRequest, map[string]any{"detail": "Token expired"})
		},
	}
	m := newTestManager(transport)

	err := m.VerifyEmail(context.Background(), "stale")

	require.Error(t, err)
	assert.Equal(t, "Token expired", m.State().Error)
	assert.False(t, m.State().IsLoading)
}

func TestVerifySMS_UsesPendingDestination(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			if path == "/auth/login" {
				respondJSON(t, out, `{"requires_two_factor": true, "two_factor_method": "sms", "user_id": "t", "phone": "+254722222222"}`)
			}
			return nil
		},
	}
	m := newTestManager(transport)

	_, err := m.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)

	err = m.VerifySMS(context.Background(), "0000")
	require.NoError(t, err)

	sms := transport.Calls[1]
	assert.Equal(t, "/auth/verify-sms", sms.Path)
	assert.Equal(t, map[string]string{"phone": "+254722222222", "code": "0000"}, sms.Body)
	assert.Nil(t, m.State().PendingVerification)
}

func TestVerifySMS_NoPendingPhone(t *testing.T) {
	transport := &mockTransport{}
	m := newTestManager(transport)

	err := m.VerifySMS(context.Background(), "0000")

	require.ErrorIs(t, err, models.ErrNoPhonePending)
	assert.Equal(t, models.ErrNoPhonePending.Error(), m.State().Error)
	assert.Empty(t, transport.Calls)
}

// ============================================================================
// Password reset
// ============================================================================

func TestSendPasswordReset(t *testing.T) {
	transport := &mockTransport{}
	m := newTestManager(transport)

	err := m.SendPasswordReset(context.Background(), "a@b.com")
	require.NoError(t, err)

	require.Len(t, transport.Calls, 1)
	assert.Equal(t, "/auth/password-reset", transport.Calls[0].Path)
	assert.Equal(t, map[string]string{"email": "a@b.com"}, transport.Calls[0].Body)
	assert.False(t, m.State().IsLoading)
	assert.False(t, m.State().IsAuthenticated, "reset request does not touch the session")
}

func TestResetPassword(t *testing.T) {
	transport := &mockTransport{}
	m := newTestManager(transport)

	err := m.ResetPassword(context.Background(), "tok", "N3wpassword!")
	require.NoError(t, err)

	require.Len(t, transport.Calls, 1)
	assert.Equal(t, "/auth/password-reset/confirm", transport.Calls[0].Path)
	assert.Equal(t, map[string]string{"token": "tok", "new_password": "N3wpassword!"}, transport.Calls[0].Body)
}

// ============================================================================
// Verification codes & resends
// ============================================================================

func TestSendVerificationCode_DoesNotToggleLoading(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			return apierr.New(http.StatusTooManyRequests, map[string]any{"detail": "Slow down"})
		},
	}
	m := newTestManager(transport)
	m.endOperation() // settle the initial loading flag

	err := m.SendVerificationCode(context.Background(), models.VerificationMethodSMS, "+254700000000")

	require.Error(t, err)
	assert.Equal(t, "Slow down", m.State().Error)
	assert.False(t, m.State().IsLoading, "send-verification never raises the loading flag")
}

func TestResendVerification_UsesPendingChannel(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			if path == "/auth/login" {
				respondJSON(t, out, `{"requires_two_factor": true, "two_factor_method": "sms", "user_id": "t", "phone": "+254733333333"}`)
			}
			return nil
		},
	}
	m := newTestManager(transport)

	_, err := m.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)

	err = m.ResendVerification(context.Background())
	require.NoError(t, err)

	// 2FA pending resolves to the email channel unless the type is sms
	resend := transport.Calls[1]
	assert.Equal(t, "/auth/send-verification", resend.Path)
	assert.Equal(t, map[string]string{"method": "email", "destination": "+254733333333"}, resend.Body)
}

func TestResendVerification_NothingPending(t *testing.T) {
	transport := &mockTransport{}
	m := newTestManager(transport)

	err := m.ResendVerification(context.Background())

	require.ErrorIs(t, err, models.ErrNoPendingVerification)
	assert.Equal(t, models.ErrNoPendingVerification.Error(), m.State().Error)
	assert.Empty(t, transport.Calls)
}

// ============================================================================
// Two-factor setup / disable
// ============================================================================

func TestSetupTwoFactor_BackendProvidesCodes(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			if path == "/auth/2fa/setup" {
				respondJSON(t, out, `{"backup_codes": ["AAAA-BBBB", "CCCC-DDDD"]}`)
			}
			return nil
		},
		GetFunc: func(ctx context.Context, path string, out any) error {
			respondJSON(t, out, meJSON)
			return nil
		},
	}
	m := newTestManager(transport)
	m.Bootstrap(context.Background())

	codes, err := m.SetupTwoFactor(context.Background(), models.TwoFactorTOTP)

	require.NoError(t, err)
	assert.Equal(t, []string{"AAAA-BBBB", "CCCC-DDDD"}, codes)

	user := m.State().User
	require.NotNil(t, user)
	assert.True(t, user.TwoFactorEnabled)
	assert.Equal(t, models.TwoFactorTOTP, user.TwoFactorMethod)
}

func TestSetupTwoFactor_GeneratesFallbackCodes(t *testing.T) {
	transport := &mockTransport{}
	m := newTestManager(transport)

	codes, err := m.SetupTwoFactor(context.Background(), models.TwoFactorEmail)

	require.NoError(t, err)
	assert.Len(t, codes, backupCodeCount)
	for _, code := range codes {
		assert.Regexp(t, `^[0-9A-F]{4}-[0-9A-F]{4}$`, code)
	}
}

func TestDisableTwoFactor(t *testing.T) {
	transport := &mockTransport{
		GetFunc: func(ctx context.Context, path string, out any) error {
			respondJSON(t, out, `{"id":"1","email":"a@b.com","role":"sponsor","two_factor_enabled":true,"two_factor_method":"totp","created_at":"2025-01-01T00:00:00Z"}`)
			return nil
		},
	}
	m := newTestManager(transport)
	m.Bootstrap(context.Background())

	err := m.DisableTwoFactor(context.Background(), "123456")
	require.NoError(t, err)

	user := m.State().User
	require.NotNil(t, user)
	assert.False(t, user.TwoFactorEnabled)
	assert.Empty(t, user.TwoFactorMethod)

	last := transport.Calls[len(transport.Calls)-1]
	assert.Equal(t, "/auth/2fa/disable", last.Path)
}

// ============================================================================
// Misc
// ============================================================================

func TestClearError(t *testing.T) {
	transport := &mockTransport{
		PostFunc: func(ctx context.Context, path string, body, out any) error {
			return apierr.New(http.StatusUnauthorized, map[string]any{"detail": "Invalid credentials"})
		},
	}
	m := newTestManager(transport)

	_, _ = m.Login(context.Background(), "a@b.com", "wrong")
	require.NotEmpty(t, m.State().Error)

	m.ClearError()
	assert.Empty(t, m.State().Error)
}

func TestLoginWithOAuth_NotSupported(t *testing.T) {
	m := newTestManager(&mockTransport{})

	err := m.LoginWithOAuth("google")

	require.ErrorIs(t, err, models.ErrOAuthNotSupported)
	assert.Contains(t, err.Error(), "google")
}

func TestState_ReturnsIsolatedCopy(t *testing.T) {
	transport := &mockTransport{
		GetFunc: func(ctx context.Context, path string, out any) error {
			respondJSON(t, out, meJSON)
			return nil
		},
	}
	m := newTestManager(transport)
	m.Bootstrap(context.Background())

	snapshot := m.State()
	snapshot.User.Email = "tampered@example.com"
	snapshot.Profile["full_name"] = "Mallory"

	assert.Equal(t, "a@b.com", m.State().User.Email)
	assert.Equal(t, "Alice B", m.State().Profile["full_name"])
}
