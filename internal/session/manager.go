// Package session owns the client-side authentication state for a
// DestinyPal process: one Manager per process, constructed at startup and
// passed by reference to everything that needs to read or drive auth flows.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/PMGEECODE/destinypal-sub002/internal/models"
)

// Transport is the HTTP surface the manager needs. Satisfied by
// *httpclient.Client; declared here so tests can substitute their own.
type Transport interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// LoginResult distinguishes the two non-error outcomes of a login attempt.
// A required second factor is an expected outcome, not a failure.
type LoginResult struct {
	RequiresTwoFactor bool
}

// Manager coordinates every authentication and verification flow against
// the backend and holds the resulting session state.
//
// State reads and writes are guarded by a mutex so concurrent observers are
// safe, but operations themselves are not serialized: two overlapping
// operations race and the last writer wins, matching the platform's
// historical behavior.
type Manager struct {
	transport Transport
	logger    *slog.Logger

	mu         sync.RWMutex
	state      AuthState
	tempUserID string // correlates a pending 2FA login with its verification
}

// Global validator instance (reused across all registrations)
var validate = validator.New()

// NewManager creates a Manager in the not-yet-resolved state. Callers should
// invoke Bootstrap once to settle it.
func NewManager(transport Transport, logger *slog.Logger) *Manager {
	return &Manager{
		transport: transport,
		logger:    logger,
		state:     initialState(),
	}
}

// State returns a copy of the current session state.
func (m *Manager) State() AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// ClearError discards the last displayed error message.
func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Error = ""
}

// meResponse is the wire shape of GET /users/me.
type meResponse struct {
	models.AuthUser
	Profile models.UserProfile `json:"profile"`
}

// resolveUser fetches the current user and profile from the backend.
// Any failure means "no resolvable session" and returns ok=false; the
// distinction between 401 and a network fault is irrelevant here.
func (m *Manager) resolveUser(ctx context.Context) (*models.AuthUser, models.UserProfile, bool) {
	var resp meResponse
	if err := m.transport.Get(ctx, "/users/me", &resp); err != nil {
		m.logger.Debug("could not resolve current user", slog.Any("error", err))
		return nil, nil, false
	}

	user := resp.AuthUser
	if user.UpdatedAt == "" {
		user.UpdatedAt = user.CreatedAt
	}
	return &user, resp.Profile, true
}

// Bootstrap resolves the session on startup. Absence of a session is normal,
// so Bootstrap never returns an error: either the user is resolved and the
// session becomes authenticated, or the state settles to signed-out defaults.
func (m *Manager) Bootstrap(ctx context.Context) {
	user, profile, ok := m.resolveUser(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !ok {
		m.state = AuthState{}
		return
	}

	m.state = AuthState{
		User:            user,
		Profile:         profile,
		IsAuthenticated: true,
	}
	m.logger.Info("session resolved", slog.String("user_id", user.ID), slog.String("role", string(user.Role)))
}

// loginResponse is the wire shape of POST /auth/login.
type loginResponse struct {
	RequiresTwoFactor bool   `json:"requires_two_factor"`
	TwoFactorMethod   string `json:"two_factor_method"`
	UserID            string `json:"user_id"`
	Phone             string `json:"phone"`
}

// Login authenticates with email and password. When the account has a
// second factor enabled the backend withholds the session; Login then
// returns RequiresTwoFactor=true and the caller must follow up with
// VerifyTwoFactor. Failures are recorded in state and returned.
func (m *Manager) Login(ctx context.Context, email, password string) (LoginResult, error) {
	m.beginOperation()

	var resp loginResponse
	err := m.transport.Post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		m.failOperation(err)
		return LoginResult{}, err
	}

	if resp.RequiresTwoFactor {
		method := models.TwoFactorMethod(resp.TwoFactorMethod)
		if method == "" {
			method = models.TwoFactorEmail
		}
		destination := email
		if method != models.TwoFactorEmail {
			destination = resp.Phone
		}

		m.mu.Lock()
		m.state.IsLoading = false
		m.state.TwoFactorRequired = true
		m.state.TwoFactorMethod = method
		m.state.PendingVerification = &models.PendingVerification{
			Type:        models.VerificationTwoFactor,
			Destination: destination,
		}
		m.tempUserID = resp.UserID
		m.mu.Unlock()

		m.logger.Info("login requires second factor", slog.String("method", string(method)))
		return LoginResult{RequiresTwoFactor: true}, nil
	}

	user, profile, ok := m.resolveUser(ctx)
	if !ok {
		err := errors.New("Failed to fetch user profile after login")
		m.failOperation(err)
		return LoginResult{}, err
	}

	m.mu.Lock()
	m.state = AuthState{
		User:            user,
		Profile:         profile,
		IsAuthenticated: true,
	}
	m.mu.Unlock()

	m.logger.Info("user logged in", slog.String("user_id", user.ID))
	return LoginResult{}, nil
}

// Logout ends the session. The backend call is best-effort: whatever it
// returns, the local session is reset so the user is signed out.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.state.IsLoading = true
	m.mu.Unlock()

	if err := m.transport.Post(ctx, "/auth/logout", nil, nil); err != nil {
		m.logger.Warn("logout request failed, resetting session anyway", slog.Any("error", err))
	}

	m.mu.Lock()
	m.state = AuthState{}
	m.tempUserID = ""
	m.mu.Unlock()

	m.logger.Info("session cleared")
}

// VerifyEmail confirms an email address with the token from the
// verification mail.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	m.beginOperation()

	err := m.transport.Post(ctx, "/auth/verify-email", map[string]string{"token": token}, nil)
	if err != nil {
		m.failOperation(err)
		return err
	}

	m.mu.Lock()
	m.state.IsLoading = false
	m.state.PendingVerification = nil
	if m.state.User != nil {
		m.state.User.EmailVerified = true
	}
	m.mu.Unlock()
	return nil
}

// VerifySMS confirms the phone number currently pending verification.
func (m *Manager) VerifySMS(ctx context.Context, code string) error {
	m.beginOperation()

	m.mu.RLock()
	var phone string
	if m.state.PendingVerification != nil {
		phone = m.state.PendingVerification.Destination
	}
	m.mu.RUnlock()

	if phone == "" {
		m.failOperation(models.ErrNoPhonePending)
		return models.ErrNoPhonePending
	}

	err := m.transport.Post(ctx, "/auth/verify-sms", map[string]string{
		"phone": phone,
		"code":  code,
	}, nil)
	if err != nil {
		m.failOperation(err)
		return err
	}

	m.mu.Lock()
	m.state.IsLoading = false
	m.state.PendingVerification = nil
	if m.state.User != nil {
		m.state.User.PhoneVerified = true
	}
	m.mu.Unlock()
	return nil
}

// VerifyTwoFactor completes a login that required a second factor. On
// success the full user is resolved and the session becomes authenticated.
func (m *Manager) VerifyTwoFactor(ctx context.Context, code string) error {
	m.beginOperation()

	m.mu.RLock()
	userID := m.tempUserID
	m.mu.RUnlock()

	if userID == "" {
		m.failOperation(models.ErrNoTwoFactorPending)
		return models.ErrNoTwoFactorPending
	}

	err := m.transport.Post(ctx, "/auth/2fa/verify", map[string]string{
		"code":    code,
		"user_id": userID,
	}, nil)
	if err != nil {
		m.failOperation(err)
		return err
	}

	user, profile, ok := m.resolveUser(ctx)
	if !ok {
		err := errors.New("Failed to fetch user profile after 2FA verification")
		m.failOperation(err)
		return err
	}

	m.mu.Lock()
	m.state = AuthState{
		User:            user,
		Profile:         profile,
		IsAuthenticated: true,
	}
	m.tempUserID = ""
	m.mu.Unlock()

	m.logger.Info("second factor verified", slog.String("user_id", user.ID))
	return nil
}

// SendPasswordReset asks the backend to mail a password reset link.
func (m *Manager) SendPasswordReset(ctx context.Context, email string) error {
	m.beginOperation()

	err := m.transport.Post(ctx, "/auth/password-reset", map[string]string{"email": email}, nil)
	if err != nil {
		m.failOperation(err)
		return err
	}

	m.endOperation()
	return nil
}

// ResetPassword sets a new password using a reset token.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	m.beginOperation()

	err := m.transport.Post(ctx, "/auth/password-reset/confirm", map[string]string{
		"token":        token,
		"new_password": newPassword,
	}, nil)
	if err != nil {
		m.failOperation(err)
		return err
	}

	m.endOperation()
	return nil
}

// SendVerificationCode requests a fresh verification code over the given
// channel. It does not toggle the loading flag: it is fired from screens
// that are already mid-flow.
func (m *Manager) SendVerificationCode(ctx context.Context, method models.VerificationMethod, destination string) error {
	err := m.transport.Post(ctx, "/auth/send-verification", map[string]string{
		"method":      string(method),
		"destination": destination,
	}, nil)
	if err != nil {
		m.mu.Lock()
		m.state.Error = err.Error()
		m.mu.Unlock()
		return err
	}
	return nil
}

// ResendVerification re-requests the code for whatever verification is
// currently pending.
func (m *Manager) ResendVerification(ctx context.Context) error {
	m.mu.RLock()
	pending := m.state.PendingVerification
	m.mu.RUnlock()

	if pending == nil {
		m.mu.Lock()
		m.state.Error = models.ErrNoPendingVerification.Error()
		m.mu.Unlock()
		return models.ErrNoPendingVerification
	}

	method := models.VerificationMethodEmail
	if pending.Type == models.VerificationSMS {
		method = models.VerificationMethodSMS
	}
	return m.SendVerificationCode(ctx, method, pending.Destination)
}

// twoFactorSetupResponse is the wire shape of POST /auth/2fa/setup.
type twoFactorSetupResponse struct {
	BackupCodes []string `json:"backup_codes"`
	Secret      string   `json:"secret"`
	QRCode      string   `json:"qr_code"`
}

// SetupTwoFactor enables a second factor on the current account and returns
// the recovery backup codes. When the backend does not supply codes a local
// cryptographically random set is generated instead.
func (m *Manager) SetupTwoFactor(ctx context.Context, method models.TwoFactorMethod) ([]string, error) {
	m.beginOperation()

	var resp twoFactorSetupResponse
	err := m.transport.Post(ctx, "/auth/2fa/setup", map[string]string{"method": string(method)}, &resp)
	if err != nil {
		m.failOperation(err)
		return nil, err
	}

	m.mu.Lock()
	m.state.IsLoading = false
	if m.state.User != nil {
		m.state.User.TwoFactorEnabled = true
		m.state.User.TwoFactorMethod = method
	}
	m.mu.Unlock()

	codes := resp.BackupCodes
	if len(codes) == 0 {
		codes, err = GenerateBackupCodes(backupCodeCount)
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup codes: %w", err)
		}
	}
	return codes, nil
}

// DisableTwoFactor turns the second factor off, confirmed by a current code.
func (m *Manager) DisableTwoFactor(ctx context.Context, code string) error {
	m.beginOperation()

	err := m.transport.Post(ctx, "/auth/2fa/disable", map[string]string{"code": code}, nil)
	if err != nil {
		m.failOperation(err)
		return err
	}

	m.mu.Lock()
	m.state.IsLoading = false
	if m.state.User != nil {
		m.state.User.TwoFactorEnabled = false
		m.state.User.TwoFactorMethod = ""
	}
	m.mu.Unlock()
	return nil
}

// LoginWithOAuth is kept on the surface for parity with the web client; the
// backend has no OAuth support yet.
func (m *Manager) LoginWithOAuth(provider string) error {
	return fmt.Errorf("%w: %s", models.ErrOAuthNotSupported, provider)
}

// beginOperation marks the session loading and clears any stale error.
func (m *Manager) beginOperation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.IsLoading = true
	m.state.Error = ""
}

// endOperation clears the loading flag without touching anything else.
func (m *Manager) endOperation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.IsLoading = false
}

// failOperation records the failure for display and clears the loading flag.
func (m *Manager) failOperation(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.IsLoading = false
	m.state.Error = err.Error()
}
