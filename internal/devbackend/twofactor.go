package devbackend

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/PMGEECODE/destinypal-sub002/internal/models"
	"github.com/PMGEECODE/destinypal-sub002/internal/session"
	pkghttp "github.com/PMGEECODE/destinypal-sub002/pkg/http"
	pkglogger "github.com/PMGEECODE/destinypal-sub002/pkg/logger"
)

const totpIssuer = "DestinyPal"

func (s *Server) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		Method string `json:"method"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	method := models.TwoFactorMethod(req.Method)
	switch method {
	case models.TwoFactorEmail, models.TwoFactorSMS, models.TwoFactorTOTP:
	default:
		writeDetail(w, http.StatusBadRequest, "Unsupported two-factor method")
		return
	}
	if user.TwoFactorEnabled {
		writeDetail(w, http.StatusBadRequest, "Two-factor authentication is already enabled")
		return
	}

	backupCodes, err := session.GenerateBackupCodes(8)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to generate backup codes")
		return
	}

	resp := map[string]any{"backup_codes": backupCodes}
	secret := ""

	if method == models.TwoFactorTOTP {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      totpIssuer,
			AccountName: user.Email,
		})
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "Failed to generate TOTP secret")
			return
		}
		secret = key.Secret()

		png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "Failed to render QR code")
			return
		}
		resp["secret"] = secret
		resp["qr_code"] = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	}

	s.store.Update(user.ID, func(u *User) {
		u.TwoFactorEnabled = true
		u.TwoFactorMethod = method
		u.TOTPSecret = secret
		u.BackupCodes = backupCodes
	})
	s.logger.Info("two-factor enabled",
		slog.String("user_id", user.ID),
		slog.String("method", string(method)))

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTwoFactorVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code   string `json:"code"`
		UserID string `json:"user_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, ok := s.store.UserByID(req.UserID)
	if !ok || !s.verifySecondFactor(user, req.Code) {
		s.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "2fa_verify",
			UserID:        req.UserID,
			IPAddress:     pkghttp.ClientIP(r),
			FailureReason: "invalid_code",
		})
		writeDetail(w, http.StatusUnauthorized, "Invalid two-factor code")
		return
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "2fa_verify",
		UserID:    user.ID,
		Email:     user.Email,
		IPAddress: pkghttp.ClientIP(r),
		Success:   true,
	})
	s.setSessionCookie(w, user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Two-factor verification successful"})
}

func (s *Server) handleTwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if !user.TwoFactorEnabled {
		writeDetail(w, http.StatusBadRequest, "Two-factor authentication is not enabled")
		return
	}

	if !s.verifySecondFactor(user, req.Code) {
		writeDetail(w, http.StatusUnauthorized, "Invalid two-factor code")
		return
	}

	s.store.Update(user.ID, func(u *User) {
		u.TwoFactorEnabled = false
		u.TwoFactorMethod = ""
		u.TOTPSecret = ""
		u.BackupCodes = nil
	})
	s.logger.Info("two-factor disabled", slog.String("user_id", user.ID))

	writeJSON(w, http.StatusOK, map[string]string{"message": "Two-factor authentication disabled"})
}

// verifySecondFactor accepts, in order: a TOTP code, a pending login
// challenge, a verification code sent to the user's email or phone, or an
// unused backup code.
func (s *Server) verifySecondFactor(user *User, code string) bool {
	if user.TwoFactorMethod == models.TwoFactorTOTP && user.TOTPSecret != "" {
		if totp.Validate(code, user.TOTPSecret) {
			return true
		}
	}
	if s.store.ConsumeChallengeCode(user.ID, code) {
		return true
	}
	if s.store.ConsumeVerificationCode(user.Email, code) {
		return true
	}
	if user.Phone != "" && s.store.ConsumeVerificationCode(user.Phone, code) {
		return true
	}
	return s.store.ConsumeBackupCode(user.ID, code)
}
