package devbackend

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/PMGEECODE/destinypal-sub002/internal/auth"
	"github.com/PMGEECODE/destinypal-sub002/internal/models"
	pkgauth "github.com/PMGEECODE/destinypal-sub002/pkg/auth"
	pkghttp "github.com/PMGEECODE/destinypal-sub002/pkg/http"
	pkglogger "github.com/PMGEECODE/destinypal-sub002/pkg/logger"
)

// Request DTOs. Nullable fields arrive as explicit nulls from the SDK, so
// pointers rather than omitempty.

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sponsorRegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName string  `json:"full_name"`
	IDNumber *string `json:"id_number"`
	Phone    *string `json:"phone"`
	Country  string  `json:"country"`
	County   *string `json:"county"`
	State    *string `json:"state"`
}

type institutionRegisterRequest struct {
	Email              string  `json:"email"`
	Password           string  `json:"password"`
	InstitutionName    string  `json:"institution_name"`
	InstitutionType    string  `json:"institution_type"`
	Country            string  `json:"country"`
	County             *string `json:"county"`
	State              *string `json:"state"`
	Address            string  `json:"address"`
	City               string  `json:"city"`
	PostalCode         *string `json:"postal_code"`
	ContactPersonName  string  `json:"contact_person_name"`
	ContactPersonTitle *string `json:"contact_person_title"`
	ContactPersonEmail string  `json:"contact_person_email"`
	ContactPersonPhone string  `json:"contact_person_phone"`
	Website            *string `json:"website"`
}

type studentRegisterRequest struct {
	Email               string  `json:"email"`
	Password            string  `json:"password"`
	FullName            string  `json:"full_name"`
	DateOfBirth         string  `json:"date_of_birth"`
	Gender              string  `json:"gender"`
	InstitutionID       string  `json:"institution_id"`
	GradeLevel          string  `json:"grade_level"`
	Location            *string `json:"location"`
	Phone               *string `json:"phone"`
	BackgroundStory     *string `json:"background_story"`
	FamilySituation     *string `json:"family_situation"`
	AcademicPerformance *string `json:"academic_performance"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, ok := s.store.CheckPassword(req.Email, req.Password)
	if !ok {
		s.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login",
			Email:         req.Email,
			IPAddress:     pkghttp.ClientIP(r),
			FailureReason: "invalid_credentials",
		})
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if user.TwoFactorEnabled {
		method := user.TwoFactorMethod
		if method == "" {
			method = models.TwoFactorEmail
		}

		if method != models.TwoFactorTOTP {
			code := randomCode()
			s.store.PutChallengeCode(user.ID, code)
			s.logger.Info("2fa challenge issued",
				slog.String("user_id", user.ID),
				slog.String("method", string(method)),
				slog.String("code", code)) // dev server only: codes are loggable
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"requires_two_factor": true,
			"two_factor_method":   string(method),
			"user_id":             user.ID,
			"phone":               user.Phone,
		})
		return
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login",
		UserID:    user.ID,
		Email:     user.Email,
		IPAddress: pkghttp.ClientIP(r),
		Success:   true,
	})
	s.setSessionCookie(w, user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"requires_two_factor": false})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, userJSON(user))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleRegisterSponsor(w http.ResponseWriter, r *http.Request) {
	var req sponsorRegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	profile := map[string]any{
		"role":      "sponsor",
		"full_name": req.FullName,
		"id_number": deref(req.IDNumber),
		"country":   req.Country,
		"county":    deref(req.County),
		"state":     deref(req.State),
	}
	s.registerUser(w, req.Email, req.Password, deref(req.Phone), models.RoleSponsor, profile)
}

func (s *Server) handleRegisterInstitution(w http.ResponseWriter, r *http.Request) {
	var req institutionRegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	profile := map[string]any{
		"role":                 "institution",
		"institution_name":     req.InstitutionName,
		"institution_type":     req.InstitutionType,
		"country":              req.Country,
		"county":               deref(req.County),
		"state":                deref(req.State),
		"address":              req.Address,
		"city":                 req.City,
		"postal_code":          deref(req.PostalCode),
		"contact_person_name":  req.ContactPersonName,
		"contact_person_email": req.ContactPersonEmail,
		"contact_person_phone": req.ContactPersonPhone,
		"website":              deref(req.Website),
	}
	s.registerUser(w, req.Email, req.Password, req.ContactPersonPhone, models.RoleInstitution, profile)
}

func (s *Server) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	profile := map[string]any{
		"role":                 "student",
		"full_name":            req.FullName,
		"date_of_birth":        req.DateOfBirth,
		"gender":               req.Gender,
		"institution_id":       req.InstitutionID,
		"grade_level":          req.GradeLevel,
		"location":             deref(req.Location),
		"background_story":     deref(req.BackgroundStory),
		"family_situation":     deref(req.FamilySituation),
		"academic_performance": deref(req.AcademicPerformance),
	}
	s.registerUser(w, req.Email, req.Password, deref(req.Phone), models.RoleStudent, profile)
}

// registerUser finishes any register flow: create the account and "mail"
// the email verification token.
func (s *Server) registerUser(w http.ResponseWriter, email, password, phone string, role models.Role, profile map[string]any) {
	if email == "" || password == "" {
		writeDetail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, created := s.store.CreateUser(email, password, phone, role, profile)
	if !created {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}

	token, err := s.tokens.Issue(auth.PurposeEmailVerify, user.ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to issue verification token")
		return
	}
	s.rememberEmailToken(user.Email, token)
	s.logger.Info("verification email issued",
		slog.String("user_id", user.ID),
		slog.String("role", string(role)),
		slog.String("token", token))

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Registration successful. Please verify your email.",
	})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	userID, err := s.tokens.Validate(auth.PurposeEmailVerify, req.Token)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired verification token")
		return
	}
	if !s.store.Update(userID, func(u *User) { u.EmailVerified = true }) {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired verification token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Email verified"})
}

func (s *Server) handleVerifySMS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if !s.store.ConsumeVerificationCode(req.Phone, req.Code) {
		writeDetail(w, http.StatusBadRequest, "Invalid verification code")
		return
	}
	if user, ok := s.store.UserByPhone(req.Phone); ok {
		s.store.Update(user.ID, func(u *User) { u.PhoneVerified = true })
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Phone verified"})
}

func (s *Server) handleSendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method      string `json:"method"`
		Destination string `json:"destination"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Destination == "" {
		writeDetail(w, http.StatusBadRequest, "Destination is required")
		return
	}

	code := randomCode()
	s.store.PutVerificationCode(req.Destination, code)
	s.logger.Info("verification code issued",
		slog.String("method", req.Method),
		slog.String("destination", req.Destination),
		slog.String("code", code))

	writeJSON(w, http.StatusOK, map[string]string{"message": "Verification code sent"})
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	// Same response whether or not the account exists
	if user, ok := s.store.UserByEmail(req.Email); ok {
		token, err := s.tokens.Issue(auth.PurposePasswordReset, user.ID)
		if err == nil {
			s.rememberEmailToken(user.Email, token)
			s.logger.Info("password reset issued",
				slog.String("user_id", user.ID),
				slog.String("token", token))
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the email exists, a reset link has been sent",
	})
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := pkgauth.ValidatePassword(req.NewPassword); err != nil {
		writeDetail(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	userID, err := s.tokens.Validate(auth.PurposePasswordReset, req.Token)
	if err != nil || !s.store.SetPassword(userID, req.NewPassword) {
		s.audit.LogPasswordChange(userID, pkghttp.ClientIP(r), false)
		writeDetail(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	s.audit.LogPasswordChange(userID, pkghttp.ClientIP(r), true)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// userJSON renders a user the way GET /users/me does.
func userJSON(u *User) map[string]any {
	out := map[string]any{
		"id":                 u.ID,
		"email":              u.Email,
		"role":               string(u.Role),
		"email_verified":     u.EmailVerified,
		"phone_verified":     u.PhoneVerified,
		"two_factor_enabled": u.TwoFactorEnabled,
		"created_at":         u.CreatedAt.Format(time.RFC3339),
		"updated_at":         u.UpdatedAt.Format(time.RFC3339),
		"profile":            u.Profile,
	}
	if u.Phone != "" {
		out["phone"] = u.Phone
	}
	if u.TwoFactorMethod != "" {
		out["two_factor_method"] = string(u.TwoFactorMethod)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
