// Package devbackend is an in-memory stand-in for the DestinyPal backend's
// auth surface. It mirrors the production API's endpoints, cookie session
// scheme, and FastAPI-style error bodies so the client SDK can be developed
// and tested without a real deployment. Codes and tokens that production
// delivers by email or SMS are logged and exposed through dev-only hatches.
package devbackend

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/PMGEECODE/destinypal-sub002/internal/auth"
	"github.com/PMGEECODE/destinypal-sub002/internal/config"
	"github.com/PMGEECODE/destinypal-sub002/internal/middleware"
	pkghttp "github.com/PMGEECODE/destinypal-sub002/pkg/http"
	pkglogger "github.com/PMGEECODE/destinypal-sub002/pkg/logger"
)

const sessionCookieName = "dp_session"

// Server implements the auth API consumed by the session manager.
type Server struct {
	store  *Store
	tokens *auth.TokenManager
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
	cfg    config.DevServerConfig

	mu          sync.RWMutex
	emailTokens map[string]string // email -> last verification/reset token
}

func New(cfg config.DevServerConfig, logger *slog.Logger) *Server {
	return &Server{
		store:       NewStore(cfg.SessionTTL, cfg.VerificationExpiry),
		tokens:      auth.NewTokenManager(cfg.TokenSecret, cfg.VerificationExpiry),
		logger:      logger,
		audit:       pkglogger.NewAuditLogger(logger),
		cfg:         cfg,
		emailTokens: make(map[string]string),
	}
}

// Store exposes the underlying store for seeding and for test hatches.
func (s *Server) Store() *Store {
	return s.store
}

// LastEmailToken returns the most recent token "mailed" to an address.
func (s *Server) LastEmailToken(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.emailTokens[email]
	return token, ok
}

func (s *Server) rememberEmailToken(email, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emailTokens[email] = token
}

// Router builds the full route tree under /api/v1.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(s.cfg.AllowedOrigins)))
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(httprate.LimitByIP(s.cfg.LoginRateLimit, s.cfg.LoginRateWindow))
				r.Post("/login", s.handleLogin)
				r.Post("/send-verification", s.handleSendVerification)
				r.Post("/password-reset", s.handlePasswordReset)
			})

			r.Post("/register/sponsor", s.handleRegisterSponsor)
			r.Post("/register/institution", s.handleRegisterInstitution)
			r.Post("/register/student", s.handleRegisterStudent)
			r.Post("/logout", s.handleLogout)
			r.Post("/verify-email", s.handleVerifyEmail)
			r.Post("/verify-sms", s.handleVerifySMS)
			r.Post("/password-reset/confirm", s.handlePasswordResetConfirm)
			r.Post("/2fa/verify", s.handleTwoFactorVerify)
			r.Post("/2fa/setup", s.handleTwoFactorSetup)
			r.Post("/2fa/disable", s.handleTwoFactorDisable)
		})

		r.Get("/users/me", s.handleMe)
	})

	return r
}

// sessionUser resolves the request's session cookie to a user.
func (s *Server) sessionUser(r *http.Request) (*User, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, false
	}
	return s.store.SessionUser(cookie.Value)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, userID string) {
	token := s.store.CreateSession(userID)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.store.DeleteSession(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// response helpers, aliased so handlers stay terse
var (
	writeJSON   = pkghttp.WriteJSON
	writeDetail = pkghttp.WriteDetail
	decodeBody  = pkghttp.DecodeJSON
)

// randomCode produces a 6-digit verification code from a secure source.
func randomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// crypto/rand failing means the platform is broken; surface loudly
		panic(fmt.Sprintf("devbackend: random source unavailable: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64())
}
