package devbackend

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PMGEECODE/destinypal-sub002/internal/models"
	pkgauth "github.com/PMGEECODE/destinypal-sub002/pkg/auth"
)

// User is an account held by the in-memory store.
type User struct {
	ID               string
	Email            string
	PasswordHash     string
	Phone            string
	Role             models.Role
	EmailVerified    bool
	PhoneVerified    bool
	TwoFactorEnabled bool
	TwoFactorMethod  models.TwoFactorMethod
	TOTPSecret       string
	BackupCodes      []string
	Profile          map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// clone gives callers their own User so reads outside the store lock never
// race with Update. Profile and BackupCodes are the mutable parts.
func (u *User) clone() *User {
	cp := *u
	if u.Profile != nil {
		cp.Profile = make(map[string]any, len(u.Profile))
		for k, v := range u.Profile {
			cp.Profile[k] = v
		}
	}
	cp.BackupCodes = append([]string(nil), u.BackupCodes...)
	return &cp
}

type storedSession struct {
	userID    string
	expiresAt time.Time
}

type issuedCode struct {
	code      string
	expiresAt time.Time
}

// Store keeps every account, session, and outstanding code in memory. It
// exists so the client SDK has a realistic peer in development and tests;
// nothing here survives a restart, and that is the point.
type Store struct {
	mu           sync.RWMutex
	usersByID    map[string]*User
	usersByEmail map[string]*User
	sessions     map[string]storedSession
	sessionTTL   time.Duration
	codeTTL      time.Duration

	// codes delivered out-of-band in production: keyed by destination
	// (email address or phone number) for send-verification, and by user ID
	// for pending 2FA login challenges.
	verificationCodes map[string]issuedCode
	challengeCodes    map[string]issuedCode
}

func NewStore(sessionTTL, codeTTL time.Duration) *Store {
	return &Store{
		usersByID:         make(map[string]*User),
		usersByEmail:      make(map[string]*User),
		sessions:          make(map[string]storedSession),
		sessionTTL:        sessionTTL,
		codeTTL:           codeTTL,
		verificationCodes: make(map[string]issuedCode),
		challengeCodes:    make(map[string]issuedCode),
	}
}

// CreateUser registers an account. The email must be unused.
func (s *Store) CreateUser(email, password, phone string, role models.Role, profile map[string]any) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.usersByEmail[key]; exists {
		return nil, false
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, false
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New().String(),
		Email:        key,
		PasswordHash: hash,
		Phone:        phone,
		Role:         role,
		Profile:      profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.usersByID[user.ID] = user
	s.usersByEmail[key] = user
	return user.clone(), true
}

func (s *Store) UserByEmail(email string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, false
	}
	return u.clone(), true
}

func (s *Store) UserByID(id string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usersByID[id]
	if !ok {
		return nil, false
	}
	return u.clone(), true
}

func (s *Store) UserByPhone(phone string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.usersByID {
		if u.Phone != "" && u.Phone == phone {
			return u.clone(), true
		}
	}
	return nil, false
}

// dummyHash absorbs a comparison so unknown emails take as long as bad
// passwords.
var dummyHash, _ = pkgauth.HashPassword("timing-equalizer")

// CheckPassword verifies a login attempt.
func (s *Store) CheckPassword(email, password string) (*User, bool) {
	user, ok := s.UserByEmail(email)
	if !ok {
		_ = pkgauth.ComparePassword(dummyHash, password)
		return nil, false
	}
	if pkgauth.ComparePassword(user.PasswordHash, password) != nil {
		return nil, false
	}
	return user, true
}

// SetPassword replaces a user's password hash.
func (s *Store) SetPassword(userID, password string) bool {
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByID[userID]
	if !ok {
		return false
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()
	return true
}

// Update applies a mutation to a user under the store lock.
func (s *Store) Update(userID string, fn func(*User)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByID[userID]
	if !ok {
		return false
	}
	fn(user)
	user.UpdatedAt = time.Now().UTC()
	return true
}

// CreateSession mints a session token for a user.
func (s *Store) CreateSession(userID string) string {
	token := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = storedSession{userID: userID, expiresAt: time.Now().Add(s.sessionTTL)}
	return token
}

// SessionUser resolves a session token to its user, expiring stale entries.
func (s *Store) SessionUser(token string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, false
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return nil, false
	}
	user, ok := s.usersByID[sess.userID]
	if !ok {
		return nil, false
	}
	return user.clone(), true
}

func (s *Store) DeleteSession(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// PutVerificationCode records the code "sent" to a destination.
func (s *Store) PutVerificationCode(destination, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verificationCodes[destination] = issuedCode{code: code, expiresAt: time.Now().Add(s.codeTTL)}
}

// ConsumeVerificationCode checks and invalidates a destination's code.
func (s *Store) ConsumeVerificationCode(destination, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.verificationCodes[destination]
	if !ok || stored.code != code || time.Now().After(stored.expiresAt) {
		return false
	}
	delete(s.verificationCodes, destination)
	return true
}

// VerificationCode exposes the last code for a destination. Dev-only hatch
// used by the devserver log line and the integration tests.
func (s *Store) VerificationCode(destination string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.verificationCodes[destination]
	if !ok || time.Now().After(stored.expiresAt) {
		return "", false
	}
	return stored.code, true
}

// PutChallengeCode records a pending 2FA login challenge for a user.
func (s *Store) PutChallengeCode(userID, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challengeCodes[userID] = issuedCode{code: code, expiresAt: time.Now().Add(s.codeTTL)}
}

// ConsumeChallengeCode checks and invalidates a user's login challenge.
func (s *Store) ConsumeChallengeCode(userID, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.challengeCodes[userID]
	if !ok || stored.code != code || time.Now().After(stored.expiresAt) {
		return false
	}
	delete(s.challengeCodes, userID)
	return true
}

// ChallengeCode exposes a user's pending login challenge. Dev-only hatch.
func (s *Store) ChallengeCode(userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.challengeCodes[userID]
	if !ok || time.Now().After(stored.expiresAt) {
		return "", false
	}
	return stored.code, true
}

// ConsumeBackupCode spends one of a user's 2FA recovery codes.
func (s *Store) ConsumeBackupCode(userID, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByID[userID]
	if !ok {
		return false
	}
	for i, c := range user.BackupCodes {
		if c == code {
			user.BackupCodes = append(user.BackupCodes[:i], user.BackupCodes[i+1:]...)
			return true
		}
	}
	return false
}

// PurgeExpired drops expired sessions and outstanding codes. Called
// periodically by the cleanup manager.
func (s *Store) PurgeExpired() (sessions, codes int) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, token)
			sessions++
		}
	}
	for dest, stored := range s.verificationCodes {
		if now.After(stored.expiresAt) {
			delete(s.verificationCodes, dest)
			codes++
		}
	}
	for userID, stored := range s.challengeCodes {
		if now.After(stored.expiresAt) {
			delete(s.challengeCodes, userID)
			codes++
		}
	}
	return sessions, codes
}
