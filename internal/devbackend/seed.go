package devbackend

import (
	"log/slog"

	"github.com/PMGEECODE/destinypal-sub002/internal/models"
)

// Seed creates the demo accounts used in local development. All passwords
// are "Password123!". Safe to call once per Server.
func (s *Server) Seed() {
	accounts := []struct {
		email   string
		phone   string
		role    models.Role
		profile map[string]any
	}{
		{
			email: "sponsor@demo.destinypal.org",
			phone: "+254700000001",
			role:  models.RoleSponsor,
			profile: map[string]any{
				"role": "sponsor", "full_name": "Demo Sponsor", "country": "KE", "county": "Nairobi",
			},
		},
		{
			email: "student@demo.destinypal.org",
			phone: "+254700000002",
			role:  models.RoleStudent,
			profile: map[string]any{
				"role": "student", "full_name": "Demo Student", "grade_level": "Form 2", "location": "Kisumu",
			},
		},
		{
			email: "institution@demo.destinypal.org",
			role:  models.RoleInstitution,
			profile: map[string]any{
				"role": "institution", "institution_name": "Demo High School", "institution_type": "secondary_school",
			},
		},
		{
			email:   "admin@demo.destinypal.org",
			role:    models.RoleAdmin,
			profile: map[string]any{"role": "admin", "full_name": "Demo Admin"},
		},
	}

	for _, a := range accounts {
		user, created := s.store.CreateUser(a.email, "Password123!", a.phone, a.role, a.profile)
		if !created {
			continue
		}
		s.store.Update(user.ID, func(u *User) {
			u.EmailVerified = true
			if u.Phone != "" {
				u.PhoneVerified = true
			}
		})
		s.logger.Info("seeded demo account",
			slog.String("email", a.email),
			slog.String("role", string(a.role)))
	}
}
