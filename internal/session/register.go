package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/PMGEECODE/destinypal-sub002/internal/models"
)

// Wire DTOs for the register endpoints. Nullable columns are pointers so a
// deliberate null reaches the backend instead of the field being omitted.

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

// Register creates an account for the given role. The concrete payload type
// must agree with the role; a mismatch fails before any network call. On
// success the session records a pending email verification: registration
// never authenticates by itself.
func (m *Manager) Register(ctx context.Context, data models.Registration, role models.Role) error {
	m.beginOperation()

	endpoint, body, err := buildRegistration(data, role)
	if err != nil {
		m.failOperation(err)
		return err
	}

	if err := validateRegistration(data); err != nil {
		m.failOperation(err)
		return err
	}

	if err := m.transport.Post(ctx, endpoint, body, nil); err != nil {
		m.failOperation(err)
		return err
	}

	m.mu.Lock()
	m.state.IsLoading = false
	m.state.PendingVerification = &models.PendingVerification{
		Type:        models.VerificationEmail,
		Destination: data.RegistrationEmail(),
	}
	m.mu.Unlock()

	m.logger.Info("registration submitted",
		slog.String("role", string(role)),
		slog.String("endpoint", endpoint))
	return nil
}

// buildRegistration maps a payload onto its endpoint and wire body. Match
// order follows the historical dispatch priority: institution, sponsor,
// high-school student, university student.
func buildRegistration(data models.Registration, role models.Role) (string, any, error) {
	switch d := data.(type) {
	case models.InstitutionRegistration:
		if role == models.RoleInstitution {
			return "/auth/register/institution", institutionBody(d), nil
		}
	case models.SponsorRegistration:
		if role == models.RoleSponsor {
			return "/auth/register/sponsor", sponsorBody(d), nil
		}
	case models.HighSchoolStudentRegistration:
		if role == models.RoleStudent {
			return "/auth/register/student", highSchoolBody(d), nil
		}
	case models.UniversityStudentRegistration:
		if role == models.RoleStudent {
			return "/auth/register/student", universityBody(d), nil
		}
	}
	return "", nil, fmt.Errorf("Invalid registration data for role: %s", role)
}

func institutionBody(d models.InstitutionRegistration) institutionRegisterRequest {
	return institutionRegisterRequest{
		Email:              d.Email,
		Password:           d.Password,
		InstitutionName:    d.InstitutionName,
		InstitutionType:    string(d.InstitutionType),
		Country:            withDefault(d.Country, "KE"),
		County:             nullable(d.County),
		State:              nullable(d.State),
		Address:            withDefault(d.Address, "Not provided"),
		City:               withDefault(d.City, "Unknown"),
		PostalCode:         nullable(d.PostalCode),
		ContactPersonName:  d.ContactPersonName,
		ContactPersonTitle: nullable(d.ContactPersonTitle),
		ContactPersonEmail: d.ContactPersonEmail,
		ContactPersonPhone: withDefault(d.ContactPersonPhone, "Not provided"),
		Website:            nullable(d.Website),
	}
}

func sponsorBody(d models.SponsorRegistration) sponsorRegisterRequest {
	return sponsorRegisterRequest{
		Email:    d.Email,
		Password: d.Password,
		FullName: d.FullName,
		IDNumber: nullable(d.IDNumber),
		Phone:    usablePhone(d.Phone),
		Country:  d.Country,
		County:   nullable(d.County),
		State:    nullable(d.State),
	}
}

func highSchoolBody(d models.HighSchoolStudentRegistration) studentRegisterRequest {
	family := fmt.Sprintf("Guardian: %s (%s), Phone: %s",
		d.ParentGuardianName, d.ParentGuardianRelationship, d.ParentGuardianPhone)
	if d.ParentGuardianEmail != "" {
		family += ", Email: " + d.ParentGuardianEmail
	}

	var academic *string
	if d.AdmissionNumber != "" {
		academic = ptr("Admission Number: " + d.AdmissionNumber)
	}

	return studentRegisterRequest{
		Email:               d.Email,
		Password:            d.Password,
		FullName:            d.FullName,
		DateOfBirth:         d.DateOfBirth,
		Gender:              d.Gender,
		InstitutionID:       d.InstitutionID,
		GradeLevel:          d.FormLevel,
		Location:            firstNonEmpty(d.SchoolCounty, d.County),
		Phone:               usablePhone(d.Phone),
		BackgroundStory:     nil,
		FamilySituation:     ptr(family),
		AcademicPerformance: academic,
	}
}

func universityBody(d models.UniversityStudentRegistration) studentRegisterRequest {
	faculty := withDefault(d.FacultySchool, "N/A")
	graduation := "N/A"
	if d.ExpectedGraduationYear > 0 {
		graduation = strconv.Itoa(d.ExpectedGraduationYear)
	}
	background := fmt.Sprintf("Course: %s, Faculty: %s, Expected Graduation: %s",
		d.CourseName, faculty, graduation)

	family := fmt.Sprintf("Emergency Contact: %s (%s), Phone: %s",
		d.EmergencyContactName, d.EmergencyContactRelationship, d.EmergencyContactPhone)

	academic := "Student ID: " + d.StudentID
	if d.NationalID != "" {
		academic += ", National ID: " + d.NationalID
	}

	return studentRegisterRequest{
		Email:               d.Email,
		Password:            d.Password,
		FullName:            d.FullName,
		DateOfBirth:         d.DateOfBirth,
		Gender:              d.Gender,
		InstitutionID:       d.InstitutionID,
		GradeLevel:          d.YearOfStudy,
		Location:            firstNonEmpty(d.County, d.State),
		Phone:               nullable(d.Phone),
		BackgroundStory:     ptr(background),
		FamilySituation:     ptr(family),
		AcademicPerformance: ptr(academic),
	}
}

// validateRegistration runs the struct tags and converts the first failure
// into a user-friendly message.
func validateRegistration(data models.Registration) error {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		return fmt.Errorf("%s: %s", ve[0].Field(), describeValidation(ve[0]))
	}
	return fmt.Errorf("validation failed: %w", err)
}

func describeValidation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

func ptr(s string) *string { return &s }

// nullable turns an empty string into an explicit null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// usablePhone suppresses placeholder values: anything of four characters or
// fewer (bare dial codes like "+254") is treated as not provided.
func usablePhone(phone string) *string {
	if len(phone) > 4 {
		return &phone
	}
	return nil
}

func firstNonEmpty(values ...string) *string {
	for _, v := range values {
		if v != "" {
			return &v
		}
	}
	return nil
}

func withDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
