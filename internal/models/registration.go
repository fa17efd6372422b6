package models

// Registration payload shapes. Each role has its own form; the session
// manager matches the concrete type against the caller-supplied role and
// maps it onto the backend's register endpoints, so the structs here mirror
// the forms rather than the wire format.

// InstitutionType classifies an educational institution.
type InstitutionType string

const (
	InstitutionSecondarySchool InstitutionType = "secondary_school"
	InstitutionUniversity      InstitutionType = "university"
	InstitutionCollege         InstitutionType = "college"
	InstitutionVocational      InstitutionType = "vocational"
)

// Registration is implemented by all registration payloads.
type Registration interface {
	// RegistrationEmail is the address the verification mail will go to.
	RegistrationEmail() string
}

// SponsorRegistration is the payload for a sponsor account.
type SponsorRegistration struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	FullName string `validate:"required"`
	IDNumber string // national ID or passport
	Country  string `validate:"required"`
	County   string // Kenya
	State    string // elsewhere
	Phone    string
}

func (r SponsorRegistration) RegistrationEmail() string { return r.Email }

// InstitutionRegistration is the payload for an institution account.
type InstitutionRegistration struct {
	Email           string          `validate:"required,email"`
	Password        string          `validate:"required,min=8"`
	InstitutionName string          `validate:"required"`
	InstitutionType InstitutionType `validate:"required"`

	Country    string
	County     string
	State      string
	Address    string
	City       string
	PostalCode string

	ContactPersonName  string `validate:"required"`
	ContactPersonTitle string
	ContactPersonEmail string `validate:"required,email"`
	ContactPersonPhone string

	Website string
}

func (r InstitutionRegistration) RegistrationEmail() string { return r.Email }

// HighSchoolStudentRegistration is the payload for a high-school student.
type HighSchoolStudentRegistration struct {
	Email         string `validate:"required,email"`
	Password      string `validate:"required,min=8"`
	FullName      string `validate:"required"`
	DateOfBirth   string `validate:"required"`
	Gender        string `validate:"required,oneof=male female other"`
	FormLevel     string `validate:"required"`
	InstitutionID string `validate:"required"`
	SchoolCounty  string
	Country       string
	County        string

	AdmissionNumber string
	Phone           string

	ParentGuardianName         string `validate:"required"`
	ParentGuardianPhone        string `validate:"required"`
	ParentGuardianEmail        string
	ParentGuardianRelationship string `validate:"required"`
}

func (r HighSchoolStudentRegistration) RegistrationEmail() string { return r.Email }

// UniversityStudentRegistration is the payload for a university student.
type UniversityStudentRegistration struct {
	Email         string `validate:"required,email"`
	Password      string `validate:"required,min=8"`
	FullName      string `validate:"required"`
	DateOfBirth   string `validate:"required"`
	Gender        string `validate:"required,oneof=male female other"`
	InstitutionID string `validate:"required"`

	UniversityName         string
	StudentID              string `validate:"required"`
	CourseName             string `validate:"required"`
	FacultySchool          string
	YearOfStudy            string `validate:"required"`
	ExpectedGraduationYear int

	Country    string
	County     string
	State      string
	NationalID string
	Phone      string

	EmergencyContactName         string `validate:"required"`
	EmergencyContactPhone        string `validate:"required"`
	EmergencyContactRelationship string `validate:"required"`
}

func (r UniversityStudentRegistration) RegistrationEmail() string { return r.Email }
