package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medirespond/medirespond/internal/platform/auth"
	"github.com/medirespond/medirespond/pkg/apperr"
)

const MinPasswordLength = 6

var validGenders = map[string]bool{"Male": true, "Female": true, "Other": true}

var validBloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"O+": true, "O-": true, "AB+": true, "AB-": true,
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	PhoneNumber  string `json:"phoneNumber"`
	Relationship string `json:"relationship"`
}

// User maps to the users table. PasswordHash never leaves the service.
type User struct {
	ID                 uuid.UUID          `json:"id"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	PasswordHash       string             `json:"-"`
	Phone              string             `json:"phone,omitempty"`
	Address            string             `json:"address,omitempty"`
	Pincode            string             `json:"pincode,omitempty"`
	Location           *Location          `json:"locationCoordinates,omitempty"`
	Age                int                `json:"age,omitempty"`
	Gender             string             `json:"gender,omitempty"`
	ChronicConditions  []string           `json:"chronicConditions"`
	Allergies          []string           `json:"allergies"`
	CurrentMedications []string           `json:"currentMedications"`
	BloodType          string             `json:"bloodType,omitempty"`
	EmergencyContacts  []EmergencyContact `json:"emergencyContacts"`
	Role               string             `json:"role"`
	Department         string             `json:"department,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// IsDoctor reports whether the user can be assigned to emergency calls.
func (u *User) IsDoctor() bool {
	return u.Role == auth.RoleDoctor
}

// normalize replaces nil lists so JSONB columns never hold null.
func (u *User) normalize() {
	u.Email = NormalizeEmail(u.Email)
	if u.ChronicConditions == nil {
		u.ChronicConditions = []string{}
	}
	if u.Allergies == nil {
		u.Allergies = []string{}
	}
	if u.CurrentMedications == nil {
		u.CurrentMedications = []string{}
	}
	if u.EmergencyContacts == nil {
		u.EmergencyContacts = []EmergencyContact{}
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Doctor is the public listing entry for a doctor.
type Doctor struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department,omitempty"`
}

type RegisterRequest struct {
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	Password           string             `json:"password"`
	Phone              string             `json:"phone"`
	Address            string             `json:"address"`
	Pincode            string             `json:"pincode"`
	Location           *Location          `json:"locationCoordinates"`
	Age                int                `json:"age"`
	Gender             string             `json:"gender"`
	ChronicConditions  []string           `json:"chronicConditions"`
	Allergies          []string           `json:"allergies"`
	CurrentMedications []string           `json:"currentMedications"`
	BloodType          string             `json:"bloodType"`
	EmergencyContacts  []EmergencyContact `json:"emergencyContacts"`
}

func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperr.Validation("name is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return apperr.Validation("a valid email is required")
	}
	if len(r.Password) < MinPasswordLength {
		return apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	if r.Phone == "" || r.Address == "" || r.Pincode == "" {
		return apperr.Validation("phone, address and pincode are required")
	}
	if r.Age <= 0 {
		return apperr.Validation("age is required")
	}
	return validateProfile(r.Gender, r.BloodType, r.EmergencyContacts)
}

func (r *RegisterRequest) toUser() *User {
	return &User{
		Name:               strings.TrimSpace(r.Name),
		Email:              r.Email,
		Phone:              r.Phone,
		Address:            r.Address,
		Pincode:            r.Pincode,
		Location:           r.Location,
		Age:                r.Age,
		Gender:             r.Gender,
		ChronicConditions:  r.ChronicConditions,
		Allergies:          r.Allergies,
		CurrentMedications: r.CurrentMedications,
		BloodType:          r.BloodType,
		EmergencyContacts:  r.EmergencyContacts,
		Role:               auth.RolePatient,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest carries a partial profile update. Nil fields are left
// unchanged. Password, email and role cannot be changed here.
type UpdateProfileRequest struct {
	Name               *string             `json:"name"`
	Phone              *string             `json:"phone"`
	Address            *string             `json:"address"`
	Pincode            *string             `json:"pincode"`
	Location           *Location           `json:"locationCoordinates"`
	Age                *int                `json:"age"`
	Gender             *string             `json:"gender"`
	ChronicConditions  *[]string           `json:"chronicConditions"`
	Allergies          *[]string           `json:"allergies"`
	CurrentMedications *[]string           `json:"currentMedications"`
	BloodType          *string             `json:"bloodType"`
	EmergencyContacts  *[]EmergencyContact `json:"emergencyContacts"`
}

// apply copies the set fields onto u and validates the result.
func (r *UpdateProfileRequest) apply(u *User) error {
	if r.Name != nil {
		if strings.TrimSpace(*r.Name) == "" {
			return apperr.Validation("name cannot be empty")
		}
		u.Name = strings.TrimSpace(*r.Name)
	}
	if r.Phone != nil {
		u.Phone = *r.Phone
	}
	if r.Address != nil {
		u.Address = *r.Address
	}
	if r.Pincode != nil {
		u.Pincode = *r.Pincode
	}
	if r.Location != nil {
		u.Location = r.Location
	}
	if r.Age != nil {
		if *r.Age <= 0 {
			return apperr.Validation("age must be positive")
		}
		u.Age = *r.Age
	}
	if r.Gender != nil {
		u.Gender = *r.Gender
	}
	if r.ChronicConditions != nil {
		u.ChronicConditions = *r.ChronicConditions
	}
	if r.Allergies != nil {
		u.Allergies = *r.Allergies
	}
	if r.CurrentMedications != nil {
		u.CurrentMedications = *r.CurrentMedications
	}
	if r.BloodType != nil {
		u.BloodType = *r.BloodType
	}
	if r.EmergencyContacts != nil {
		u.EmergencyContacts = *r.EmergencyContacts
	}
	return validateProfile(u.Gender, u.BloodType, u.EmergencyContacts)
}

func validateProfile(gender, bloodType string, contacts []EmergencyContact) error {
	if gender != "" && !validGenders[gender] {
		return apperr.Validation("invalid gender: %q", gender)
	}
	if bloodType != "" && !validBloodTypes[bloodType] {
		return apperr.Validation("invalid bloodType: %q", bloodType)
	}
	for i, c := range contacts {
		if c.Name == "" || c.PhoneNumber == "" || c.Relationship == "" {
			return apperr.Validation("emergencyContacts[%d]: name, phoneNumber and relationship are required", i)
		}
	}
	return nil
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
