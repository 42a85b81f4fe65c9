package models

import (
	"regexp"
	"strings"
	"time"

	"ms-festbuzz/internal/apperr"

	"github.com/uptrace/bun"
)

// Role is the global, system-wide role of a user.
type Role string

const (
	RoleSuperAdmin       Role = "superadmin"
	RoleAdmin            Role = "admin"
	RoleParticipant      Role = "participant"
	RoleFestivalHead     Role = "festival-head"
	RoleEventManager     Role = "event-manager"
	RoleEventCoordinator Role = "event-coordinator"
	RoleEventVolunteer   Role = "event-volunteer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleParticipant, RoleFestivalHead,
		RoleEventManager, RoleEventCoordinator, RoleEventVolunteer:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID            string    `bun:"id,pk" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	Role          Role      `bun:"role,notnull" json:"role"`
	Phone         string    `bun:"phone" json:"phone,omitempty"`
	DateOfBirth   string    `bun:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender        Gender    `bun:"gender" json:"gender,omitempty"`
	City          string    `bun:"city" json:"city,omitempty"`
	State         string    `bun:"state" json:"state,omitempty"`
	InstituteName string    `bun:"institute_name" json:"institute_name,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (u *User) PersonalInfo() PersonalInfo {
	return PersonalInfo{
		Phone:         u.Phone,
		DateOfBirth:   u.DateOfBirth,
		Gender:        u.Gender,
		City:          u.City,
		State:         u.State,
		InstituteName: u.InstituteName,
	}
}

// ApplyPersonalInfo copies info onto the user profile.
func (u *User) ApplyPersonalInfo(info PersonalInfo, now time.Time) {
	info = info.Normalize()
	u.Phone = info.Phone
	u.DateOfBirth = info.DateOfBirth
	u.Gender = info.Gender
	u.City = info.City
	u.State = info.State
	u.InstituteName = info.InstituteName
	u.UpdatedAt = now
}

// PersonalInfo is collected on every registration and mirrored onto the user.
// DateOfBirth uses the YYYY-MM-DD layout.
type PersonalInfo struct {
	Phone         string `json:"phone"`
	DateOfBirth   string `json:"date_of_birth"`
	Gender        Gender `json:"gender"`
	City          string `json:"city"`
	State         string `json:"state"`
	InstituteName string `json:"institute_name"`
}

const DateLayout = "2006-01-02"

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

func (p PersonalInfo) Normalize() PersonalInfo {
	return PersonalInfo{
		Phone:         strings.ReplaceAll(strings.TrimSpace(p.Phone), " ", ""),
		DateOfBirth:   strings.TrimSpace(p.DateOfBirth),
		Gender:        Gender(strings.TrimSpace(string(p.Gender))),
		City:          strings.TrimSpace(p.City),
		State:         strings.TrimSpace(p.State),
		InstituteName: strings.TrimSpace(p.InstituteName),
	}
}

func (p PersonalInfo) Validate() error {
	p = p.Normalize()

	var missing []string
	if p.Phone == "" {
		missing = append(missing, "phone")
	}
	if p.DateOfBirth == "" {
		missing = append(missing, "date_of_birth")
	}
	if p.Gender == "" {
		missing = append(missing, "gender")
	}
	if p.City == "" {
		missing = append(missing, "city")
	}
	if p.State == "" {
		missing = append(missing, "state")
	}
	if p.InstituteName == "" {
		missing = append(missing, "institute_name")
	}
	if len(missing) > 0 {
		return apperr.Validation("missing personal information: %s", strings.Join(missing, ", "))
	}

	if !phonePattern.MatchString(p.Phone) {
		return apperr.Validation("phone must contain 10 to 15 digits")
	}
	dob, err := time.Parse(DateLayout, p.DateOfBirth)
	if err != nil {
		return apperr.Validation("date_of_birth must use the YYYY-MM-DD format")
	}
	if dob.After(time.Now()) {
		return apperr.Validation("date_of_birth cannot be in the future")
	}
	switch p.Gender {
	case GenderMale, GenderFemale, GenderOther:
	default:
		return apperr.Validation("gender must be one of Male, Female, Other")
	}
	return nil
}
