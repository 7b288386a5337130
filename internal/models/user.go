package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UserRole is the closed set of roles a UserAccount can hold.
type UserRole string

const (
	RoleStudent   UserRole = "student"
	RoleProfessor UserRole = "professor"
	RoleWarden    UserRole = "warden"
	RoleAdmin     UserRole = "admin"
)

// ParseRole normalises stored role strings. Legacy warden variants such as
// "warden_hostel" collapse onto RoleWarden.
func ParseRole(raw string) (UserRole, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case value == string(RoleStudent):
		return RoleStudent, nil
	case value == string(RoleProfessor):
		return RoleProfessor, nil
	case value == string(RoleAdmin):
		return RoleAdmin, nil
	case strings.HasPrefix(value, string(RoleWarden)):
		return RoleWarden, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// UnmarshalJSON accepts legacy role spellings. Unknown values are kept as-is
// and rejected later by Valid.
func (r *UserRole) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	role, err := ParseRole(raw)
	if err != nil {
		*r = UserRole(raw)
		return nil
	}
	*r = role
	return nil
}

// Role attribute names.
const (
	AttrBranch   = "branch"
	AttrSection  = "section"
	AttrSemester = "semester"
	AttrDept     = "dept"
	AttrHostel   = "hostel"
)

// RoleProfile describes what a role must carry and where it lands after login.
type RoleProfile struct {
	RequiredAttributes []string `json:"required_attributes"`
	LandingView        string   `json:"landing_view"`
}

var roleProfiles = map[UserRole]RoleProfile{
	RoleStudent:   {RequiredAttributes: []string{AttrBranch, AttrSection, AttrSemester}, LandingView: "/student/dashboard"},
	RoleProfessor: {RequiredAttributes: []string{AttrDept}, LandingView: "/professor/dashboard"},
	RoleWarden:    {RequiredAttributes: []string{AttrHostel}, LandingView: "/warden/dashboard"},
	RoleAdmin:     {RequiredAttributes: nil, LandingView: "/admin/dashboard"},
}

// Profile returns the attribute requirements and landing view of the role.
func (r UserRole) Profile() RoleProfile {
	return roleProfiles[r]
}

// Valid reports whether r is one of the closed role set.
func (r UserRole) Valid() bool {
	_, ok := roleProfiles[r]
	return ok
}

// UserAccount is one entry in the persisted users list.
type UserAccount struct {
	ID       string   `json:"id"`
	Role     UserRole `json:"role"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password,omitempty"`
	Picture  string   `json:"picture,omitempty"`
	Branch   string   `json:"branch,omitempty"`
	Section  string   `json:"section,omitempty"`
	Semester string   `json:"semester,omitempty"`
	Dept     string   `json:"dept,omitempty"`
	Hostel   string   `json:"hostel,omitempty"`
}

// Attribute returns the value of a role attribute by name.
func (u UserAccount) Attribute(name string) string {
	switch name {
	case AttrBranch:
		return u.Branch
	case AttrSection:
		return u.Section
	case AttrSemester:
		return u.Semester
	case AttrDept:
		return u.Dept
	case AttrHostel:
		return u.Hostel
	}
	return ""
}

// MissingAttributes lists the role attributes the account lacks.
func (u UserAccount) MissingAttributes() []string {
	var missing []string
	for _, attr := range u.Role.Profile().RequiredAttributes {
		if strings.TrimSpace(u.Attribute(attr)) == "" {
			missing = append(missing, attr)
		}
	}
	return missing
}

// View strips the credential for API responses.
func (u UserAccount) View() AccountView {
	return AccountView{
		ID:          u.ID,
		Role:        u.Role,
		Name:        u.Name,
		Email:       u.Email,
		Picture:     u.Picture,
		Branch:      u.Branch,
		Section:     u.Section,
		Semester:    u.Semester,
		Dept:        u.Dept,
		Hostel:      u.Hostel,
		LandingView: u.Role.Profile().LandingView,
	}
}

// AccountView is the credential-free projection of an account.
type AccountView struct {
	ID          string   `json:"id"`
	Role        UserRole `json:"role"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Picture     string   `json:"picture,omitempty"`
	Branch      string   `json:"branch,omitempty"`
	Section     string   `json:"section,omitempty"`
	Semester    string   `json:"semester,omitempty"`
	Dept        string   `json:"dept,omitempty"`
	Hostel      string   `json:"hostel,omitempty"`
	LandingView string   `json:"landing_view"`
}

// UpdateKind discriminates account updates.
type UpdateKind string

const (
	UpdateKindPassword UpdateKind = "password"
	UpdateKindProfile  UpdateKind = "profile"
)

// AccountUpdate is a tagged update: either a password replacement or a
// shallow profile merge.
type AccountUpdate struct {
	Kind     UpdateKind    `json:"kind" validate:"required,oneof=password profile"`
	Password string        `json:"value,omitempty" validate:"required_if=Kind password"`
	Profile  *ProfilePatch `json:"fields,omitempty" validate:"required_if=Kind profile"`
}

// PasswordUpdate builds a password-only update.
func PasswordUpdate(password string) AccountUpdate {
	return AccountUpdate{Kind: UpdateKindPassword, Password: password}
}

// ProfileUpdate builds a profile merge update.
func ProfileUpdate(patch ProfilePatch) AccountUpdate {
	return AccountUpdate{Kind: UpdateKindProfile, Profile: &patch}
}

// ProfilePatch holds the profile fields to overwrite; nil means keep.
type ProfilePatch struct {
	Name     *string `json:"name,omitempty"`
	Picture  *string `json:"picture,omitempty"`
	Branch   *string `json:"branch,omitempty"`
	Section  *string `json:"section,omitempty"`
	Semester *string `json:"semester,omitempty"`
	Dept     *string `json:"dept,omitempty"`
	Hostel   *string `json:"hostel,omitempty"`
}

// Apply merges the provided fields over the account.
func (p ProfilePatch) Apply(u UserAccount) UserAccount {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.Name, p.Name)
	set(&u.Picture, p.Picture)
	set(&u.Branch, p.Branch)
	set(&u.Section, p.Section)
	set(&u.Semester, p.Semester)
	set(&u.Dept, p.Dept)
	set(&u.Hostel, p.Hostel)
	return u
}

// UserFilter captures filtering criteria for listing accounts.
type UserFilter struct {
	Role     UserRole
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
