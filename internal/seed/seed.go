// Package seed holds the data a fresh deployment starts from: the default
// timetable skeleton, the reference catalogue, the demo accounts and the
// first notice.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/timetable"
)

var (
	//go:embed data/skeleton.yaml
	defaultSkeleton []byte

	//go:embed data/catalog.yaml
	catalogYAML []byte

	//go:embed data/university.json
	universityJSON []byte
)

// MustExistIDs are re-asserted on every initialize so the demo logins keep
// working against old documents.
var MustExistIDs = []string{"demo123", "P001", "W001"}

// DemoAccounts returns a fresh copy of the accounts written on first run.
func DemoAccounts() []models.UserAccount {
	return []models.UserAccount{
		{ID: "admin", Role: models.RoleAdmin, Name: "Admin", Email: "admin@dtu.ac.in", Password: "admin"},
		{ID: "demo123", Role: models.RoleStudent, Name: "Demo Student", Email: "student@dtu.ac.in", Password: "pass", Branch: "CSE", Section: "1", Semester: "2"},
		{ID: "2K25/CSE/01", Role: models.RoleStudent, Name: "John Doe", Email: "john@dtu.ac.in", Password: "pass", Branch: "CSE", Section: "1", Semester: "2"},
		{ID: "W001", Role: models.RoleWarden, Name: "Demo Warden", Email: "warden@dtu.ac.in", Password: "pass", Hostel: "Aryabhatta"},
		{ID: "P001", Role: models.RoleProfessor, Name: "Dr. Vineet Kumar", Email: "prof@dtu.ac.in", Password: "pass", Dept: "CSE"},
	}
}

// DemoAccount returns the canonical demo account with the id.
func DemoAccount(id string) (models.UserAccount, bool) {
	for _, u := range DemoAccounts() {
		if u.ID == id {
			return u, true
		}
	}
	return models.UserAccount{}, false
}

// Notices returns the notices written on first run.
func Notices() []models.Notice {
	return []models.Notice{
		{ID: 1, Type: models.NoticeTypeHostel, Title: "Water Supply Maintenance", Content: "No water from 2-4 PM today.", Date: "2025-12-29"},
	}
}

// LoadSkeleton parses the skeleton at path, or the embedded default when path
// is empty.
func LoadSkeleton(path string) (models.ScheduleSkeleton, error) {
	data := defaultSkeleton
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return models.ScheduleSkeleton{}, fmt.Errorf("read skeleton %s: %w", path, err)
		}
		data = raw
	}
	return timetable.ParseSkeleton(data)
}

// Catalog returns the branch, section and time-slot reference lists.
func Catalog() (models.Catalog, error) {
	var catalog models.Catalog
	if err := yaml.Unmarshal(catalogYAML, &catalog); err != nil {
		return models.Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	return catalog, nil
}

// UniversityInfo returns the static campus facts given to the assistant.
func UniversityInfo() json.RawMessage {
	out := make(json.RawMessage, len(universityJSON))
	copy(out, universityJSON)
	return out
}
