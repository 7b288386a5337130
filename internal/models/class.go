package models

// ClassFilter narrows the flattened class list. Empty fields match anything.
type ClassFilter struct {
	Branch    string
	Semester  string
	Section   string
	Professor string
	Day       string
	Status    ClassStatus
}

// Matches reports whether the record satisfies every populated criterion.
func (f ClassFilter) Matches(c ClassRecord) bool {
	if f.Branch != "" && f.Branch != c.Branch {
		return false
	}
	if f.Semester != "" && f.Semester != c.Semester {
		return false
	}
	if f.Section != "" && f.Section != c.Section {
		return false
	}
	if f.Professor != "" && f.Professor != c.Professor {
		return false
	}
	if f.Day != "" && f.Day != c.Day {
		return false
	}
	if f.Status != "" && f.Status != c.Status {
		return false
	}
	return true
}

// UpdateClassStatusRequest marks a class cancelled, upcoming or a custom state.
type UpdateClassStatusRequest struct {
	Status ClassStatus `json:"status" validate:"required,max=32"`
}

// Catalog is the read-only reference data used by registration forms.
type Catalog struct {
	Branches  []string            `json:"branches" yaml:"branches"`
	Sections  map[string][]string `json:"sections" yaml:"sections"`
	TimeSlots []string            `json:"time_slots" yaml:"time_slots"`
}

// SectionsFor returns the sections offered by a branch code, falling back to
// the "default" entry.
func (c Catalog) SectionsFor(branch string) []string {
	if sections, ok := c.Sections[branch]; ok {
		return sections
	}
	return c.Sections["default"]
}
