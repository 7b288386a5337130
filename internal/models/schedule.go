package models

import "strings"

// ClassDescriptor is the hand-authored content of one timetable leaf.
type ClassDescriptor struct {
	Code      string `json:"code" yaml:"code"`
	Subject   string `json:"subject" yaml:"subject"`
	Venue     string `json:"venue" yaml:"venue"`
	Professor string `json:"professor" yaml:"professor"`
}

// ScheduleSkeleton is the nested branch → semester → section → day → slot
// source of truth. Every level is a slice so document order survives decoding.
type ScheduleSkeleton struct {
	Branches []BranchSchedule `json:"branches"`
}

// BranchSchedule groups the semesters of one branch.
type BranchSchedule struct {
	Branch    string             `json:"branch"`
	Semesters []SemesterSchedule `json:"semesters"`
}

// SemesterSchedule groups the sections of one semester.
type SemesterSchedule struct {
	Semester string            `json:"semester"`
	Sections []SectionSchedule `json:"sections"`
}

// SectionSchedule groups the weekdays of one section.
type SectionSchedule struct {
	Section string        `json:"section"`
	Days    []DaySchedule `json:"days"`
}

// DaySchedule lists the slots taught on one weekday.
type DaySchedule struct {
	Day   string      `json:"day"`
	Slots []SlotEntry `json:"slots"`
}

// SlotEntry binds a time slot such as "9-10" to its class. A nil Class is an
// empty slot and produces no record.
type SlotEntry struct {
	Time  string           `json:"time"`
	Class *ClassDescriptor `json:"class,omitempty"`
}

// ClassStatus is the mutable state of a flattened class.
type ClassStatus string

const (
	ClassStatusUpcoming  ClassStatus = "upcoming"
	ClassStatusCancelled ClassStatus = "cancelled"
)

// IsDefault reports whether the status carries no user override.
func (s ClassStatus) IsDefault() bool {
	return s == "" || s == ClassStatusUpcoming
}

// ClassRecord is one flattened, individually addressable session.
type ClassRecord struct {
	ID        int         `json:"id"`
	Key       string      `json:"key"`
	Branch    string      `json:"branch"`
	Semester  string      `json:"semester"`
	Section   string      `json:"section"`
	Day       string      `json:"day"`
	Time      string      `json:"time"`
	RawTime   int         `json:"rawTime"`
	Code      string      `json:"code"`
	Subject   string      `json:"subject"`
	Venue     string      `json:"venue"`
	Professor string      `json:"professor"`
	Status    ClassStatus `json:"status"`
}

// NaturalKey builds the composite identity branch/semester/section/day/time.
func NaturalKey(branch, semester, section, day, slot string) string {
	return strings.Join([]string{branch, semester, section, day, slot}, "/")
}
