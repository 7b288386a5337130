package timetable

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// Weekdays is the canonical iteration order for the day level of a skeleton.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekdayIndex returns the canonical position of a day name. Unknown names
// sort after Sunday.
func WeekdayIndex(day string) int {
	for i, d := range Weekdays {
		if strings.EqualFold(d, day) {
			return i
		}
	}
	return len(Weekdays)
}

// Flatten expands the skeleton into class records. Branch, semester, section
// and slot follow document order; days follow Monday..Sunday. Ids are
// assigned from 1 in iteration order and every record starts upcoming.
func Flatten(skeleton models.ScheduleSkeleton) []models.ClassRecord {
	records := make([]models.ClassRecord, 0)
	nextID := 1

	for _, branch := range skeleton.Branches {
		for _, sem := range branch.Semesters {
			for _, section := range sem.Sections {
				for _, day := range orderedDays(section.Days) {
					for _, slot := range day.Slots {
						if slot.Class == nil {
							continue
						}
						records = append(records, models.ClassRecord{
							ID:        nextID,
							Key:       models.NaturalKey(branch.Branch, sem.Semester, section.Section, day.Day, slot.Time),
							Branch:    branch.Branch,
							Semester:  sem.Semester,
							Section:   section.Section,
							Day:       day.Day,
							Time:      slot.Time,
							RawTime:   StartHour(slot.Time),
							Code:      slot.Class.Code,
							Subject:   slot.Class.Subject,
							Venue:     slot.Class.Venue,
							Professor: slot.Class.Professor,
							Status:    models.ClassStatusUpcoming,
						})
						nextID++
					}
				}
			}
		}
	}

	return records
}

func orderedDays(days []models.DaySchedule) []models.DaySchedule {
	out := make([]models.DaySchedule, len(days))
	copy(out, days)
	sort.SliceStable(out, func(i, j int) bool {
		return WeekdayIndex(out[i].Day) < WeekdayIndex(out[j].Day)
	})
	return out
}

// StartHour parses the leading integer of a slot such as "9-10". Slots with
// no leading digits yield 0.
func StartHour(slot string) int {
	head := strings.TrimSpace(strings.SplitN(slot, "-", 2)[0])
	end := 0
	for end < len(head) && unicode.IsDigit(rune(head[end])) {
		end++
	}
	if end == 0 {
		return 0
	}
	hour, err := strconv.Atoi(head[:end])
	if err != nil {
		return 0
	}
	return hour
}

// SortForDisplay orders records by canonical weekday then start hour,
// keeping the flatten order for ties.
func SortForDisplay(records []models.ClassRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		di, dj := WeekdayIndex(records[i].Day), WeekdayIndex(records[j].Day)
		if di != dj {
			return di < dj
		}
		return displayHour(records[i].RawTime) < displayHour(records[j].RawTime)
	})
}

// displayHour maps the 12-hour slot labels ("12-1", "1-2", ..., "5-6") onto a
// day clock so afternoon slots sort after the morning ones.
func displayHour(h int) int {
	if h >= 1 && h < 8 {
		return h + 12
	}
	return h
}
