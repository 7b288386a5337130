package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

func singleLeafSkeleton() models.ScheduleSkeleton {
	return models.ScheduleSkeleton{Branches: []models.BranchSchedule{{
		Branch: "CSE",
		Semesters: []models.SemesterSchedule{{
			Semester: "2",
			Sections: []models.SectionSchedule{{
				Section: "1",
				Days: []models.DaySchedule{{
					Day: "Monday",
					Slots: []models.SlotEntry{{
						Time:  "9-10",
						Class: &models.ClassDescriptor{Code: "CS104", Subject: "Data Structures (L)", Venue: "PB-GF4", Professor: "Dr. Vineet Kumar"},
					}},
				}},
			}},
		}},
	}}}
}

func TestFlattenSingleLeaf(t *testing.T) {
	records := Flatten(singleLeafSkeleton())

	require.Len(t, records, 1)
	assert.Equal(t, models.ClassRecord{
		ID:        1,
		Key:       "CSE/2/1/Monday/9-10",
		Branch:    "CSE",
		Semester:  "2",
		Section:   "1",
		Day:       "Monday",
		Time:      "9-10",
		RawTime:   9,
		Code:      "CS104",
		Subject:   "Data Structures (L)",
		Venue:     "PB-GF4",
		Professor: "Dr. Vineet Kumar",
		Status:    models.ClassStatusUpcoming,
	}, records[0])
}

func TestFlattenIsDeterministic(t *testing.T) {
	skeleton, err := ParseSkeleton([]byte(sampleYAML))
	require.NoError(t, err)

	first := Flatten(skeleton)
	second := Flatten(skeleton)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestFlattenEmptySkeleton(t *testing.T) {
	assert.Empty(t, Flatten(models.ScheduleSkeleton{}))
	assert.Empty(t, Flatten(models.ScheduleSkeleton{Branches: []models.BranchSchedule{{Branch: "EE"}}}))
}

func TestFlattenSkipsEmptySlotsAndOrdersWeekdays(t *testing.T) {
	skeleton := models.ScheduleSkeleton{Branches: []models.BranchSchedule{{
		Branch: "EE",
		Semesters: []models.SemesterSchedule{{
			Semester: "2",
			Sections: []models.SectionSchedule{{
				Section: "1",
				Days: []models.DaySchedule{
					{Day: "Friday", Slots: []models.SlotEntry{{Time: "8-9", Class: &models.ClassDescriptor{Code: "AM102"}}}},
					{Day: "Monday", Slots: []models.SlotEntry{
						{Time: "12-1", Class: &models.ClassDescriptor{Code: "EE104"}},
						{Time: "1-2"},
						{Time: "2-3", Class: &models.ClassDescriptor{Code: "AP102"}},
					}},
				},
			}},
		}},
	}}}

	records := Flatten(skeleton)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"EE104", "AP102", "AM102"}, []string{records[0].Code, records[1].Code, records[2].Code})
	assert.Equal(t, []int{1, 2, 3}, []int{records[0].ID, records[1].ID, records[2].ID})
	assert.Equal(t, "Friday", records[2].Day)
}

func TestStartHour(t *testing.T) {
	cases := map[string]int{
		"9-10":  9,
		"12-1":  12,
		"1-2":   1,
		" 8 -9": 8,
		"10am":  10,
		"noon":  0,
		"":      0,
	}
	for slot, want := range cases {
		assert.Equal(t, want, StartHour(slot), slot)
	}
}

func TestSortForDisplay(t *testing.T) {
	records := []models.ClassRecord{
		{ID: 1, Day: "Tuesday", RawTime: 10},
		{ID: 2, Day: "Monday", RawTime: 2},
		{ID: 3, Day: "Monday", RawTime: 12},
		{ID: 4, Day: "Monday", RawTime: 9},
	}

	SortForDisplay(records)

	assert.Equal(t, []int{4, 3, 2, 1}, []int{records[0].ID, records[1].ID, records[2].ID, records[3].ID})
}

func TestWeekdayIndex(t *testing.T) {
	assert.Equal(t, 0, WeekdayIndex("monday"))
	assert.Equal(t, 6, WeekdayIndex("Sunday"))
	assert.Equal(t, 7, WeekdayIndex("Funday"))
}
