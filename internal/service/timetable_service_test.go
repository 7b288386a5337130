package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/seed"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

func newTestTimetable(t *testing.T) *TimetableService {
	t.Helper()
	store, _ := initializedStore(t)
	return NewTimetableService(store, nil)
}

func TestClassScope(t *testing.T) {
	student, _ := seed.DemoAccount("demo123")
	filter, ok := ClassScope(student)
	assert.True(t, ok)
	assert.Equal(t, models.ClassFilter{Branch: "CSE", Semester: "2", Section: "1"}, filter)

	prof, _ := seed.DemoAccount("P001")
	filter, ok = ClassScope(prof)
	assert.True(t, ok)
	assert.Equal(t, "Dr. Vineet Kumar", filter.Professor)

	warden, _ := seed.DemoAccount("W001")
	_, ok = ClassScope(warden)
	assert.False(t, ok)
}

func TestTimetableViewIsRoleScoped(t *testing.T) {
	svc := newTestTimetable(t)
	ctx := context.Background()

	student, _ := seed.DemoAccount("demo123")
	classes, err := svc.View(ctx, student, models.ClassFilter{Branch: "EE"})
	require.NoError(t, err)
	assert.Len(t, classes, 17)
	assert.Equal(t, "Monday", classes[0].Day)
	assert.Equal(t, "9-10", classes[0].Time)

	monday, err := svc.View(ctx, student, models.ClassFilter{Day: "Monday"})
	require.NoError(t, err)
	assert.Len(t, monday, 6)

	prof, _ := seed.DemoAccount("P001")
	taught, err := svc.View(ctx, prof, models.ClassFilter{})
	require.NoError(t, err)
	assert.Len(t, taught, 4)
	for _, c := range taught {
		assert.Equal(t, "Dr. Vineet Kumar", c.Professor)
	}

	admin, _ := seed.DemoAccount("admin")
	all, err := svc.View(ctx, admin, models.ClassFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 20)

	ee, err := svc.View(ctx, admin, models.ClassFilter{Branch: "EE"})
	require.NoError(t, err)
	assert.Len(t, ee, 3)
}

func TestTimetableSetStatusChecksOwnership(t *testing.T) {
	svc := newTestTimetable(t)
	ctx := context.Background()
	prof, _ := seed.DemoAccount("P001")

	record, err := svc.SetStatus(ctx, prof, 1, models.ClassStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.ClassStatusCancelled, record.Status)

	_, err = svc.SetStatus(ctx, prof, 2, models.ClassStatusCancelled)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	admin, _ := seed.DemoAccount("admin")
	_, err = svc.SetStatus(ctx, admin, 2, models.ClassStatusCancelled)
	assert.NoError(t, err)

	_, err = svc.SetStatus(ctx, admin, 999, models.ClassStatusCancelled)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTimetableExport(t *testing.T) {
	svc := newTestTimetable(t)
	ctx := context.Background()
	student, _ := seed.DemoAccount("demo123")

	file, err := svc.Export(ctx, student, models.ClassFilter{}, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "timetable-demo123.csv", file.Filename)

	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 18)
	assert.Equal(t, "Day", records[0][0])
	assert.Equal(t, []string{"Monday", "9-10", "CSE", "2", "1", "CS104", "Data Structures (L)", "PB-GF4", "Dr. Vineet Kumar", "upcoming"}, records[1])

	john, _ := seed.DemoAccount("demo123")
	john.ID = "2K25/CSE/01"
	pdf, err := svc.Export(ctx, john, models.ClassFilter{}, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.Equal(t, "timetable-2K25_CSE_01.pdf", pdf.Filename)
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF")))

	_, err = svc.Export(ctx, student, models.ClassFilter{}, "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
