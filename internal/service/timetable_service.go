package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type classStore interface {
	ListClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, error)
	SetClassStatus(ctx context.Context, id int, status models.ClassStatus) (models.ClassRecord, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered timetable ready to be downloaded.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// TimetableService serves role-scoped class views and their exports.
type TimetableService struct {
	classes   classStore
	renderers map[string]renderer
	logger    *zap.Logger
}

// NewTimetableService constructs the service with the CSV and PDF exporters.
func NewTimetableService(classes classStore, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		classes: classes,
		renderers: map[string]renderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
	}
}

// ClassScope returns the filter selecting an account's own classes. Students
// see their branch, semester and section; professors the classes they teach.
// Other roles have no personal timetable.
func ClassScope(account models.UserAccount) (models.ClassFilter, bool) {
	switch account.Role {
	case models.RoleStudent:
		return models.ClassFilter{Branch: account.Branch, Semester: account.Semester, Section: account.Section}, true
	case models.RoleProfessor:
		return models.ClassFilter{Professor: account.Name}, true
	}
	return models.ClassFilter{}, false
}

// View lists the classes visible to the account. Students and professors are
// pinned to their own scope and may only narrow by day and status; wardens
// and admins browse with the query as given.
func (s *TimetableService) View(ctx context.Context, account models.UserAccount, query models.ClassFilter) ([]models.ClassRecord, error) {
	filter, scoped := ClassScope(account)
	if !scoped {
		filter = query
	} else {
		filter.Day = query.Day
		filter.Status = query.Status
	}
	return s.classes.ListClasses(ctx, filter)
}

// SetStatus changes the status of one class. Professors may only touch the
// classes they teach.
func (s *TimetableService) SetStatus(ctx context.Context, account models.UserAccount, id int, status models.ClassStatus) (models.ClassRecord, error) {
	if account.Role == models.RoleProfessor {
		own, err := s.classes.ListClasses(ctx, models.ClassFilter{Professor: account.Name})
		if err != nil {
			return models.ClassRecord{}, err
		}
		if !containsClass(own, id) {
			return models.ClassRecord{}, appErrors.Clone(appErrors.ErrForbidden, "class is taught by another professor")
		}
	}

	record, err := s.classes.SetClassStatus(ctx, id, status)
	if err != nil {
		return models.ClassRecord{}, err
	}
	s.logger.Info("class status set", zap.Int("class_id", id), zap.String("status", string(record.Status)), zap.String("by", account.ID))
	return record, nil
}

// Export renders the account's view in the requested format.
func (s *TimetableService) Export(ctx context.Context, account models.UserAccount, query models.ClassFilter, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	classes, err := s.View(ctx, account, query)
	if err != nil {
		return nil, err
	}

	body, err := r.Render(classDataset(account, classes))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("timetable-%s.%s", sanitizeFilename(account.ID), r.Extension()),
		ContentType: r.ContentType(),
		Body:        body,
	}, nil
}

func classDataset(account models.UserAccount, classes []models.ClassRecord) export.Dataset {
	data := export.Dataset{
		Title: "Timetable - " + account.Name,
		Columns: []export.Column{
			{Key: "day", Title: "Day", Width: 1.2},
			{Key: "time", Title: "Time", Width: 0.8},
			{Key: "branch", Title: "Branch", Width: 0.8},
			{Key: "semester", Title: "Sem", Width: 0.5},
			{Key: "section", Title: "Sec", Width: 0.5},
			{Key: "code", Title: "Code", Width: 0.9},
			{Key: "subject", Title: "Subject", Width: 3},
			{Key: "venue", Title: "Venue", Width: 1},
			{Key: "professor", Title: "Professor", Width: 2},
			{Key: "status", Title: "Status", Width: 1},
		},
		Rows: make([]map[string]string, 0, len(classes)),
	}
	for _, c := range classes {
		data.Rows = append(data.Rows, map[string]string{
			"day":       c.Day,
			"time":      c.Time,
			"branch":    c.Branch,
			"semester":  c.Semester,
			"section":   c.Section,
			"code":      c.Code,
			"subject":   c.Subject,
			"venue":     c.Venue,
			"professor": c.Professor,
			"status":    string(c.Status),
		})
	}
	return data
}

func containsClass(classes []models.ClassRecord, id int) bool {
	for _, c := range classes {
		if c.ID == id {
			return true
		}
	}
	return false
}

func sanitizeFilename(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "export"
	}
	return b.String()
}
