package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/seed"
	"github.com/noah-isme/campus-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

// DefaultDocumentKey is the well-known key of the persisted document.
const DefaultDocumentKey = "dtu_data_v2"

type documentRepository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, body []byte) error
	Delete(ctx context.Context, key string) error
}

type storeMetrics interface {
	ObserveStoreOperation(op string, duration time.Duration, err error)
}

// SkeletonSource yields the current timetable skeleton.
type SkeletonSource func() (models.ScheduleSkeleton, error)

// StoreConfig tunes the store manager.
type StoreConfig struct {
	DocumentKey    string
	Identity       timetable.Identity
	ResetOnCorrupt bool
}

// InitResult summarises one Initialize run.
type InitResult struct {
	Created         bool `json:"created"`
	Reset           bool `json:"reset"`
	Classes         int  `json:"classes"`
	CarriedStatuses int  `json:"carried_statuses"`
	Users           int  `json:"users"`

	// DroppedAccounts lists ids removed because a demo account owns their email.
	DroppedAccounts []string `json:"dropped_accounts,omitempty"`
}

// StoreService owns the persisted document. Every operation loads the
// document, applies its change and saves it back under one mutex, so a single
// process never loses its own writes. Separate processes sharing a backend
// remain last-writer-wins.
type StoreService struct {
	repo      documentRepository
	skeleton  SkeletonSource
	hasher    PasswordHasher
	validator *validator.Validate
	logger    *zap.Logger
	metrics   storeMetrics
	cfg       StoreConfig
	now       func() time.Time

	mu sync.RWMutex
}

// NewStoreService constructs the store manager.
func NewStoreService(repo documentRepository, skeleton SkeletonSource, hasher PasswordHasher, validate *validator.Validate, logger *zap.Logger, metrics storeMetrics, cfg StoreConfig) *StoreService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if hasher == nil {
		hasher = plainHasher{}
	}
	if skeleton == nil {
		skeleton = func() (models.ScheduleSkeleton, error) { return seed.LoadSkeleton("") }
	}
	if cfg.DocumentKey == "" {
		cfg.DocumentKey = DefaultDocumentKey
	}
	if cfg.Identity == "" {
		cfg.Identity = timetable.IdentityID
	}
	return &StoreService{
		repo:      repo,
		skeleton:  skeleton,
		hasher:    hasher,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Initialize reconciles the persisted document with the current skeleton. A
// missing document is seeded; an existing one gets its demo accounts
// re-asserted and its classes replaced by fresh records that keep any
// user-set status.
func (s *StoreService) Initialize(ctx context.Context) (result InitResult, err error) {
	defer s.observe("initialize", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	fresh, err := s.freshClasses()
	if err != nil {
		return InitResult{}, err
	}

	doc, found, err := s.load(ctx)
	if err != nil {
		if !errors.Is(err, appErrors.ErrCorruptDocument) || !s.cfg.ResetOnCorrupt {
			return InitResult{}, err
		}
		s.logger.Warn("persisted document is corrupt, resetting to seed state",
			zap.String("key", s.cfg.DocumentKey), zap.Error(err))
		found = false
		result.Reset = true
	}

	if !found {
		doc, err = s.seedDocument(fresh)
		if err != nil {
			return InitResult{}, err
		}
		if err := s.save(ctx, doc); err != nil {
			return InitResult{}, err
		}
		result.Created = true
		result.Classes = len(doc.Classes)
		result.Users = len(doc.Users)
		s.logger.Info("seeded timetable document", zap.String("key", s.cfg.DocumentKey), zap.Int("classes", result.Classes))
		return result, nil
	}

	for _, id := range seed.MustExistIDs {
		canonical, ok := seed.DemoAccount(id)
		if !ok {
			continue
		}
		canonical, err = s.hashAccount(canonical)
		if err != nil {
			return InitResult{}, err
		}
		doc.Users = removeAccountsByID(doc.Users, id)
		for idx := doc.UserIndexByEmail(canonical.Email); idx >= 0; idx = doc.UserIndexByEmail(canonical.Email) {
			s.logger.Warn("dropping account holding a demo email",
				zap.String("demo_id", id), zap.String("dropped_id", doc.Users[idx].ID), zap.String("email", canonical.Email))
			result.DroppedAccounts = append(result.DroppedAccounts, doc.Users[idx].ID)
			doc.Users = append(doc.Users[:idx], doc.Users[idx+1:]...)
		}
		doc.Users = append(doc.Users, canonical)
	}

	merged, carried := timetable.MergeStatus(fresh, doc.Classes, s.cfg.Identity)
	doc.Classes = merged

	if err := s.save(ctx, doc); err != nil {
		return InitResult{}, err
	}

	result.Classes = len(doc.Classes)
	result.CarriedStatuses = carried
	result.Users = len(doc.Users)
	s.logger.Info("reconciled timetable document",
		zap.String("key", s.cfg.DocumentKey),
		zap.Int("classes", result.Classes),
		zap.Int("carried_statuses", carried))
	return result, nil
}

// Reset discards the persisted document and seeds a new one.
func (s *StoreService) Reset(ctx context.Context) (InitResult, error) {
	s.mu.Lock()
	if err := s.repo.Delete(ctx, s.cfg.DocumentKey); err != nil {
		s.mu.Unlock()
		return InitResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	s.mu.Unlock()
	s.logger.Warn("timetable document reset", zap.String("key", s.cfg.DocumentKey))

	result, err := s.Initialize(ctx)
	if err != nil {
		return InitResult{}, err
	}
	result.Reset = true
	return result, nil
}

// Snapshot returns a copy of the persisted document.
func (s *StoreService) Snapshot(ctx context.Context) (models.Document, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return models.Document{}, err
	}
	return doc.Clone(), nil
}

// FindAccount returns the account whose email and password both match. A
// miss is reported through the boolean, not as an error.
func (s *StoreService) FindAccount(ctx context.Context, email, password string) (models.UserAccount, bool, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return models.UserAccount{}, false, err
	}
	for _, u := range doc.Users {
		if u.Email == email && s.hasher.Compare(u.Password, password) {
			return u, true, nil
		}
	}
	return models.UserAccount{}, false, nil
}

// FindAccountByEmail looks an account up by email only.
func (s *StoreService) FindAccountByEmail(ctx context.Context, email string) (models.UserAccount, bool, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return models.UserAccount{}, false, err
	}
	if idx := doc.UserIndexByEmail(email); idx >= 0 {
		return doc.Users[idx], true, nil
	}
	return models.UserAccount{}, false, nil
}

// RegisterAccount appends a new account. An email already in use fails with
// DUPLICATE_EMAIL and leaves the document untouched.
func (s *StoreService) RegisterAccount(ctx context.Context, account models.UserAccount) (created models.UserAccount, err error) {
	defer s.observe("register_account", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.mustLoad(ctx)
	if err != nil {
		return models.UserAccount{}, err
	}
	if doc.UserIndexByEmail(account.Email) >= 0 {
		return models.UserAccount{}, appErrors.Clone(appErrors.ErrDuplicateEmail, "Email already exists")
	}

	account, err = s.hashAccount(account)
	if err != nil {
		return models.UserAccount{}, err
	}
	doc.Users = append(doc.Users, account)
	if err := s.save(ctx, doc); err != nil {
		return models.UserAccount{}, err
	}
	return account, nil
}

// UpdateAccount applies a password replacement or a profile merge to the
// account with the email.
func (s *StoreService) UpdateAccount(ctx context.Context, email string, update models.AccountUpdate) (updated models.UserAccount, err error) {
	defer s.observe("update_account", time.Now(), &err)

	if err := s.validator.Struct(update); err != nil {
		return models.UserAccount{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid account update")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.mustLoad(ctx)
	if err != nil {
		return models.UserAccount{}, err
	}
	idx := doc.UserIndexByEmail(email)
	if idx < 0 {
		return models.UserAccount{}, appErrors.Clone(appErrors.ErrNotFound, "User not found")
	}

	account := doc.Users[idx]
	switch update.Kind {
	case models.UpdateKindPassword:
		hashed, err := s.hasher.Hash(update.Password)
		if err != nil {
			return models.UserAccount{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		account.Password = hashed
	case models.UpdateKindProfile:
		account = update.Profile.Apply(account)
	}

	doc.Users[idx] = account
	if err := s.save(ctx, doc); err != nil {
		return models.UserAccount{}, err
	}
	return account, nil
}

// ListUsers pages through accounts filtered by role and a name/email/id search.
func (s *StoreService) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.AccountView, *models.Pagination, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, nil, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]models.AccountView, 0, len(doc.Users))
	for _, u := range doc.Users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.ID), search) {
			continue
		}
		matched = append(matched, u.View())
	}

	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: len(matched)}, nil
}

// ListClasses returns the classes matching filter ordered by weekday and
// start time.
func (s *StoreService) ListClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ClassRecord, 0)
	for _, c := range doc.Classes {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	timetable.SortForDisplay(out)
	return out, nil
}

// SetClassStatus overrides the status of one class.
func (s *StoreService) SetClassStatus(ctx context.Context, id int, status models.ClassStatus) (record models.ClassRecord, err error) {
	defer s.observe("set_class_status", time.Now(), &err)

	status = models.ClassStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if status == "" {
		return models.ClassRecord{}, appErrors.Clone(appErrors.ErrValidation, "status is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.mustLoad(ctx)
	if err != nil {
		return models.ClassRecord{}, err
	}
	for i := range doc.Classes {
		if doc.Classes[i].ID != id {
			continue
		}
		doc.Classes[i].Status = status
		if err := s.save(ctx, doc); err != nil {
			return models.ClassRecord{}, err
		}
		s.logger.Info("class status changed", zap.Int("class_id", id), zap.String("status", string(status)))
		return doc.Classes[i], nil
	}
	return models.ClassRecord{}, appErrors.Clone(appErrors.ErrNotFound, "class not found")
}

// ListNotices returns notices in insertion order, optionally of one type.
func (s *StoreService) ListNotices(ctx context.Context, noticeType models.NoticeType) ([]models.Notice, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Notice, 0, len(doc.Notices))
	for _, n := range doc.Notices {
		if noticeType == "" || n.Type == noticeType {
			out = append(out, n)
		}
	}
	return out, nil
}

// PostNotice appends a notice with the next free id. The date defaults to today.
func (s *StoreService) PostNotice(ctx context.Context, req models.CreateNoticeRequest) (notice models.Notice, err error) {
	defer s.observe("post_notice", time.Now(), &err)

	if err := s.validator.Struct(req); err != nil {
		return models.Notice{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.mustLoad(ctx)
	if err != nil {
		return models.Notice{}, err
	}

	nextID := 1
	for _, n := range doc.Notices {
		if n.ID >= nextID {
			nextID = n.ID + 1
		}
	}
	notice = models.Notice{
		ID:      nextID,
		Type:    req.Type,
		Title:   strings.TrimSpace(req.Title),
		Content: strings.TrimSpace(req.Content),
		Date:    req.Date,
	}
	if notice.Date == "" {
		notice.Date = s.now().Format("2006-01-02")
	}
	doc.Notices = append(doc.Notices, notice)
	if err := s.save(ctx, doc); err != nil {
		return models.Notice{}, err
	}
	return notice, nil
}

func (s *StoreService) freshClasses() ([]models.ClassRecord, error) {
	skeleton, err := s.skeleton()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable skeleton")
	}
	return timetable.Flatten(skeleton), nil
}

func (s *StoreService) seedDocument(fresh []models.ClassRecord) (models.Document, error) {
	doc := models.Document{Classes: fresh, Notices: seed.Notices()}
	for _, u := range seed.DemoAccounts() {
		hashed, err := s.hashAccount(u)
		if err != nil {
			return models.Document{}, err
		}
		doc.Users = append(doc.Users, hashed)
	}
	return doc, nil
}

func (s *StoreService) hashAccount(u models.UserAccount) (models.UserAccount, error) {
	if u.Password == "" {
		return u, nil
	}
	hashed, err := s.hasher.Hash(u.Password)
	if err != nil {
		return models.UserAccount{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	u.Password = hashed
	return u, nil
}

// read loads the document for a read-only operation. A store that was never
// initialized reads as empty.
func (s *StoreService) read(ctx context.Context) (models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, _, err := s.load(ctx)
	return doc, err
}

// mustLoad loads the document for a write; it must already exist.
func (s *StoreService) mustLoad(ctx context.Context) (models.Document, error) {
	doc, found, err := s.load(ctx)
	if err != nil {
		return models.Document{}, err
	}
	if !found {
		return models.Document{}, appErrors.Clone(appErrors.ErrNotFound, "store not initialized")
	}
	return doc, nil
}

func (s *StoreService) load(ctx context.Context) (models.Document, bool, error) {
	body, err := s.repo.Load(ctx, s.cfg.DocumentKey)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return emptyDocument(), false, nil
		}
		return models.Document{}, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	doc, err := decodeDocument(body)
	if err != nil {
		return models.Document{}, false, appErrors.Wrap(err, appErrors.ErrCorruptDocument.Code, appErrors.ErrCorruptDocument.Status, appErrors.ErrCorruptDocument.Message)
	}
	return doc, true, nil
}

func (s *StoreService) save(ctx context.Context, doc models.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode document")
	}
	if err := s.repo.Save(ctx, s.cfg.DocumentKey, body); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save document")
	}
	return nil
}

func (s *StoreService) observe(op string, start time.Time, err *error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveStoreOperation(op, time.Since(start), *err)
}

func decodeDocument(body []byte) (models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return models.Document{}, err
	}
	if doc.Users == nil {
		doc.Users = []models.UserAccount{}
	}
	if doc.Classes == nil {
		doc.Classes = []models.ClassRecord{}
	}
	if doc.Notices == nil {
		doc.Notices = []models.Notice{}
	}
	return doc, nil
}

func emptyDocument() models.Document {
	return models.Document{Users: []models.UserAccount{}, Classes: []models.ClassRecord{}, Notices: []models.Notice{}}
}

func removeAccountsByID(users []models.UserAccount, id string) []models.UserAccount {
	out := users[:0]
	for _, u := range users {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}
