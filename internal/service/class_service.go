package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
	"github.com/noah-isme/sma-sync-api/internal/models"
	appErrors "github.com/noah-isme/sma-sync-api/pkg/errors"
)

// CreateClassRequest represents payload for creating classes.
type CreateClassRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Level        string `json:"level" validate:"required,max=20"`
	AcademicYear string `json:"academic_year" validate:"required"`
	TeacherID    string `json:"teacher_id" validate:"required"`
}

// UpdateClassRequest represents payload for updating classes.
type UpdateClassRequest struct {
	Level        string `json:"level" validate:"required,max=20"`
	AcademicYear string `json:"academic_year" validate:"required"`
	TeacherID    string `json:"teacher_id" validate:"required"`
}

// ClassService manages classes and delegates every homeroom pointer mutation
// to the RelationshipSynchronizer.
type ClassService struct {
	store     profileStore
	sync      *RelationshipSynchronizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(store profileStore, sync *RelationshipSynchronizer, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{store: store, sync: sync, validator: validate, logger: logger}
}

// Create registers a new class keyed by the slug of its name and assigns the
// homeroom teacher in the same batch.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if err := ValidateAcademicYear(req.AcademicYear); err != nil {
		return nil, err
	}

	slug := Slugify(req.Name)
	if slug == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class name must contain at least one letter or digit")
	}

	class := models.Class{
		ID:           slug,
		Name:         strings.TrimSpace(req.Name),
		Level:        strings.TrimSpace(req.Level),
		AcademicYear: req.AcademicYear,
	}

	if err := s.sync.AssignOnCreate(ctx, class, req.TeacherID); err != nil {
		return nil, err
	}

	class.WaliKelasRef = &req.TeacherID
	return &class, nil
}

// Update changes class fields and reassigns the homeroom teacher when it
// differs from the current one.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if err := ValidateAcademicYear(req.AcademicYear); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldRef := ""
	if current.WaliKelasRef != nil {
		oldRef = *current.WaliKelasRef
	}

	fields := docstore.Fields{
		"level":         strings.TrimSpace(req.Level),
		"academic_year": req.AcademicYear,
	}
	if err := s.sync.Reassign(ctx, id, fields, oldRef, req.TeacherID); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// AssignHomeroom changes only the homeroom teacher of an existing class.
func (s *ClassService) AssignHomeroom(ctx context.Context, id, teacherID string) (*models.Class, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldRef := ""
	if current.WaliKelasRef != nil {
		oldRef = *current.WaliKelasRef
	}

	if err := s.sync.Reassign(ctx, id, docstore.Fields{}, oldRef, teacherID); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes a class and clears its teacher's pointer. Deleting a class
// that does not exist succeeds.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	return s.sync.Unassign(ctx, id)
}

// Get returns a class by slug id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionClasses, id)
	if err != nil {
		if err == docstore.ErrNotFound {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	class := models.ClassFromDocument(doc)
	return &class, nil
}

// List returns classes, optionally filtered by level or academic year.
func (s *ClassService) List(ctx context.Context, level, academicYear string) ([]models.Class, error) {
	var filters []docstore.Filter
	if level != "" {
		filters = append(filters, docstore.Where("level", level))
	}
	if academicYear != "" {
		filters = append(filters, docstore.Where("academic_year", academicYear))
	}

	docs, err := s.store.Query(ctx, docstore.CollectionClasses, filters...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}

	classes := make([]models.Class, 0, len(docs))
	for i := range docs {
		classes = append(classes, models.ClassFromDocument(&docs[i]))
	}
	return classes, nil
}

// Slugify derives the document key from a class name: whitespace runs become
// single dashes, anything outside letters, digits and dashes is dropped, case
// is preserved ("VII A" -> "VII-A").
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == ' ' || r == '\t' || r == '-' || r == '_':
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		}
	}
	return strings.TrimRight(b.String(), "-")
}
