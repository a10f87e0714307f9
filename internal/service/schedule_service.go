package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
	"github.com/noah-isme/sma-sync-api/internal/models"
	appErrors "github.com/noah-isme/sma-sync-api/pkg/errors"
	"github.com/noah-isme/sma-sync-api/pkg/export"
)

const scheduleCachePrefix = "schedules:list:"

type scheduleStore interface {
	Get(ctx context.Context, collection, id string) (*docstore.Document, error)
	Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error)
	Commit(ctx context.Context, batch *docstore.Batch) error
}

// ScheduleRequest represents payload for creating or updating schedule
// entries.
type ScheduleRequest struct {
	Day          string `json:"day" validate:"required"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	ClassID      string `json:"class_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	TeacherID    string `json:"teacher_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	LessonHours  int    `json:"lesson_hours" validate:"required"`
	Room         string `json:"room" validate:"omitempty,max=50"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	ClassRef     string
	TeacherRef   string
	Day          string
	AcademicYear string
}

// ScheduleService manages timetable entries. Creation is gated by the
// ConflictDetector; updates re-validate fields and references but do not
// re-run the conflict check, mirroring how editing has always behaved.
type ScheduleService struct {
	store     scheduleStore
	resolver  *ReferenceResolver
	conflicts *ConflictDetector
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(store scheduleStore, resolver *ReferenceResolver, conflicts *ConflictDetector, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{store: store, resolver: resolver, conflicts: conflicts, cache: cache, validator: validate, logger: logger}
}

// Create validates, resolves references, checks the slot and persists a new
// entry. All validations run before any store access; reference resolution
// and the conflict check run before the write.
func (s *ScheduleService) Create(ctx context.Context, req ScheduleRequest) (*models.ScheduleEntry, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.resolveRefs(ctx, req); err != nil {
		return nil, err
	}

	conflict, err := s.conflicts.CheckScheduleConflict(ctx, req.ClassID, req.Day, req.StartTime)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, conflict.Describe())
	}

	entry := s.entryFromRequest(req)
	entry.ID = uuid.NewString()

	batch := docstore.NewBatch().Create(docstore.CollectionSchedules, entry.ID, entry.Fields())
	if err := s.store.Commit(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}

	s.cache.Invalidate(ctx, scheduleCachePrefix+"*")
	return &entry, nil
}

// Update rewrites an existing entry. The slot is not re-checked for
// conflicts.
func (s *ScheduleService) Update(ctx context.Context, id string, req ScheduleRequest) (*models.ScheduleEntry, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.resolveRefs(ctx, req); err != nil {
		return nil, err
	}

	entry := s.entryFromRequest(req)
	entry.ID = id

	batch := docstore.NewBatch().Update(docstore.CollectionSchedules, id, entry.Fields())
	if err := s.store.Commit(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}

	s.cache.Invalidate(ctx, scheduleCachePrefix+"*")
	return &entry, nil
}

// Delete removes an entry; deleting a missing entry succeeds.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	batch := docstore.NewBatch().Delete(docstore.CollectionSchedules, id)
	if err := s.store.Commit(ctx, batch); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.cache.Invalidate(ctx, scheduleCachePrefix+"*")
	return nil
}

// Get returns one entry by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionSchedules, id)
	if err != nil {
		if err == docstore.ErrNotFound {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	entry := models.ScheduleFromDocument(doc)
	return &entry, nil
}

// List returns entries matching the filter, served from cache when possible.
func (s *ScheduleService) List(ctx context.Context, filter ScheduleFilter) ([]models.ScheduleEntry, error) {
	key := fmt.Sprintf("%s%s:%s:%s:%s", scheduleCachePrefix, filter.ClassRef, filter.TeacherRef, filter.Day, filter.AcademicYear)

	var cached []models.ScheduleEntry
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	var filters []docstore.Filter
	if filter.ClassRef != "" {
		filters = append(filters, docstore.Where("class_ref", filter.ClassRef))
	}
	if filter.TeacherRef != "" {
		filters = append(filters, docstore.Where("teacher_ref", filter.TeacherRef))
	}
	if filter.Day != "" {
		filters = append(filters, docstore.Where("day", filter.Day))
	}
	if filter.AcademicYear != "" {
		filters = append(filters, docstore.Where("academic_year", filter.AcademicYear))
	}

	docs, err := s.store.Query(ctx, docstore.CollectionSchedules, filters...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}

	entries := make([]models.ScheduleEntry, 0, len(docs))
	for i := range docs {
		entries = append(entries, models.ScheduleFromDocument(&docs[i]))
	}

	_ = s.cache.Set(ctx, key, entries, 0)
	return entries, nil
}

// ExportDataset shapes the filtered timetable for the CSV/PDF exporters.
func (s *ScheduleService) ExportDataset(ctx context.Context, filter ScheduleFilter) (export.Dataset, error) {
	entries, err := s.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, err
	}

	dataset := export.Dataset{
		Headers: []string{"Day", "Start", "End", "Class", "Subject", "Teacher", "Year", "Hours", "Room"},
	}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":     entry.Day,
			"Start":   entry.StartTime,
			"End":     entry.EndTime,
			"Class":   entry.ClassRef,
			"Subject": entry.SubjectRef,
			"Teacher": entry.TeacherRef,
			"Year":    entry.AcademicYear,
			"Hours":   fmt.Sprintf("%d", entry.LessonHours),
			"Room":    entry.Room,
		})
	}
	return dataset, nil
}

func (s *ScheduleService) validate(req ScheduleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if err := ValidateDay(req.Day); err != nil {
		return err
	}
	if err := ValidateTimeRange(req.StartTime, req.EndTime); err != nil {
		return err
	}
	if err := ValidateAcademicYear(req.AcademicYear); err != nil {
		return err
	}
	return ValidateLessonHours(req.LessonHours)
}

func (s *ScheduleService) resolveRefs(ctx context.Context, req ScheduleRequest) error {
	refs := []struct {
		collection string
		id         string
		label      string
	}{
		{docstore.CollectionClasses, req.ClassID, "class"},
		{docstore.CollectionSubjects, req.SubjectID, "subject"},
		{docstore.CollectionTeachers, req.TeacherID, "teacher"},
	}
	for _, ref := range refs {
		found, err := s.resolver.Exists(ctx, ref.collection, ref.id)
		if err != nil {
			return err
		}
		if !found {
			return appErrors.Clone(appErrors.ErrNotFound, ref.label+" not found")
		}
	}
	return nil
}

func (s *ScheduleService) entryFromRequest(req ScheduleRequest) models.ScheduleEntry {
	return models.ScheduleEntry{
		ClassRef:     req.ClassID,
		SubjectRef:   req.SubjectID,
		TeacherRef:   req.TeacherID,
		Day:          req.Day,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		AcademicYear: req.AcademicYear,
		LessonHours:  req.LessonHours,
		Room:         strings.TrimSpace(req.Room),
	}
}
