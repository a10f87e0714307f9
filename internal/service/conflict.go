package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
	"github.com/noah-isme/sma-sync-api/internal/models"
	appErrors "github.com/noah-isme/sma-sync-api/pkg/errors"
)

// Weekdays accepted for schedule entries, in timetable order.
var Weekdays = []string{"Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}

var (
	timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	yearPattern = regexp.MustCompile(`^[0-9]{4}/[0-9]{4}$`)
)

// ValidateDay checks the day against the six enumerated weekday names.
func ValidateDay(day string) error {
	for _, d := range Weekdays {
		if d == day {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day must be one of %s", strings.Join(Weekdays, ", ")))
}

// ValidateTimeRange checks both times against the zero-padded HH:MM format
// and requires end > start. The fixed format makes lexicographic comparison
// sufficient.
func ValidateTimeRange(start, end string) error {
	if !timePattern.MatchString(start) {
		return appErrors.Clone(appErrors.ErrValidation, "start time must use the HH:MM 24-hour format")
	}
	if !timePattern.MatchString(end) {
		return appErrors.Clone(appErrors.ErrValidation, "end time must use the HH:MM 24-hour format")
	}
	if end <= start {
		return appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	return nil
}

// ValidateAcademicYear checks the YYYY/YYYY format.
func ValidateAcademicYear(year string) error {
	if !yearPattern.MatchString(year) {
		return appErrors.Clone(appErrors.ErrValidation, "academic year must use the YYYY/YYYY format")
	}
	return nil
}

// ValidateLessonHours requires a positive lesson-hour count.
func ValidateLessonHours(hours int) error {
	if hours <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "lesson hours must be a positive number")
	}
	return nil
}

type scheduleQuerier interface {
	Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error)
}

// ConflictDetector rejects schedule slots already taken for the same class,
// day and exact start time. There is no interval overlap logic: two entries
// collide only when their start times are equal.
type ConflictDetector struct {
	store scheduleQuerier
}

// NewConflictDetector constructs a ConflictDetector.
func NewConflictDetector(store scheduleQuerier) *ConflictDetector {
	return &ConflictDetector{store: store}
}

// CheckScheduleConflict returns the colliding entry, or nil when the slot is
// free.
func (d *ConflictDetector) CheckScheduleConflict(ctx context.Context, classRef, day, startTime string) (*models.ScheduleConflict, error) {
	docs, err := d.store.Query(ctx, docstore.CollectionSchedules,
		docstore.Where("class_ref", classRef),
		docstore.Where("day", day),
		docstore.Where("start_time", startTime),
	)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule conflicts")
	}
	if len(docs) == 0 {
		return nil, nil
	}

	existing := models.ScheduleFromDocument(&docs[0])
	return &models.ScheduleConflict{
		ScheduleID: existing.ID,
		ClassRef:   existing.ClassRef,
		SubjectRef: existing.SubjectRef,
		Day:        existing.Day,
		StartTime:  existing.StartTime,
	}, nil
}
