package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
)

func TestValidateDay(t *testing.T) {
	for _, day := range Weekdays {
		assert.NoError(t, ValidateDay(day))
	}
	assert.Error(t, ValidateDay("Minggu"))
	assert.Error(t, ValidateDay("senin"))
	assert.Error(t, ValidateDay(""))
}

func TestValidateTimeRange(t *testing.T) {
	assert.NoError(t, ValidateTimeRange("07:00", "08:30"))
	assert.NoError(t, ValidateTimeRange("00:00", "23:59"))

	assert.Error(t, ValidateTimeRange("7:00", "08:30"), "hours must be zero padded")
	assert.Error(t, ValidateTimeRange("07:00", "24:00"))
	assert.Error(t, ValidateTimeRange("07:60", "08:00"))
	assert.Error(t, ValidateTimeRange("08:00", "08:00"), "end must be strictly after start")
	assert.Error(t, ValidateTimeRange("09:00", "08:00"))
}

func TestValidateAcademicYear(t *testing.T) {
	assert.NoError(t, ValidateAcademicYear("2025/2026"))
	assert.Error(t, ValidateAcademicYear("2025"))
	assert.Error(t, ValidateAcademicYear("2025-2026"))
	assert.Error(t, ValidateAcademicYear("25/26"))
}

func TestValidateLessonHours(t *testing.T) {
	assert.NoError(t, ValidateLessonHours(1))
	assert.Error(t, ValidateLessonHours(0))
	assert.Error(t, ValidateLessonHours(-2))
}

func TestCheckScheduleConflictExactSlotOnly(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.Seed(docstore.CollectionSchedules, "s1", docstore.Fields{
		"class_ref":   "VII-A",
		"subject_ref": "matematika",
		"day":         "Senin",
		"start_time":  "07:00",
	})
	detector := NewConflictDetector(store)

	conflict, err := detector.CheckScheduleConflict(context.Background(), "VII-A", "Senin", "07:00")
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, "s1", conflict.ScheduleID)
	assert.Contains(t, conflict.Describe(), "matematika")

	// A different start time in the same day is free, even when the existing
	// entry would still be running.
	conflict, err = detector.CheckScheduleConflict(context.Background(), "VII-A", "Senin", "07:30")
	require.NoError(t, err)
	assert.Nil(t, conflict)

	// Same slot for another class is free.
	conflict, err = detector.CheckScheduleConflict(context.Background(), "VII-B", "Senin", "07:00")
	require.NoError(t, err)
	assert.Nil(t, conflict)

	// Same time on another day is free.
	conflict, err = detector.CheckScheduleConflict(context.Background(), "VII-A", "Selasa", "07:00")
	require.NoError(t, err)
	assert.Nil(t, conflict)
}
