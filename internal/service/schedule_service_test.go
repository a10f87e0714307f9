package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
	appErrors "github.com/noah-isme/sma-sync-api/pkg/errors"
)

func newScheduleService(store *docstore.MemoryStore) *ScheduleService {
	resolver := NewReferenceResolver(store)
	return NewScheduleService(store, resolver, NewConflictDetector(store), nil, nil, nil)
}

func seedScheduleRefs(store *docstore.MemoryStore) {
	store.Seed(docstore.CollectionClasses, "VII-A", docstore.Fields{"name": "VII A"})
	store.Seed(docstore.CollectionSubjects, "matematika", docstore.Fields{"name": "Matematika"})
	store.Seed(docstore.CollectionTeachers, "t1", docstore.Fields{"full_name": "Pak Budi"})
}

func validScheduleRequest() ScheduleRequest {
	return ScheduleRequest{
		Day:          "Senin",
		StartTime:    "07:00",
		EndTime:      "08:30",
		ClassID:      "VII-A",
		SubjectID:    "matematika",
		TeacherID:    "t1",
		AcademicYear: "2025/2026",
		LessonHours:  2,
		Room:         "R101",
	}
}

func TestScheduleCreate(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedScheduleRefs(store)
	svc := newScheduleService(store)

	entry, err := svc.Create(context.Background(), validScheduleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, 1, store.Size(docstore.CollectionSchedules))
}

func TestScheduleCreateValidationPrecedesWrites(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedScheduleRefs(store)
	svc := newScheduleService(store)

	cases := []struct {
		name   string
		mutate func(*ScheduleRequest)
	}{
		{"bad day", func(r *ScheduleRequest) { r.Day = "Minggu" }},
		{"bad time", func(r *ScheduleRequest) { r.StartTime = "7:00" }},
		{"inverted range", func(r *ScheduleRequest) { r.EndTime = "06:00" }},
		{"bad year", func(r *ScheduleRequest) { r.AcademicYear = "2025" }},
		{"zero hours", func(r *ScheduleRequest) { r.LessonHours = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validScheduleRequest()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.Zero(t, store.Size(docstore.CollectionSchedules))
		})
	}
}

func TestScheduleCreateMissingReferences(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedScheduleRefs(store)
	svc := newScheduleService(store)

	req := validScheduleRequest()
	req.TeacherID = "ghost"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))

	req = validScheduleRequest()
	req.SubjectID = "ghost"
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestScheduleCreateRejectsTakenSlot(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedScheduleRefs(store)
	svc := newScheduleService(store)

	_, err := svc.Create(context.Background(), validScheduleRequest())
	require.NoError(t, err)

	req := validScheduleRequest()
	req.SubjectID = "matematika"
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
	assert.Equal(t, 1, store.Size(docstore.CollectionSchedules))
}

func TestScheduleUpdateSkipsConflictCheck(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedScheduleRefs(store)
	svc := newScheduleService(store)

	first, err := svc.Create(context.Background(), validScheduleRequest())
	require.NoError(t, err)

	second := validScheduleRequest()
	second.StartTime = "08:30"
	second.EndTime = "10:00"
	entry, err := svc.Create(context.Background(), second)
	require.NoError(t, err)

	// Moving the second entry onto the first one's slot is allowed; editing
	// never re-runs the collision check.
	moved := validScheduleRequest()
	updated, err := svc.Update(context.Background(), entry.ID, moved)
	require.NoError(t, err)
	assert.Equal(t, first.StartTime, updated.StartTime)
}

func TestScheduleUpdateMissingEntry(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedScheduleRefs(store)
	svc := newScheduleService(store)

	_, err := svc.Update(context.Background(), "ghost", validScheduleRequest())
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestScheduleDeleteIsIdempotent(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedScheduleRefs(store)
	svc := newScheduleService(store)

	entry, err := svc.Create(context.Background(), validScheduleRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), entry.ID))
	require.NoError(t, svc.Delete(context.Background(), entry.ID))
	assert.Zero(t, store.Size(docstore.CollectionSchedules))
}

func TestScheduleListFilters(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedScheduleRefs(store)
	store.Seed(docstore.CollectionClasses, "VII-B", docstore.Fields{"name": "VII B"})
	svc := newScheduleService(store)

	_, err := svc.Create(context.Background(), validScheduleRequest())
	require.NoError(t, err)

	other := validScheduleRequest()
	other.ClassID = "VII-B"
	_, err = svc.Create(context.Background(), other)
	require.NoError(t, err)

	entries, err := svc.List(context.Background(), ScheduleFilter{ClassRef: "VII-A"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "VII-A", entries[0].ClassRef)

	entries, err = svc.List(context.Background(), ScheduleFilter{Day: "Senin"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestScheduleExportDataset(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedScheduleRefs(store)
	svc := newScheduleService(store)

	_, err := svc.Create(context.Background(), validScheduleRequest())
	require.NoError(t, err)

	dataset, err := svc.ExportDataset(context.Background(), ScheduleFilter{})
	require.NoError(t, err)
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, "Senin", dataset.Rows[0]["Day"])
	assert.Equal(t, "VII-A", dataset.Rows[0]["Class"])
	assert.Equal(t, "2", dataset.Rows[0]["Hours"])
}
