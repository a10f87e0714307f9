package models

import (
	"fmt"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
)

// ScheduleEntry is one slot in the weekly timetable, keyed by a generated id.
type ScheduleEntry struct {
	ID           string `json:"id"`
	ClassRef     string `json:"class_ref"`
	SubjectRef   string `json:"subject_ref"`
	TeacherRef   string `json:"teacher_ref"`
	Day          string `json:"day"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	AcademicYear string `json:"academic_year"`
	LessonHours  int    `json:"lesson_hours"`
	Room         string `json:"room,omitempty"`
}

// Fields renders the entry as a document body.
func (e ScheduleEntry) Fields() docstore.Fields {
	return docstore.Fields{
		"class_ref":     e.ClassRef,
		"subject_ref":   e.SubjectRef,
		"teacher_ref":   e.TeacherRef,
		"day":           e.Day,
		"start_time":    e.StartTime,
		"end_time":      e.EndTime,
		"academic_year": e.AcademicYear,
		"lesson_hours":  e.LessonHours,
		"room":          e.Room,
	}
}

// ScheduleFromDocument hydrates a ScheduleEntry from its stored document.
func ScheduleFromDocument(doc *docstore.Document) ScheduleEntry {
	return ScheduleEntry{
		ID:           doc.ID,
		ClassRef:     doc.String("class_ref"),
		SubjectRef:   doc.String("subject_ref"),
		TeacherRef:   doc.String("teacher_ref"),
		Day:          doc.String("day"),
		StartTime:    doc.String("start_time"),
		EndTime:      doc.String("end_time"),
		AcademicYear: doc.String("academic_year"),
		LessonHours:  doc.Int("lesson_hours"),
		Room:         doc.String("room"),
	}
}

// ScheduleConflict describes the existing entry blocking a new slot.
type ScheduleConflict struct {
	ScheduleID string `json:"schedule_id"`
	ClassRef   string `json:"class_ref"`
	SubjectRef string `json:"subject_ref"`
	Day        string `json:"day"`
	StartTime  string `json:"start_time"`
}

// Describe renders the conflict for user-facing messages.
func (c ScheduleConflict) Describe() string {
	return fmt.Sprintf("slot %s %s for class %s is already taken by subject %s", c.Day, c.StartTime, c.ClassRef, c.SubjectRef)
}
