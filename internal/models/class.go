package models

import "github.com/noah-isme/sma-sync-api/internal/docstore"

// Class represents an academic class, keyed by the slug of its name.
type Class struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Level        string `json:"level"`
	AcademicYear string `json:"academic_year"`
	// WaliKelasRef weakly references the homeroom teacher. The teacher's own
	// wali_kelas_ref should point back at this class; the synchronizer keeps
	// the pair consistent best-effort.
	WaliKelasRef *string `json:"wali_kelas_ref"`
}

// Fields renders the class as a document body.
func (c Class) Fields() docstore.Fields {
	fields := docstore.Fields{
		"name":          c.Name,
		"level":         c.Level,
		"academic_year": c.AcademicYear,
	}
	if c.WaliKelasRef != nil {
		fields["wali_kelas_ref"] = *c.WaliKelasRef
	} else {
		fields["wali_kelas_ref"] = nil
	}
	return fields
}

// ClassFromDocument hydrates a Class from its stored document.
func ClassFromDocument(doc *docstore.Document) Class {
	class := Class{
		ID:           doc.ID,
		Name:         doc.String("name"),
		Level:        doc.String("level"),
		AcademicYear: doc.String("academic_year"),
	}
	if ref := doc.String("wali_kelas_ref"); ref != "" {
		class.WaliKelasRef = &ref
	}
	return class
}

// Subject is a taught subject, keyed by slug.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Fields renders the subject as a document body.
func (s Subject) Fields() docstore.Fields {
	return docstore.Fields{"name": s.Name, "code": s.Code}
}

// SubjectFromDocument hydrates a Subject from its stored document.
func SubjectFromDocument(doc *docstore.Document) Subject {
	return Subject{ID: doc.ID, Name: doc.String("name"), Code: doc.String("code")}
}
