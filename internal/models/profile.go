package models

import "github.com/noah-isme/sma-sync-api/internal/docstore"

// Role tags recorded in the login index.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "guru"
	RoleStudent = "siswa"
)

// TeacherProfile is the document-side half of a provisioned teacher. The id
// equals the identity account id.
type TeacherProfile struct {
	ID       string     `json:"id"`
	NIP      string     `json:"nip"`
	FullName string     `json:"full_name"`
	Phone    string     `json:"phone,omitempty"`
	Address  string     `json:"address,omitempty"`
	Subjects StringList `json:"subjects"`
	Roles    StringList `json:"roles"`
	// WaliKelasRef points at the class this teacher is homeroom for. Written
	// only by the relationship synchronizer.
	WaliKelasRef *string `json:"wali_kelas_ref"`
}

// Fields renders the profile as a document body. The homeroom pointer is not
// included; it belongs to the synchronizer.
func (p TeacherProfile) Fields() docstore.Fields {
	return docstore.Fields{
		"nip":       p.NIP,
		"full_name": p.FullName,
		"phone":     p.Phone,
		"address":   p.Address,
		"subjects":  []string(p.Subjects),
		"roles":     []string(p.Roles),
	}
}

// TeacherFromDocument hydrates a TeacherProfile from its stored document.
func TeacherFromDocument(doc *docstore.Document) TeacherProfile {
	profile := TeacherProfile{
		ID:       doc.ID,
		NIP:      doc.String("nip"),
		FullName: doc.String("full_name"),
		Phone:    doc.String("phone"),
		Address:  doc.String("address"),
		Subjects: doc.StringSlice("subjects"),
		Roles:    doc.StringSlice("roles"),
	}
	if ref := doc.String("wali_kelas_ref"); ref != "" {
		profile.WaliKelasRef = &ref
	}
	return profile
}

// StudentProfile is the document-side half of a provisioned student.
type StudentProfile struct {
	ID       string  `json:"id"`
	NISN     string  `json:"nisn"`
	FullName string  `json:"full_name"`
	Guardian string  `json:"guardian,omitempty"`
	Address  string  `json:"address,omitempty"`
	ClassRef *string `json:"class_ref"`
}

// Fields renders the profile as a document body.
func (p StudentProfile) Fields() docstore.Fields {
	fields := docstore.Fields{
		"nisn":      p.NISN,
		"full_name": p.FullName,
		"guardian":  p.Guardian,
		"address":   p.Address,
	}
	if p.ClassRef != nil {
		fields["class_ref"] = *p.ClassRef
	}
	return fields
}

// StudentFromDocument hydrates a StudentProfile from its stored document.
func StudentFromDocument(doc *docstore.Document) StudentProfile {
	profile := StudentProfile{
		ID:       doc.ID,
		NISN:     doc.String("nisn"),
		FullName: doc.String("full_name"),
		Guardian: doc.String("guardian"),
		Address:  doc.String("address"),
	}
	if ref := doc.String("class_ref"); ref != "" {
		profile.ClassRef = &ref
	}
	return profile
}

// LoginIndexEntry mirrors an identity account inside the document store so
// sign-in screens can resolve a handle without touching the identity system.
type LoginIndexEntry struct {
	Handle string `json:"handle"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Fields renders the entry as a document body.
func (e LoginIndexEntry) Fields() docstore.Fields {
	return docstore.Fields{"handle": e.Handle, "email": e.Email, "role": e.Role}
}

// LoginIndexFromDocument hydrates a LoginIndexEntry from its stored document.
func LoginIndexFromDocument(doc *docstore.Document) LoginIndexEntry {
	return LoginIndexEntry{
		Handle: doc.String("handle"),
		Email:  doc.String("email"),
		Role:   doc.String("role"),
	}
}
