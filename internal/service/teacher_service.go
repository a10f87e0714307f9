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

type profileStore interface {
	Get(ctx context.Context, collection, id string) (*docstore.Document, error)
	Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error)
}

// CreateTeacherRequest represents payload for provisioning teachers.
type CreateTeacherRequest struct {
	FullName string            `json:"full_name" validate:"required"`
	NIP      string            `json:"nip" validate:"required,min=6,max=50"`
	Phone    string            `json:"phone" validate:"omitempty,max=50"`
	Address  string            `json:"address" validate:"omitempty,max=500"`
	Subjects models.StringList `json:"subjects"`
	Roles    models.StringList `json:"roles"`
}

// UpdateTeacherRequest represents payload for updating teachers.
type UpdateTeacherRequest struct {
	FullName string            `json:"full_name" validate:"required"`
	Phone    string            `json:"phone" validate:"omitempty,max=50"`
	Address  string            `json:"address" validate:"omitempty,max=500"`
	Subjects models.StringList `json:"subjects"`
	Roles    models.StringList `json:"roles"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search   string
	Page     int
	PageSize int
}

// TeacherService provisions and reads teacher profiles. All identity work is
// delegated to the IdentityProvisioner; this layer owns validation and shaping.
type TeacherService struct {
	provisioner *IdentityProvisioner
	store       profileStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(provisioner *IdentityProvisioner, store profileStore, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{provisioner: provisioner, store: store, validator: validate, logger: logger}
}

// Create provisions a new teacher: identity account plus profile documents.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.TeacherProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	profile := models.TeacherProfile{
		NIP:      strings.TrimSpace(req.NIP),
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Address:  strings.TrimSpace(req.Address),
		Subjects: req.Subjects,
		Roles:    req.Roles,
	}

	id, err := s.provisioner.Create(ctx, ProvisionRequest{
		Collection: docstore.CollectionTeachers,
		Role:       models.RoleTeacher,
		NaturalKey: profile.NIP,
		FullName:   profile.FullName,
		Profile:    profile.Fields(),
	})
	if err != nil {
		return nil, err
	}

	profile.ID = id
	return &profile, nil
}

// Update modifies an existing teacher's identity display name and profile.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.TeacherProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	// The homeroom pointer is owned by the synchronizer; profile updates merge
	// around it and never touch wali_kelas_ref.
	fields := docstore.Fields{
		"full_name": strings.TrimSpace(req.FullName),
		"phone":     strings.TrimSpace(req.Phone),
		"address":   strings.TrimSpace(req.Address),
		"subjects":  []string(req.Subjects),
		"roles":     []string(req.Roles),
	}

	err := s.provisioner.Update(ctx, id, UpdateRequest{
		Collection: docstore.CollectionTeachers,
		Role:       models.RoleTeacher,
		FullName:   req.FullName,
		Profile:    fields,
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes the teacher profile, its login-index entry and its identity.
// Missing sub-records are treated as already deleted.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	return s.provisioner.Delete(ctx, id, docstore.CollectionTeachers)
}

// Get returns a teacher profile by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.TeacherProfile, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionTeachers, id)
	if err != nil {
		if err == docstore.ErrNotFound {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	profile := models.TeacherFromDocument(doc)
	return &profile, nil
}

// List returns teacher profiles matching the filter plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter TeacherFilter) ([]models.TeacherProfile, *models.Pagination, error) {
	docs, err := s.store.Query(ctx, docstore.CollectionTeachers)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	profiles := make([]models.TeacherProfile, 0, len(docs))
	for i := range docs {
		profile := models.TeacherFromDocument(&docs[i])
		if search != "" &&
			!strings.Contains(strings.ToLower(profile.FullName), search) &&
			!strings.Contains(strings.ToLower(profile.NIP), search) {
			continue
		}
		profiles = append(profiles, profile)
	}

	page, size, window := paginate(len(profiles), filter.Page, filter.PageSize)
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: len(profiles)}
	return profiles[window[0]:window[1]], pagination, nil
}

// paginate clamps page/size and returns the slice window for the page.
func paginate(total, page, size int) (int, int, [2]int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return page, size, [2]int{start, end}
}
