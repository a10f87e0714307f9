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

// CreateStudentRequest represents payload for provisioning students.
type CreateStudentRequest struct {
	FullName string `json:"full_name" validate:"required"`
	NISN     string `json:"nisn" validate:"required,min=6,max=50"`
	Guardian string `json:"guardian" validate:"omitempty,max=100"`
	Address  string `json:"address" validate:"omitempty,max=500"`
	ClassRef string `json:"class_ref" validate:"omitempty,max=100"`
}

// UpdateStudentRequest represents payload for updating students.
type UpdateStudentRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Guardian string `json:"guardian" validate:"omitempty,max=100"`
	Address  string `json:"address" validate:"omitempty,max=500"`
	ClassRef string `json:"class_ref" validate:"omitempty,max=100"`
}

// StudentService provisions and reads student profiles using the same
// two-phase provisioning as teachers.
type StudentService struct {
	provisioner *IdentityProvisioner
	store       profileStore
	resolver    *ReferenceResolver
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(provisioner *IdentityProvisioner, store profileStore, resolver *ReferenceResolver, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{provisioner: provisioner, store: store, resolver: resolver, validator: validate, logger: logger}
}

// Create provisions a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	if req.ClassRef != "" {
		found, err := s.resolver.Exists(ctx, docstore.CollectionClasses, req.ClassRef)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
	}

	profile := models.StudentProfile{
		NISN:     strings.TrimSpace(req.NISN),
		FullName: strings.TrimSpace(req.FullName),
		Guardian: strings.TrimSpace(req.Guardian),
		Address:  strings.TrimSpace(req.Address),
	}
	if req.ClassRef != "" {
		ref := req.ClassRef
		profile.ClassRef = &ref
	}

	id, err := s.provisioner.Create(ctx, ProvisionRequest{
		Collection: docstore.CollectionStudents,
		Role:       models.RoleStudent,
		NaturalKey: profile.NISN,
		FullName:   profile.FullName,
		Profile:    profile.Fields(),
	})
	if err != nil {
		return nil, err
	}

	profile.ID = id
	return &profile, nil
}

// Update modifies an existing student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	fields := docstore.Fields{
		"full_name": strings.TrimSpace(req.FullName),
		"guardian":  strings.TrimSpace(req.Guardian),
		"address":   strings.TrimSpace(req.Address),
	}
	if req.ClassRef != "" {
		found, err := s.resolver.Exists(ctx, docstore.CollectionClasses, req.ClassRef)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		fields["class_ref"] = req.ClassRef
	}

	err := s.provisioner.Update(ctx, id, UpdateRequest{
		Collection: docstore.CollectionStudents,
		Role:       models.RoleStudent,
		FullName:   req.FullName,
		Profile:    fields,
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes the student profile, login-index entry and identity.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	return s.provisioner.Delete(ctx, id, docstore.CollectionStudents)
}

// Get returns a student profile by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentProfile, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionStudents, id)
	if err != nil {
		if err == docstore.ErrNotFound {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	profile := models.StudentFromDocument(doc)
	return &profile, nil
}

// List returns students, optionally narrowed to one class.
func (s *StudentService) List(ctx context.Context, classRef string, page, pageSize int) ([]models.StudentProfile, *models.Pagination, error) {
	var filters []docstore.Filter
	if classRef != "" {
		filters = append(filters, docstore.Where("class_ref", classRef))
	}
	docs, err := s.store.Query(ctx, docstore.CollectionStudents, filters...)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	profiles := make([]models.StudentProfile, 0, len(docs))
	for i := range docs {
		profiles = append(profiles, models.StudentFromDocument(&docs[i]))
	}

	p, size, window := paginate(len(profiles), page, pageSize)
	pagination := &models.Pagination{Page: p, PageSize: size, TotalCount: len(profiles)}
	return profiles[window[0]:window[1]], pagination, nil
}
