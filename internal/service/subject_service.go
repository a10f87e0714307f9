package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
	"github.com/noah-isme/sma-sync-api/internal/models"
	appErrors "github.com/noah-isme/sma-sync-api/pkg/errors"
)

// CreateSubjectRequest represents payload for registering subjects.
type CreateSubjectRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Code string `json:"code" validate:"omitempty,max=20"`
}

// SubjectService manages the subject catalogue. Subjects are plain documents
// keyed by slug; nothing downstream compensates for them.
type SubjectService struct {
	store     profileStore
	batches   provisionerStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(store profileStore, batches provisionerStore, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{store: store, batches: batches, validator: validate, logger: logger}
}

// Create registers a new subject keyed by the slug of its name.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	slug := Slugify(req.Name)
	if slug == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject name must contain at least one letter or digit")
	}

	subject := models.Subject{
		ID:   slug,
		Name: strings.TrimSpace(req.Name),
		Code: strings.TrimSpace(req.Code),
	}

	batch := docstore.NewBatch().Create(docstore.CollectionSubjects, subject.ID, subject.Fields())
	if err := s.batches.Commit(ctx, batch); err != nil {
		if errors.Is(err, docstore.ErrExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return &subject, nil
}

// Delete removes a subject; deleting a missing subject succeeds.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	batch := docstore.NewBatch().Delete(docstore.CollectionSubjects, id)
	if err := s.batches.Commit(ctx, batch); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

// Get returns a subject by slug id.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionSubjects, id)
	if err != nil {
		if err == docstore.ErrNotFound {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	subject := models.SubjectFromDocument(doc)
	return &subject, nil
}

// List returns every registered subject.
func (s *SubjectService) List(ctx context.Context) ([]models.Subject, error) {
	docs, err := s.store.Query(ctx, docstore.CollectionSubjects)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	subjects := make([]models.Subject, 0, len(docs))
	for i := range docs {
		subjects = append(subjects, models.SubjectFromDocument(&docs[i]))
	}
	return subjects, nil
}
