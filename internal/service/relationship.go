package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
	"github.com/noah-isme/sma-sync-api/internal/models"
	appErrors "github.com/noah-isme/sma-sync-api/pkg/errors"
)

type relationshipStore interface {
	Exists(ctx context.Context, collection, id string) (bool, error)
	Commit(ctx context.Context, batch *docstore.Batch) error
}

// RelationshipSynchronizer keeps the bidirectional pointer between a class
// and its homeroom teacher consistent: the class stores the teacher id in
// wali_kelas_ref and the teacher stores the class id in the same field.
//
// A write to a counterpart document is only ever attempted after re-confirming
// its existence within the same operation. A counterpart that disappeared is
// skipped silently (logged at Warn): a stale reference is nothing to clean up,
// never something to force-write.
type RelationshipSynchronizer struct {
	store    relationshipStore
	resolver *ReferenceResolver
	logger   *zap.Logger
}

// NewRelationshipSynchronizer constructs a RelationshipSynchronizer.
func NewRelationshipSynchronizer(store relationshipStore, resolver *ReferenceResolver, logger *zap.Logger) *RelationshipSynchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelationshipSynchronizer{store: store, resolver: resolver, logger: logger}
}

// AssignOnCreate creates the class and points the teacher back at it in one
// atomic batch. The teacher must exist; otherwise nothing is written.
//
// When the teacher is already homeroom of a different class, that class keeps
// its now-stale pointer: only a warning is logged. The update path (Reassign)
// is the one that cleans up old assignments.
func (s *RelationshipSynchronizer) AssignOnCreate(ctx context.Context, class models.Class, teacherID string) error {
	teacherDoc, found, err := s.resolver.Resolve(ctx, docstore.CollectionTeachers, teacherID)
	if err != nil {
		return err
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "homeroom teacher not found")
	}

	exists, err := s.store.Exists(ctx, docstore.CollectionClasses, class.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class id")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "a class with this name already exists")
	}

	if prior := teacherDoc.String("wali_kelas_ref"); prior != "" && prior != class.ID {
		s.logger.Warn("teacher already assigned as homeroom of another class; old class keeps its pointer",
			zap.String("teacher_id", teacherID),
			zap.String("previous_class", prior),
			zap.String("new_class", class.ID),
		)
	}

	class.WaliKelasRef = &teacherID
	batch := docstore.NewBatch().
		Create(docstore.CollectionClasses, class.ID, class.Fields()).
		Update(docstore.CollectionTeachers, teacherID, docstore.Fields{"wali_kelas_ref": class.ID})

	if err := s.store.Commit(ctx, batch); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return nil
}

// Reassign updates class fields and moves the homeroom pointer from the old
// teacher to the new one in a single batch. When the homeroom teacher is
// unchanged, the teacher-side writes are skipped entirely; only the class
// field update commits (or nothing at all when there are no field changes).
func (s *RelationshipSynchronizer) Reassign(ctx context.Context, classID string, classFields docstore.Fields, oldTeacherRef, newTeacherID string) error {
	if oldTeacherRef == newTeacherID {
		if len(classFields) == 0 {
			return nil
		}
		batch := docstore.NewBatch().Update(docstore.CollectionClasses, classID, classFields)
		if err := s.store.Commit(ctx, batch); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
		}
		return nil
	}

	found, err := s.resolver.Exists(ctx, docstore.CollectionTeachers, newTeacherID)
	if err != nil {
		return err
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "homeroom teacher not found")
	}

	if classFields == nil {
		classFields = docstore.Fields{}
	}
	classFields["wali_kelas_ref"] = newTeacherID
	batch := docstore.NewBatch().Update(docstore.CollectionClasses, classID, classFields)

	if oldTeacherRef != "" {
		oldExists, err := s.resolver.Exists(ctx, docstore.CollectionTeachers, oldTeacherRef)
		if err != nil {
			return err
		}
		if oldExists {
			batch.Update(docstore.CollectionTeachers, oldTeacherRef, docstore.Fields{"wali_kelas_ref": nil})
		} else {
			s.logger.Warn("previous homeroom teacher no longer exists, skipping pointer cleanup",
				zap.String("class_id", classID),
				zap.String("teacher_id", oldTeacherRef),
			)
		}
	}

	batch.Update(docstore.CollectionTeachers, newTeacherID, docstore.Fields{"wali_kelas_ref": classID})

	if err := s.store.Commit(ctx, batch); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return nil
}

// Unassign deletes the class and clears its homeroom teacher's pointer in one
// batch. Deleting a class that no longer exists succeeds: the desired end
// state is already reached.
func (s *RelationshipSynchronizer) Unassign(ctx context.Context, classID string) error {
	classDoc, found, err := s.resolver.Resolve(ctx, docstore.CollectionClasses, classID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	batch := docstore.NewBatch().Delete(docstore.CollectionClasses, classID)

	if teacherRef := classDoc.String("wali_kelas_ref"); teacherRef != "" {
		teacherExists, err := s.resolver.Exists(ctx, docstore.CollectionTeachers, teacherRef)
		if err != nil {
			return err
		}
		if teacherExists {
			batch.Update(docstore.CollectionTeachers, teacherRef, docstore.Fields{"wali_kelas_ref": nil})
		} else {
			s.logger.Warn("homeroom teacher of deleted class no longer exists, skipping pointer cleanup",
				zap.String("class_id", classID),
				zap.String("teacher_id", teacherRef),
			)
		}
	}

	if err := s.store.Commit(ctx, batch); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}
