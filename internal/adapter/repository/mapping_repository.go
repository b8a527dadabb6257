package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/lesson-attribution/internal/usecase/errors"
)

// MappingLockKey is the advisory lock serializing transitions and undo on the
// global undo stack
const MappingLockKey int64 = 0x6e616d65_6d6170

// MappingRepository handles name mapping persistence on Postgres
type MappingRepository struct {
	db *gorm.DB
}

var _ repositories.MappingRepository = (*MappingRepository)(nil)

// NewMappingRepository creates a new mapping repository
func NewMappingRepository(db *gorm.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Observe records the (transcript, name) pair once and bumps the transcript
// count with an atomic upsert, so concurrent first observations merge.
func (r *MappingRepository) Observe(ctx context.Context, transcriptID, originalName string) (*entities.NameMapping, bool, error) {
	if originalName == "" {
		return nil, false, ucerrors.ErrInvalidInput
	}

	var (
		mapping entities.NameMapping
		counted bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`INSERT INTO transcript_observations (transcript_id, original_name, observed_at)
            VALUES (?, ?, NOW()) ON CONFLICT (transcript_id, original_name) DO NOTHING`, transcriptID, originalName)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			counted = true
			q := `INSERT INTO name_mappings (original_name, status, confidence, transcript_count, history, created_at, updated_at)
            VALUES (?, ?, 0, 1, '[]'::jsonb, NOW(), NOW())
            ON CONFLICT (original_name) DO UPDATE SET transcript_count = name_mappings.transcript_count + 1, updated_at = NOW()`
			if err := tx.Exec(q, originalName, entities.MappingStatusPending).Error; err != nil {
				return err
			}
		}

		return tx.Where("original_name = ?", originalName).First(&mapping).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &mapping, counted, nil
}

// Get retrieves a mapping by its original name
func (r *MappingRepository) Get(ctx context.Context, originalName string) (*entities.NameMapping, error) {
	var mapping entities.NameMapping
	if err := r.db.WithContext(ctx).Where("original_name = ?", originalName).First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ucerrors.ErrMappingNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

// ListByStatus lists mappings in status; an empty status lists all
func (r *MappingRepository) ListByStatus(ctx context.Context, status entities.MappingStatus, limit, offset int) ([]*entities.NameMapping, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.NameMapping{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 100
	}
	var mappings []*entities.NameMapping
	if err := query.
		Order("transcript_count DESC, original_name ASC").
		Limit(limit).
		Offset(offset).
		Find(&mappings).Error; err != nil {
		return nil, 0, err
	}
	return mappings, total, nil
}

// ListNamesResolvedTo lists original names resolved (approved or auto-matched) to resolvedName
func (r *MappingRepository) ListNamesResolvedTo(ctx context.Context, resolvedName string) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Model(&entities.NameMapping{}).
		Where("status IN ? AND lower(resolved_name) = lower(?)",
			[]entities.MappingStatus{entities.MappingStatusApproved, entities.MappingStatusAutoMatched}, resolvedName).
		Order("original_name ASC").
		Pluck("original_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// Suggest stores matcher output on a still-pending mapping
func (r *MappingRepository) Suggest(ctx context.Context, originalName string, crmMatch, crmStudentID *string, confidence int) (bool, error) {
	current, err := r.Get(ctx, originalName)
	if err != nil {
		return false, err
	}
	if current.Status != entities.MappingStatusPending {
		return false, ucerrors.ErrInvalidTransition
	}
	if sameSuggestion(current, crmMatch, crmStudentID, confidence) {
		return false, nil
	}

	res := r.db.WithContext(ctx).
		Model(&entities.NameMapping{}).
		Where("original_name = ? AND status = ?", originalName, entities.MappingStatusPending).
		Updates(map[string]interface{}{
			"crm_match":      crmMatch,
			"crm_student_id": crmStudentID,
			"confidence":     confidence,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, ucerrors.ErrInvalidTransition
	}
	return true, nil
}

// Transition applies a forward status change with compare-and-set on the
// current status, appending history and an undo log row in one transaction.
func (r *MappingRepository) Transition(ctx context.Context, t entities.MappingTransition) (*entities.NameMapping, error) {
	var mapping entities.NameMapping
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUndoStack(tx); err != nil {
			return err
		}
		if err := lockMapping(tx, t.OriginalName, &mapping); err != nil {
			return err
		}
		if mapping.Status != t.From || !t.From.CanTransitionTo(t.To) {
			return ucerrors.ErrInvalidTransition
		}

		now := time.Now().UTC()
		entry := entities.UndoEntry{
			OriginalName:         mapping.OriginalName,
			Action:               t.Action,
			PreviousStatus:       mapping.Status,
			PreviousResolvedName: copyString(mapping.ResolvedName),
			AppliedStatus:        t.To,
			AppliedResolvedName:  copyString(t.ResolvedName),
			Actor:                t.Actor,
		}
		applyTransition(&mapping, t, now)

		res := tx.Model(&entities.NameMapping{}).
			Where("original_name = ? AND status = ?", t.OriginalName, t.From).
			Updates(mappingColumns(&mapping))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ucerrors.ErrInvalidTransition
		}

		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// Undo pops the most recent undo log row across all mappings. The advisory
// transaction lock makes concurrent undo calls mutually exclusive.
func (r *MappingRepository) Undo(ctx context.Context, actor string) (*entities.NameMapping, *entities.UndoEntry, error) {
	var (
		mapping entities.NameMapping
		entry   entities.UndoEntry
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUndoStack(tx); err != nil {
			return err
		}

		if err := tx.Where("undone_at IS NULL").Order("id DESC").First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ucerrors.ErrNothingToUndo
			}
			return err
		}
		if err := lockMapping(tx, entry.OriginalName, &mapping); err != nil {
			return err
		}

		now := time.Now().UTC()
		restoreFromUndo(&mapping, &entry, actor, now)

		if err := tx.Model(&entities.NameMapping{}).
			Where("original_name = ?", mapping.OriginalName).
			Updates(mappingColumns(&mapping)).Error; err != nil {
			return err
		}

		entry.UndoneAt = &now
		entry.UndoneBy = entities.StringPtr(actor)
		return tx.Model(&entities.UndoEntry{}).
			Where("id = ? AND undone_at IS NULL", entry.ID).
			Updates(map[string]interface{}{
				"undone_at": now,
				"undone_by": actor,
			}).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &mapping, &entry, nil
}

// LatestUndo returns the top of the undo stack, or nil when it is empty
func (r *MappingRepository) LatestUndo(ctx context.Context) (*entities.UndoEntry, error) {
	var entry entities.UndoEntry
	if err := r.db.WithContext(ctx).Where("undone_at IS NULL").Order("id DESC").First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func lockUndoStack(tx *gorm.DB) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", MappingLockKey).Error
}

func lockMapping(tx *gorm.DB, originalName string, out *entities.NameMapping) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("original_name = ?", originalName).
		First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ucerrors.ErrMappingNotFound
	}
	return err
}

func mappingColumns(m *entities.NameMapping) map[string]interface{} {
	return map[string]interface{}{
		"status":         m.Status,
		"resolved_name":  m.ResolvedName,
		"confidence":     m.Confidence,
		"crm_match":      m.CRMMatch,
		"crm_student_id": m.CRMStudentID,
		"history":        m.History,
		"updated_at":     m.UpdatedAt,
	}
}
