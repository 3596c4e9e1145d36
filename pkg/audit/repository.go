package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Repository persists reviewer actions to Postgres.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&EntryModel{})
}

// Record appends one action. It satisfies queue.AuditRecorder.
func (r *Repository) Record(ctx context.Context, actor, action, suggestionID, notes string) error {
	entry := &EntryModel{
		ID:           uuid.New(),
		Actor:        actor,
		Action:       action,
		SuggestionID: suggestionID,
		Notes:        notes,
		Payload: datatypes.JSONMap{
			"actor":         actor,
			"action":        action,
			"suggestion_id": suggestionID,
		},
		CreatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListBySuggestion returns the action history of one suggestion, oldest first.
func (r *Repository) ListBySuggestion(ctx context.Context, suggestionID string) ([]Entry, error) {
	var rows []EntryModel
	result := r.db.WithContext(ctx).
		Where("suggestion_id = ?", suggestionID).
		Order("created_at asc").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	entries := make([]Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, toDomain(&rows[i]))
	}
	return entries, nil
}

// ListByActor returns recent actions of one reviewer, newest first.
func (r *Repository) ListByActor(ctx context.Context, actor string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []EntryModel
	result := r.db.WithContext(ctx).
		Where("actor = ?", actor).
		Order("created_at desc").
		Limit(limit).
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	entries := make([]Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, toDomain(&rows[i]))
	}
	return entries, nil
}
