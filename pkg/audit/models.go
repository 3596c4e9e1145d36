package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EntryModel is one recorded reviewer action (approve, reject, delete).
type EntryModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	Actor        string            `gorm:"column:actor"`
	Action       string            `gorm:"column:action"`
	SuggestionID string            `gorm:"column:suggestion_id;index"`
	Notes        string            `gorm:"column:notes"`
	Payload      datatypes.JSONMap `gorm:"column:payload"`
	CreatedAt    time.Time         `gorm:"column:created_at"`
}

func (EntryModel) TableName() string {
	return "review_audit_log"
}

// Entry is the API view of an audit row.
type Entry struct {
	ID           uuid.UUID              `json:"id"`
	Actor        string                 `json:"actor"`
	Action       string                 `json:"action"`
	SuggestionID string                 `json:"suggestion_id"`
	Notes        string                 `json:"notes,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

func toDomain(m *EntryModel) Entry {
	entry := Entry{
		ID:           m.ID,
		Actor:        m.Actor,
		Action:       m.Action,
		SuggestionID: m.SuggestionID,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
	}
	if m.Payload != nil {
		entry.Payload = map[string]interface{}(m.Payload)
	}
	return entry
}
