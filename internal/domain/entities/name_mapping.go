package entities

import (
	"time"

	"gorm.io/datatypes"
)

// MappingStatus is the review lifecycle state of a name mapping
type MappingStatus string

const (
	MappingStatusPending     MappingStatus = "pending"      // Observed, awaiting matcher or reviewer
	MappingStatusAutoMatched MappingStatus = "auto_matched" // Promoted by the matcher without review
	MappingStatusApproved    MappingStatus = "approved"     // Reviewer confirmed a resolved name
	MappingStatusRejected    MappingStatus = "rejected"     // Reviewer marked the label as not a student
)

// AutoMatchThreshold is the minimum score eligible for automatic promotion
const AutoMatchThreshold = 70

// Valid reports whether s is a known status
func (s MappingStatus) Valid() bool {
	switch s {
	case MappingStatusPending, MappingStatusAutoMatched, MappingStatusApproved, MappingStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a forward (non-undo) transition is allowed.
// Only pending mappings move forward; everything else returns through undo.
func (s MappingStatus) CanTransitionTo(next MappingStatus) bool {
	if s != MappingStatusPending {
		return false
	}
	switch next {
	case MappingStatusAutoMatched, MappingStatusApproved, MappingStatusRejected:
		return true
	}
	return false
}

// IsResolved reports whether the mapping carries a usable resolved name
func (s MappingStatus) IsResolved() bool {
	return s == MappingStatusAutoMatched || s == MappingStatusApproved
}

// Mapping actions recorded in history
const (
	ActionAutoMatch = "auto_match"
	ActionApprove   = "approve"
	ActionReject    = "reject"
	ActionUndo      = "undo"
)

// Actor used for matcher-driven transitions
const ActorAutoMatcher = "auto-matcher"

// HistoryEntry captures the state a mapping held before an action
type HistoryEntry struct {
	Action               string        `json:"action"`
	PreviousStatus       MappingStatus `json:"previous_status"`
	PreviousResolvedName *string       `json:"previous_resolved_name,omitempty"`
	Actor                string        `json:"actor"`
	Timestamp            time.Time     `json:"timestamp"`
}

// NameMapping links a normalized transcript label to a canonical student name
type NameMapping struct {
	OriginalName    string                             `json:"original_name" gorm:"type:text;primary_key"`
	ResolvedName    *string                            `json:"resolved_name,omitempty" gorm:"type:text"`
	Status          MappingStatus                      `json:"status" gorm:"type:varchar(20);not null;index;default:'pending'"`
	Confidence      int                                `json:"confidence" gorm:"not null;default:0"`
	TranscriptCount int                                `json:"transcript_count" gorm:"not null;default:0"`
	CRMMatch        *string                            `json:"crm_match,omitempty" gorm:"type:text"`
	CRMStudentID    *string                            `json:"crm_student_id,omitempty" gorm:"type:varchar(255)"`
	History         datatypes.JSONSlice[HistoryEntry] `json:"history" gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt       time.Time                          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time                          `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (NameMapping) TableName() string {
	return "name_mappings"
}

// NewNameMapping creates a pending mapping for a first observation
func NewNameMapping(originalName string) *NameMapping {
	now := time.Now().UTC()
	return &NameMapping{
		OriginalName:    originalName,
		Status:          MappingStatusPending,
		TranscriptCount: 1,
		History:         datatypes.JSONSlice[HistoryEntry]{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Clone returns a deep copy safe to hand out of a store
func (m *NameMapping) Clone() *NameMapping {
	if m == nil {
		return nil
	}
	out := *m
	out.ResolvedName = cloneString(m.ResolvedName)
	out.CRMMatch = cloneString(m.CRMMatch)
	out.CRMStudentID = cloneString(m.CRMStudentID)
	out.History = make(datatypes.JSONSlice[HistoryEntry], len(m.History))
	for i, h := range m.History {
		h.PreviousResolvedName = cloneString(h.PreviousResolvedName)
		out.History[i] = h
	}
	return &out
}

// MappingTransition describes a forward state change requested on a mapping
type MappingTransition struct {
	OriginalName string
	From         MappingStatus
	To           MappingStatus
	Action       string
	ResolvedName *string
	Confidence   *int
	CRMMatch     *string
	CRMStudentID *string
	Actor        string
}

// UndoEntry is one record on the global undo stack
type UndoEntry struct {
	ID                   int64         `json:"id" gorm:"primaryKey;autoIncrement"`
	OriginalName         string        `json:"original_name" gorm:"type:text;not null;index"`
	Action               string        `json:"action" gorm:"type:varchar(20);not null"`
	PreviousStatus       MappingStatus `json:"previous_status" gorm:"type:varchar(20);not null"`
	PreviousResolvedName *string       `json:"previous_resolved_name,omitempty" gorm:"type:text"`
	AppliedStatus        MappingStatus `json:"applied_status" gorm:"type:varchar(20);not null"`
	AppliedResolvedName  *string       `json:"applied_resolved_name,omitempty" gorm:"type:text"`
	Actor                string        `json:"actor" gorm:"type:varchar(255);not null"`
	CreatedAt            time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UndoneAt             *time.Time    `json:"undone_at,omitempty"`
	UndoneBy             *string       `json:"undone_by,omitempty" gorm:"type:varchar(255)"`
}

// TableName specifies the table name for GORM
func (UndoEntry) TableName() string {
	return "mapping_undo_log"
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to a copy of s
func StringPtr(s string) *string {
	return &s
}
