package mapping

import "time"

// HistoryEntryResponse is one audit entry of a mapping
type HistoryEntryResponse struct {
	Action               string    `json:"action"`
	PreviousStatus       string    `json:"previous_status"`
	PreviousResolvedName *string   `json:"previous_resolved_name,omitempty"`
	Actor                string    `json:"actor"`
	Timestamp            time.Time `json:"timestamp"`
}

// MappingResponse represents a name mapping
type MappingResponse struct {
	OriginalName    string                 `json:"original_name"`
	ResolvedName    *string                `json:"resolved_name,omitempty"`
	Status          string                 `json:"status"`
	Confidence      int                    `json:"confidence"`
	TranscriptCount int                    `json:"transcript_count"`
	CRMMatch        *string                `json:"crm_match,omitempty"`
	CRMStudentID    *string                `json:"crm_student_id,omitempty"`
	History         []HistoryEntryResponse `json:"history,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// UndoResponse reports which action was reverted
type UndoResponse struct {
	Mapping      *MappingResponse `json:"mapping"`
	UndoneAction string           `json:"undone_action"`
	RestoredFrom string           `json:"restored_from"`
	UndoneBy     string           `json:"undone_by"`
}

// StudentResponse is a CRM student offered by the manual search
type StudentResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Score  int    `json:"score"`
}
