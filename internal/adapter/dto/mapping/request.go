package mapping

// ListMappingsRequest represents query parameters for listing mappings
type ListMappingsRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=pending auto_matched approved rejected"`
	Page     int    `query:"page" validate:"min=1"`
	PageSize int    `query:"page_size" validate:"min=1,max=200"`
}

// ApproveMappingRequest resolves a pending mapping.
// ResolvedName is required when Source is custom.
type ApproveMappingRequest struct {
	Source       string `json:"source" validate:"required,oneof=suggestion original custom"`
	ResolvedName string `json:"resolved_name,omitempty" validate:"required_if=Source custom,omitempty,notblank,max=255"`
	Actor        string `json:"actor" validate:"required,notblank,max=255"`
}

// ActorRequest carries the reviewer performing reject or undo
type ActorRequest struct {
	Actor string `json:"actor" validate:"required,notblank,max=255"`
}

// SearchStudentsRequest represents the manual CRM search
type SearchStudentsRequest struct {
	Query string `query:"q" validate:"required,notblank"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=100"`
}
