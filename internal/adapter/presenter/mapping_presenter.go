package presenter

import (
	"github.com/johnquangdev/lesson-attribution/internal/adapter/dto/common"
	"github.com/johnquangdev/lesson-attribution/internal/adapter/dto/mapping"
	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/review"
)

// ToMappingResponse converts a NameMapping entity to MappingResponse DTO
func ToMappingResponse(m *entities.NameMapping) *mapping.MappingResponse {
	if m == nil {
		return nil
	}

	response := &mapping.MappingResponse{
		OriginalName:    m.OriginalName,
		ResolvedName:    m.ResolvedName,
		Status:          string(m.Status),
		Confidence:      m.Confidence,
		TranscriptCount: m.TranscriptCount,
		CRMMatch:        m.CRMMatch,
		CRMStudentID:    m.CRMStudentID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}

	for _, h := range m.History {
		response.History = append(response.History, mapping.HistoryEntryResponse{
			Action:               h.Action,
			PreviousStatus:       string(h.PreviousStatus),
			PreviousResolvedName: h.PreviousResolvedName,
			Actor:                h.Actor,
			Timestamp:            h.Timestamp,
		})
	}

	return response
}

// ToMappingListResponse converts a page of mappings to a ListResponse
func ToMappingListResponse(mappings []*entities.NameMapping, total int64, page, pageSize int) *common.ListResponse {
	items := make([]*mapping.MappingResponse, len(mappings))
	for i, m := range mappings {
		items[i] = ToMappingResponse(m)
	}

	return &common.ListResponse{
		Data:       items,
		Pagination: common.NewPagination(total, page, pageSize),
	}
}

// ToUndoResponse describes an undone action
func ToUndoResponse(m *entities.NameMapping, entry *entities.UndoEntry, actor string) *mapping.UndoResponse {
	return &mapping.UndoResponse{
		Mapping:      ToMappingResponse(m),
		UndoneAction: entry.Action,
		RestoredFrom: string(entry.AppliedStatus),
		UndoneBy:     actor,
	}
}

// ToStudentResponses converts CRM search results
func ToStudentResponses(results []review.SearchResult) []mapping.StudentResponse {
	out := make([]mapping.StudentResponse, len(results))
	for i, r := range results {
		out[i] = mapping.StudentResponse{
			ID:     r.Student.ID,
			Name:   r.Student.Name,
			Active: r.Student.Active,
			Score:  r.Score,
		}
	}
	return out
}
