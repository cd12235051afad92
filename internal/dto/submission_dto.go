package dto

import "github.com/noah-isme/promptcraft-portal/pkg/promptcraft"

// SubmissionCreateRequest submits a prompt for a question.
type SubmissionCreateRequest struct {
	TaskID uint   `json:"task_id" validate:"required,gt=0"`
	Prompt string `json:"prompt" validate:"required,min=1,max=10000"`
}

// ToUpstream converts the request for the backend.
func (r SubmissionCreateRequest) ToUpstream() promptcraft.SubmissionRequest {
	return promptcraft.SubmissionRequest{TaskID: r.TaskID, Prompt: r.Prompt}
}

// SubmissionListQuery pages through the caller's submissions.
type SubmissionListQuery struct {
	Page  int `query:"page" validate:"omitempty,gte=1"`
	Limit int `query:"limit" validate:"omitempty,gte=1,lte=100"`
}

// Normalize applies the default page and size.
func (q SubmissionListQuery) Normalize() SubmissionListQuery {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	return q
}

// SubmissionHistoryResponse is a page of submissions with paging metadata.
type SubmissionHistoryResponse struct {
	Items      []promptcraft.SubmissionHistoryItem `json:"items"`
	TotalCount int                                 `json:"total_count"`
	Page       int                                 `json:"page"`
	Limit      int                                 `json:"limit"`
	TotalPages int                                 `json:"total_pages"`
}

// NewSubmissionHistoryResponse derives the page count.
func NewSubmissionHistoryResponse(history promptcraft.SubmissionHistory) SubmissionHistoryResponse {
	items := history.Submissions
	if items == nil {
		items = []promptcraft.SubmissionHistoryItem{}
	}
	pages := 0
	if history.Limit > 0 {
		pages = (history.TotalCount + history.Limit - 1) / history.Limit
	}
	return SubmissionHistoryResponse{
		Items:      items,
		TotalCount: history.TotalCount,
		Page:       history.Page,
		Limit:      history.Limit,
		TotalPages: pages,
	}
}
