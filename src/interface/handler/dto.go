package handler

import (
	"time"

	"ai-memo-app/src/domain"
)

// CreateMemoRequestDTO represents HTTP request for creating a memo.
// Only presence is checked; categories outside the known set are stored as given.
type CreateMemoRequestDTO struct {
	Title    string   `json:"title" binding:"required" validate:"not_blank"`
	Content  string   `json:"content" binding:"required" validate:"not_blank"`
	Category string   `json:"category" binding:"required" validate:"not_blank"`
	Tags     []string `json:"tags"`
}

// UpdateMemoRequestDTO represents HTTP request for updating a memo.
// Absent fields are left untouched.
type UpdateMemoRequestDTO struct {
	Title    *string  `json:"title,omitempty" validate:"omitempty,not_blank"`
	Content  *string  `json:"content,omitempty"`
	Category *string  `json:"category,omitempty" validate:"omitempty,not_blank"`
	Tags     []string `json:"tags,omitempty"`
	Summary  *string  `json:"summary,omitempty"`
}

// SummaryRequestDTO represents HTTP request for summarizing a memo
type SummaryRequestDTO struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TagsRequestDTO represents HTTP request for suggesting tags
type TagsRequestDTO struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// MemoResponseDTO represents HTTP response for a memo
type MemoResponseDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	Summary   *string   `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SummaryResponseDTO represents HTTP response for a generated summary
type SummaryResponseDTO struct {
	Summary string          `json:"summary"`
	Memo    MemoResponseDTO `json:"memo"`
}

// TagsResponseDTO represents HTTP response for generated tags
type TagsResponseDTO struct {
	Tags []string `json:"tags"`
}

// DeleteResponseDTO represents HTTP response for a deleted memo
type DeleteResponseDTO struct {
	Success bool `json:"success"`
}

// ErrorResponseDTO represents HTTP error response
type ErrorResponseDTO struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (r CreateMemoRequestDTO) toInput() domain.MemoInput {
	return domain.MemoInput{
		Title:    r.Title,
		Content:  r.Content,
		Category: r.Category,
		Tags:     r.Tags,
	}
}

func (r UpdateMemoRequestDTO) toPatch() domain.MemoPatch {
	return domain.MemoPatch{
		Title:    r.Title,
		Content:  r.Content,
		Category: r.Category,
		Tags:     r.Tags,
	}
}

func toMemoResponseDTO(memo *domain.Memo) MemoResponseDTO {
	tags := memo.Tags
	if tags == nil {
		tags = []string{}
	}
	return MemoResponseDTO{
		ID:        memo.ID,
		Title:     memo.Title,
		Content:   memo.Content,
		Category:  memo.Category,
		Tags:      tags,
		Summary:   memo.Summary,
		CreatedAt: memo.CreatedAt,
		UpdatedAt: memo.UpdatedAt,
	}
}

func toMemoResponseDTOs(memos []domain.Memo) []MemoResponseDTO {
	dtos := make([]MemoResponseDTO, len(memos))
	for i := range memos {
		dtos[i] = toMemoResponseDTO(&memos[i])
	}
	return dtos
}
