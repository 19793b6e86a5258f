package domain

import (
	"time"
)

// Memo represents a memo domain entity
type Memo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	Summary   *string   `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MemoInput is the editable part of a memo (form data)
type MemoInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// MemoPatch represents a partial update. nil fields are left untouched.
type MemoPatch struct {
	Title    *string
	Content  *string
	Category *string
	Tags     []string
}

// Category represents memo categories
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryStudy    Category = "study"
	CategoryIdea     Category = "idea"
	CategoryOther    Category = "other"

	// CategoryAll is the filter sentinel meaning "no category filter"
	CategoryAll = "all"
)

// DefaultCategory is used for new memos
const DefaultCategory = CategoryPersonal

// Categories lists the fixed category set in display order
var Categories = []Category{CategoryPersonal, CategoryWork, CategoryStudy, CategoryIdea, CategoryOther}

// CategoryLabels holds the display labels of each category
var CategoryLabels = map[Category]string{
	CategoryPersonal: "개인",
	CategoryWork:     "업무",
	CategoryStudy:    "학습",
	CategoryIdea:     "아이디어",
	CategoryOther:    "기타",
}

// IsValid validates if the category is one of the fixed set
func (c Category) IsValid() bool {
	switch c {
	case CategoryPersonal, CategoryWork, CategoryStudy, CategoryIdea, CategoryOther:
		return true
	default:
		return false
	}
}

// String returns string representation of Category
func (c Category) String() string {
	return string(c)
}

// Label returns the display label. Unknown categories are shown verbatim.
func (c Category) Label() string {
	if label, ok := CategoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Patch converts a full input into a patch that replaces every editable field
func (in MemoInput) Patch() MemoPatch {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	return MemoPatch{
		Title:    &in.Title,
		Content:  &in.Content,
		Category: &in.Category,
		Tags:     tags,
	}
}

// IsEmpty reports whether the patch changes nothing
func (p MemoPatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Category == nil && p.Tags == nil
}

// Apply returns a copy of m with the patch applied
func (p MemoPatch) Apply(m Memo) Memo {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
	if p.Tags != nil {
		m.Tags = append([]string{}, p.Tags...)
	}
	return m
}

// HasSummary reports whether an AI summary is present
func (m *Memo) HasSummary() bool {
	return m.Summary != nil
}

// Input returns the editable fields of the memo
func (m *Memo) Input() MemoInput {
	return MemoInput{
		Title:    m.Title,
		Content:  m.Content,
		Category: m.Category,
		Tags:     append([]string{}, m.Tags...),
	}
}
