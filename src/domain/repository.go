package domain

import "context"

// MemoRepository defines the interface for memo record store operations.
// Implementations assign id and timestamps on Create and keep UpdatedAt current.
type MemoRepository interface {
	Create(ctx context.Context, input MemoInput) (*Memo, error)
	GetByID(ctx context.Context, id string) (*Memo, error)
	// List returns every memo, newest CreatedAt first
	List(ctx context.Context) ([]Memo, error)
	Update(ctx context.Context, id string, patch MemoPatch) (*Memo, error)
	UpdateSummary(ctx context.Context, id string, summary string) (*Memo, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
