package usecase

import (
	"context"
	"fmt"
	"strings"

	"ai-memo-app/src/domain"
	"ai-memo-app/src/infrastructure/ai"

	"github.com/sirupsen/logrus"
)

// SummaryResult is returned by SummarizeMemo
type SummaryResult struct {
	Summary string       `json:"summary"`
	Memo    *domain.Memo `json:"memo"`
}

// MemoUsecase defines the memo operations offered to the presentation layer
type MemoUsecase interface {
	FetchMemos(ctx context.Context) ([]domain.Memo, error)
	CreateMemo(ctx context.Context, input domain.MemoInput) (*domain.Memo, error)
	GetMemo(ctx context.Context, id string) (*domain.Memo, error)
	UpdateMemo(ctx context.Context, id string, patch domain.MemoPatch) (*domain.Memo, error)
	UpdateSummary(ctx context.Context, id string, summary string) (*domain.Memo, error)
	DeleteMemo(ctx context.Context, id string) error
	CountMemos(ctx context.Context) (int, error)
	GenerateTags(ctx context.Context, title, content string) ([]string, error)
	SummarizeMemo(ctx context.Context, id, title, content string) (*SummaryResult, error)
}

type memoUsecase struct {
	memoRepo domain.MemoRepository
	provider ai.Provider
	logger   *logrus.Logger
}

// NewMemoUsecase creates a new memo usecase. provider may be nil when no AI backend is configured.
func NewMemoUsecase(memoRepo domain.MemoRepository, provider ai.Provider, logger *logrus.Logger) MemoUsecase {
	return &memoUsecase{
		memoRepo: memoRepo,
		provider: provider,
		logger:   logger,
	}
}

// FetchMemos returns every memo, newest first
func (u *memoUsecase) FetchMemos(ctx context.Context) ([]domain.Memo, error) {
	return u.memoRepo.List(ctx)
}

// CreateMemo creates a new memo
func (u *memoUsecase) CreateMemo(ctx context.Context, input domain.MemoInput) (*domain.Memo, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Category) == "" {
		input.Category = string(domain.DefaultCategory)
	}
	if input.Tags == nil {
		input.Tags = []string{}
	}

	return u.memoRepo.Create(ctx, input)
}

// GetMemo retrieves a memo by ID
func (u *memoUsecase) GetMemo(ctx context.Context, id string) (*domain.Memo, error) {
	return u.memoRepo.GetByID(ctx, id)
}

// UpdateMemo applies the supplied fields to an existing memo
func (u *memoUsecase) UpdateMemo(ctx context.Context, id string, patch domain.MemoPatch) (*domain.Memo, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	return u.memoRepo.Update(ctx, id, patch)
}

// UpdateSummary stores a summary on an existing memo
func (u *memoUsecase) UpdateSummary(ctx context.Context, id string, summary string) (*domain.Memo, error) {
	return u.memoRepo.UpdateSummary(ctx, id, summary)
}

// DeleteMemo removes a memo
func (u *memoUsecase) DeleteMemo(ctx context.Context, id string) error {
	return u.memoRepo.Delete(ctx, id)
}

// CountMemos returns the number of stored memos
func (u *memoUsecase) CountMemos(ctx context.Context) (int, error) {
	return u.memoRepo.Count(ctx)
}

// GenerateTags asks the AI provider for up to five tags
func (u *memoUsecase) GenerateTags(ctx context.Context, title, content string) ([]string, error) {
	if err := u.checkProvider(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}

	text, err := u.provider.Generate(ctx, tagPrompt(title, content), ai.TagOptions)
	if err != nil {
		u.logger.WithError(err).Error("タグの生成に失敗")
		return nil, fmt.Errorf("failed to generate tags: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrProviderEmptyResponse
	}

	tags := domain.ParseTagList(text, domain.MaxGeneratedTags)
	u.logger.WithFields(logrus.Fields{
		"provider": u.provider.Name(),
		"count":    len(tags),
	}).Info("タグを生成しました")
	return tags, nil
}

// SummarizeMemo generates a summary and stores it on the memo
func (u *memoUsecase) SummarizeMemo(ctx context.Context, id, title, content string) (*SummaryResult, error) {
	if err := u.checkProvider(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: memo id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}

	summary, err := u.provider.Generate(ctx, summaryPrompt(title, content), ai.SummaryOptions)
	if err != nil {
		u.logger.WithError(err).WithField("memo_id", id).Error("要約の生成に失敗")
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, domain.ErrProviderEmptyResponse
	}

	memo, err := u.memoRepo.UpdateSummary(ctx, id, summary)
	if err != nil {
		return nil, err
	}

	u.logger.WithField("memo_id", id).Info("要約を生成しました")
	return &SummaryResult{Summary: summary, Memo: memo}, nil
}

func (u *memoUsecase) checkProvider() error {
	if u.provider == nil || !u.provider.Available() {
		return domain.ErrProviderUnavailable
	}
	return nil
}

func validateInput(input domain.MemoInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if strings.TrimSpace(input.Content) == "" {
		return fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	return nil
}

func validatePatch(patch domain.MemoPatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", domain.ErrValidation)
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return fmt.Errorf("%w: category must not be empty", domain.ErrValidation)
	}
	return nil
}
