package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-memo-app/src/domain"

	"github.com/sirupsen/logrus"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

const (
	memoTable = "memos"
	// PostgRESTが.single()で0行のときに返すコード
	codeNoRows = "PGRST116"
)

// Querier is satisfied by both *supabase.Client and *postgrest.Client
type Querier interface {
	From(table string) *postgrest.QueryBuilder
}

// MemoRepository implements domain.MemoRepository on a Supabase table
type MemoRepository struct {
	client Querier
	logger *logrus.Logger
	now    func() time.Time
}

// NewClient creates a Supabase client with the service role key
func NewClient(url, serviceRoleKey string) (*supa.Client, error) {
	client, err := supa.NewClient(url, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return client, nil
}

// NewMemoRepository creates a new Supabase-backed memo repository
func NewMemoRepository(client Querier, logger *logrus.Logger) *MemoRepository {
	return &MemoRepository{
		client: client,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// memoRecord is the JSON row exchanged with PostgREST
type memoRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	Summary   *string   `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type insertRecord struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *memoRecord) toDomain() *domain.Memo {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	summary := r.Summary
	if summary != nil && *summary == "" {
		summary = nil
	}
	return &domain.Memo{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Category:  r.Category,
		Tags:      tags,
		Summary:   summary,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Create creates a new memo; the id is assigned by the table default
func (r *MemoRepository) Create(ctx context.Context, input domain.MemoInput) (*domain.Memo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	now := r.now()
	record := insertRecord{
		Title:     input.Title,
		Content:   input.Content,
		Category:  input.Category,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var created memoRecord
	_, err := r.client.From(memoTable).
		Insert(record, false, "", "representation", "").
		Single().
		ExecuteTo(&created)
	if err != nil {
		r.logger.WithError(err).Error("Supabaseへのメモ作成に失敗")
		return nil, fmt.Errorf("%w: failed to create memo: %v", domain.ErrStorage, err)
	}

	r.logger.WithField("memo_id", created.ID).Info("メモを作成しました")
	return created.toDomain(), nil
}

// GetByID retrieves a memo by ID
func (r *MemoRepository) GetByID(ctx context.Context, id string) (*domain.Memo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record memoRecord
	_, err := r.client.From(memoTable).
		Select("*", "", false).
		Eq("id", id).
		Single().
		ExecuteTo(&record)
	if err != nil {
		return nil, r.translate(err, id, "Supabaseからのメモ取得に失敗")
	}
	return record.toDomain(), nil
}

// List retrieves every memo, newest first
func (r *MemoRepository) List(ctx context.Context) ([]domain.Memo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []memoRecord
	_, err := r.client.From(memoTable).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&records)
	if err != nil {
		r.logger.WithError(err).Error("Supabaseからのメモ一覧取得に失敗")
		return nil, fmt.Errorf("%w: failed to list memos: %v", domain.ErrStorage, err)
	}

	memos := make([]domain.Memo, 0, len(records))
	for i := range records {
		memos = append(memos, *records[i].toDomain())
	}
	return memos, nil
}

// Update applies a partial update
func (r *MemoRepository) Update(ctx context.Context, id string, patch domain.MemoPatch) (*domain.Memo, error) {
	values := map[string]interface{}{"updated_at": r.now()}
	if patch.Title != nil {
		values["title"] = *patch.Title
	}
	if patch.Content != nil {
		values["content"] = *patch.Content
	}
	if patch.Category != nil {
		values["category"] = *patch.Category
	}
	if patch.Tags != nil {
		values["tags"] = patch.Tags
	}
	return r.update(ctx, id, values, "メモを更新しました")
}

// UpdateSummary stores the AI summary of a memo
func (r *MemoRepository) UpdateSummary(ctx context.Context, id string, summary string) (*domain.Memo, error) {
	values := map[string]interface{}{
		"summary":    summary,
		"updated_at": r.now(),
	}
	return r.update(ctx, id, values, "要約を更新しました")
}

func (r *MemoRepository) update(ctx context.Context, id string, values map[string]interface{}, msg string) (*domain.Memo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record memoRecord
	_, err := r.client.From(memoTable).
		Update(values, "representation", "").
		Eq("id", id).
		Single().
		ExecuteTo(&record)
	if err != nil {
		return nil, r.translate(err, id, "Supabaseのメモ更新に失敗")
	}

	r.logger.WithField("memo_id", id).Info(msg)
	return record.toDomain(), nil
}

// Delete removes a memo
func (r *MemoRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var deleted []memoRecord
	_, err := r.client.From(memoTable).
		Delete("representation", "").
		Eq("id", id).
		ExecuteTo(&deleted)
	if err != nil {
		return r.translate(err, id, "Supabaseのメモ削除に失敗")
	}
	if len(deleted) == 0 {
		return domain.ErrMemoNotFound
	}

	r.logger.WithField("memo_id", id).Info("メモを削除しました")
	return nil
}

// Count returns the number of stored memos
func (r *MemoRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	_, count, err := r.client.From(memoTable).
		Select("id", "exact", true).
		Execute()
	if err != nil {
		r.logger.WithError(err).Error("Supabaseのメモ件数取得に失敗")
		return 0, fmt.Errorf("%w: failed to count memos: %v", domain.ErrStorage, err)
	}
	return int(count), nil
}

// translate maps PostgREST errors to domain errors
func (r *MemoRepository) translate(err error, id, msg string) error {
	if strings.Contains(err.Error(), codeNoRows) {
		return domain.ErrMemoNotFound
	}
	// uuid型の列に不正な値を渡した場合（22P02）も未検出扱い
	if strings.Contains(err.Error(), "(22P02)") {
		return domain.ErrMemoNotFound
	}
	r.logger.WithError(err).WithField("memo_id", id).Error(msg)
	return fmt.Errorf("%w: %v", domain.ErrStorage, err)
}
