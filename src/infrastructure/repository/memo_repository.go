package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ai-memo-app/src/database"
	"ai-memo-app/src/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const memoColumns = `id, title, content, category, tags, summary, created_at, updated_at`

// MemoRepository implements domain.MemoRepository on PostgreSQL
type MemoRepository struct {
	db     *database.DB
	logger *logrus.Logger
	now    func() time.Time
}

// NewMemoRepository creates a new memo repository
func NewMemoRepository(db *database.DB, logger *logrus.Logger) *MemoRepository {
	return &MemoRepository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// memoRow is the row layout of the memos table
type memoRow struct {
	ID        string
	Title     string
	Content   string
	Category  string
	Tags      pq.StringArray
	Summary   sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemoRow(s scanner) (*memoRow, error) {
	var row memoRow
	if err := s.Scan(
		&row.ID, &row.Title, &row.Content, &row.Category,
		&row.Tags, &row.Summary, &row.CreatedAt, &row.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &row, nil
}

// toDomain NULLのtagsは空スライス、NULLまたは空のsummaryはnil
func (r *memoRow) toDomain() *domain.Memo {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	memo := &domain.Memo{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Category:  r.Category,
		Tags:      tags,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Summary.Valid && r.Summary.String != "" {
		summary := r.Summary.String
		memo.Summary = &summary
	}
	return memo
}

// Create creates a new memo
func (r *MemoRepository) Create(ctx context.Context, input domain.MemoInput) (*domain.Memo, error) {
	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}

	now := r.now()
	query := `
		INSERT INTO memos (id, title, content, category, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + memoColumns

	row, err := scanMemoRow(r.db.QueryRowContext(ctx, query,
		uuid.NewString(), input.Title, input.Content, input.Category, pq.Array(tags), now, now,
	))
	if err != nil {
		r.logger.WithError(err).Error("メモの作成に失敗")
		return nil, fmt.Errorf("%w: failed to create memo: %v", domain.ErrStorage, err)
	}

	r.logger.WithField("memo_id", row.ID).Info("メモを作成しました")
	return row.toDomain(), nil
}

// GetByID retrieves a memo by ID
func (r *MemoRepository) GetByID(ctx context.Context, id string) (*domain.Memo, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrMemoNotFound
	}

	query := `SELECT ` + memoColumns + ` FROM memos WHERE id = $1`
	row, err := scanMemoRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, r.rowError(err, id, "メモの取得に失敗")
	}
	return row.toDomain(), nil
}

// List retrieves every memo, newest first
func (r *MemoRepository) List(ctx context.Context) ([]domain.Memo, error) {
	query := `SELECT ` + memoColumns + ` FROM memos ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.WithError(err).Error("メモ一覧の取得に失敗")
		return nil, fmt.Errorf("%w: failed to list memos: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	memos := []domain.Memo{}
	for rows.Next() {
		row, err := scanMemoRow(rows)
		if err != nil {
			r.logger.WithError(err).Error("メモの読み取りに失敗")
			return nil, fmt.Errorf("%w: failed to scan memo: %v", domain.ErrStorage, err)
		}
		memos = append(memos, *row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate memos: %v", domain.ErrStorage, err)
	}

	return memos, nil
}

// Update applies a partial update; nil fields keep their stored value
func (r *MemoRepository) Update(ctx context.Context, id string, patch domain.MemoPatch) (*domain.Memo, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrMemoNotFound
	}

	var tags interface{}
	if patch.Tags != nil {
		tags = pq.Array(patch.Tags)
	}

	query := `
		UPDATE memos
		SET title = COALESCE($2, title),
			content = COALESCE($3, content),
			category = COALESCE($4, category),
			tags = COALESCE($5::text[], tags),
			updated_at = $6
		WHERE id = $1
		RETURNING ` + memoColumns

	row, err := scanMemoRow(r.db.QueryRowContext(ctx, query,
		id, patch.Title, patch.Content, patch.Category, tags, r.now(),
	))
	if err != nil {
		return nil, r.rowError(err, id, "メモの更新に失敗")
	}

	r.logger.WithField("memo_id", id).Info("メモを更新しました")
	return row.toDomain(), nil
}

// UpdateSummary stores the AI summary of a memo
func (r *MemoRepository) UpdateSummary(ctx context.Context, id string, summary string) (*domain.Memo, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrMemoNotFound
	}

	query := `
		UPDATE memos SET summary = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + memoColumns

	row, err := scanMemoRow(r.db.QueryRowContext(ctx, query, id, summary, r.now()))
	if err != nil {
		return nil, r.rowError(err, id, "要約の更新に失敗")
	}

	r.logger.WithField("memo_id", id).Info("要約を更新しました")
	return row.toDomain(), nil
}

// Delete removes a memo
func (r *MemoRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrMemoNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM memos WHERE id = $1`, id)
	if err != nil {
		r.logger.WithError(err).WithField("memo_id", id).Error("メモの削除に失敗")
		return fmt.Errorf("%w: failed to delete memo: %v", domain.ErrStorage, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %v", domain.ErrStorage, err)
	}
	if rowsAffected == 0 {
		return domain.ErrMemoNotFound
	}

	r.logger.WithField("memo_id", id).Info("メモを削除しました")
	return nil
}

// Count returns the number of stored memos
func (r *MemoRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memos`).Scan(&count); err != nil {
		r.logger.WithError(err).Error("メモ件数の取得に失敗")
		return 0, fmt.Errorf("%w: failed to count memos: %v", domain.ErrStorage, err)
	}
	return count, nil
}

func (r *MemoRepository) rowError(err error, id, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrMemoNotFound
	}
	r.logger.WithError(err).WithField("memo_id", id).Error(msg)
	return fmt.Errorf("%w: %v", domain.ErrStorage, err)
}
