// Package session holds the in-memory memo collection of one session and
// derives the filtered view and statistics from it.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ai-memo-app/src/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Service is the remote memo service the engine reconciles with
type Service interface {
	FetchMemos(ctx context.Context) ([]domain.Memo, error)
	CreateMemo(ctx context.Context, input domain.MemoInput) (*domain.Memo, error)
	UpdateMemo(ctx context.Context, id string, patch domain.MemoPatch) (*domain.Memo, error)
	UpdateSummary(ctx context.Context, id string, summary string) (*domain.Memo, error)
	DeleteMemo(ctx context.Context, id string) error
}

// Migrator moves legacy local memos into the remote service
type Migrator interface {
	Migrate(ctx context.Context) bool
}

// Stats are aggregate counts over the collection
type Stats struct {
	Total      int            `json:"total"`
	Filtered   int            `json:"filtered"`
	ByCategory map[string]int `json:"byCategory"`
}

// DefaultClearConcurrency bounds the parallel deletes issued by ClearAll
const DefaultClearConcurrency = 8

// Engine owns the memo collection of a session. All methods are safe for concurrent use.
// Storage-touching operations on the same memo id are serialized; the state lock is
// never held across a remote call.
type Engine struct {
	service  Service
	migrator Migrator
	logger   *logrus.Logger

	mu       sync.RWMutex
	memos    []domain.Memo
	category string
	query    string
	loadErr  error

	locks            *keyedMutex
	clearConcurrency int
}

// Option configures an Engine
type Option func(*Engine)

// WithMigrator sets the routine run when the first load finds no memos
func WithMigrator(m Migrator) Option {
	return func(e *Engine) { e.migrator = m }
}

// WithClearConcurrency overrides DefaultClearConcurrency
func WithClearConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.clearConcurrency = n
		}
	}
}

// NewEngine creates an empty engine
func NewEngine(service Service, logger *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		service:          service,
		logger:           logger,
		memos:            []domain.Memo{},
		category:         domain.CategoryAll,
		locks:            newKeyedMutex(),
		clearConcurrency: DefaultClearConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load fetches the full collection. When it is empty the migrator runs and,
// if it migrated anything, the collection is fetched again.
// On failure the collection is left empty and the error is kept for Err.
func (e *Engine) Load(ctx context.Context) error {
	memos, err := e.service.FetchMemos(ctx)
	if err == nil && len(memos) == 0 && e.migrator != nil {
		if e.migrator.Migrate(ctx) {
			memos, err = e.service.FetchMemos(ctx)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.logger.WithError(err).Error("メモの読み込みに失敗しました")
		e.memos = []domain.Memo{}
		e.loadErr = err
		return err
	}
	e.memos = cloneMemos(memos)
	e.loadErr = nil
	e.logger.WithField("count", len(memos)).Debug("メモを読み込みました")
	return nil
}

// Create stores a new memo and puts it at the head of the collection.
// Input validation is the caller's job.
func (e *Engine) Create(ctx context.Context, input domain.MemoInput) (*domain.Memo, error) {
	memo, err := e.service.CreateMemo(ctx, input)
	if err != nil {
		e.logger.WithError(err).Error("メモの作成に失敗しました")
		return nil, err
	}

	e.mu.Lock()
	e.memos = append([]domain.Memo{cloneMemo(*memo)}, e.memos...)
	e.mu.Unlock()

	return memo, nil
}

// Update replaces the editable fields of a memo, remotely first
func (e *Engine) Update(ctx context.Context, id string, input domain.MemoInput) (*domain.Memo, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	memo, err := e.service.UpdateMemo(ctx, id, input.Patch())
	if err != nil {
		e.logger.WithError(err).WithField("memo_id", id).Error("メモの更新に失敗しました")
		return nil, err
	}
	e.replace(*memo)
	return memo, nil
}

// UpdateSummary replaces only the summary of a memo
func (e *Engine) UpdateSummary(ctx context.Context, id string, summary string) (*domain.Memo, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	memo, err := e.service.UpdateSummary(ctx, id, summary)
	if err != nil {
		e.logger.WithError(err).WithField("memo_id", id).Error("要約の更新に失敗しました")
		return nil, err
	}
	e.replace(*memo)
	return memo, nil
}

// Delete removes a memo remotely, then from the collection
func (e *Engine) Delete(ctx context.Context, id string) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	if err := e.service.DeleteMemo(ctx, id); err != nil {
		e.logger.WithError(err).WithField("memo_id", id).Error("メモの削除に失敗しました")
		return err
	}

	e.mu.Lock()
	e.memos = removeIDs(e.memos, map[string]bool{id: true})
	e.mu.Unlock()
	return nil
}

// ClearAll deletes every loaded memo concurrently and waits for all of them.
// Memos whose delete succeeded leave the collection even when others fail;
// the failures are reported as a *ClearAllError. On full success the search
// query and category filter are reset.
func (e *Engine) ClearAll(ctx context.Context) error {
	e.mu.RLock()
	ids := make([]string, len(e.memos))
	for i, m := range e.memos {
		ids[i] = m.ID
	}
	e.mu.RUnlock()

	var (
		resultMu sync.Mutex
		deleted  = make(map[string]bool, len(ids))
		failures []DeleteFailure
	)

	var g errgroup.Group
	g.SetLimit(e.clearConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			unlock := e.locks.Lock(id)
			defer unlock()

			err := e.service.DeleteMemo(ctx, id)

			resultMu.Lock()
			defer resultMu.Unlock()
			if err != nil {
				failures = append(failures, DeleteFailure{ID: id, Err: err})
			} else {
				deleted[id] = true
			}
			// 個別の失敗で他の削除を止めない
			return nil
		})
	}
	_ = g.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.memos = removeIDs(e.memos, deleted)

	if len(failures) > 0 {
		err := &ClearAllError{Attempted: len(ids), Failures: failures}
		e.logger.WithError(err).WithField("failed_ids", err.FailedIDs()).Error("全メモの削除に一部失敗しました")
		return err
	}

	e.query = ""
	e.category = domain.CategoryAll
	e.logger.WithField("count", len(ids)).Info("全メモを削除しました")
	return nil
}

// Search sets the search query
func (e *Engine) Search(query string) {
	e.mu.Lock()
	e.query = query
	e.mu.Unlock()
}

// FilterByCategory sets the category filter; domain.CategoryAll disables it
func (e *Engine) FilterByCategory(category string) {
	e.mu.Lock()
	e.category = category
	e.mu.Unlock()
}

// FilteredMemos returns the collection narrowed by the category filter and the search query
func (e *Engine) FilteredMemos() []domain.Memo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneMemos(e.filteredLocked())
}

// Stats returns aggregate counts
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	byCategory := make(map[string]int)
	for _, m := range e.memos {
		byCategory[m.Category]++
	}
	return Stats{
		Total:      len(e.memos),
		Filtered:   len(e.filteredLocked()),
		ByCategory: byCategory,
	}
}

// Memos returns the full collection, newest first
func (e *Engine) Memos() []domain.Memo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneMemos(e.memos)
}

// GetMemoByID looks up a loaded memo
func (e *Engine) GetMemoByID(id string) (domain.Memo, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, m := range e.memos {
		if m.ID == id {
			return cloneMemo(m), true
		}
	}
	return domain.Memo{}, false
}

// SearchQuery returns the current search query
func (e *Engine) SearchQuery() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.query
}

// SelectedCategory returns the current category filter
func (e *Engine) SelectedCategory() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.category
}

// Err returns the error of the last Load, if any
func (e *Engine) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loadErr
}

func (e *Engine) filteredLocked() []domain.Memo {
	filtered := make([]domain.Memo, 0, len(e.memos))
	searching := strings.TrimSpace(e.query) != ""
	query := strings.ToLower(e.query)

	for _, m := range e.memos {
		if e.category != domain.CategoryAll && m.Category != e.category {
			continue
		}
		if searching && !matches(m, query) {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered
}

// replace swaps in the remote copy; ids not loaded are ignored
func (e *Engine) replace(memo domain.Memo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.memos {
		if e.memos[i].ID == memo.ID {
			e.memos[i] = cloneMemo(memo)
			return
		}
	}
}

// matches expects query already lower-cased
func matches(m domain.Memo, query string) bool {
	if strings.Contains(strings.ToLower(m.Title), query) ||
		strings.Contains(strings.ToLower(m.Content), query) {
		return true
	}
	for _, tag := range m.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func removeIDs(memos []domain.Memo, ids map[string]bool) []domain.Memo {
	kept := make([]domain.Memo, 0, len(memos))
	for _, m := range memos {
		if !ids[m.ID] {
			kept = append(kept, m)
		}
	}
	return kept
}

func cloneMemo(m domain.Memo) domain.Memo {
	m.Tags = append([]string{}, m.Tags...)
	if m.Summary != nil {
		s := *m.Summary
		m.Summary = &s
	}
	return m
}

func cloneMemos(memos []domain.Memo) []domain.Memo {
	out := make([]domain.Memo, len(memos))
	for i, m := range memos {
		out[i] = cloneMemo(m)
	}
	return out
}

// DeleteFailure is one failed delete of ClearAll
type DeleteFailure struct {
	ID  string
	Err error
}

// ClearAllError reports the deletes that failed during ClearAll
type ClearAllError struct {
	Attempted int
	Failures  []DeleteFailure
}

func (e *ClearAllError) Error() string {
	return fmt.Sprintf("failed to delete %d of %d memos", len(e.Failures), e.Attempted)
}

// FailedIDs lists the ids that are still present
func (e *ClearAllError) FailedIDs() []string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.ID
	}
	return ids
}

// Unwrap exposes every cause to errors.Is and errors.As
func (e *ClearAllError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
