// Package migration copies memos from the legacy local store into the remote record store.
package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-memo-app/src/domain"

	"github.com/sirupsen/logrus"
)

// Target is the remote side of the migration
type Target interface {
	CountMemos(ctx context.Context) (int, error)
	CreateMemo(ctx context.Context, input domain.MemoInput) (*domain.Memo, error)
}

// Source is the legacy local store
type Source interface {
	GetMemos(ctx context.Context) ([]domain.Memo, error)
}

// Snapshotter archives the migrated legacy list
type Snapshotter interface {
	UploadSnapshot(ctx context.Context, key string, data []byte) error
}

// Report describes one migration run
type Report struct {
	Migrated  bool
	Skipped   string
	Total     int
	Succeeded int
	Failed    int
	// FailedTitles lists the legacy memos that could not be copied, in store order
	FailedTitles []string
}

// Option configures a Migrator
type Option func(*Migrator)

// WithProgress registers a callback invoked after each memo is attempted
func WithProgress(fn func(done, total int)) Option {
	return func(m *Migrator) { m.progress = fn }
}

// WithSnapshot archives the legacy list after a run that attempted every memo
func WithSnapshot(s Snapshotter) Option {
	return func(m *Migrator) { m.snapshot = s }
}

// Migrator performs the one-shot local to remote copy
type Migrator struct {
	target   Target
	source   Source
	logger   *logrus.Logger
	progress func(done, total int)
	snapshot Snapshotter
	now      func() time.Time
}

// NewMigrator creates a new Migrator
func NewMigrator(target Target, source Source, logger *logrus.Logger, opts ...Option) *Migrator {
	m := &Migrator{
		target: target,
		source: source,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Migrate reports true only when it attempted to copy every legacy memo.
// It never returns an error: failures are logged and reported as false.
func (m *Migrator) Migrate(ctx context.Context) bool {
	return m.Run(ctx).Migrated
}

// Run performs the migration and returns the detailed report
func (m *Migrator) Run(ctx context.Context) Report {
	count, err := m.target.CountMemos(ctx)
	if err != nil {
		m.logger.WithError(err).Error("リモートのメモ件数の確認に失敗しました")
		return Report{Skipped: "remote count failed"}
	}
	if count > 0 {
		m.logger.WithField("remote_count", count).Info("リモートに既にデータがあるため移行をスキップします")
		return Report{Skipped: "remote store is not empty"}
	}

	memos, err := m.source.GetMemos(ctx)
	if err != nil {
		m.logger.WithError(err).Error("ローカルストアの読み込みに失敗しました")
		return Report{Skipped: "legacy read failed"}
	}
	if len(memos) == 0 {
		m.logger.Info("移行するローカルデータがありません")
		return Report{Skipped: "legacy store is empty"}
	}

	m.logger.WithField("count", len(memos)).Info("ローカルのメモをリモートへ移行します")

	report := Report{Total: len(memos)}
	for i, memo := range memos {
		// id・日時・要約は引き継がない
		_, err := m.target.CreateMemo(ctx, domain.MemoInput{
			Title:    memo.Title,
			Content:  memo.Content,
			Category: memo.Category,
			Tags:     memo.Tags,
		})
		if err != nil {
			report.Failed++
			report.FailedTitles = append(report.FailedTitles, memo.Title)
			m.logger.WithError(err).WithField("title", memo.Title).Warn("メモの移行に失敗しました")
		} else {
			report.Succeeded++
		}
		if m.progress != nil {
			m.progress(i+1, len(memos))
		}
	}

	report.Migrated = true
	m.logger.WithFields(logrus.Fields{
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
	}).Info("移行が完了しました")

	if m.snapshot != nil {
		m.archive(ctx, memos)
	}
	return report
}

// archive ローカルデータは削除せず、S3にも控えを残す
func (m *Migrator) archive(ctx context.Context, memos []domain.Memo) {
	data, err := json.Marshal(memos)
	if err != nil {
		m.logger.WithError(err).Warn("スナップショットの作成に失敗しました")
		return
	}
	key := fmt.Sprintf("snapshots/legacy-memos_%s.json", m.now().UTC().Format("2006-01-02_15-04-05"))
	if err := m.snapshot.UploadSnapshot(ctx, key, data); err != nil {
		m.logger.WithError(err).WithField("key", key).Warn("スナップショットのアップロードに失敗しました")
		return
	}
	m.logger.WithField("key", key).Info("スナップショットをアップロードしました")
}
