package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"
)

const source = "ai-memo-app"

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	UseSSL          bool
}

// Uploader writes rotated log files and legacy snapshots to an S3 compatible bucket
type Uploader struct {
	client s3iface.S3API
	bucket string
	logger *logrus.Logger
	now    func() time.Time
}

// NewUploader S3アップローダーを作成
func NewUploader(config *S3Config, logger *logrus.Logger) (*Uploader, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("S3バケットが設定されていません")
	}

	awsConfig := &aws.Config{
		Region:           aws.String(config.Region),
		Credentials:      credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, ""),
		DisableSSL:       aws.Bool(!config.UseSSL),
		S3ForcePathStyle: aws.Bool(true), // MinIOなどのS3互換ストレージ用
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("AWSセッションの作成に失敗: %w", err)
	}

	return NewUploaderWithClient(s3.New(sess), config.Bucket, logger), nil
}

// NewUploaderWithClient wraps an existing S3 client
func NewUploaderWithClient(client s3iface.S3API, bucket string, logger *logrus.Logger) *Uploader {
	return &Uploader{
		client: client,
		bucket: bucket,
		logger: logger,
		now:    time.Now,
	}
}

// UploadSnapshot stores a JSON document under key
func (u *Uploader) UploadSnapshot(ctx context.Context, key string, data []byte) error {
	return u.put(ctx, key, bytes.NewReader(data), "application/json")
}

// UploadLogFile ログファイルをS3にアップロード
func (u *Uploader) UploadLogFile(ctx context.Context, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}

	key := "logs/" + filepath.Base(filePath)
	if err := u.put(ctx, key, bytes.NewReader(data), "text/plain"); err != nil {
		return err
	}

	u.logger.WithFields(logrus.Fields{
		"file":   filepath.Base(filePath),
		"bucket": u.bucket,
		"key":    key,
	}).Info("ログファイルをS3にアップロードしました")
	return nil
}

// UploadOldLogs uploads and removes log files older than maxAge.
// skip names the file currently being written, which is never touched.
// It returns the number of files uploaded.
func (u *Uploader) UploadOldLogs(ctx context.Context, logDir string, maxAge time.Duration, skip string) (int, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return 0, fmt.Errorf("ログディレクトリの読み取りに失敗: %w", err)
	}

	cutoff := u.now().Add(-maxAge)
	uploaded := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		filePath := filepath.Join(logDir, entry.Name())
		if skip != "" && filepath.Clean(filePath) == filepath.Clean(skip) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ファイル情報の取得に失敗")
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := u.UploadLogFile(ctx, filePath); err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ログファイルのアップロードに失敗")
			continue
		}
		uploaded++

		if err := os.Remove(filePath); err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ローカルファイルの削除に失敗")
		}
	}

	return uploaded, nil
}

// StartPeriodicUpload runs UploadOldLogs every interval until ctx is cancelled
func (u *Uploader) StartPeriodicUpload(ctx context.Context, logDir string, interval, maxAge time.Duration, current func() string) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := u.UploadOldLogs(ctx, logDir, maxAge, current()); err != nil {
					u.logger.WithError(err).Error("定期的なログアップロードに失敗")
				}
			}
		}
	}()

	u.logger.WithFields(logrus.Fields{
		"interval": interval,
		"maxAge":   maxAge,
	}).Info("定期的なログアップロードを開始しました")
}

func (u *Uploader) put(ctx context.Context, key string, body *bytes.Reader, contentType string) error {
	_, err := u.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata: map[string]*string{
			"upload-time": aws.String(u.now().Format(time.RFC3339)),
			"source":      aws.String(source),
		},
	})
	if err != nil {
		return fmt.Errorf("S3アップロードに失敗 (%s): %w", key, err)
	}
	return nil
}
