package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Log アプリケーション全体で共有するロガー。InitLogger前でも使えるよう初期化しておく
var Log = logrus.New()

var (
	currentFile  *os.File
	logDirectory = "logs"
)

// InitLogger ロガーを初期化し、ファイル出力を設定
// dirが空の場合は標準エラー出力のみ
func InitLogger(level, dir string) error {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// JSON形式でログを出力
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	if dir == "" {
		Log.SetOutput(os.Stderr)
		return nil
	}
	logDirectory = dir

	if err := os.MkdirAll(logDirectory, 0755); err != nil {
		return fmt.Errorf("ログディレクトリの作成に失敗: %w", err)
	}

	if err := rotateLogFile(); err != nil {
		return fmt.Errorf("ログファイルの作成に失敗: %w", err)
	}

	// 標準出力とファイルの両方に出力
	Log.SetOutput(io.MultiWriter(os.Stdout, currentFile))

	Log.WithField("level", lvl.String()).Info("ロガーが初期化されました")
	return nil
}

// rotateLogFile 新しいログファイルを作成
func rotateLogFile() error {
	if currentFile != nil {
		currentFile.Close()
	}

	filename := fmt.Sprintf("app_%s.log", time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(logDirectory, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	currentFile = file
	return nil
}

// Directory ログディレクトリを取得
func Directory() string {
	return logDirectory
}

// GetCurrentLogFile 現在のログファイルパスを取得
func GetCurrentLogFile() string {
	if currentFile != nil {
		return currentFile.Name()
	}
	return ""
}

// CloseLogger ロガーを終了
func CloseLogger() {
	if currentFile != nil {
		Log.Info("ログファイルを閉じます")
		currentFile.Close()
		currentFile = nil
	}
}

// Discard テスト用にログ出力を捨てる
func Discard() {
	Log.SetOutput(io.Discard)
}

// WithFields フィールド付きログエントリを作成
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}

// WithField フィールド付きログエントリを作成（単一フィールド）
func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}
