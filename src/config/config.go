package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config アプリケーション設定
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	S3       S3Config
	Database DatabaseConfig
	Store    StoreConfig
	Supabase SupabaseConfig
	Legacy   LegacyConfig
	AI       AIConfig
	Auth     AuthConfig
}

// ServerConfig サーバー設定
type ServerConfig struct {
	Port           string
	BaseURL        string   // CLIが接続するAPIサーバー
	AllowedOrigins []string // 空なら全オリジンを許可
}

// LogConfig ログ設定
type LogConfig struct {
	Level          string
	Directory      string
	UploadEnabled  bool
	UploadMaxAge   time.Duration
	UploadInterval time.Duration
}

// S3Config S3設定
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	UseSSL          bool
	SnapshotEnabled bool
}

// DatabaseConfig PostgreSQL設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// StoreConfig レコードストアの選択
type StoreConfig struct {
	Driver string // "postgres" または "supabase"
}

// SupabaseConfig Supabase設定
type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
}

// LegacyConfig 旧ローカルストア設定
type LegacyConfig struct {
	Path string
}

// AIConfig AIプロバイダー設定
type AIConfig struct {
	Provider       string
	APIKey         string
	Model          string
	BreakerTimeout time.Duration
	BreakerMinReqs int
}

// AuthConfig 認証設定（Secretが空なら認証無効）
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSupabase = "supabase"
)

// LoadConfig .envと環境変数から設定を読み込み
func LoadConfig() *Config {
	// .envは任意（存在しなければOSの環境変数のみ）
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			BaseURL:        getEnv("API_BASE_URL", "http://localhost:8080"),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:          getEnv("LOG_LEVEL", "info"),
			Directory:      getEnv("LOG_DIRECTORY", "logs"),
			UploadEnabled:  getBoolEnv("LOG_UPLOAD_ENABLED", false),
			UploadMaxAge:   getDurationEnv("LOG_UPLOAD_MAX_AGE", 24*time.Hour),
			UploadInterval: getDurationEnv("LOG_UPLOAD_INTERVAL", 1*time.Hour),
		},
		S3: S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", "http://localhost:9000"), // MinIO用のデフォルト
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", "ai-memo-app"),
			UseSSL:          getBoolEnv("S3_USE_SSL", false),
			SnapshotEnabled: getBoolEnv("S3_SNAPSHOT_ENABLED", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getIntEnv("DB_PORT", 5432),
			User:     getEnv("DB_USER", "memo_user"),
			Password: getEnv("DB_PASSWORD", "memo_password"),
			Name:     getEnv("DB_NAME", "memo_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Store: StoreConfig{
			Driver: getEnv("RECORD_STORE", StoreDriverPostgres),
		},
		Supabase: SupabaseConfig{
			URL:            getEnv("SUPABASE_URL", ""),
			ServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		},
		Legacy: LegacyConfig{
			Path: getEnv("LEGACY_STORE_PATH", "data/local.db"),
		},
		AI: AIConfig{
			Provider:       getEnv("AI_PROVIDER", "gemini"),
			APIKey:         getEnv("AI_API_KEY", os.Getenv("GEMINI_API_KEY")),
			Model:          getEnv("AI_MODEL", ""),
			BreakerTimeout: getDurationEnv("AI_BREAKER_TIMEOUT", 60*time.Second),
			BreakerMinReqs: getIntEnv("AI_BREAKER_MIN_REQUESTS", 5),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			TokenTTL:  getDurationEnv("AUTH_TOKEN_TTL", 30*24*time.Hour),
		},
	}
}

// SupabaseEnabled Supabaseがレコードストアとして設定されているか
func (c *Config) SupabaseEnabled() bool {
	return c.Store.Driver == StoreDriverSupabase && c.Supabase.URL != "" && c.Supabase.ServiceRoleKey != ""
}

// AuthEnabled 認証が有効か
func (c *Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}

// getEnv 環境変数を取得（デフォルト値付き）
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getListEnv カンマ区切りの環境変数をスライスで取得
func getListEnv(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// getBoolEnv 環境変数をboolで取得
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getIntEnv 環境変数をintで取得
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv 環境変数をtime.Durationで取得
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
