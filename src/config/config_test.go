package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ai-memo-app/src/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// .envを拾わないように空ディレクトリで実行
	originalWd, _ := os.Getwd()
	defer os.Chdir(originalWd)
	require.NoError(t, os.Chdir(t.TempDir()))

	t.Run("デフォルト値でのconfig読み込み", func(t *testing.T) {
		cfg := config.LoadConfig()

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "logs", cfg.Log.Directory)
		assert.False(t, cfg.Log.UploadEnabled)
		assert.Equal(t, 24*time.Hour, cfg.Log.UploadMaxAge)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, config.StoreDriverPostgres, cfg.Store.Driver)
		assert.Equal(t, "data/local.db", cfg.Legacy.Path)
		assert.Equal(t, "gemini", cfg.AI.Provider)
		assert.Equal(t, 60*time.Second, cfg.AI.BreakerTimeout)
		assert.False(t, cfg.AuthEnabled())
		assert.False(t, cfg.SupabaseEnabled())
		assert.Empty(t, cfg.Server.AllowedOrigins)
	})

	t.Run("環境変数でのconfig上書き", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_UPLOAD_ENABLED", "true")
		t.Setenv("DB_PORT", "6543")
		t.Setenv("RECORD_STORE", "supabase")
		t.Setenv("SUPABASE_URL", "https://example.supabase.co")
		t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")
		t.Setenv("AI_PROVIDER", "openai")
		t.Setenv("AI_API_KEY", "sk-test")
		t.Setenv("AI_BREAKER_TIMEOUT", "10s")
		t.Setenv("AUTH_JWT_SECRET", "secret")
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://memo.example.com,")

		cfg := config.LoadConfig()

		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.UploadEnabled)
		assert.Equal(t, 6543, cfg.Database.Port)
		assert.True(t, cfg.SupabaseEnabled())
		assert.Equal(t, "openai", cfg.AI.Provider)
		assert.Equal(t, "sk-test", cfg.AI.APIKey)
		assert.Equal(t, 10*time.Second, cfg.AI.BreakerTimeout)
		assert.True(t, cfg.AuthEnabled())
		assert.Equal(t, []string{"http://localhost:3000", "https://memo.example.com"}, cfg.Server.AllowedOrigins)
	})

	t.Run("GEMINI_API_KEYへのフォールバック", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "gemini-key")

		cfg := config.LoadConfig()
		assert.Equal(t, "gemini-key", cfg.AI.APIKey)
	})

	t.Run("無効な値はデフォルトに戻る", func(t *testing.T) {
		t.Setenv("DB_PORT", "not-a-number")
		t.Setenv("LOG_UPLOAD_MAX_AGE", "forever")

		cfg := config.LoadConfig()
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 24*time.Hour, cfg.Log.UploadMaxAge)
	})
}

func TestLoadConfig_DotEnv(t *testing.T) {
	originalWd, _ := os.Getwd()
	defer os.Chdir(originalWd)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LEGACY_STORE_PATH=/tmp/legacy.db\n"), 0644))
	require.NoError(t, os.Chdir(dir))
	// godotenvは既存の環境変数を上書きしないので、テスト後に消しておく
	t.Cleanup(func() { os.Unsetenv("LEGACY_STORE_PATH") })

	cfg := config.LoadConfig()
	assert.Equal(t, "/tmp/legacy.db", cfg.Legacy.Path)
}
