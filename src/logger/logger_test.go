package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"ai-memo-app/src/logger"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	t.Run("ファイル出力付きで初期化", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "logs")
		require.NoError(t, logger.InitLogger("debug", dir))
		defer logger.CloseLogger()

		assert.Equal(t, logrus.DebugLevel, logger.Log.GetLevel())
		assert.Equal(t, dir, logger.Directory())

		path := logger.GetCurrentLogFile()
		require.NotEmpty(t, path)
		_, err := os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("不正なレベルはinfoになる", func(t *testing.T) {
		require.NoError(t, logger.InitLogger("verbose", ""))
		assert.Equal(t, logrus.InfoLevel, logger.Log.GetLevel())
		assert.Empty(t, logger.GetCurrentLogFile())
	})
}
