package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/staygo/internal/config"
)

func TestNew(t *testing.T) {
	app := config.AppConfig{Name: "staygo", Environment: "test", Version: "1.0.0"}

	t.Run("DefaultStdout", func(t *testing.T) {
		log, closer, err := New(config.LoggingConfig{}, app)
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
	})

	t.Run("Console", func(t *testing.T) {
		log, closer, err := New(config.LoggingConfig{Level: "debug", Output: "stderr", Format: "console"}, app)
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "staygo.log")
		log, closer, err := New(config.LoggingConfig{Level: "warn", Output: "file", FilePath: path}, app)
		require.NoError(t, err)
		require.NotNil(t, closer)

		log.Warn().Str("resource_id", "room-101").Msg("hold rejected")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		line := string(data)
		assert.True(t, strings.Contains(line, `"app":"staygo"`))
		assert.True(t, strings.Contains(line, `"resource_id":"room-101"`))
	})

	t.Run("FileMissingPath", func(t *testing.T) {
		_, _, err := New(config.LoggingConfig{Output: "file"}, app)
		assert.Error(t, err)
	})

	t.Run("InvalidLevelFallsBackToInfo", func(t *testing.T) {
		log, _, err := New(config.LoggingConfig{Level: "loud"}, app)
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
	})
}
