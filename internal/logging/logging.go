package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kirinyoku/staygo/internal/config"
)

// New constructs a zerolog logger from config. Empty fields mean JSON, info
// level and stdout. The returned closer is non-nil only for file output.
func New(cfg config.LoggingConfig, app config.AppConfig) (zerolog.Logger, io.Closer, error) {
	const op = "logging.New"

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}

	output := io.Writer(os.Stdout)
	var closer io.Closer

	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "", "stdout":
	case "stderr":
		output = os.Stderr
	case "file":
		if cfg.FilePath == "" {
			return zerolog.Nop(), nil, fmt.Errorf("%s: output=file requires a file path", op)
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("%s: open log file:%w", op, err)
		}
		output = file
		closer = file
	default:
		return zerolog.Nop(), nil, fmt.Errorf("%s: unknown output %q", op, cfg.Output)
	}

	if strings.ToLower(strings.TrimSpace(cfg.Format)) == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("app", app.Name).
		Str("env", app.Environment).
		Str("version", app.Version).
		Logger()

	return base, closer, nil
}
