package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"marketplace-backend/config"
)

// New builds the root logger from config and installs it as the zerolog global logger.
func New(cfg *config.Config) (zerolog.Logger, error) {
	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	var out io.Writer = os.Stdout
	if cfg.Log.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	zlog.Logger = l
	return l, nil
}

func parseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.InfoLevel, errors.Errorf("unknown log level: %s", level)
	}
	return l, nil
}
