package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New 開發環境輸出console格式, 其他環境輸出JSON
func New(service, environment string) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var l zerolog.Logger
	if environment == "dev" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Str("service", service).Logger()
	} else {
		l = zerolog.New(os.Stderr).
			With().Timestamp().Str("service", service).Logger()
	}
	return &l
}
