package logger

import (
	"os"

	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stdout).With().Timestamp().Logger()

func Init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log = zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Info().Msg("logger initialized")
}

func withFields(e *zerolog.Event, fields map[string]any) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

func Info(msg string, fields map[string]any) {
	withFields(log.Info(), fields).Msg(msg)
}

func Warn(msg string, fields map[string]any) {
	withFields(log.Warn(), fields).Msg(msg)
}

func Error(msg string, fields map[string]any) {
	withFields(log.Error(), fields).Msg(msg)
}

func Fatal(msg string, fields map[string]any) {
	withFields(log.Fatal(), fields).Msg(msg)
}
