package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log writes notifications to the process log at the configured level.
type Log struct {
	level zerolog.Level
}

func NewLog(level zerolog.Level) *Log {
	return &Log{level: level}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Send(_ context.Context, title, body string) error {
	log.WithLevel(l.level).Str("title", title).Msg(body)
	return nil
}
