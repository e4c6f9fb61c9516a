// Package notify はユーザー向けのトースト通知面。
// fire-and-forgetで、表示できなくても処理は止めない。
package notify

import "github.com/rs/zerolog"

type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

// LogNotifier はzerologに流す実装（CLIはこれで十分）。
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(msg string) { n.logger.Info().Str("kind", "success").Msg(msg) }
func (n *LogNotifier) Error(msg string)   { n.logger.Error().Str("kind", "error").Msg(msg) }
func (n *LogNotifier) Info(msg string)    { n.logger.Info().Str("kind", "info").Msg(msg) }

// NullNotifier は何もしない実装。
type NullNotifier struct{}

func (NullNotifier) Success(msg string) {}
func (NullNotifier) Error(msg string)   {}
func (NullNotifier) Info(msg string)    {}
