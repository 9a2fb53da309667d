package cmd

import (
	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/describe"
	"github.com/mj1618/desktop-narrator/internal/platform/scripted"
	"github.com/mj1618/desktop-narrator/internal/session"
)

// openSession loads the script at path and builds a session configured from
// the loaded config. Later options override the config.
func openSession(path string, opts ...session.Option) (*session.Session, error) {
	script, err := scripted.Load(path)
	if err != nil {
		return nil, err
	}
	l := logger.With(zap.String("script", script.Name))
	base := []session.Option{
		session.WithLogger(l),
		session.WithHistory(cfg.Output.History),
		session.WithPace(cfg.Pace()),
		session.WithStopOnError(cfg.Replay.StopOnError),
		session.WithDescriber(describe.New(describe.WithLanguage(cfg.LanguageTag()), describe.WithLogger(l))),
	}
	return session.New(script, append(base, opts...)...)
}
