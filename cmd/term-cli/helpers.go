package main

import (
	"time"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/config"
	"github.com/EliasOenal/term-cli/lib/waitfor"
)

// requireSession validates the -s flag and the session's existence.
func (a *app) requireSession(name string) error {
	if name == "" {
		return cli.Usagef("--session is required")
	}
	if !a.server.HasSession(name) {
		return cli.InvalidInputf("Session '%s' does not exist", name)
	}
	return nil
}

// engine builds a wait engine for one session, with the config's poll
// interval, extra prompt markers, and prompt profiles applied. The
// foreground program is resolved so per-program profiles can match.
func (a *app) engine(sessionName string) *waitfor.Engine {
	engine := &waitfor.Engine{
		View:         &waitfor.TmuxView{Server: a.server, Session: sessionName},
		Clock:        a.clock,
		PollInterval: a.cfg.PollInterval(),
		ExtraMarkers: a.cfg.Prompt.ExtraMarkers,
	}
	if a.cfg.Prompt.ProfilesFile != "" {
		profiles, err := config.LoadProfiles(a.cfg.Prompt.ProfilesFile)
		if err != nil {
			a.log.Warn("ignoring prompt profiles", "file", a.cfg.Prompt.ProfilesFile, "error", err)
		} else {
			engine.Profiles = profiles
			if program, err := a.server.CurrentCommand(sessionName); err == nil {
				engine.Foreground = program
			}
		}
	}
	return engine
}

// seconds converts a float seconds flag value to a duration.
func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}
