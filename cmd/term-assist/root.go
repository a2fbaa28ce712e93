package main

import (
	"github.com/EliasOenal/term-cli/lib/cli"
)

func root(a *app) *cli.Command {
	return &cli.Command{
		Name: "term-assist",
		Description: `term-assist: the human side of term-cli sessions.

See which sessions need help, attach to them, do what the agent asked,
and hand the session back.

Keybindings while attached:
  Ctrl+B Enter   mark the request done and detach
  Ctrl+B d       detach without completing the request`,
		Subcommands: []*cli.Command{
			listCommand(a),
			attachCommand(a),
			doneCommand(a),
			detachCommand(a),
			startCommand(a),
			killCommand(a),
			lockCommand(a),
			unlockCommand(a),
		},
		Examples: []cli.Example{
			{Description: "See which sessions are asking for help",
				Command: "term-assist list"},
			{Description: "Attach to the session that has been waiting longest",
				Command: "term-assist attach"},
			{Description: "Answer the agent without attaching",
				Command: "term-assist done -s build -m 'password entered'"},
			{Description: "Keep the agent's hands off a session",
				Command: "term-assist lock -s build"},
		},
	}
}
