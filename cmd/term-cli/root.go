package main

import (
	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/session"
)

func root(a *app) *cli.Command {
	return &cli.Command{
		Name: "term-cli",
		Description: `term-cli: tmux session automation for agents.

Create detached sessions, drive them with input, watch them with
capture and wait engines, hand off to a human with request, and move
files through the terminal channel with upload/download.

Short forms work for every command: any unambiguous prefix runs it
(e.g. 'term-cli lis' for list).`,
		Subcommands: []*cli.Command{
			startCommand(a),
			killCommand(a),
			listCommand(a),
			statusCommand(a),
			runCommand(a),
			sendTextCommand(a),
			sendKeyCommand(a),
			sendStdinCommand(a),
			sendMouseCommand(a),
			captureCommand(a),
			scrollCommand(a),
			resizeCommand(a),
			pipeLogCommand(a),
			unpipeCommand(a),
			pipeSinkCommand(a),
			waitCommand(a),
			waitIdleCommand(a),
			waitForCommand(a),
			requestCommand(a),
			requestStatusCommand(a),
			requestCancelCommand(a),
			requestWaitCommand(a),
			uploadCommand(a),
			downloadCommand(a),
		},
		Examples: []cli.Example{
			{Description: "Create a session and run a build in it",
				Command: "term-cli start -s build && term-cli run -s build 'make -j' -w -t 600"},
			{Description: "See what a session is doing",
				Command: "term-cli status -s build"},
			{Description: "Wait until the shell is back at a prompt",
				Command: "term-cli wait -s build -t 30"},
			{Description: "Ask a human for help and wait for their answer",
				Command: "term-cli request -s build -m 'need sudo password' && term-cli request-wait -s build -t 300"},
			{Description: "Copy a file into an SSH session",
				Command: "term-cli upload -s remote ./patch.diff /tmp/patch.diff"},
		},
	}
}

func (a *app) manager() *session.Manager {
	return &session.Manager{Server: a.server, Clock: a.clock}
}
