// Package app assembles the focusguard command-line application.
package app

import (
	"github.com/urfave/cli/v2"
)

// Get retrieves the focusguard app instance.
func Get() *cli.App {
	return &cli.App{
		Name: "focusguard",
		Usage: `
		Focusguard is a focus-session timer that alternates work and break
		intervals within a chosen total duration, blocks distracting websites
		while work is in progress, and optionally plays ambient audio.`,
		UsageText:            "[COMMAND] [OPTIONS]",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the focusguard daemon",
				Action: runAction,
			},
			{
				Name:   "start",
				Usage:  "Start a focus session",
				Flags:  []cli.Flag{minutesFlag},
				Action: startAction,
			},
			{
				Name:   "pause",
				Usage:  "Pause the running session",
				Action: pauseAction,
			},
			{
				Name:   "resume",
				Usage:  "Resume a paused session",
				Action: resumeAction,
			},
			{
				Name:   "reset",
				Usage:  "Abandon the session and unblock all sites",
				Action: resetAction,
			},
			{
				Name:   "status",
				Usage:  "Print the status of the timer",
				Action: statusAction,
			},
			{
				Name:   "sound",
				Usage:  "Change the ambient sound preference",
				Flags:  []cli.Flag{soundOnFlag, soundOffFlag, volumeFlag},
				Action: soundAction,
			},
		},
		Action: statusAction,
	}
}
