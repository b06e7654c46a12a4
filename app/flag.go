package app

import "github.com/urfave/cli/v2"

var (
	minutesFlag = &cli.IntFlag{
		Name:    "minutes",
		Aliases: []string{"m"},
		Usage:   "Total session length in minutes (5-300)",
	}

	soundOnFlag = &cli.BoolFlag{
		Name:  "on",
		Usage: "Enable ambient sound during work sessions",
	}

	soundOffFlag = &cli.BoolFlag{
		Name:  "off",
		Usage: "Disable ambient sound",
	}

	volumeFlag = &cli.IntFlag{
		Name:    "volume",
		Aliases: []string{"v"},
		Usage:   "Sound volume (0-100)",
		Value:   -1,
	}
)
