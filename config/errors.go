package config

import "errors"

var (
	errInitFailed = errors.New(
		"unable to initialise focusguard settings from the configuration file",
	)
	errNoBlockDomains = errors.New(
		"block.domains must list at least one domain",
	)
	errInvalidConfig = errors.New("invalid configuration")
)
