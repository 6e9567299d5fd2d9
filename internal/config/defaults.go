// Package config provides configuration loading and defaults for cuality.
package config

// DefaultConfigDir is the default location for cuality configuration.
const DefaultConfigDir = "~/.config/cuality"

// DefaultDBName is the filename for the run-history database.
const DefaultDBName = "cuality.db"

// EnvPrefix prefixes environment variables that override config keys,
// e.g. CUALITY_STATISTICS_TRUNK.
const EnvPrefix = "CUALITY"

// DefaultStatistics holds the default latency analysis settings.
var DefaultStatistics = Statistics{
	Trunk: "main",
	Git:   "git",
}

// DefaultAnalyze holds the default project scan settings.
var DefaultAnalyze = Analyze{
	Markers:      []string{"setup.py"},
	MigrationDir: "migration",
}

// DefaultIgnoreStat holds the default ignore-comment audit settings.
var DefaultIgnoreStat = IgnoreStat{
	Suffix: ".py",
	Output: "ignore_stat.csv",
}

// DefaultGitHub holds the default pull request export settings.
var DefaultGitHub = GitHub{
	PerPage:   100,
	RateLimit: 5,
	Output:    "pull_requests.csv",
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
}
