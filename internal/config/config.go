package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the top-level cuality configuration.
type Config struct {
	Statistics Statistics `mapstructure:"statistics"`
	Analyze    Analyze    `mapstructure:"analyze"`
	IgnoreStat IgnoreStat `mapstructure:"ignore_stat"`
	GitHub     GitHub     `mapstructure:"github"`
	History    History    `mapstructure:"history"`
	Output     Output     `mapstructure:"output"`
}

// Statistics configures the branch latency analysis.
type Statistics struct {
	Trunk string `mapstructure:"trunk"`

	// Branch whose merges are measured; empty means Trunk.
	Branch string `mapstructure:"branch"`

	// Git is the git executable used to read history.
	Git string `mapstructure:"git"`
}

// Analyze configures the project tree scan.
type Analyze struct {
	Markers      []string `mapstructure:"markers"`
	MigrationDir string   `mapstructure:"migration_dir"`
}

// IgnoreStat configures the ignore-comment audit.
type IgnoreStat struct {
	Suffix           string `mapstructure:"suffix"`
	Output           string `mapstructure:"output"`
	RespectGitignore bool   `mapstructure:"respect_gitignore"`
}

// GitHub configures the pull request export.
type GitHub struct {
	APIURL    string  `mapstructure:"api_url"`
	Token     string  `mapstructure:"token"`
	PerPage   int     `mapstructure:"per_page"`
	RateLimit float64 `mapstructure:"rate_limit"`
	Output    string  `mapstructure:"output"`
}

// History configures the optional run-history database.
type History struct {
	Record bool   `mapstructure:"record"`
	DBPath string `mapstructure:"db_path"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied. A .env file in the working
// directory is loaded first; environment variables take precedence over the
// config file.
func Load(cfgFile string) (*Config, error) {
	// Missing .env is fine; existing variables are never overwritten.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("statistics.trunk", DefaultStatistics.Trunk)
	v.SetDefault("statistics.branch", DefaultStatistics.Branch)
	v.SetDefault("statistics.git", DefaultStatistics.Git)
	v.SetDefault("analyze.markers", DefaultAnalyze.Markers)
	v.SetDefault("analyze.migration_dir", DefaultAnalyze.MigrationDir)
	v.SetDefault("ignore_stat.suffix", DefaultIgnoreStat.Suffix)
	v.SetDefault("ignore_stat.output", DefaultIgnoreStat.Output)
	v.SetDefault("ignore_stat.respect_gitignore", DefaultIgnoreStat.RespectGitignore)
	v.SetDefault("github.api_url", DefaultGitHub.APIURL)
	v.SetDefault("github.token", DefaultGitHub.Token)
	v.SetDefault("github.per_page", DefaultGitHub.PerPage)
	v.SetDefault("github.rate_limit", DefaultGitHub.RateLimit)
	v.SetDefault("github.output", DefaultGitHub.Output)
	v.SetDefault("history.record", false)
	v.SetDefault("history.db_path", filepath.Join(DefaultConfigDir, DefaultDBName))
	v.SetDefault("output.color", DefaultOutput.Color)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github.token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, err
	}

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(expandPath(DefaultConfigDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.History.DBPath = expandPath(cfg.History.DBPath)
	return &cfg, nil
}
