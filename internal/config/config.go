// Package config loads the bot configuration from a YAML file with
// environment-variable overrides for secrets and deployment paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the file nor the environment sets a value.
const (
	DefaultTickInterval  = 10 * time.Second
	DefaultArchivedGroup = "Archived"
	DefaultJoinEmoji     = "✋"
	DefaultCTFTimeURL    = "https://ctftime.org"
)

// Config is the full runtime configuration for the bot.
type Config struct {
	// Token is the chat-platform bot token. Never stored in the config file.
	Token string `yaml:"-" env:"CTFCORD_TOKEN"`

	// DBPath is the path to the sqlite database file.
	DBPath string `yaml:"db_path" env:"CTFCORD_DB_PATH"`

	// Guilds is the allowlist of guild IDs the bot operates in.
	Guilds []string `yaml:"guilds" env:"CTFCORD_GUILDS" envSeparator:","`

	// DigestChannel optionally receives the weekly upcoming-events digest.
	DigestChannel string `yaml:"digest_channel" env:"CTFCORD_DIGEST_CHANNEL"`

	// TickInterval is the period of the lifecycle sweep. In the file it
	// is written in Go duration syntax ("30s", "1m") and parsed by hand,
	// since the YAML decoder only accepts integer nanoseconds here.
	TickInterval time.Duration `yaml:"-" env:"CTFCORD_TICK_INTERVAL"`

	// ArchivedGroup is the name of the category archived CTF channels move to.
	ArchivedGroup string `yaml:"archived_group"`

	// JoinEmoji is the reaction emoji that drives the join/leave protocol.
	JoinEmoji string `yaml:"join_emoji"`

	// CTFTimeURL is the base URL of the event-metadata provider.
	CTFTimeURL string `yaml:"ctftime_url" env:"CTFCORD_CTFTIME_URL"`
}

// Load reads the config file at path (if it exists), applies environment
// overrides, and fills in defaults. A missing file is not an error; a
// malformed one is.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		var aux struct {
			TickInterval string `yaml:"tick_interval"`
		}
		if err := yaml.Unmarshal(data, &aux); err == nil && aux.TickInterval != "" {
			d, err := time.ParseDuration(aux.TickInterval)
			if err != nil {
				return nil, fmt.Errorf("invalid tick_interval: %w", err)
			}
			cfg.TickInterval = d
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.DBPath = filepath.Join(home, ".ctfcord", "ctfcord.db")
		} else {
			c.DBPath = "ctfcord.db"
		}
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.ArchivedGroup == "" {
		c.ArchivedGroup = DefaultArchivedGroup
	}
	if c.JoinEmoji == "" {
		c.JoinEmoji = DefaultJoinEmoji
	}
	if c.CTFTimeURL == "" {
		c.CTFTimeURL = DefaultCTFTimeURL
	}
}

// AllowsGuild reports whether the guild is in the configured allowlist.
// An empty allowlist allows every guild.
func (c *Config) AllowsGuild(id string) bool {
	if len(c.Guilds) == 0 {
		return true
	}
	for _, g := range c.Guilds {
		if g == id {
			return true
		}
	}
	return false
}
