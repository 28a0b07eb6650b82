// Package config provides configuration management for mbx mailboxes. A
// mailbox may carry an optional mbx.yaml in its shared directory; absent
// fields fall back to protocol defaults.
package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aki/mbx/internal/core/mailbox"
	"github.com/aki/mbx/internal/filemanager"
)

// Defaults for tunable protocol parameters. The file names, stop keywords,
// and publish ordering are fixed by the protocol and not configurable.
const (
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultClaimRetries   = 20
	DefaultClaimBackoff   = 50 * time.Millisecond
	DefaultMaxPayload     = 32 * 1024
	DefaultCommandTimeout = 60 * time.Second
	DefaultSendTimeout    = 5 * time.Second
	DefaultSendPoll       = 50 * time.Millisecond
	DefaultRcGrace        = 200 * time.Millisecond
	DefaultShell          = "sh"

	// Poll interval bounds; values outside are clamped.
	MinPollInterval = 10 * time.Millisecond
	MaxPollInterval = 2 * time.Second
)

// Config holds the tunable parameters of one mailbox.
type Config struct {
	// PollInterval is the guest's idle sleep between poll ticks.
	PollInterval time.Duration `yaml:"poll_interval"`
	// ClaimRetries bounds rename attempts when claiming a pending command.
	ClaimRetries int `yaml:"claim_retries"`
	// ClaimBackoff is the sleep between claim attempts.
	ClaimBackoff time.Duration `yaml:"claim_backoff"`
	// MaxPayload is the command payload ceiling in bytes.
	MaxPayload int `yaml:"max_payload"`
	// CommandTimeout bounds a single command execution; zero disables it.
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// Shell is the interpreter the guest hands scripts to.
	Shell string `yaml:"shell"`
	// SendTimeout is the host's default wait for a published output update.
	SendTimeout time.Duration `yaml:"send_timeout"`
	// SendPoll is the host's poll interval while waiting.
	SendPoll time.Duration `yaml:"send_poll"`
	// RcGrace is the host's bounded wait for the return code after output.
	RcGrace time.Duration `yaml:"rc_grace"`
}

// Default returns a Config populated with protocol defaults.
func Default() *Config {
	return &Config{
		PollInterval:   DefaultPollInterval,
		ClaimRetries:   DefaultClaimRetries,
		ClaimBackoff:   DefaultClaimBackoff,
		MaxPayload:     DefaultMaxPayload,
		CommandTimeout: DefaultCommandTimeout,
		Shell:          DefaultShell,
		SendTimeout:    DefaultSendTimeout,
		SendPoll:       DefaultSendPoll,
		RcGrace:        DefaultRcGrace,
	}
}

// Load reads the mailbox configuration from mbx.yaml under paths.Dir. A
// missing file yields the defaults; a present file has defaults applied to
// its zero fields and is then validated.
func Load(ctx context.Context, paths mailbox.Paths) (*Config, error) {
	m := filemanager.NewManager[Config]()
	cfg, err := m.Read(ctx, paths.Config)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to load mailbox config: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to mbx.yaml under paths.Dir.
func Save(ctx context.Context, paths mailbox.Paths, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	m := filemanager.NewManager[Config]()
	if err := m.Write(ctx, paths.Config, cfg); err != nil {
		return fmt.Errorf("failed to save mailbox config: %w", err)
	}
	return nil
}

// Validate checks cfg for values the protocol cannot operate with.
func Validate(cfg *Config) error {
	if cfg.ClaimRetries < 1 {
		return fmt.Errorf("claim_retries must be at least 1, got %d", cfg.ClaimRetries)
	}
	if cfg.MaxPayload < 1 {
		return fmt.Errorf("max_payload must be positive, got %d", cfg.MaxPayload)
	}
	if cfg.SendPoll <= 0 {
		return fmt.Errorf("send_poll must be positive, got %s", cfg.SendPoll)
	}
	if cfg.SendTimeout <= 0 {
		return fmt.Errorf("send_timeout must be positive, got %s", cfg.SendTimeout)
	}
	return nil
}

// applyDefaults fills zero fields and clamps the poll interval to its sane
// range.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.PollInterval < MinPollInterval {
		cfg.PollInterval = MinPollInterval
	}
	if cfg.PollInterval > MaxPollInterval {
		cfg.PollInterval = MaxPollInterval
	}
	if cfg.ClaimRetries == 0 {
		cfg.ClaimRetries = def.ClaimRetries
	}
	if cfg.ClaimBackoff == 0 {
		cfg.ClaimBackoff = def.ClaimBackoff
	}
	if cfg.MaxPayload == 0 {
		cfg.MaxPayload = def.MaxPayload
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = def.CommandTimeout
	}
	if cfg.Shell == "" {
		cfg.Shell = def.Shell
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	if cfg.SendPoll == 0 {
		cfg.SendPoll = def.SendPoll
	}
	if cfg.RcGrace == 0 {
		cfg.RcGrace = def.RcGrace
	}
}
