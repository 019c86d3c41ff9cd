package core

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// HCL parsing structs. These mirror the on-disk config.hcl shape and are
// converted into the clean Configuration struct after decoding, so that
// absent blocks fall back to defaults instead of zero values.

type hclConfig struct {
	Verbose       int               `hcl:"verbose,optional"`
	LogFile       string            `hcl:"log_file,optional"`
	Run           *hclRun           `hcl:"run,block"`
	Watch         *hclWatch         `hcl:"watch,block"`
	Markers       *hclMarkers       `hcl:"markers,block"`
	Notifications *hclNotifications `hcl:"notifications,block"`
	Journal       *hclJournal       `hcl:"journal,block"`
}

type hclRun struct {
	DelayBase            int   `hcl:"delay_base,optional"`
	MaxConsecutiveErrors int   `hcl:"max_consecutive_errors,optional"`
	PTY                  *bool `hcl:"pty,optional"`
}

type hclWatch struct {
	PollTimeout  string `hcl:"poll_timeout,optional"`
	ErrorBackoff string `hcl:"error_backoff,optional"`
	GracePeriod  string `hcl:"grace_period,optional"`
}

type hclMarkers struct {
	CompileError string `hcl:"compile_error,optional"`
	BuildFailure string `hcl:"build_failure,optional"`
}

type hclNotifications struct {
	Enabled *bool `hcl:"enabled,optional"`
	Timeout int   `hcl:"timeout,optional"`
}

type hclJournal struct {
	Enabled *bool  `hcl:"enabled,optional"`
	Path    string `hcl:"path,optional"`
}

// LoadConfig loads an HCL configuration file and returns a Configuration
// with defaults applied for anything the file leaves out.
func LoadConfig(filename string) (*Configuration, error) {
	var hclCfg hclConfig

	if err := hclsimple.DecodeFile(filename, nil, &hclCfg); err != nil {
		return nil, fmt.Errorf("failed to parse HCL config: %w", err)
	}

	cfg := GetDefaultConfig()
	cfg.Verbose = hclCfg.Verbose
	cfg.LogFile = hclCfg.LogFile

	if r := hclCfg.Run; r != nil {
		if r.DelayBase > 0 {
			cfg.Run.DelayBase = r.DelayBase
		}
		if r.MaxConsecutiveErrors > 0 {
			cfg.Run.MaxConsecutiveErrors = r.MaxConsecutiveErrors
		}
		if r.PTY != nil {
			cfg.Run.PTY = *r.PTY
		}
	}

	if w := hclCfg.Watch; w != nil {
		if err := setDuration(&cfg.Watch.PollTimeout, w.PollTimeout, "watch.poll_timeout"); err != nil {
			return nil, err
		}
		if err := setDuration(&cfg.Watch.ErrorBackoff, w.ErrorBackoff, "watch.error_backoff"); err != nil {
			return nil, err
		}
		if err := setDuration(&cfg.Watch.GracePeriod, w.GracePeriod, "watch.grace_period"); err != nil {
			return nil, err
		}
	}

	if m := hclCfg.Markers; m != nil {
		if m.CompileError != "" {
			cfg.Markers.CompileError = m.CompileError
		}
		if m.BuildFailure != "" {
			cfg.Markers.BuildFailure = m.BuildFailure
		}
	}

	if n := hclCfg.Notifications; n != nil {
		if n.Enabled != nil {
			cfg.Notifications.Enabled = *n.Enabled
		}
		if n.Timeout > 0 {
			cfg.Notifications.Timeout = n.Timeout
		}
	}

	if j := hclCfg.Journal; j != nil {
		if j.Enabled != nil {
			cfg.Journal.Enabled = *j.Enabled
		}
		cfg.Journal.Path = j.Path
	}

	return cfg, nil
}

func setDuration(dst *time.Duration, value, key string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	*dst = d
	return nil
}
