package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

const (
	BaseDirName     = ".config/rekindle"
	ConfigFileName  = "config.hcl"
	JournalFileName = "journal.db"
)

// Config is the global configuration instance, set once at startup and
// treated as immutable afterwards.
var Config *Configuration

// Configuration is the complete rekindle configuration. Components receive
// the sub-struct they need at construction time.
type Configuration struct {
	ConfigPath string // Directory containing config files
	Verbose    int    // Verbosity level
	LogFile    string // Optional append-only log file, relative to the working directory

	Run           RunConfig
	Watch         WatchConfig
	Markers       MarkerConfig
	Notifications NotificationConfig
	Journal       JournalConfig
}

// RunConfig holds settings for the restart loop.
type RunConfig struct {
	DelayBase            int  // Base delay between iterations, in seconds
	MaxConsecutiveErrors int  // Compile errors tolerated before the loop pauses for confirmation
	PTY                  bool // Run the child under a pty when stdout is a terminal
}

// WatchConfig holds settings for the port reaper.
type WatchConfig struct {
	PollTimeout  time.Duration // Idle watch cycles log a heartbeat after this long
	ErrorBackoff time.Duration // Sleep after a transient watcher error before retrying
	GracePeriod  time.Duration // Wait this long for a vanished watch root to reappear
}

// MarkerConfig holds the literal substrings scanned for in captured build
// output when the child's exit status is inconclusive.
type MarkerConfig struct {
	CompileError string
	BuildFailure string
}

// NotificationConfig holds desktop notification settings.
type NotificationConfig struct {
	Enabled bool
	Timeout int // Notification display timeout in milliseconds
}

// JournalConfig holds event journal settings.
type JournalConfig struct {
	Enabled bool
	Path    string // Defaults to <config-path>/journal.db when empty
}

// GetDefaultConfig returns a Configuration with all defaults applied.
func GetDefaultConfig() *Configuration {
	homeDir, _ := os.UserHomeDir()
	return &Configuration{
		ConfigPath: filepath.Join(homeDir, BaseDirName),
		Run: RunConfig{
			DelayBase:            2,
			MaxConsecutiveErrors: 3,
			PTY:                  true,
		},
		Watch: WatchConfig{
			PollTimeout:  60 * time.Second,
			ErrorBackoff: 2 * time.Second,
			GracePeriod:  10 * time.Second,
		},
		Markers: MarkerConfig{
			CompileError: "COMPILATION ERROR",
			BuildFailure: "BUILD FAILURE",
		},
		Notifications: NotificationConfig{
			Enabled: true,
			Timeout: 5000,
		},
	}
}

// JournalPath returns the resolved journal database path.
func (c *Configuration) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.ConfigPath, JournalFileName)
}

// InitializeConfig loads the configuration for the given command: defaults,
// then the HCL config file if one exists, then global flag overrides.
func InitializeConfig(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	configPath, err := flags.GetString("config-path")
	if err != nil {
		return fmt.Errorf("unable to determine config path: %w", err)
	}

	cfg := GetDefaultConfig()
	cfg.ConfigPath = configPath

	configFile := filepath.Join(configPath, ConfigFileName)
	if _, err := os.Stat(configFile); err == nil {
		loaded, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		loaded.ConfigPath = configPath
		cfg = loaded
	}

	// Flags beat the config file
	if verbose, err := flags.GetCount("verbose"); err == nil && verbose > 0 {
		cfg.Verbose = verbose
	}

	Config = cfg
	return nil
}
