package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/engine"
	"github.com/gistmirror/gistmirror/internal/source"
	"github.com/gistmirror/gistmirror/internal/store"
	"github.com/gistmirror/gistmirror/internal/target"
	"github.com/gistmirror/gistmirror/internal/target/bitbucket"
	"github.com/gistmirror/gistmirror/internal/target/gitea"
	"github.com/gistmirror/gistmirror/internal/target/gitlab"
	"github.com/gistmirror/gistmirror/internal/target/keybase"
	"github.com/gistmirror/gistmirror/internal/transport"
)

var (
	// Global flags
	cfgPath   string
	dryRun    bool
	verbose   bool
	quiet     bool
	logFormat string

	globalCfg *config.Config
	logger    *slog.Logger

	// Global components
	globalStore  *store.Store
	globalSource *source.Client
	globalHTTP   *transport.Client
)

// initializeComponents builds the shared transport, source client, and
// history store after the config is loaded.
func initializeComponents() error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	globalHTTP = transport.NewClient(globalCfg.Sync.RequestTimeout(), logger)
	globalSource = source.New(
		globalCfg.Source,
		globalCfg.Sync,
		globalHTTP,
		transport.NewThrottle(globalCfg.Sync.RateLimitInterval()),
		logger,
	)

	if globalCfg.History.Enabled {
		dbPath := globalCfg.History.DBPath
		if dbPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolving history path: %w", err)
			}
			dbPath = filepath.Join(home, ".config", "gistmirror", "history.db")
		}
		st, err := store.New(dbPath, logger)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		globalStore = st
	}

	return nil
}

// buildAdapter constructs the adapter for one configured target. In
// dry-run mode every adapter is wrapped so writes are logged, not sent.
func buildAdapter(tcfg config.TargetConfig) (target.Adapter, error) {
	var adapter target.Adapter
	switch tcfg.Provider {
	case config.ProviderGitLab:
		a, err := gitlab.New(tcfg, logger)
		if err != nil {
			return nil, err
		}
		adapter = a
	case config.ProviderGitea, config.ProviderCodeberg, config.ProviderForgejo:
		adapter = gitea.New(tcfg, globalHTTP, logger)
	case config.ProviderBitbucket:
		adapter = bitbucket.New(tcfg, globalHTTP, logger)
	case config.ProviderKeybase:
		adapter = keybase.New(tcfg, logger)
	default:
		return nil, fmt.Errorf("target %q: unknown provider %q", tcfg.Name, tcfg.Provider)
	}

	if dryRun {
		adapter = target.NewDryRun(adapter, logger)
	}
	return adapter, nil
}

// buildTargets constructs adapters for all enabled targets.
func buildTargets() ([]engine.Target, error) {
	var targets []engine.Target
	for _, tcfg := range globalCfg.EnabledTargets() {
		adapter, err := buildAdapter(tcfg)
		if err != nil {
			return nil, err
		}
		targets = append(targets, engine.Target{Config: tcfg, Adapter: adapter})
	}
	return targets, nil
}

// closeStore closes the history store connection.
func closeStore() {
	if globalStore != nil {
		if err := globalStore.Close(); err != nil {
			logger.Error("failed to close history store", "error", err)
		}
	}
}

// shouldSkipComponentInit checks if a command should skip component initialization.
func shouldSkipComponentInit(cmdName string) bool {
	skipInitCmds := map[string]bool{
		"help":    true,
		"version": true,
	}
	return skipInitCmds[cmdName]
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gistmirror",
		Short: "Mirror GitHub gists to alternative snippet platforms",
		Long: `gistmirror performs one-way synchronization of GitHub gists to one or
more destination platforms. Supported destinations are GitLab snippets,
Gitea/Forgejo/Codeberg repositories, Bitbucket snippets, and Keybase
filesystem folders.

Each run lists the source gists, applies the configured filters, and
creates or updates the corresponding object on every enabled target.
Running without a subcommand performs a sync.`,
		Example: `  gistmirror --config gistmirror.yaml
  gistmirror sync --dry-run
  gistmirror list
  gistmirror validate
  gistmirror status`,
		Version: "0.1.0",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()

			if shouldSkipComponentInit(cmd.Name()) {
				return nil
			}

			// Token values may come from a local .env file.
			_ = godotenv.Load(".env")

			if cfgPath == "" {
				var err error
				cfgPath, err = config.FindConfigFile()
				if err != nil {
					return fmt.Errorf("no config file found: %w", err)
				}
			}

			var err error
			globalCfg, err = config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger.Debug("config loaded", "path", cfgPath, "targets", len(globalCfg.Targets))

			return initializeComponents()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeStore()
		},
		RunE: syncRun, // bare invocation syncs
	}

	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "log write operations without performing them")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")

	cmd.AddCommand(
		newSyncCmd(),
		newListCmd(),
		newTargetsCmd(),
		newValidateCmd(),
		newStatusCmd(),
	)

	return cmd
}

// setupLogging initializes the slog logger based on flags. Quiet wins
// over verbose when both are set.
func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}
