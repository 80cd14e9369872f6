package helperd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"helperd/config"
	"helperd/daemon"
	"helperd/internal/crashlog"
	"helperd/lifecycle"
	"helperd/logging"
)

// Options identifies the application embedding the runtime.
type Options struct {
	// Name is the binary name, used for the command, the lock file, and log
	// attribution.
	Name string
	// Version is reported by --version.
	Version string
	// Description is the one-line help text.
	Description string
	// CrashLogPath overrides where fatal startup failures are recorded.
	// Empty uses a file named after the application in the temp directory.
	CrashLogPath string
}

// Run builds the command line for runner and executes it, returning the
// process exit code.
func Run(runner lifecycle.Runner, opts Options) int {
	cmd := NewCommand(runner, opts)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	return 0
}

// NewCommand returns the root cobra command wiring runner into the daemon
// runtime. Applications that need extra subcommands can add them before
// executing it.
func NewCommand(runner lifecycle.Runner, opts Options) *cobra.Command {
	var configPath string
	var foreground bool
	var watchConfig bool

	cmd := &cobra.Command{
		Use:           appName(opts),
		Short:         opts.Description,
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd.Context(), runner, opts, configPath, foreground, watchConfig)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in the foreground instead of daemonizing")
	cmd.Flags().BoolVar(&watchConfig, "watch-config", false, "Reload automatically when the configuration file changes")
	_ = cmd.MarkFlagRequired("config")

	cmd.AddCommand(newInitConfigCommand())
	return cmd
}

func runService(ctx context.Context, runner lifecycle.Runner, opts Options, configPath string, foreground, watchConfig bool) error {
	store, err := config.Load(configPath)
	if err != nil {
		return reportCrash(opts, nil, err)
	}

	// The parent process only relaunches itself detached and exits; the
	// child carries on below with the same arguments.
	if !foreground && !daemon.Detached() {
		return daemon.Detach()
	}

	interactive := foreground && isatty.IsTerminal(os.Stdout.Fd())
	logs, err := logging.NewSetup(config.MergeLogging(store.Snapshot().Logging), interactive)
	if err != nil {
		return reportCrash(opts, nil, err)
	}
	defer logs.Close()

	logger := logs.Named(appName(opts)).With(
		logging.String(logging.FieldRunID, uuid.NewString()),
	)

	if !foreground {
		dm := daemon.New(daemon.FromConfig(appName(opts), store.Snapshot().Daemon), logger)
		if err := dm.Start(); err != nil {
			return reportCrash(opts, logger, err)
		}
		defer dm.Stop()
	}

	ctrl := lifecycle.New(runner, store, logs, logger,
		lifecycle.WithInteractive(interactive))

	if watchConfig {
		watcher, werr := config.Watch(store, func() {
			ctrl.Router().Inject(lifecycle.SignalUsr1)
		})
		if werr != nil {
			logger.Warn("configuration watch unavailable", logging.Error(werr))
		} else {
			defer watcher.Close()
		}
	}

	logger.Info("starting",
		logging.String("version", opts.Version),
		logging.Bool("foreground", foreground),
		logging.String("config", store.Path()))

	if err := ctrl.Run(ctx); err != nil {
		return reportCrash(opts, logger, err)
	}
	logger.Info("stopped")
	return nil
}

// reportCrash records cause to the crash log before it propagates, so a
// daemonized process that dies during startup leaves a trace even when its
// logging never came up.
func reportCrash(opts Options, logger *slog.Logger, cause error) error {
	path, err := crashlog.Write(opts.CrashLogPath, appName(opts), cause)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to write crash log: %v\n", err)
		return cause
	}
	if logger != nil {
		logger.Error("fatal error", logging.Error(cause), logging.String("crash_log", path))
	} else {
		fmt.Fprintf(os.Stderr, "crash details written to %s\n", path)
	}
	return cause
}

func appName(opts Options) string {
	if strings.TrimSpace(opts.Name) != "" {
		return opts.Name
	}
	return filepath.Base(os.Args[0])
}

func newInitConfigCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				return fmt.Errorf("a destination path is required (use --path)")
			}
			expanded, err := config.ExpandPath(target)
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}

			if !overwrite {
				if _, err := os.Stat(expanded); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", expanded)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(expanded); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", expanded)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}
