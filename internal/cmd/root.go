package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/motiontrack/internal/buildinfo"
	"github.com/offlinefirst/motiontrack/pkg/config"
	"github.com/offlinefirst/motiontrack/pkg/logging"
)

// AppContext exposes lazily initialised configuration and logging facilities.
type AppContext struct {
	Config config.Config
	Logger *slog.Logger
}

// RootCommand wires the cobra command tree to shared configuration.
type RootCommand struct {
	root       *cobra.Command
	stdout     io.Writer
	stderr     io.Writer
	appCtx     *AppContext
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand constructs the CLI with its subcommands and global flags.
func NewRootCommand() *RootCommand {
	rc := &RootCommand{stdout: os.Stdout, stderr: os.Stderr}

	root := &cobra.Command{
		Use:           "motiontrack",
		Short:         "Screen, audio and pointer recorder with spring-smoothed cursor replay",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rc.configPath, "config", "", "Path to config file (default: ./config.yaml if present)")
	root.PersistentFlags().StringVar(&rc.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&rc.logFormat, "log-format", "", "Override log output format (json, console)")

	root.AddCommand(newRecordCmd(rc))
	root.AddCommand(newSmoothCmd(rc))
	root.AddCommand(newSessionsCmd(rc))
	root.AddCommand(newDoctorCmd(rc))
	root.AddCommand(newVersionCmd(rc))

	rc.root = root
	return rc
}

// SetOutput redirects command output, mainly for tests.
func (rc *RootCommand) SetOutput(stdout, stderr io.Writer) {
	rc.stdout = stdout
	rc.stderr = stderr
}

// Execute parses args and runs the selected subcommand.
func (rc *RootCommand) Execute(args []string) error {
	rc.root.SetArgs(args)
	rc.root.SetOut(rc.stdout)
	rc.root.SetErr(rc.stderr)
	return rc.root.Execute()
}

func (rc *RootCommand) ensureAppContext() (*AppContext, error) {
	if rc.appCtx != nil {
		return rc.appCtx, nil
	}

	cfg, err := config.Load(rc.configPath)
	if err != nil {
		return nil, err
	}

	if rc.logLevel != "" {
		lvl, err := config.NormalizeLogLevel(rc.logLevel)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Level = lvl
	}
	if rc.logFormat != "" {
		format, err := config.NormalizeFormat(rc.logFormat)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Format = format
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: rc.stderr,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded", "source", cfg.Source, "sessions_dir", cfg.Paths.SessionsDir, "index", cfg.IndexFile())

	rc.appCtx = &AppContext{Config: cfg, Logger: logger}
	return rc.appCtx, nil
}

func versionString() string {
	return fmt.Sprintf("%s (go%s/%s)", buildinfo.Version(), runtimeVersion(), runtimeGOOS())
}

// runtimeVersion is extracted for testability.
var runtimeVersion = func() string { return runtime.Version() }

// runtimeGOOS is extracted for testability.
var runtimeGOOS = func() string { return runtime.GOOS }
