package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/mattn/go-isatty"

	"github.com/spf13/cobra"

	"github.com/ritoshark/flint/cmd"
	"github.com/ritoshark/flint/pkg/configuration"
	"github.com/ritoshark/flint/pkg/flint"
	"github.com/ritoshark/flint/pkg/hashes"
	"github.com/ritoshark/flint/pkg/logging"
)

func rootMain(command *cobra.Command, arguments []string) {
	// Print version information, if requested.
	if rootConfiguration.version {
		fmt.Println(flint.Version)
		return
	}

	// If no flags were set, then print help information and bail.
	command.Help()
}

var rootCommand = &cobra.Command{
	Use:   "flint",
	Short: "Flint inspects, extracts, and repackages game asset archives for skin modding.",
	Run:   rootMain,
}

var rootConfiguration struct {
	help     bool
	version  bool
	logLevel string
}

// globalConfiguration is the loaded global configuration, available to all
// subcommands.
var globalConfiguration = &configuration.Configuration{}

// logger is the root logger for all subcommands, configured from the log
// level flag (or the global configuration) before any subcommand runs.
var logger *logging.Logger

// hashDirectory returns the effective hash directory.
func hashDirectory() string {
	return globalConfiguration.EffectiveHashDirectory()
}

// hashStore creates the lazily loading hash store shared by a subcommand
// invocation.
func hashStore() *hashes.Store {
	return hashes.NewLazy(hashDirectory(), logger.Sublogger("hashes"))
}

// initializeRun prepares logging and global configuration. It runs before
// every subcommand.
func initializeRun(*cobra.Command, []string) {
	// Disable color when not attached to a terminal.
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}

	// Load the global configuration, tolerating absence.
	if path, err := configuration.Path(); err == nil {
		if loaded, err := configuration.Load(path); err == nil {
			globalConfiguration = loaded
		} else {
			cmd.Warning(fmt.Sprintf("ignoring invalid global configuration: %v", err))
		}
	}

	// Resolve the log level: flag first, then configuration, then warnings.
	name := rootConfiguration.logLevel
	if name == "" {
		name = globalConfiguration.LogLevel
	}
	level := logging.LevelWarn
	if name != "" {
		if parsed, ok := logging.NameToLevel(name); ok {
			level = parsed
		} else {
			cmd.Warning(fmt.Sprintf("unknown log level %q", name))
		}
	}
	logger = logging.NewLogger(level, os.Stderr)
}

func init() {
	flags := rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")
	flags.BoolVarP(&rootConfiguration.version, "version", "V", false, "Show version information")
	rootCommand.PersistentFlags().StringVar(&rootConfiguration.logLevel, "log-level", "", "Set the log level (disabled, error, warn, info, debug, trace)")
	rootCommand.PersistentPreRun = initializeRun

	// Disable Cobra's command sorting behavior. By default, it sorts
	// commands alphabetically in the help output.
	cobra.EnableCommandSorting = false

	// Register commands. We do this here (rather than in individual init
	// functions) so that we can control the order.
	rootCommand.AddCommand(
		wadCommand,
		extractCommand,
		binCommand,
		projectCommand,
		organizeCommand,
		hashCommand,
	)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
