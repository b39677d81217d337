// pdfx reads and writes PDF document metadata and removes PDF encryption.
//
//	usage: pdfx [--config file] [--log-level level] command [flags] [args]
//
// Run "pdfx --help" for the list of commands.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfconfig"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries the state shared by all commands of one invocation.
type app struct {
	stdout, stderr io.Writer

	configPath string
	logLevel   string
	cfg        *pdfconfig.Config
}

// run executes one pdfx command line and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	err := root.execute(args)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "pdfx: %v\n", err)
	var ue *usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

func (a *app) rootCommand() *command {
	var showVersion bool
	root := &command{
		name:    "pdfx",
		summary: "PDF metadata and encryption-state toolkit",
		usage:   "pdfx [--config file] [--log-level level] <command> [flags]",
		out:     a.stderr,
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("pdfx", pflag.ContinueOnError)
			fs.SetInterspersed(false)
			fs.StringVar(&a.configPath, "config", "", "configuration file (default $"+pdfconfig.EnvVar+")")
			fs.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
			fs.BoolVar(&showVersion, "version", false, "print the version and exit")
			return fs
		},
		subcommands: []*command{
			a.metaCommand(),
			a.cryptoCommand(),
			a.inspectCommand(),
			a.sampleCommand(),
			a.versionCommand(),
		},
	}
	// Global flags come before the command name, so once they are parsed
	// the remaining arguments are dispatched like a fresh command line.
	root.run = func(args []string) error {
		if showVersion {
			fmt.Fprintln(a.stdout, versionString())
			return nil
		}
		if len(args) == 0 {
			root.printHelp(a.stderr)
			return usagef("command required")
		}
		return root.dispatch(args)
	}
	return root
}

// setup loads the configuration and installs the process logger.  Commands
// call it before doing any work; it only acts once.
func (a *app) setup() error {
	var err error

	if a.cfg != nil {
		return nil
	}
	if a.cfg, err = pdfconfig.Load(a.configPath); err != nil {
		return err
	}
	level := a.cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	logger, err := newLogger(a.stderr, level, a.cfg.Log.Format)
	if err != nil {
		return usagef("%v", err)
	}
	slog.SetDefault(logger)
	slog.Debug("configured", "config", a.configPath, "level", level)
	return nil
}

// password returns the password to decrypt with: the --password flag if it
// was given, else the configured default, else nil for the empty password.
func (a *app) password(fs *pflag.FlagSet, flagValue string) *string {
	if f := fs.Lookup("password"); f != nil && f.Changed {
		return &flagValue
	}
	if a.cfg != nil && a.cfg.Crypto.DefaultPassword != "" {
		pw := a.cfg.Crypto.DefaultPassword
		return &pw
	}
	return nil
}
