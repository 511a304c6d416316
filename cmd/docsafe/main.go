// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"docsafe/internal/backup"
	"docsafe/internal/config"
	"docsafe/internal/formatters"
	_ "docsafe/internal/formatters/json"
	_ "docsafe/internal/formatters/text"
	_ "docsafe/internal/formatters/yaml"
	"docsafe/internal/observability"
	"docsafe/internal/store"
	"docsafe/internal/version"
)

// Exit codes
const (
	exitOK         = 0
	exitError      = 1
	exitValidation = 2
)

// errValidation marks a run that finished but produced output that failed
// its integrity checks
var errValidation = errors.New("output failed validation")

// app holds what every command shares after flag parsing
type app struct {
	configFile string
	profile    string
	format     string
	verbose    bool
	debug      bool
	noColor    bool
	showText   bool
	envFile    string

	cfg *config.Config
	obs *observability.StandardObserver

	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(a.run(ctx, os.Args[1:]))
}

func (a *app) run(ctx context.Context, args []string) int {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errValidation):
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitValidation
	default:
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitError
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "docsafe",
		Short:         "Safety-aware formatting for technical documents",
		Long:          "docsafe restyles technical documents while leaving safety-critical content untouched, and proves the result still says what the original said.",
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate(version.Info() + "\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Path to configuration file (YAML)")
	pf.StringVar(&a.profile, "profile", "", "Profile name to apply from the config file")
	pf.StringVar(&a.format, "format", "", fmt.Sprintf("Report format: %v", formatters.List()))
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Show every paragraph in the report and info logs")
	pf.BoolVar(&a.debug, "debug", false, "Enable debug logging with step timings")
	pf.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&a.showText, "show-text", false, "Include paragraph text in reports")
	pf.StringVar(&a.envFile, "env-file", ".env", "Environment file with API keys, ignored when missing")

	root.AddCommand(
		a.formatCommand(),
		a.assessCommand(),
		a.batchCommand(),
		a.fingerprintCommand(),
		a.verifyCommand(),
		a.filterCommand(),
		a.learnCommand(),
		a.backupCommand(),
		a.historyCommand(),
		a.profilesCommand(),
		a.versionCommand(),
	)
	return root
}

// setup loads the environment file and configuration, applies the profile
// and command-line overrides, and builds the observer
func (a *app) setup(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	path := a.configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	if a.profile != "" {
		if err := cfg.ApplyProfile(a.profile); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Defaults.Format = a.format
	}
	if a.verbose {
		cfg.Defaults.Verbose = true
	}
	if a.debug {
		cfg.Defaults.Debug = true
	}
	if a.noColor || !isTerminal(os.Stdout) {
		cfg.Defaults.NoColor = true
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	cfg.Defaults.Format = strings.ToLower(cfg.Defaults.Format)

	a.cfg = cfg
	a.obs = observability.New(cfg.Defaults.Debug, cfg.Defaults.Verbose, a.stderr)
	return nil
}

// formatterOptions maps the resolved defaults onto report options
func (a *app) formatterOptions() formatters.FormatterOptions {
	return formatters.FormatterOptions{
		Verbose:  a.cfg.Defaults.Verbose,
		NoColor:  a.cfg.Defaults.NoColor,
		ShowText: a.showText,
		Width:    terminalWidth(os.Stdout),
	}
}

// openStore opens the configured audit database, or returns nil when none
// is configured
func (a *app) openStore() (*store.SQLiteStore, error) {
	if a.cfg.Store.Path == "" {
		return nil, nil
	}
	return store.Open(a.cfg.Store.Path)
}

// openLedger opens the audit database for the backup commands, which need
// one even when the pipeline runs without it
func (a *app) openLedger() (*store.SQLiteStore, error) {
	path := a.cfg.Store.Path
	if path == "" {
		if err := os.MkdirAll(a.cfg.Backup.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create backup dir: %w", err)
		}
		path = filepath.Join(a.cfg.Backup.Dir, "ledger.db")
	}
	return store.Open(path)
}

func (a *app) backupManager(st *store.SQLiteStore) (*backup.Manager, error) {
	return backup.NewManager(a.cfg.Backup.Dir, st, a.obs.Logger())
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func terminalWidth(f *os.File) int {
	if !isTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
