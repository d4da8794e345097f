// Package cmd implements the action dispatcher: a cobra CLI that
// parses the global stanza (-s/--shell, --dump, --dry-run,
// --raw-msg-dump), builds a shell recorder, a module database and an
// environment for the invocation, dispatches one of
// load/unload/loaded/avail, and flushes the recorder's emitted script
// to stdout exactly once.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pyenv/codec"
	"pyenv/config"
	"pyenv/log"
	"pyenv/modenv"
	"pyenv/moduledb"
	"pyenv/shellrec"
)

// globalFlags mirrors the persistent flag values parsed by rootCmd.
// Session construction is deferred to each action's RunE (not a
// PersistentPreRunE) so a flag-parse failure never touches the
// database or the environment.
var globalFlags = struct {
	shell      string
	dump       bool
	dryRun     bool
	rawMsgDump bool
}{shell: config.DialectBash}

var rootCmd = &cobra.Command{
	Use:           "pyenv",
	Short:         "Maintain loaded environment modules in the calling shell",
	Long:          `pyenv emits a script of shell commands that loads, unloads, or reports on environment modules. The calling shell is expected to eval its stdout.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.shell, "shell", "s", config.DialectBash, "target shell dialect (bash, tcsh, elisp)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.dump, "dump", false, "mirror the emitted command script to stderr")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.dryRun, "dry-run", false, "emit to stderr only and suppress state persistence")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.rawMsgDump, "raw-msg-dump", false, "emit elisp messages as raw text instead of one (message ...) call")

	rootCmd.AddCommand(loadCmd, unloadCmd, loadedCmd, availCmd)
}

// Execute runs the dispatcher. Called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session bundles the recorder, database, and environment one action
// needs, and the resolved config driving their construction and the
// final flush.
type session struct {
	cfg    *config.Config
	logger log.LibraryLogger
	shell  *shellrec.Recorder
	db     *moduledb.Database
	env    *modenv.Environment
	cache  *moduledb.DiscoveryCache
}

// newSession resolves configuration, validates the requested dialect,
// and constructs the shell recorder, module database, and environment
// for one invocation.
func newSession() (*session, error) {
	if !config.ValidDialect(globalFlags.shell) {
		return nil, fmt.Errorf("unknown shell dialect: %s", globalFlags.shell)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Dialect = globalFlags.shell
	cfg.Dump = globalFlags.dump
	cfg.DryRun = globalFlags.dryRun
	cfg.RawMsgDump = globalFlags.rawMsgDump
	cfg.Verbose = globalFlags.dump

	logger := log.StderrLogger{Verbose: cfg.Verbose}

	shell, err := shellrec.NewRecorder(cfg.Dialect, cfg.RawMsgDump)
	if err != nil {
		return nil, err
	}

	db := moduledb.NewDatabase(cfg.SearchPath, logger)
	var cache *moduledb.DiscoveryCache
	if cfg.CachePath != "" {
		cache, err = moduledb.OpenDiscoveryCache(cfg.CachePath)
		if err != nil {
			logger.Warn("moduledb: discovery cache unavailable at %s: %v", cfg.CachePath, err)
			cache = nil
		} else {
			db.WithDiskCache(cache)
		}
	}

	env := modenv.NewEnvironment(db, shell, func(name string) (string, bool) {
		return os.LookupEnv(name)
	}, logger)

	return &session{cfg: cfg, logger: logger, shell: shell, db: db, env: env, cache: cache}, nil
}

// close releases the discovery cache's file lock. Deferred by every
// action right after newSession so a RunE that errors out before flush
// still lets the next invocation open the cache.
func (s *session) close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

// flush runs the environment's shutdown (persisting new state into
// the recorder, unless --dry-run), then emits the recorder's command
// script exactly once. --dump additionally mirrors the script to
// stderr; --dry-run sends it to stderr only and never persists.
func (s *session) flush() error {
	if !s.cfg.DryRun {
		if err := s.env.Shutdown(codec.DefaultChunkSize); err != nil {
			return fmt.Errorf("persist environment: %w", err)
		}
	}

	lines := s.shell.DumpState()

	if s.cfg.DryRun {
		writeLines(os.Stderr, lines)
		return nil
	}

	writeLines(os.Stdout, lines)
	if s.cfg.Dump {
		writeLines(os.Stderr, lines)
	}
	return nil
}

func writeLines(w *os.File, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
