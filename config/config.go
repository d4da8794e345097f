// Package config resolves pyenv's run-time configuration: the module
// search path, the target shell dialect, and the dispatcher's behavior
// flags. Nothing here touches the shell or the environment state machine;
// it only decides what the rest of the program should do.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Dialect names recognized by -s/--shell.
const (
	DialectBash  = "bash"
	DialectTcsh  = "tcsh"
	DialectElisp = "elisp"
)

// Env var names pyenv consumes.
const (
	EnvSearchPath = "PYENV_PATH"
	EnvCachePath  = "PYENV_CACHE"
	EnvDataPrefix = "PYENV_DATA_"
)

// ManifestSuffix is the fixed per-deployment suffix a recipe file's
// leaf segment must carry.
const ManifestSuffix = ".module"

// Config holds everything the dispatcher needs for one invocation.
type Config struct {
	// SearchPath is the colon-separated list of module database roots,
	// already split. Resolved from PYENV_PATH or the built-in fallback.
	SearchPath []string

	// CachePath is the optional bbolt discovery-cache location. Empty
	// disables caching.
	CachePath string

	// Dialect is the target shell dialect (-s/--shell).
	Dialect string

	// Dump mirrors the emitted script to stderr as well as stdout.
	Dump bool

	// DryRun emits to stderr only and suppresses persistence.
	DryRun bool

	// RawMsgDump emits elisp messages as raw joined text instead of a
	// single (message ...) call.
	RawMsgDump bool

	// Verbose turns on Info/Debug logging on stderr.
	Verbose bool
}

// Load builds a Config from the ambient environment and CLI-provided
// overrides. Dialect/Dump/DryRun/RawMsgDump/Verbose are set by the caller
// (cmd package) after parsing flags; Load only resolves the parts that
// come from the environment: search path and cache path.
func Load() (*Config, error) {
	cfg := &Config{
		Dialect: DialectBash,
	}

	if raw := os.Getenv(EnvSearchPath); raw != "" {
		cfg.SearchPath = splitSearchPath(raw)
	} else {
		def, err := DefaultSearchPath()
		if err != nil {
			return nil, fmt.Errorf("resolve default search path: %w", err)
		}
		cfg.SearchPath = []string{def}
	}

	if raw := os.Getenv(EnvCachePath); raw != "" {
		cfg.CachePath = raw
	} else if dir, err := os.UserCacheDir(); err == nil {
		cfg.CachePath = filepath.Join(dir, "pyenv", "discovery.db")
	}

	return cfg, nil
}

func splitSearchPath(raw string) []string {
	parts := strings.Split(raw, ":")
	roots := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			roots = append(roots, p)
		}
	}
	return roots
}

// DefaultSearchPath computes the built-in module database root when
// PYENV_PATH is unset: <install-prefix>/modulefiles, with a platform
// subdirectory appended per the host's uname(2) sysname.
func DefaultSearchPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	prefix := filepath.Dir(filepath.Dir(exe)) // strip trailing /bin

	osname := hostSysname()
	if osname == "" {
		return filepath.Join(prefix, "modulefiles"), nil
	}
	return filepath.Join(prefix, "modulefiles", osname), nil
}

// hostSysname returns uname(2)'s Sysname (e.g. "Linux", "DragonFly"), or
// "" if it cannot be determined.
func hostSysname() string {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		return ""
	}
	return strings.TrimRight(string(utsname.Sysname[:]), "\x00")
}

// ValidDialect reports whether name is a known shell dialect.
func ValidDialect(name string) bool {
	switch name {
	case DialectBash, DialectTcsh, DialectElisp:
		return true
	default:
		return false
	}
}
