package moduledb

import (
	"strings"

	"pyenv/shellrec"
)

// ModuleName is a dotted path of one or more non-empty segments
// ("editors.vim"). Names are case-preserving and unique within a
// Database.
type ModuleName string

// Segments splits a ModuleName on '.'.
func (n ModuleName) Segments() []string {
	return strings.Split(string(n), ".")
}

// Valid reports whether n has no empty segment.
func (n ModuleName) Valid() bool {
	if n == "" {
		return false
	}
	for _, seg := range n.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

func (n ModuleName) String() string { return string(n) }

// Environment is the subset of modenv.Environment a Recipe needs to
// validate its preconditions, kept as an interface here so moduledb
// never imports modenv (modenv imports moduledb, not the reverse).
type Environment interface {
	// IsLoaded reports whether name is currently a member of the
	// loaded set.
	IsLoaded(name ModuleName) bool
}

// Recipe is a loadable module recipe: instantiated by
// Database.LoadModule, pure until Load/Unload run.
type Recipe interface {
	// Name returns the recipe's own fully-qualified name, fixed at
	// construction.
	Name() ModuleName

	// Preload validates preconditions and returns this recipe's
	// dependencies. Must not mutate env or the shell. May fail with
	// *ModulePreloadError.
	Preload(env Environment) ([]ModuleName, error)

	// Load performs the mutation via the shell recorder. May fail with
	// *ModuleLoadError; any partial mutation is rolled back by the
	// caller via shell.Pop().
	Load(env Environment, shell *shellrec.Recorder) error

	// Unload performs the inverse mutation. May fail with
	// *ModuleUnloadError.
	Unload(env Environment, shell *shellrec.Recorder) error
}
