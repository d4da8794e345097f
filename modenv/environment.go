// Package modenv implements the environment state machine that drives
// module load/unload transactions against a module database and a
// shell recorder, and persists itself through the codec package.
package modenv

import (
	"fmt"
	"strings"

	"pyenv/codec"
	"pyenv/log"
	"pyenv/moduledb"
	"pyenv/shellrec"
)

// Environment holds the loaded-module set and dependency graph and
// runs load/unload/swap transactions over them.
type Environment struct {
	db     *moduledb.Database
	shell  *shellrec.Recorder
	logger log.LibraryLogger

	loaded     loadedSet
	dependents dependencyMap
	loading    map[moduledb.ModuleName]struct{} // frontier set, cycle detection

	dirty        bool
	cleanupRange int
	ready        bool
}

// NewEnvironment constructs an Environment, pulling prior state via
// the codec through get (the caller's os.LookupEnv or a test double).
func NewEnvironment(db *moduledb.Database, shell *shellrec.Recorder, get codec.Getenv, logger log.LibraryLogger) *Environment {
	if logger == nil {
		logger = log.NoOpLogger{}
	}

	prior, cleanupRange := codec.ReadState(get, logger)

	e := &Environment{
		db:           db,
		shell:        shell,
		logger:       logger,
		loaded:       make(loadedSet),
		dependents:   make(dependencyMap),
		loading:      make(map[moduledb.ModuleName]struct{}),
		cleanupRange: cleanupRange,
		ready:        true,
	}
	for _, name := range prior.Loaded {
		e.loaded[moduledb.ModuleName(name)] = struct{}{}
	}
	for dep, dependants := range prior.Dependents {
		for _, dependant := range dependants {
			e.dependents.addDependent(moduledb.ModuleName(dep), moduledb.ModuleName(dependant))
		}
	}
	return e
}

// IsLoaded satisfies moduledb.Environment.
func (e *Environment) IsLoaded(name moduledb.ModuleName) bool {
	return e.loaded.has(name)
}

// LoadedNames returns every currently loaded module name, sorted.
func (e *Environment) LoadedNames() []moduledb.ModuleName {
	return e.loaded.sorted()
}

// OkayToUnload reports whether name is loaded and has no live
// dependants, the predicate the batch-unload rounds algorithm drives
// on.
func (e *Environment) OkayToUnload(name moduledb.ModuleName) bool {
	return e.loaded.has(name) && e.dependents.okToUnload(name)
}

// LoadModuleByName loads name and, depth-first, any dependency its
// recipe declares that is not already loaded. With force, an
// already-loaded module is run through its recipe again.
func (e *Environment) LoadModuleByName(name moduledb.ModuleName, force bool) error {
	if e.loaded.has(name) && !force {
		return &moduledb.ModuleLoadError{Module: name, Reason: "already loaded"}
	}
	if _, ok := e.db.FindModule(name); !ok {
		return &moduledb.ModuleLoadError{Module: name, Reason: "not found"}
	}
	if _, inflight := e.loading[name]; inflight {
		return &moduledb.ModulePreloadError{Module: name, Reason: "cycle through " + string(name)}
	}
	e.loading[name] = struct{}{}
	defer delete(e.loading, name)

	recipe, err := e.db.LoadModule(name)
	if err != nil {
		return &moduledb.ModuleLoadError{Module: name, Reason: "instantiate recipe", Err: err}
	}

	deps, err := recipe.Preload(e)
	if err != nil {
		return err
	}

	for _, dep := range deps {
		if e.loaded.has(dep) {
			continue
		}
		if err := e.LoadModuleByName(dep, false); err != nil {
			return err
		}
	}

	e.shell.Push()
	if err := recipe.Load(e, e.shell); err != nil {
		e.shell.Pop()
		return err
	}
	e.shell.Discard()

	e.loaded[name] = struct{}{}
	for _, dep := range deps {
		e.dependents.addDependent(dep, name)
	}
	e.dirty = true
	return nil
}

// UnloadModuleByName unloads name, refusing while other loaded
// modules still depend on it.
func (e *Environment) UnloadModuleByName(name moduledb.ModuleName) error {
	if !e.loaded.has(name) {
		return &moduledb.ModuleUnloadError{Module: name, Reason: "not loaded"}
	}
	if dependants := e.dependents.dependantsOf(name); len(dependants) > 0 {
		return &moduledb.ModuleUnloadError{
			Module: name,
			Reason: "still depended on by " + joinNames(dependants),
		}
	}

	recipe, err := e.db.LoadModule(name)
	if err != nil {
		return &moduledb.ModuleUnloadError{Module: name, Reason: "instantiate recipe", Err: err}
	}
	if err := recipe.Unload(e, e.shell); err != nil {
		return err
	}

	delete(e.loaded, name)
	e.dependents.removeName(name)
	e.dirty = true
	return nil
}

// Snapshot is a saved copy of the environment's mutable state, taken
// with Environment.Snapshot and put back with Restore when a
// multi-module transaction has to be rolled back alongside the shell
// recorder's Pop.
type Snapshot struct {
	loaded     loadedSet
	dependents dependencyMap
	dirty      bool
}

// Snapshot captures the loaded set, dependency map, and dirty flag.
func (e *Environment) Snapshot() Snapshot {
	return Snapshot{
		loaded:     e.loaded.clone(),
		dependents: e.dependents.clone(),
		dirty:      e.dirty,
	}
}

// Restore puts back the state captured by Snapshot, discarding every
// load/unload recorded since.
func (e *Environment) Restore(s Snapshot) {
	e.loaded = s.loaded.clone()
	e.dependents = s.dependents.clone()
	e.dirty = s.dirty
}

// Swap atomically unloads out and loads in: either both succeed, or
// the environment (LoadedSet, DependencyMap, ShellState) is restored
// to its pre-call state.
func (e *Environment) Swap(out, in moduledb.ModuleName) error {
	snap := e.Snapshot()

	e.shell.Push()
	err := func() error {
		if err := e.UnloadModuleByName(out); err != nil {
			return err
		}
		return e.LoadModuleByName(in, false)
	}()
	if err != nil {
		e.Restore(snap)
		e.shell.Pop()
		return err
	}
	e.shell.Discard()
	return nil
}

// Shutdown persists the current state if dirty: it clears the
// previously persisted slots and writes the new encoding, via the
// shell recorder's AddEnv/RemoveEnv. A no-op when nothing changed
// this invocation.
func (e *Environment) Shutdown(chunkSize int) error {
	if !e.dirty {
		return nil
	}

	for k := 0; k < e.cleanupRange; k++ {
		if err := e.shell.RemoveEnv(fmt.Sprintf("%s%d", codec.EnvDataPrefix, k)); err != nil {
			return err
		}
	}

	state := codec.State{
		Loaded:     namesToStrings(e.loaded.sorted()),
		Dependents: dependentsToStrings(e.dependents),
	}
	chunks := codec.WriteState(state, chunkSize)
	for i, c := range chunks {
		if err := e.shell.AddEnv(fmt.Sprintf("%s%d", codec.EnvDataPrefix, i), c); err != nil {
			return err
		}
	}

	e.logger.Debug("wrote environment snapshot generation=%s", codec.NewGenerationID())
	e.ready = false
	return nil
}

func joinNames(names []moduledb.ModuleName) string {
	strs := make([]string, len(names))
	for i, n := range names {
		strs[i] = string(n)
	}
	return strings.Join(strs, ", ")
}

func namesToStrings(names []moduledb.ModuleName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

func dependentsToStrings(m dependencyMap) map[string][]string {
	out := make(map[string][]string, len(m))
	for dep, dependants := range m {
		names := make([]string, 0, len(dependants))
		for d := range dependants {
			names = append(names, string(d))
		}
		out[string(dep)] = names
	}
	return out
}
