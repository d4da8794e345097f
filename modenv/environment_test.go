package modenv

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pyenv/codec"
	"pyenv/log"
	"pyenv/moduledb"
	"pyenv/shellrec"
)

func writeModule(t *testing.T, root, relPath, contents string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func noEnv(string) (string, bool) { return "", false }

func newTestEnv(t *testing.T, root string) (*Environment, *shellrec.Recorder) {
	t.Helper()
	shell, err := shellrec.NewRecorder("bash", false)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	db := moduledb.NewDatabase([]string{root}, log.NoOpLogger{})
	env := NewEnvironment(db, shell, noEnv, log.NoOpLogger{})
	return env, shell
}

func TestLoadModuleByName_FreshLoad(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "editors/vim.module", "message = vim loaded\n")

	env, shell := newTestEnv(t, root)
	if err := env.LoadModuleByName("editors.vim", false); err != nil {
		t.Fatalf("LoadModuleByName() error = %v", err)
	}
	if !env.IsLoaded("editors.vim") {
		t.Error("IsLoaded(editors.vim) = false, want true")
	}
	out := shell.DumpState()
	if len(out) != 1 || out[0] != "echo 'vim loaded'" {
		t.Errorf("DumpState() = %v", out)
	}
}

func TestLoadModuleByName_AlreadyLoaded(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "editors/vim.module", "message = vim loaded\n")

	env, _ := newTestEnv(t, root)
	if err := env.LoadModuleByName("editors.vim", false); err != nil {
		t.Fatalf("first load error = %v", err)
	}
	err := env.LoadModuleByName("editors.vim", false)
	var loadErr *moduledb.ModuleLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error = %v, want *ModuleLoadError", err)
	}
}

func TestLoadModuleByName_DependencyChain(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "devel/ncurses.module", "message = ncurses loaded\n")
	writeModule(t, root, "editors/vim.module", "depends = devel.ncurses\nmessage = vim loaded\n")

	env, _ := newTestEnv(t, root)
	if err := env.LoadModuleByName("editors.vim", false); err != nil {
		t.Fatalf("LoadModuleByName() error = %v", err)
	}
	if !env.IsLoaded("devel.ncurses") {
		t.Error("dependency devel.ncurses should have been loaded transitively")
	}
	if env.OkayToUnload("devel.ncurses") {
		t.Error("devel.ncurses should not be okay to unload while vim depends on it")
	}
}

func TestUnloadModuleByName_BlockedByDependant(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "devel/ncurses.module", "message = ncurses loaded\n")
	writeModule(t, root, "editors/vim.module", "depends = devel.ncurses\nmessage = vim loaded\n")

	env, _ := newTestEnv(t, root)
	if err := env.LoadModuleByName("editors.vim", false); err != nil {
		t.Fatalf("LoadModuleByName() error = %v", err)
	}

	err := env.UnloadModuleByName("devel.ncurses")
	var unloadErr *moduledb.ModuleUnloadError
	if !errors.As(err, &unloadErr) {
		t.Fatalf("error = %v, want *ModuleUnloadError", err)
	}

	if err := env.UnloadModuleByName("editors.vim"); err != nil {
		t.Fatalf("unload vim error = %v", err)
	}
	if err := env.UnloadModuleByName("devel.ncurses"); err != nil {
		t.Fatalf("unload ncurses after vim gone error = %v", err)
	}
}

func TestUnloadModuleByName_NotLoaded(t *testing.T) {
	root := t.TempDir()
	env, _ := newTestEnv(t, root)
	err := env.UnloadModuleByName("editors.vim")
	var unloadErr *moduledb.ModuleUnloadError
	if !errors.As(err, &unloadErr) {
		t.Fatalf("error = %v, want *ModuleUnloadError", err)
	}
}

func TestLoadModuleByName_CycleDetected(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "a.module", "depends = b\n")
	writeModule(t, root, "b.module", "depends = c\n")
	writeModule(t, root, "c.module", "depends = a\n")

	env, _ := newTestEnv(t, root)
	err := env.LoadModuleByName("a", false)
	var preloadErr *moduledb.ModulePreloadError
	if !errors.As(err, &preloadErr) {
		t.Fatalf("error = %v, want *ModulePreloadError", err)
	}
}

func TestLoadModuleByName_NotFound(t *testing.T) {
	root := t.TempDir()
	env, _ := newTestEnv(t, root)
	err := env.LoadModuleByName("nonexistent", false)
	var loadErr *moduledb.ModuleLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error = %v, want *ModuleLoadError", err)
	}
}

func TestSwap_AtomicOnFailure(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "editors/vim.module", "message = vim loaded\n")
	// "emacs" deliberately missing, so loading it fails and Swap must
	// restore the pre-call state.

	env, _ := newTestEnv(t, root)
	if err := env.LoadModuleByName("editors.vim", false); err != nil {
		t.Fatalf("LoadModuleByName() error = %v", err)
	}

	err := env.Swap("editors.vim", "editors.emacs")
	if err == nil {
		t.Fatal("Swap() should fail when the incoming module cannot be found")
	}
	if !env.IsLoaded("editors.vim") {
		t.Error("Swap() failure should leave the outgoing module still loaded")
	}
	if env.IsLoaded("editors.emacs") {
		t.Error("Swap() failure should not leave the incoming module loaded")
	}
}

func TestSnapshotRestore_DiscardsLoadsAndDirtyFlag(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "devel/ncurses.module", "message = ncurses loaded\n")
	writeModule(t, root, "editors/vim.module", "depends = devel.ncurses\nmessage = vim loaded\n")

	env, shell := newTestEnv(t, root)
	snap := env.Snapshot()

	if err := env.LoadModuleByName("editors.vim", false); err != nil {
		t.Fatalf("LoadModuleByName() error = %v", err)
	}
	env.Restore(snap)

	if env.IsLoaded("editors.vim") || env.IsLoaded("devel.ncurses") {
		t.Error("Restore() should discard modules loaded after the snapshot")
	}
	if err := env.Shutdown(100); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	for _, line := range shell.DumpState() {
		if strings.Contains(line, codec.EnvDataPrefix) {
			t.Errorf("Shutdown() after Restore() should not persist: %q", line)
		}
	}
}

func TestShutdown_PersistsOnlyWhenDirty(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "editors/vim.module", "message = vim loaded\n")

	env, shell := newTestEnv(t, root)
	if err := env.Shutdown(100); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if out := shell.DumpState(); len(out) != 0 {
		t.Errorf("DumpState() = %v, want empty (nothing dirty)", out)
	}

	if err := env.LoadModuleByName("editors.vim", false); err != nil {
		t.Fatalf("LoadModuleByName() error = %v", err)
	}
	if err := env.Shutdown(100); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	out := shell.DumpState()
	wantPrefix := "export " + codec.EnvDataPrefix + "0="
	hasDataVar := false
	for _, line := range out {
		if strings.HasPrefix(line, wantPrefix) {
			hasDataVar = true
		}
	}
	if !hasDataVar {
		t.Errorf("DumpState() = %v, want a %s0 assignment after a dirty shutdown", out, codec.EnvDataPrefix)
	}
}

func TestNewEnvironment_RestoresPriorState(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "editors/vim.module", "message = vim loaded\n")

	state := codec.State{Loaded: []string{"editors.vim"}, Dependents: map[string][]string{}}
	chunks := codec.WriteState(state, 100)
	stored := map[string]string{}
	for i, c := range chunks {
		stored[codec.EnvDataPrefix+string(rune('0'+i))] = c
	}
	get := func(name string) (string, bool) {
		v, ok := stored[name]
		return v, ok
	}

	shell, err := shellrec.NewRecorder("bash", false)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	db := moduledb.NewDatabase([]string{root}, log.NoOpLogger{})
	env := NewEnvironment(db, shell, get, log.NoOpLogger{})

	if !env.IsLoaded("editors.vim") {
		t.Error("NewEnvironment should have restored editors.vim as loaded")
	}
}
