// Package shellrec implements the shell recorder: an in-memory
// accumulator of intended environment mutations that defers emission of
// concrete shell syntax until DumpState is called. This is the only
// piece of pyenv that knows how to talk to a concrete shell dialect;
// everything else (moduledb, modenv) only ever calls the capability
// vocabulary below.
package shellrec

import (
	"os"
	"sort"
	"strings"
)

// state is the mutable part of a Recorder that Push/Pop snapshot and
// restore. originalPaths/originalFlags are deliberately excluded: they
// are ambient-environment snapshots taken once, never touched by
// load/unload, so they never need to roll back.
type state struct {
	paths     map[string][]string
	flags     map[string][]string
	aliases   map[string]varEntry
	shellVars map[string]varEntry
	envVars   map[string]varEntry
	messages  []string
}

func newState() state {
	return state{
		paths:     make(map[string][]string),
		flags:     make(map[string][]string),
		aliases:   make(map[string]varEntry),
		shellVars: make(map[string]varEntry),
		envVars:   make(map[string]varEntry),
	}
}

// Recorder accumulates pending environment mutations for one
// invocation and renders them as shell commands on DumpState.
type Recorder struct {
	dialect    Dialect
	rawMsgDump bool
	reverseOp  bool

	state state

	originalPaths map[string][]string
	originalFlags map[string][]string

	stack []state
}

// NewRecorder constructs a Recorder targeting the named dialect.
func NewRecorder(dialectName string, rawMsgDump bool) (*Recorder, error) {
	d, err := Get(dialectName)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		dialect:       d,
		rawMsgDump:    rawMsgDump,
		state:         newState(),
		originalPaths: make(map[string][]string),
		originalFlags: make(map[string][]string),
	}, nil
}

// SetReverseOp toggles reverse-operation mode. While set,
// prepend/append/add_* calls are remapped to their remove_* counterpart,
// and remove_*/reset_*/write calls fail with ShellReverseOperationError.
func (r *Recorder) SetReverseOp(reverse bool) {
	r.reverseOp = reverse
}

// Push saves the current mutable state so a subsequent Pop can discard
// everything recorded since. Used by the dispatcher to scope a single
// module's load attempt.
func (r *Recorder) Push() {
	r.stack = append(r.stack, cloneState(r.state))
}

// Pop restores the state saved by the matching Push, discarding any
// mutation recorded since. The rollback path for a failed load.
func (r *Recorder) Pop() {
	n := len(r.stack)
	if n == 0 {
		return
	}
	r.state = r.stack[n-1]
	r.stack = r.stack[:n-1]
}

// Discard drops the snapshot saved by the matching Push without
// restoring it. The commit path for a successful load.
func (r *Recorder) Discard() {
	n := len(r.stack)
	if n == 0 {
		return
	}
	r.stack = r.stack[:n-1]
}

func cloneState(s state) state {
	out := newState()
	for k, v := range s.paths {
		out.paths[k] = append([]string(nil), v...)
	}
	for k, v := range s.flags {
		out.flags[k] = append([]string(nil), v...)
	}
	for k, v := range s.aliases {
		out.aliases[k] = v
	}
	for k, v := range s.shellVars {
		out.shellVars[k] = v
	}
	for k, v := range s.envVars {
		out.envVars[k] = v
	}
	out.messages = append([]string(nil), s.messages...)
	return out
}

// --- paths -----------------------------------------------------------

func (r *Recorder) ensurePath(name string) {
	if _, ok := r.state.paths[name]; ok {
		return
	}
	orig := splitNonEmpty(os.Getenv(name), ":")
	r.state.paths[name] = append([]string(nil), orig...)
	if _, ok := r.originalPaths[name]; !ok {
		r.originalPaths[name] = append([]string(nil), orig...)
	}
}

// PrependPath inserts path at the head of var's ordered component list.
func (r *Recorder) PrependPath(varName, path string, check CheckMode) error {
	if r.reverseOp {
		return r.removePathComponent(varName, path)
	}
	ok, err := checkPathValue(varName, path, check)
	if err != nil || !ok {
		return err
	}
	r.ensurePath(varName)
	r.state.paths[varName] = append([]string{path}, r.state.paths[varName]...)
	return nil
}

// AppendPath inserts path at the tail of var's ordered component list.
func (r *Recorder) AppendPath(varName, path string, check CheckMode) error {
	if r.reverseOp {
		return r.removePathComponent(varName, path)
	}
	ok, err := checkPathValue(varName, path, check)
	if err != nil || !ok {
		return err
	}
	r.ensurePath(varName)
	r.state.paths[varName] = append(r.state.paths[varName], path)
	return nil
}

// RemovePath removes the first occurrence of path from var; missing is
// a no-op. Has no inverse.
func (r *Recorder) RemovePath(varName, path string) error {
	if r.reverseOp {
		return &ShellReverseOperationError{Op: "remove_path"}
	}
	return r.removePathComponent(varName, path)
}

func (r *Recorder) removePathComponent(varName, path string) error {
	r.ensurePath(varName)
	list := r.state.paths[varName]
	for i, v := range list {
		if v == path {
			r.state.paths[varName] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

// ResetPath clears var's component list entirely. Has no inverse.
func (r *Recorder) ResetPath(varName string) error {
	if r.reverseOp {
		return &ShellReverseOperationError{Op: "reset_path"}
	}
	r.ensurePath(varName)
	r.state.paths[varName] = nil
	return nil
}

// --- compiler flags ----------------------------------------------------

func (r *Recorder) ensureFlag(name string) {
	if _, ok := r.state.flags[name]; ok {
		return
	}
	orig := splitNonEmpty(os.Getenv(name), " ")
	r.state.flags[name] = append([]string(nil), orig...)
	if _, ok := r.originalFlags[name]; !ok {
		r.originalFlags[name] = append([]string(nil), orig...)
	}
}

// PrependCompilerFlag inserts prefix+value at the head of var's ordered
// flag list. check, when set, validates value (not prefix+value) as a
// filesystem path; the caller passes the bare path for flags like
// "-I/opt/foo/include" (prefix="-I", value="/opt/foo/include").
func (r *Recorder) PrependCompilerFlag(varName, value, prefix string, check CheckMode) error {
	full := prefix + value
	if r.reverseOp {
		return r.removeFlagComponent(varName, full)
	}
	ok, err := checkPathValue(varName, value, check)
	if err != nil || !ok {
		return err
	}
	r.ensureFlag(varName)
	r.state.flags[varName] = append([]string{full}, r.state.flags[varName]...)
	return nil
}

// AppendCompilerFlag is PrependCompilerFlag but appends to the tail.
func (r *Recorder) AppendCompilerFlag(varName, value, prefix string, check CheckMode) error {
	full := prefix + value
	if r.reverseOp {
		return r.removeFlagComponent(varName, full)
	}
	ok, err := checkPathValue(varName, value, check)
	if err != nil || !ok {
		return err
	}
	r.ensureFlag(varName)
	r.state.flags[varName] = append(r.state.flags[varName], full)
	return nil
}

// RemoveCompilerFlag removes prefix+value from var's flag list; missing
// is a no-op. Has no inverse.
func (r *Recorder) RemoveCompilerFlag(varName, value, prefix string) error {
	if r.reverseOp {
		return &ShellReverseOperationError{Op: "remove_compiler_flag"}
	}
	return r.removeFlagComponent(varName, prefix+value)
}

func (r *Recorder) removeFlagComponent(varName, full string) error {
	r.ensureFlag(varName)
	list := r.state.flags[varName]
	for i, v := range list {
		if v == full {
			r.state.flags[varName] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

// ResetCompilerFlag clears var's flag list entirely. Has no inverse.
func (r *Recorder) ResetCompilerFlag(varName string) error {
	if r.reverseOp {
		return &ShellReverseOperationError{Op: "reset_compiler_flag"}
	}
	r.ensureFlag(varName)
	r.state.flags[varName] = nil
	return nil
}

// --- aliases / shell variables / environment variables ----------------

// AddAlias defines (or redefines) a shell alias.
func (r *Recorder) AddAlias(name, cmd string) error {
	if r.reverseOp {
		r.state.aliases[name] = varEntry{removed: true}
		return nil
	}
	r.state.aliases[name] = varEntry{value: cmd}
	return nil
}

// RemoveAlias queues an alias removal. Has no inverse.
func (r *Recorder) RemoveAlias(name string) error {
	if r.reverseOp {
		return &ShellReverseOperationError{Op: "remove_alias"}
	}
	r.state.aliases[name] = varEntry{removed: true}
	return nil
}

// AddShellVariable defines a shell-local (non-exported) variable.
func (r *Recorder) AddShellVariable(name, value string) error {
	if r.reverseOp {
		r.state.shellVars[name] = varEntry{removed: true}
		return nil
	}
	r.state.shellVars[name] = varEntry{value: value}
	return nil
}

// RemoveShellVariable queues a shell variable removal. Has no inverse.
func (r *Recorder) RemoveShellVariable(name string) error {
	if r.reverseOp {
		return &ShellReverseOperationError{Op: "remove_shell_variable"}
	}
	r.state.shellVars[name] = varEntry{removed: true}
	return nil
}

// AddEnv defines an exported environment variable.
func (r *Recorder) AddEnv(name, value string) error {
	if r.reverseOp {
		r.state.envVars[name] = varEntry{removed: true}
		return nil
	}
	r.state.envVars[name] = varEntry{value: value}
	return nil
}

// RemoveEnv queues an environment variable removal. Has no inverse.
func (r *Recorder) RemoveEnv(name string) error {
	if r.reverseOp {
		return &ShellReverseOperationError{Op: "remove_env"}
	}
	r.state.envVars[name] = varEntry{removed: true}
	return nil
}

// Write queues a user-visible message. Has no inverse.
func (r *Recorder) Write(message string) error {
	if r.reverseOp {
		return &ShellReverseOperationError{Op: "write"}
	}
	r.state.messages = append(r.state.messages, message)
	return nil
}

// --- emission -----------------------------------------------------------

// DumpState renders every recorded mutation into the target dialect's
// command strings, in a fixed section order: paths, flags, aliases,
// shell variables, environment variables, messages. A path or flag
// variable whose final list equals its ambient-environment snapshot is
// omitted. Within a section, keys are emitted in sorted order.
func (r *Recorder) DumpState() []string {
	var out []string

	for _, name := range sortedKeys(r.state.paths) {
		list := r.state.paths[name]
		if stringSlicesEqual(list, r.originalPaths[name]) {
			continue
		}
		out = append(out, r.dialect.SetEnv(name, strings.Join(list, ":")))
	}

	for _, name := range sortedKeys(r.state.flags) {
		list := r.state.flags[name]
		if stringSlicesEqual(list, r.originalFlags[name]) {
			continue
		}
		out = append(out, r.dialect.SetEnv(name, strings.Join(list, " ")))
	}

	for _, name := range sortedKeys(r.state.aliases) {
		e := r.state.aliases[name]
		cmd := r.dialect.SetAlias(name, e.value)
		if e.removed {
			cmd = r.dialect.UnsetAlias(name)
		}
		if cmd != "" {
			out = append(out, cmd)
		}
	}

	for _, name := range sortedKeys(r.state.shellVars) {
		e := r.state.shellVars[name]
		cmd := r.dialect.SetShellVar(name, e.value)
		if e.removed {
			cmd = r.dialect.UnsetShellVar(name)
		}
		if cmd != "" {
			out = append(out, cmd)
		}
	}

	for _, name := range sortedKeys(r.state.envVars) {
		e := r.state.envVars[name]
		cmd := r.dialect.SetEnv(name, e.value)
		if e.removed {
			cmd = r.dialect.UnsetEnv(name)
		}
		if cmd != "" {
			out = append(out, cmd)
		}
	}

	out = append(out, r.dialect.Messages(r.state.messages, r.rawMsgDump)...)

	return out
}

// --- helpers -----------------------------------------------------------

func checkPathValue(varName, path string, check CheckMode) (bool, error) {
	switch check {
	case CheckNone:
		return true, nil
	case CheckValidate:
		return isExecutableDir(path), nil
	case CheckEnforce:
		if isExecutableDir(path) {
			return true, nil
		}
		return false, &ErrPathCheckFailed{Var: varName, Path: path}
	default:
		return true, nil
	}
}

func isExecutableDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
