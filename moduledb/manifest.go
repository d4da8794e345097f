package moduledb

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/ini.v1"

	"pyenv/shellrec"
)

// pathOpKind is the operation carried by a [paths]/[flags] manifest
// value: "prepend:V", "append:V", or "reset".
type pathOpKind int

const (
	opPrepend pathOpKind = iota
	opAppend
	opReset
)

type pathOp struct {
	kind  pathOpKind
	value string
}

func parsePathOp(raw string) (pathOp, error) {
	switch {
	case raw == "reset":
		return pathOp{kind: opReset}, nil
	case strings.HasPrefix(raw, "prepend:"):
		return pathOp{kind: opPrepend, value: strings.TrimPrefix(raw, "prepend:")}, nil
	case strings.HasPrefix(raw, "append:"):
		return pathOp{kind: opAppend, value: strings.TrimPrefix(raw, "append:")}, nil
	default:
		return pathOp{}, fmt.Errorf("%w: %q (want prepend:V, append:V, or reset)", ErrManifestParse, raw)
	}
}

// ManifestRecipe is a Recipe built from a parsed *.module INI file.
// Unload is always unload-by-reversal: the recorder is set to
// reverse-op mode and Load's op sequence is replayed, letting the
// recorder remap each additive operation to its inverse.
type ManifestRecipe struct {
	name     ModuleName
	depends  []ModuleName
	paths    map[string][]pathOp
	flags    map[string][]pathOp
	alias    map[string]string
	env      map[string]string
	shellVar map[string]string
	messages []string
}

// ParseManifest reads and parses a *.module file at path as the recipe
// named name.
func ParseManifest(path string, name ModuleName) (*ManifestRecipe, error) {
	// AllowShadows keeps every occurrence of a repeated key; without it
	// go-ini's last value wins and ValueWithShadows returns one element,
	// collapsing multi-component path lists to their final line.
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, path)
	if err != nil {
		return nil, &ManifestError{Path: path, Err: err}
	}

	m := &ManifestRecipe{
		name:     name,
		paths:    make(map[string][]pathOp),
		flags:    make(map[string][]pathOp),
		alias:    make(map[string]string),
		env:      make(map[string]string),
		shellVar: make(map[string]string),
	}

	def := cfg.Section(ini.DefaultSection)
	if def.HasKey("depends") {
		for _, seg := range strings.Split(def.Key("depends").String(), ",") {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			m.depends = append(m.depends, ModuleName(seg))
		}
	}
	if def.HasKey("message") {
		m.messages = append(m.messages, def.Key("message").ValueWithShadows()...)
	}

	if sec, err := cfg.GetSection("paths"); err == nil {
		if err := loadPathOps(sec, m.paths); err != nil {
			return nil, &ManifestError{Path: path, Err: err}
		}
	}
	if sec, err := cfg.GetSection("flags"); err == nil {
		if err := loadPathOps(sec, m.flags); err != nil {
			return nil, &ManifestError{Path: path, Err: err}
		}
	}
	if sec, err := cfg.GetSection("alias"); err == nil {
		loadFlatSection(sec, m.alias)
	}
	if sec, err := cfg.GetSection("env"); err == nil {
		loadFlatSection(sec, m.env)
	}
	if sec, err := cfg.GetSection("shellvar"); err == nil {
		loadFlatSection(sec, m.shellVar)
	}

	return m, nil
}

func loadPathOps(sec *ini.Section, dst map[string][]pathOp) error {
	for _, key := range sec.Keys() {
		for _, raw := range key.ValueWithShadows() {
			op, err := parsePathOp(raw)
			if err != nil {
				return err
			}
			dst[key.Name()] = append(dst[key.Name()], op)
		}
	}
	return nil
}

func loadFlatSection(sec *ini.Section, dst map[string]string) {
	for _, key := range sec.Keys() {
		dst[key.Name()] = key.Value()
	}
}

func (m *ManifestRecipe) Name() ModuleName { return m.name }

func (m *ManifestRecipe) Preload(env Environment) ([]ModuleName, error) {
	return m.depends, nil
}

func (m *ManifestRecipe) Load(env Environment, shell *shellrec.Recorder) error {
	if err := m.applyOps(shell, false); err != nil {
		return &ModuleLoadError{Module: m.name, Reason: "manifest apply failed", Err: err}
	}
	return nil
}

func (m *ManifestRecipe) Unload(env Environment, shell *shellrec.Recorder) error {
	shell.SetReverseOp(true)
	err := m.applyOps(shell, true)
	shell.SetReverseOp(false)
	if err != nil {
		return &ModuleUnloadError{Module: m.name, Reason: "manifest reversal failed", Err: err}
	}
	return nil
}

// applyOps replays the manifest's op sequence against shell. When
// reverse is true (unload-by-reversal), "reset" path/flag ops are
// skipped: reset has no inverse, so a manifest that relies on reset to
// reach its loaded state cannot be unloaded purely by reversal for
// that variable. Messages are not replayed either, since write has no
// inverse.
func (m *ManifestRecipe) applyOps(shell *shellrec.Recorder, reverse bool) error {
	for _, varName := range sortedStringKeys(m.paths) {
		for _, op := range m.paths[varName] {
			if err := applyPathOp(shell, varName, op, reverse); err != nil {
				return err
			}
		}
	}
	for _, varName := range sortedStringKeys(m.flags) {
		for _, op := range m.flags[varName] {
			if err := applyFlagOp(shell, varName, op, reverse); err != nil {
				return err
			}
		}
	}
	for _, name := range sortedStringKeys(m.alias) {
		if err := shell.AddAlias(name, m.alias[name]); err != nil {
			return err
		}
	}
	for _, name := range sortedStringKeys(m.env) {
		if err := shell.AddEnv(name, m.env[name]); err != nil {
			return err
		}
	}
	for _, name := range sortedStringKeys(m.shellVar) {
		if err := shell.AddShellVariable(name, m.shellVar[name]); err != nil {
			return err
		}
	}
	// write has no inverse; a message is only ever emitted on load.
	if !reverse {
		for _, msg := range m.messages {
			if err := shell.Write(msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyPathOp(shell *shellrec.Recorder, varName string, op pathOp, reverse bool) error {
	switch op.kind {
	case opPrepend:
		return shell.PrependPath(varName, op.value, shellrec.CheckNone)
	case opAppend:
		return shell.AppendPath(varName, op.value, shellrec.CheckNone)
	case opReset:
		if reverse {
			return nil
		}
		return shell.ResetPath(varName)
	default:
		return fmt.Errorf("unknown path op kind %d", op.kind)
	}
}

func applyFlagOp(shell *shellrec.Recorder, varName string, op pathOp, reverse bool) error {
	switch op.kind {
	case opPrepend:
		return shell.PrependCompilerFlag(varName, op.value, "", shellrec.CheckNone)
	case opAppend:
		return shell.AppendCompilerFlag(varName, op.value, "", shellrec.CheckNone)
	case opReset:
		if reverse {
			return nil
		}
		return shell.ResetCompilerFlag(varName)
	default:
		return fmt.Errorf("unknown flag op kind %d", op.kind)
	}
}

func sortedStringKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
