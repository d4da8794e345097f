package moduledb

import "fmt"

// Sentinel errors, checked with errors.Is().
var (
	// ErrModuleNotFound is returned when a name does not resolve to any
	// recipe file on the search path.
	ErrModuleNotFound = fmt.Errorf("module not found on search path")

	// ErrInvalidModuleName describes a recipe filename whose leaf
	// contains more than one period, or a dotted name with an empty
	// segment. No function in this package returns it: discovery logs
	// and skips such files instead.
	ErrInvalidModuleName = fmt.Errorf("invalid module name")

	// ErrManifestParse is returned when a *.module file cannot be parsed
	// as INI, or has a malformed path/flag operation value.
	ErrManifestParse = fmt.Errorf("malformed module manifest")
)

// ModulePreloadError wraps a recipe's preload failure: a conflict, a
// missing dependency, or a detected circular dependency (Reason
// "cycle through X").
type ModulePreloadError struct {
	Module ModuleName
	Reason string
}

func (e *ModulePreloadError) Error() string {
	return fmt.Sprintf("preload %s: %s", e.Module, e.Reason)
}

// ModuleLoadError wraps a recipe's load failure.
type ModuleLoadError struct {
	Module ModuleName
	Reason string
	Err    error
}

func (e *ModuleLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Module, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Module, e.Reason)
}

func (e *ModuleLoadError) Unwrap() error { return e.Err }

// ModuleUnloadError wraps a recipe's unload failure, including the
// "still depended on" and "not loaded" cases, and any
// ShellReverseOperationError surfaced from unload-by-reversal.
type ModuleUnloadError struct {
	Module ModuleName
	Reason string
	Err    error
}

func (e *ModuleUnloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unload %s: %s: %v", e.Module, e.Reason, e.Err)
	}
	return fmt.Sprintf("unload %s: %s", e.Module, e.Reason)
}

func (e *ModuleUnloadError) Unwrap() error { return e.Err }

// ManifestError wraps a parse failure for a specific manifest file.
type ManifestError struct {
	Path string
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error { return ErrManifestParse }
