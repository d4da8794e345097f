package shellrec

import "fmt"

// ErrUnknownDialect is returned by Get when no dialect is registered
// under the requested name.
type ErrUnknownDialect struct {
	Name string
}

func (e *ErrUnknownDialect) Error() string {
	return fmt.Sprintf("unknown shell dialect: %s", e.Name)
}

// ErrPathCheckFailed is returned by Prepend/AppendPath when check is
// CheckEnforce and the path is not an executable directory.
type ErrPathCheckFailed struct {
	Var  string
	Path string
}

func (e *ErrPathCheckFailed) Error() string {
	return fmt.Sprintf("%s: not an executable directory: %s", e.Var, e.Path)
}

// ShellReverseOperationError is returned when a non-invertible recorder
// operation (a remove, a reset, or a message write) is invoked while
// the recorder is in reverse-op mode. A caller driving
// unload-by-reversal surfaces this as a ModuleUnloadError.
type ShellReverseOperationError struct {
	Op string
}

func (e *ShellReverseOperationError) Error() string {
	return fmt.Sprintf("operation %q has no inverse and cannot run in reverse-op mode", e.Op)
}
