package shellrec

// Dialect translates the recorder's capability vocabulary into concrete
// shell syntax. Implementations live in bash.go/tcsh.go/elisp.go.
//
// A method may return "" to mean "this construct is a no-op in this
// dialect" (elisp has no shell variables or aliases); DumpState drops
// empty strings.
type Dialect interface {
	// Name is the dialect's registered name (e.g. "bash").
	Name() string

	// SetEnv renders an exported environment variable assignment.
	SetEnv(key, value string) string

	// UnsetEnv renders an environment variable removal.
	UnsetEnv(key string) string

	// SetShellVar renders a shell-local (non-exported) variable
	// assignment, or "" if the dialect has no such concept.
	SetShellVar(key, value string) string

	// UnsetShellVar renders a shell-local variable removal, or "".
	UnsetShellVar(key string) string

	// SetAlias renders an alias definition, or "".
	SetAlias(key, value string) string

	// UnsetAlias renders an alias removal, or "".
	UnsetAlias(key string) string

	// Messages renders the queued user messages. rawMsgDump requests
	// the raw-text form where the dialect has one (elisp only).
	Messages(lines []string, rawMsgDump bool) []string
}

// backends is the dialect registry, keyed by name.
var backends = make(map[string]Dialect)

// Register registers a dialect implementation. Panics if name is already
// registered: a duplicate registration is a programming error, not a
// run-time condition.
func Register(name string, d Dialect) {
	if _, exists := backends[name]; exists {
		panic("shellrec: dialect already registered: " + name)
	}
	backends[name] = d
}

// Get returns the dialect registered under name.
func Get(name string) (Dialect, error) {
	d, ok := backends[name]
	if !ok {
		return nil, &ErrUnknownDialect{Name: name}
	}
	return d, nil
}

func init() {
	Register("bash", bashDialect{})
	Register("tcsh", tcshDialect{})
	Register("elisp", elispDialect{})
}
