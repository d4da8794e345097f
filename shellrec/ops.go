package shellrec

// CheckMode controls how a path component is validated before insertion.
type CheckMode int

const (
	// CheckNone inserts unconditionally.
	CheckNone CheckMode = iota
	// CheckValidate silently skips a path that is not an executable
	// directory.
	CheckValidate
	// CheckEnforce fails with ErrPathCheckFailed if the path is not an
	// executable directory.
	CheckEnforce
)

// varEntry is a single pending alias/shell-variable/env-variable
// mutation: either a value to set, or a removal sentinel.
type varEntry struct {
	value   string
	removed bool
}
