package codec

import "github.com/google/uuid"

// NewGenerationID returns a fresh diagnostic identifier for a single
// persistence write. It is never part of the encoded payload; callers
// thread it through to logging only, so a user comparing two --dump
// traces across invocations can tell whether the persisted state
// actually changed between them.
func NewGenerationID() string {
	return uuid.New().String()
}
