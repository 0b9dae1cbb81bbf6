package postconf

import "context"

// Tool is the postconf capability: the only way main.cf is read or written.
type Tool interface {
	// Describe fails when postconf does not know name.
	Describe(ctx context.Context, name string) error
	// Value returns the effective value, which may be a built-in default.
	Value(ctx context.Context, name string) (string, error)
	// Set writes name = value into main.cf. An empty value is written as an
	// explicit empty assignment.
	Set(ctx context.Context, name, value string) error
	// DeleteFromFile removes the explicit main.cf entry for name.
	DeleteFromFile(ctx context.Context, name string) error
}

// Searcher reports whether any line of the file at path matches pattern
// (POSIX extended regular expression).
type Searcher interface {
	Match(ctx context.Context, pattern, path string) (bool, error)
}

// Executor is the combined capability a Reconciler needs.
type Executor interface {
	Tool
	Searcher
}
