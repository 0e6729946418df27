package database

import "errors"

// Closed set of error kinds surfaced by the store. Call sites wrap these
// with fmt.Errorf("...: %w", Err...) carrying ids/patterns/names; callers
// match with errors.Is.
var (
	// ErrAuthentication means the key is wrong or the file is not a valid
	// encrypted store. Fatal, no retry.
	ErrAuthentication = errors.New("wrong key or corrupt store")

	// ErrSchema means a table or column had an unexpected shape mid-migration.
	ErrSchema = errors.New("unexpected schema shape")

	// ErrNotFound means a category or transaction lookup missed.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity means more than one row matched an operation expected to
	// affect exactly one.
	ErrIntegrity = errors.New("integrity violation")

	// ErrImport means a single input file or record failed to parse or merge.
	// Logged and skipped; the rest of the batch continues.
	ErrImport = errors.New("import failed")
)
