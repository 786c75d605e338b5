package quickleaf

import "errors"

// Sentinel errors returned by the cache's in-memory operations. Callers
// should compare against these with errors.Is rather than matching on
// message text.
var (
	// ErrKeyNotFound is returned by Remove when the key is absent.
	ErrKeyNotFound = errors.New("quickleaf: key not found")

	// ErrSortKeyNotFound is returned by List when a cursor names a key
	// that is not live at query time.
	ErrSortKeyNotFound = errors.New("quickleaf: sort key not found")

	// ErrKeyExists is returned by InsertIfAbsent when the key is already
	// present, live or not.
	ErrKeyExists = errors.New("quickleaf: key already exists")
)

// StoreOpenError wraps a failure to open or initialize the durable
// store's backing file/schema. It is returned by New when a persist
// option is supplied and construction cannot proceed.
type StoreOpenError struct {
	Path string
	Err  error
}

func (e *StoreOpenError) Error() string {
	return "quickleaf: failed to open store at " + e.Path + ": " + e.Err.Error()
}

func (e *StoreOpenError) Unwrap() error {
	return e.Err
}
