package quickleaf

// Order selects ascending or descending key order for List (4.F).
type Order uint8

const (
	Asc Order = iota
	Desc
)

// StartAfter is the cursor input to List: either no cursor, or a key to
// resume after (4.F, GLOSSARY "Cursor"). The cache holds no pagination
// state of its own (3) — the cursor is a value the caller passes in on
// each call.
type StartAfter struct {
	key   string
	isSet bool
}

// NoCursor is the default "start from the beginning" cursor.
func NoCursor() StartAfter { return StartAfter{} }

// After resumes listing immediately past key.
func After(key string) StartAfter { return StartAfter{key: key, isSet: true} }

// ListProps configures a List call: order, filter, cursor, and limit
// (4.F). The zero value is not directly useful — use NewListProps, which
// applies spec.md's defaults (Asc, NoFilter, NoCursor, limit 10).
type ListProps struct {
	order         Order
	filter        Filter
	startAfterKey StartAfter
	limit         int
}

// NewListProps returns the default query: ascending, unfiltered, from
// the start, limit 10.
func NewListProps() ListProps {
	return ListProps{order: Asc, filter: NoFilter(), startAfterKey: NoCursor(), limit: 10}
}

func (p ListProps) WithOrder(o Order) ListProps {
	p.order = o
	return p
}

func (p ListProps) WithFilter(f Filter) ListProps {
	p.filter = f
	return p
}

func (p ListProps) WithStartAfter(c StartAfter) ListProps {
	p.startAfterKey = c
	return p
}

// WithLimit sets the maximum number of results. A limit of 0 returns an
// empty result with no error, regardless of filter or cursor (4.F edge
// cases).
func (p ListProps) WithLimit(n int) ListProps {
	p.limit = n
	return p
}

// Pair is a single (key, value) result row from List.
type Pair struct {
	Key   string
	Value Value
}
