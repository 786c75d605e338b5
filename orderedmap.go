package quickleaf

import "container/list"

// orderedNode is the payload stored in each container/list.Element; it
// lets removeOldest and removeByKey recover the key from a list element
// without a second map lookup, mirroring the teacher's eviction.go
// removeElement helper.
type orderedNode struct {
	key  string
	item item
}

// orderedMap maps keys to items while preserving insertion order (3),
// independent of key order. It is the Go analogue of the teacher's
// map[string]*list.Element + *list.List pair (cache.go's data/lru
// fields), renamed because list position here tracks insertion order,
// not recency: unlike tempuscache's Get, this structure's Get never
// promotes an element (4.A: "get MUST NOT change insertion order").
//
// Two O(1) primitives are required by the core (3): removal of the
// first-inserted entry, and removal by key. container/list gives both
// in O(1) given the element pointer held in entries.
type orderedMap struct {
	entries map[string]*list.Element
	order   *list.List
}

func newOrderedMap() *orderedMap {
	return &orderedMap{
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (m *orderedMap) len() int {
	return len(m.entries)
}

func (m *orderedMap) get(key string) (item, bool) {
	elem, ok := m.entries[key]
	if !ok {
		return item{}, false
	}
	return elem.Value.(*orderedNode).item, true
}

// put inserts a new key at the end of insertion order, or replaces the
// item of an existing key in place (position unchanged — replacement is
// not a re-insertion for eviction purposes, since callers that want to
// "refresh" position must remove then insert).
func (m *orderedMap) put(key string, it item) {
	if elem, ok := m.entries[key]; ok {
		elem.Value.(*orderedNode).item = it
		return
	}
	elem := m.order.PushBack(&orderedNode{key: key, item: it})
	m.entries[key] = elem
}

// oldestKey returns the first-inserted surviving key, or "" if empty.
func (m *orderedMap) oldestKey() (string, bool) {
	front := m.order.Front()
	if front == nil {
		return "", false
	}
	return front.Value.(*orderedNode).key, true
}

// removeOldest evicts the first-inserted entry and returns it, for the
// facade to emit a Remove event with its pre-removal value (4.A).
func (m *orderedMap) removeOldest() (string, item, bool) {
	front := m.order.Front()
	if front == nil {
		return "", item{}, false
	}
	node := front.Value.(*orderedNode)
	m.order.Remove(front)
	delete(m.entries, node.key)
	return node.key, node.item, true
}

// removeByKey removes a specific key in O(1) given the stored element
// pointer. Per the 9 open question on remove's side effect, this uses
// container/list's shift-remove (the element's neighbors are relinked
// directly); the oldest surviving entry remains the next eviction
// victim, which is all 4.A requires.
func (m *orderedMap) removeByKey(key string) (item, bool) {
	elem, ok := m.entries[key]
	if !ok {
		return item{}, false
	}
	node := elem.Value.(*orderedNode)
	m.order.Remove(elem)
	delete(m.entries, key)
	return node.item, true
}

func (m *orderedMap) clear() {
	m.entries = make(map[string]*list.Element)
	m.order.Init()
}

// keys returns all stored keys in insertion order. Used by Snapshot and
// the expiration sweep; List (cache.go) walks the radix index instead.
func (m *orderedMap) keys() []string {
	out := make([]string, 0, len(m.entries))
	for e := m.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*orderedNode).key)
	}
	return out
}
