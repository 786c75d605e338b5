package quickleaf

import "github.com/phlowdotdev/quickleaf/store"

// runFanout is the Cache's single internal goroutine (5): it drains
// internalEvents and forwards each mutation to the external subscriber
// first, then to the durable store's worker, per 4.D's delivery order.
//
// The two destinations have distinct failure semantics. A dropped
// external send is non-fatal — publish already swallows it — and
// fan-out keeps running. A failed durable enqueue means the worker has
// been closed out from under the cache; there is no useful work left
// for fan-out to do, so it terminates silently rather than spinning on
// a channel that will never accept again.
func runFanout(events <-chan Event, external EventSender, worker *store.Worker) {
	for ev := range events {
		publish(external, ev)

		if worker == nil {
			continue
		}

		op, ok := toOp(ev)
		if !ok {
			continue
		}
		if !worker.EnqueueBlocking(op) {
			return
		}
	}
}

// toOp translates a Cache-level Event into the store package's
// transport type. store stays ignorant of Value/Event to avoid an
// import cycle back to the top-level package, so this translation has
// to live here rather than on Event itself.
func toOp(ev Event) (store.Op, bool) {
	switch ev.Kind {
	case EventInsert:
		return store.Op{
			Kind:             store.OpUpsert,
			Key:              ev.Key,
			Value:            ev.Value.MarshalCanonical(),
			CreatedAtUnixSec: int64(ev.atMS / 1000),
			// ev.ttlMS is the TTL actually resolved for this insert (nil
			// when there genuinely is none), not a blind "preserve
			// whatever's already on the row" — carrying the real value is
			// what lets a later TTL-less overwrite correctly clear a
			// stale ttl_seconds instead of being indistinguishable from
			// the async echo of an InsertWithTTL that set one.
			TTLSeconds: msPtrToSecondsPtr(ev.ttlMS),
		}, true
	case EventRemove:
		return store.Op{Kind: store.OpDelete, Key: ev.Key}, true
	case EventClear:
		return store.Op{Kind: store.OpClear}, true
	default:
		return store.Op{}, false
	}
}
