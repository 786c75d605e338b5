package quickleaf

import "time"

// Clock produces the millisecond timestamps used for TTL math (3). It is
// an interface, rather than direct time.Now() calls as the teacher's
// Item.Expired does, because the TTL-boundary property (8) needs to be
// exercised exactly at now-created_at == ttl without sleeping in tests.
type Clock interface {
	NowMS() uint64
}

type systemClock struct{}

func (systemClock) NowMS() uint64 {
	return uint64(time.Now().UnixMilli())
}

// SystemClock is the default Clock used by New.
var SystemClock Clock = systemClock{}
