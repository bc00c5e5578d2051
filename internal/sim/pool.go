package sim

import (
	"sync"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// passPool recycles the per-update telemetry buffers handed to observers.
type passPool struct {
	pool sync.Pool
}

func newPassPool(capacity int) *passPool {
	return &passPool{
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]dynamo.Telemetry, 0, capacity)
				return &buf
			},
		},
	}
}

func (p *passPool) Get() *[]dynamo.Telemetry {
	buf := p.pool.Get().(*[]dynamo.Telemetry)
	*buf = (*buf)[:0]
	return buf
}

func (p *passPool) Put(buf *[]dynamo.Telemetry) {
	p.pool.Put(buf)
}
